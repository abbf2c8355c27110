package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/domain"
	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/gateway"
	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/metrics"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// LedgerEntryInput define um crédito ou débito na carteira.
// Reference é a chave de idempotência: mesma referência, mesmo lançamento.
type LedgerEntryInput struct {
	UserID               string
	Currency             string
	Amount               int64 // centavos
	Reference            string
	Description          string
	Metadata             string
	InvoiceID            *string
	PaymentTransactionID *string
	Status               domain.WalletTransactionStatus // vazio ou succeeded
	Timestamp            time.Time
	Audit                domain.AuditMetadata
}

type LedgerEntryOutput struct {
	Transaction    *domain.WalletTransaction
	AlreadyApplied bool
}

// WalletLedger aplica lançamentos na carteira. Lançamento e saldo são gravados
// juntos na mesma transação; se o chamador já abriu uma, o ledger participa dela.
type WalletLedger struct {
	walletRepository   gateway.WalletRepository
	transactionManager gateway.TransactionManager
}

func NewWalletLedger(walletRepo gateway.WalletRepository, txManager gateway.TransactionManager) *WalletLedger {
	return &WalletLedger{
		walletRepository:   walletRepo,
		transactionManager: txManager,
	}
}

// Credit cria a carteira na primeira vez.
func (l *WalletLedger) Credit(ctx context.Context, input LedgerEntryInput) (*LedgerEntryOutput, error) {
	return l.apply(ctx, input, domain.DirectionCredit)
}

// Debit exige carteira existente, destravada e com saldo.
func (l *WalletLedger) Debit(ctx context.Context, input LedgerEntryInput) (*LedgerEntryOutput, error) {
	return l.apply(ctx, input, domain.DirectionDebit)
}

func (l *WalletLedger) apply(ctx context.Context, input LedgerEntryInput, direction domain.LedgerDirection) (*LedgerEntryOutput, error) {
	if err := validateLedgerEntry(input); err != nil {
		metrics.LedgerEntries.WithLabelValues(string(direction), "rejected").Inc()
		return nil, err
	}

	var output *LedgerEntryOutput
	err := l.transactionManager.Run(ctx, func(contextWithTx context.Context) error {
		walletRepoTx := l.walletRepository.WithTx(gateway.TxFromContext(contextWithTx))

		// Retentativa com a mesma referência: devolve o lançamento original
		existing, err := walletRepoTx.GetTransactionByReference(contextWithTx, input.Reference)
		if err == nil {
			owner, err := walletRepoTx.GetByUserID(contextWithTx, input.UserID)
			if err != nil && !errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("falha ao buscar carteira de %s: %w", input.UserID, err)
			}
			ownerID := ""
			if owner != nil {
				ownerID = owner.ID
			}
			output, err = alreadyApplied(existing, ownerID, input, direction)
			return err
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("falha ao buscar lançamento %s: %w", input.Reference, err)
		}

		wallet, err := l.lockWallet(contextWithTx, walletRepoTx, input, direction)
		if err != nil {
			return err
		}
		if wallet.Currency != input.Currency {
			return fmt.Errorf("%w: wallet %s is %s, entry is %s", domain.ErrCurrencyMismatch, wallet.ID, wallet.Currency, input.Currency)
		}

		if direction == domain.DirectionCredit {
			err = wallet.Credit(input.Amount)
		} else {
			err = wallet.Debit(input.Amount)
		}
		if err != nil {
			return err
		}

		entry := newWalletTransaction(wallet, input, direction)
		inserted, err := walletRepoTx.AppendTransaction(contextWithTx, entry)
		if err != nil {
			return fmt.Errorf("falha ao gravar lançamento %s: %w", input.Reference, err)
		}
		if !inserted {
			// Outra requisição gravou a mesma referência entre a leitura e o insert
			existing, err := walletRepoTx.GetTransactionByReference(contextWithTx, input.Reference)
			if err != nil {
				return fmt.Errorf("falha ao reler lançamento %s: %w", input.Reference, err)
			}
			output, err = alreadyApplied(existing, wallet.ID, input, direction)
			return err
		}

		if err := walletRepoTx.UpdateBalance(contextWithTx, wallet); err != nil {
			return fmt.Errorf("falha ao atualizar saldo da carteira %s: %w", wallet.ID, err)
		}

		output = &LedgerEntryOutput{Transaction: entry}
		return nil
	})
	if err != nil {
		metrics.LedgerEntries.WithLabelValues(string(direction), "rejected").Inc()
		return nil, err
	}

	if output.AlreadyApplied {
		metrics.LedgerEntries.WithLabelValues(string(direction), "duplicate").Inc()
		log.Info().Str("reference", input.Reference).Msg("Lançamento já aplicado, retornando o original")
	} else {
		metrics.LedgerEntries.WithLabelValues(string(direction), "applied").Inc()
	}
	return output, nil
}

func (l *WalletLedger) lockWallet(ctx context.Context, repo gateway.WalletRepository, input LedgerEntryInput, direction domain.LedgerDirection) (*domain.WalletAccount, error) {
	if direction == domain.DirectionCredit {
		now := input.Audit.At()
		err := repo.CreateIfMissing(ctx, &domain.WalletAccount{
			ID:        uuid.NewString(),
			UserID:    input.UserID,
			Currency:  input.Currency,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			return nil, fmt.Errorf("falha ao criar carteira de %s: %w", input.UserID, err)
		}
	}

	wallet, err := repo.GetByUserIDForUpdate(ctx, input.UserID)
	if err != nil {
		return nil, fmt.Errorf("falha ao travar carteira de %s: %w", input.UserID, err)
	}
	return wallet, nil
}

// alreadyApplied aceita a repetição só se o lançamento original é da mesma
// carteira, direção e valor. Referência de outro usuário é colisão.
func alreadyApplied(existing *domain.WalletTransaction, walletID string, input LedgerEntryInput, direction domain.LedgerDirection) (*LedgerEntryOutput, error) {
	if existing.WalletID != walletID {
		return nil, fmt.Errorf("%w: %s belongs to another wallet", domain.ErrDuplicateReference, input.Reference)
	}
	if existing.Direction != direction || existing.Amount != input.Amount {
		return nil, fmt.Errorf("%w: %s was a %s of %d", domain.ErrDuplicateReference, input.Reference, existing.Direction, existing.Amount)
	}
	return &LedgerEntryOutput{Transaction: existing, AlreadyApplied: true}, nil
}

func newWalletTransaction(wallet *domain.WalletAccount, input LedgerEntryInput, direction domain.LedgerDirection) *domain.WalletTransaction {
	status := input.Status
	if status == "" {
		status = domain.WalletTxSucceeded
	}
	createdAt := input.Timestamp
	if createdAt.IsZero() {
		createdAt = input.Audit.At()
	}
	return &domain.WalletTransaction{
		ID:                   uuid.NewString(),
		WalletID:             wallet.ID,
		Reference:            input.Reference,
		Amount:               input.Amount,
		Direction:            direction,
		BalanceAfter:         wallet.Balance,
		Description:          input.Description,
		Metadata:             input.Metadata,
		InvoiceID:            input.InvoiceID,
		PaymentTransactionID: input.PaymentTransactionID,
		Status:               status,
		ActorID:              input.Audit.ActorID,
		CreatedAt:            createdAt,
	}
}

func validateLedgerEntry(input LedgerEntryInput) error {
	switch {
	case input.Amount <= 0:
		return domain.ErrInvalidAmount
	case input.Reference == "":
		return domain.ErrMissingReference
	case input.Currency == "":
		return domain.ErrMissingCurrency
	case input.UserID == "":
		return fmt.Errorf("%w: user id is required", domain.ErrValidation)
	case input.Status != "" && input.Status != domain.WalletTxSucceeded:
		// todo lançamento move o saldo; pendente ou falho não entra no ledger
		return fmt.Errorf("%w: ledger entries must be %s, got %s", domain.ErrValidation, domain.WalletTxSucceeded, input.Status)
	}
	return nil
}
