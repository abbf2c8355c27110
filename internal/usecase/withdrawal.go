package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/domain"
	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/gateway"
	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/metrics"
	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/reference"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type CreateWithdrawalInput struct {
	Type        domain.WithdrawalType
	OwnerID     string // UserID (carteira) ou SellerID (receita)
	Amount      int64
	Currency    string
	Destination domain.PayoutDestination
	Audit       domain.AuditMetadata
}

// ReviewWithdrawalInput serve para aprovar, rejeitar, cancelar e processar.
type ReviewWithdrawalInput struct {
	WithdrawalID string
	Reason       string
	Audit        domain.AuditMetadata
}

type WithdrawalOutput struct {
	ID                  string     `json:"id"`
	Type                string     `json:"type"`
	Status              string     `json:"status"`
	Amount              int64      `json:"amount"`
	Currency            string     `json:"currency"`
	OwnerID             string     `json:"owner_id"`
	BankName            string     `json:"bank_name,omitempty"`
	AccountHolder       string     `json:"account_holder,omitempty"`
	AccountNumber       string     `json:"account_number"`
	WalletTransactionID *string    `json:"wallet_transaction_id,omitempty"`
	Reason              string     `json:"reason,omitempty"`
	ProcessedAt         *time.Time `json:"processed_at,omitempty"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

func toWithdrawalOutput(r *domain.WithdrawalRequest) *WithdrawalOutput {
	return &WithdrawalOutput{
		ID:                  r.ID,
		Type:                string(r.Type),
		Status:              string(r.Status),
		Amount:              r.Amount,
		Currency:            r.Currency,
		OwnerID:             r.OwnerID(),
		BankName:            r.Destination.BankName,
		AccountHolder:       r.Destination.AccountHolder,
		AccountNumber:       r.Destination.AccountNumber,
		WalletTransactionID: r.WalletTransactionID,
		Reason:              r.Reason,
		ProcessedAt:         r.ProcessedAt,
		UpdatedAt:           r.UpdatedAt,
	}
}

// WithdrawalUseCase conduz a máquina de estados dos pedidos de saque.
// Ordem de lock: pedido primeiro, depois carteira ou vendedor.
type WithdrawalUseCase struct {
	withdrawalRepository gateway.WithdrawalRepository
	walletRepository     gateway.WalletRepository
	revenueRepository    gateway.RevenueRepository
	transactionManager   gateway.TransactionManager
	ledger               *WalletLedger
	eventPublisher       gateway.EventPublisher
}

func NewWithdrawal(
	withdrawalRepo gateway.WithdrawalRepository,
	walletRepo gateway.WalletRepository,
	revenueRepo gateway.RevenueRepository,
	txManager gateway.TransactionManager,
	ledger *WalletLedger,
	publisher gateway.EventPublisher,
) *WithdrawalUseCase {
	return &WithdrawalUseCase{
		withdrawalRepository: withdrawalRepo,
		walletRepository:     walletRepo,
		revenueRepository:    revenueRepo,
		transactionManager:   txManager,
		ledger:               ledger,
		eventPublisher:       publisher,
	}
}

// Create registra o pedido como pending. O saldo é conferido aqui só como
// pré-checagem; a checagem que vale é a do Process, sob trava.
func (u *WithdrawalUseCase) Create(ctx context.Context, input CreateWithdrawalInput) (*WithdrawalOutput, error) {
	req, err := domain.NewWithdrawalRequest(uuid.NewString(), input.Type, input.OwnerID, input.Amount, input.Currency, input.Destination, input.Audit)
	if err != nil {
		return nil, err
	}

	switch req.Type {
	case domain.WithdrawalWallet:
		wallet, err := u.walletRepository.GetByUserID(ctx, req.UserID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, fmt.Errorf("%w: user %s has no wallet", domain.ErrInsufficientFunds, req.UserID)
			}
			return nil, fmt.Errorf("erro ao buscar carteira: %w", err)
		}
		if wallet.Currency != req.Currency {
			return nil, fmt.Errorf("%w: wallet is %s, request is %s", domain.ErrCurrencyMismatch, wallet.Currency, req.Currency)
		}
		if !wallet.HasSufficientFunds(req.Amount) {
			return nil, fmt.Errorf("%w: balance %d, requested %d", domain.ErrInsufficientFunds, wallet.Balance, req.Amount)
		}
	case domain.WithdrawalSellerRevenue:
		available, err := u.availableRevenue(ctx, u.revenueRepository, req.SellerID)
		if err != nil {
			return nil, err
		}
		if req.Amount > available {
			return nil, fmt.Errorf("%w: available %d, requested %d", domain.ErrInsufficientFunds, available, req.Amount)
		}
	}

	if err := u.withdrawalRepository.Create(ctx, req); err != nil {
		return nil, fmt.Errorf("falha ao criar pedido de saque: %w", err)
	}
	u.published(ctx, req, input.Audit)
	return toWithdrawalOutput(req), nil
}

func (u *WithdrawalUseCase) Get(ctx context.Context, id string) (*WithdrawalOutput, error) {
	req, err := u.withdrawalRepository.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrWithdrawalNotFound
		}
		return nil, fmt.Errorf("erro ao buscar pedido de saque: %w", err)
	}
	return toWithdrawalOutput(req), nil
}

func (u *WithdrawalUseCase) Approve(ctx context.Context, input ReviewWithdrawalInput) (*WithdrawalOutput, error) {
	return u.transition(ctx, input, func(_ context.Context, req *domain.WithdrawalRequest) error {
		return req.Approve(input.Audit)
	})
}

func (u *WithdrawalUseCase) Reject(ctx context.Context, input ReviewWithdrawalInput) (*WithdrawalOutput, error) {
	return u.transition(ctx, input, func(_ context.Context, req *domain.WithdrawalRequest) error {
		return req.Reject(input.Reason, input.Audit)
	})
}

func (u *WithdrawalUseCase) Cancel(ctx context.Context, input ReviewWithdrawalInput) (*WithdrawalOutput, error) {
	return u.transition(ctx, input, func(_ context.Context, req *domain.WithdrawalRequest) error {
		return req.Cancel(input.Reason, input.Audit)
	})
}

// Process paga um pedido aprovado. Sem saldo, o pedido continua approved.
func (u *WithdrawalUseCase) Process(ctx context.Context, input ReviewWithdrawalInput) (*WithdrawalOutput, error) {
	return u.transition(ctx, input, func(ctx context.Context, req *domain.WithdrawalRequest) error {
		if err := req.CanProcess(); err != nil {
			return err
		}
		switch req.Type {
		case domain.WithdrawalSellerRevenue:
			return u.processSellerRevenue(ctx, req, input.Audit)
		case domain.WithdrawalWallet:
			return u.processWallet(ctx, req, input.Audit)
		}
		return fmt.Errorf("%w: unknown withdrawal type %q", domain.ErrValidation, req.Type)
	})
}

// transition trava o pedido, aplica a mudança e salva na mesma transação.
// fn recebe o contexto que carrega a transação.
func (u *WithdrawalUseCase) transition(ctx context.Context, input ReviewWithdrawalInput, fn func(ctx context.Context, req *domain.WithdrawalRequest) error) (*WithdrawalOutput, error) {
	var req *domain.WithdrawalRequest
	err := u.transactionManager.Run(ctx, func(contextWithTx context.Context) error {
		withdrawalRepoTx := u.withdrawalRepository.WithTx(gateway.TxFromContext(contextWithTx))

		locked, err := withdrawalRepoTx.GetByIDForUpdate(contextWithTx, input.WithdrawalID)
		if err != nil {
			return fmt.Errorf("falha ao travar pedido de saque %s: %w", input.WithdrawalID, err)
		}

		if err := fn(contextWithTx, locked); err != nil {
			return err
		}
		if err := withdrawalRepoTx.Save(contextWithTx, locked); err != nil {
			return fmt.Errorf("falha ao salvar pedido de saque %s: %w", locked.ID, err)
		}
		req = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	u.published(ctx, req, input.Audit)
	return toWithdrawalOutput(req), nil
}

func (u *WithdrawalUseCase) processSellerRevenue(ctx context.Context, req *domain.WithdrawalRequest, audit domain.AuditMetadata) error {
	revenueRepoTx := u.revenueRepository.WithTx(gateway.TxFromContext(ctx))

	// Saques do mesmo vendedor serializam aqui até o commit
	if err := revenueRepoTx.LockSeller(ctx, req.SellerID); err != nil {
		return fmt.Errorf("falha ao travar vendedor %s: %w", req.SellerID, err)
	}
	available, err := u.availableRevenue(ctx, revenueRepoTx, req.SellerID)
	if err != nil {
		return err
	}
	if req.Amount > available {
		return fmt.Errorf("%w: available %d, requested %d", domain.ErrInsufficientFunds, available, req.Amount)
	}
	return req.MarkProcessed(nil, audit)
}

func (u *WithdrawalUseCase) processWallet(ctx context.Context, req *domain.WithdrawalRequest, audit domain.AuditMetadata) error {
	out, err := u.ledger.Debit(ctx, LedgerEntryInput{
		UserID:      req.UserID,
		Currency:    req.Currency,
		Amount:      req.Amount,
		Reference:   reference.Derive(reference.KindWithdrawal, req.ID),
		Description: "Withdrawal to " + req.Destination.AccountNumber,
		Metadata:    "WITHDRAWAL_REQUEST:" + req.ID,
		Status:      domain.WalletTxSucceeded,
		Audit:       audit,
	})
	if err != nil {
		return fmt.Errorf("falha ao debitar saque %s: %w", req.ID, err)
	}
	txID := out.Transaction.ID
	return req.MarkProcessed(&txID, audit)
}

func (u *WithdrawalUseCase) availableRevenue(ctx context.Context, repo gateway.RevenueRepository, sellerID string) (int64, error) {
	revenue, err := repo.GetSellerRevenue(ctx, sellerID)
	if err != nil {
		return 0, fmt.Errorf("falha ao somar receita do vendedor %s: %w", sellerID, err)
	}
	withdrawn, err := repo.GetSellerWithdrawals(ctx, sellerID)
	if err != nil {
		return 0, fmt.Errorf("falha ao somar saques do vendedor %s: %w", sellerID, err)
	}
	return revenue - withdrawn, nil
}

func (u *WithdrawalUseCase) published(ctx context.Context, req *domain.WithdrawalRequest, audit domain.AuditMetadata) {
	metrics.Withdrawals.WithLabelValues(string(req.Type), string(req.Status)).Inc()
	log.Info().Str("withdrawal_id", req.ID).Str("status", string(req.Status)).Msg("Pedido de saque atualizado")

	if u.eventPublisher == nil {
		return
	}
	routingKey := "withdrawal." + string(req.Status)
	event := SettlementEvent{
		Event:     routingKey,
		Reference: req.ID,
		Amount:    req.Amount,
		Status:    string(req.Status),
		ActorID:   audit.ActorID,
		IPAddress: audit.IPAddress,
		At:        audit.At(),
	}
	if err := u.eventPublisher.Publish(ctx, settlementExchange, routingKey, event); err != nil {
		log.Error().Err(err).Str("withdrawal_id", req.ID).Msg("Falha ao publicar evento de saque")
	}
}
