package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/domain"
	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/gateway"
	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/metrics"
	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/reference"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type PayWithWalletInput struct {
	InvoiceID string
	Audit     domain.AuditMetadata
}

// PayWithWalletUseCase quita o valor em aberto da fatura com o saldo da carteira do dono.
// Débito e baixa da fatura acontecem na mesma transação.
type PayWithWalletUseCase struct {
	invoiceRepository  gateway.InvoiceRepository
	transactionManager gateway.TransactionManager
	ledger             *WalletLedger
	generator          *reference.Generator
	dispatcher         gateway.EffectDispatcher
	eventPublisher     gateway.EventPublisher
}

func NewPayWithWallet(
	invoiceRepo gateway.InvoiceRepository,
	txManager gateway.TransactionManager,
	ledger *WalletLedger,
	generator *reference.Generator,
	dispatcher gateway.EffectDispatcher,
	publisher gateway.EventPublisher,
) *PayWithWalletUseCase {
	return &PayWithWalletUseCase{
		invoiceRepository:  invoiceRepo,
		transactionManager: txManager,
		ledger:             ledger,
		generator:          generator,
		dispatcher:         dispatcher,
		eventPublisher:     publisher,
	}
}

func (u *PayWithWalletUseCase) Execute(ctx context.Context, input PayWithWalletInput) (*PaymentResult, error) {
	if input.InvoiceID == "" {
		return nil, fmt.Errorf("%w: invoice id is required", domain.ErrValidation)
	}

	// A mesma fatura sempre gera a mesma referência de débito: retentativa não debita duas vezes
	ref := reference.Derive(reference.KindWalletWithdrawal, input.InvoiceID)

	var (
		result   *PaymentResult
		debit    *domain.WalletTransaction
		invoice  *domain.Invoice
		replayed bool
	)
	err := u.transactionManager.Run(ctx, func(contextWithTx context.Context) error {
		invoiceRepoTx := u.invoiceRepository.WithTx(gateway.TxFromContext(contextWithTx))

		// Ordem de lock: fatura primeiro, carteira depois (dentro do ledger)
		locked, err := invoiceRepoTx.GetByIDForUpdate(contextWithTx, input.InvoiceID)
		if err != nil {
			return fmt.Errorf("falha ao travar fatura %s: %w", input.InvoiceID, err)
		}
		if locked.IsWalletCharge() {
			return fmt.Errorf("%w: wallet charge invoice cannot be paid from the wallet", domain.ErrConflict)
		}
		if existing, err := locked.FindTransaction(ref); err == nil && existing.IsTerminal() {
			invoice, replayed = locked, true
			result = resultFrom(locked, existing, true)
			return nil
		}

		amount := locked.OutstandingAmount()
		if amount <= 0 {
			return fmt.Errorf("%w: invoice %s has nothing outstanding", domain.ErrInvalidTransition, locked.ID)
		}

		invoiceID := locked.ID
		out, err := u.ledger.Debit(contextWithTx, LedgerEntryInput{
			UserID:      locked.UserID,
			Currency:    locked.Currency,
			Amount:      amount,
			Reference:   ref,
			Description: "Invoice payment " + locked.ID,
			Metadata:    "INVOICE:" + locked.ID,
			InvoiceID:   &invoiceID,
			Status:      domain.WalletTxSucceeded,
			Audit:       input.Audit,
		})
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("%w: user %s has no wallet", domain.ErrInsufficientFunds, locked.UserID)
			}
			return err
		}
		debit = out.Transaction

		tracking, err := u.generator.TrackingNumber()
		if err != nil {
			return err
		}
		tx := domain.NewPendingTransaction(uuid.NewString(), ref, domain.MethodWallet, amount, input.Audit)
		if err := locked.AddTransaction(tx, input.Audit); err != nil {
			return err
		}
		if _, err := locked.UpdateTransaction(ref, domain.VerificationResult{
			Status:       domain.VerificationSucceeded,
			Amount:       amount,
			TrackingCode: tracking,
			ProcessedAt:  debit.CreatedAt,
			Message:      "paid from wallet",
		}, input.Audit); err != nil {
			return err
		}
		if err := locked.CheckInvariants(); err != nil {
			return err
		}
		if err := invoiceRepoTx.Save(contextWithTx, locked); err != nil {
			return fmt.Errorf("falha ao salvar fatura %s: %w", locked.ID, err)
		}

		invoice = locked
		result = resultFrom(locked, tx, false)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if replayed {
		metrics.PaymentConfirmations.WithLabelValues("duplicate").Inc()
		return result, nil
	}

	result.WalletCredit = debit
	tx, _ := invoice.FindTransaction(ref)
	publishPayment(ctx, u.eventPublisher, invoice, tx, input.Audit)

	if invoice.IsPaid() {
		metrics.PaymentConfirmations.WithLabelValues("paid").Inc()
		result.Effects = dispatchPaidEffects(ctx, u.dispatcher, invoice)
	}

	log.Info().Str("invoice_id", invoice.ID).Int64("amount", tx.Amount).Msg("Fatura paga com saldo da carteira")
	return result, nil
}
