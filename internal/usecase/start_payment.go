package usecase

import (
	"context"
	"fmt"

	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/domain"
	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/gateway"
	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/reference"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// StartPaymentInput abre uma tentativa de pagamento pelo gateway.
// Amount zero significa o valor em aberto.
type StartPaymentInput struct {
	InvoiceID string
	Method    domain.PaymentMethod
	Amount    int64
	Audit     domain.AuditMetadata
}

type StartPaymentOutput struct {
	InvoiceID     string `json:"invoice_id"`
	Reference     string `json:"reference"`
	Method        string `json:"method"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	InvoiceStatus string `json:"invoice_status"`
}

type StartPaymentUseCase struct {
	invoiceRepository  gateway.InvoiceRepository
	transactionManager gateway.TransactionManager
	generator          *reference.Generator
}

func NewStartPayment(invoiceRepo gateway.InvoiceRepository, txManager gateway.TransactionManager, generator *reference.Generator) *StartPaymentUseCase {
	return &StartPaymentUseCase{
		invoiceRepository:  invoiceRepo,
		transactionManager: txManager,
		generator:          generator,
	}
}

func (u *StartPaymentUseCase) Execute(ctx context.Context, input StartPaymentInput) (*StartPaymentOutput, error) {
	if !input.Method.IsGateway() {
		return nil, fmt.Errorf("%w: %q", domain.ErrWrongMethod, input.Method)
	}
	if input.Amount < 0 {
		return nil, domain.ErrInvalidAmount
	}

	var output *StartPaymentOutput
	err := u.transactionManager.Run(ctx, func(contextWithTx context.Context) error {
		invoiceRepoTx := u.invoiceRepository.WithTx(gateway.TxFromContext(contextWithTx))

		invoice, err := invoiceRepoTx.GetByIDForUpdate(contextWithTx, input.InvoiceID)
		if err != nil {
			return fmt.Errorf("falha ao travar fatura %s: %w", input.InvoiceID, err)
		}

		amount := input.Amount
		outstanding := invoice.OutstandingAmount()
		if amount == 0 {
			amount = outstanding
		}
		if amount > outstanding {
			return fmt.Errorf("%w: amount %d exceeds outstanding %d", domain.ErrValidation, amount, outstanding)
		}

		tx := domain.NewPendingTransaction(uuid.NewString(), u.generator.New(reference.KindPayment), input.Method, amount, input.Audit)
		if err := invoice.AddTransaction(tx, input.Audit); err != nil {
			return err
		}
		if err := invoiceRepoTx.Save(contextWithTx, invoice); err != nil {
			return fmt.Errorf("falha ao salvar fatura %s: %w", invoice.ID, err)
		}

		output = &StartPaymentOutput{
			InvoiceID:     invoice.ID,
			Reference:     tx.Reference,
			Method:        string(tx.Method),
			Amount:        tx.Amount,
			Currency:      invoice.Currency,
			InvoiceStatus: string(invoice.Status),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("invoice_id", output.InvoiceID).Str("reference", output.Reference).Msg("Tentativa de pagamento iniciada")
	return output, nil
}
