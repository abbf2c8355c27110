package usecase

import (
	"context"
	"fmt"

	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/domain"
	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/gateway"
	"github.com/rs/zerolog/log"
)

type CancelInvoiceInput struct {
	InvoiceID string
	Reason    string
	Audit     domain.AuditMetadata
}

type CancelInvoiceUseCase struct {
	invoiceRepository  gateway.InvoiceRepository
	transactionManager gateway.TransactionManager
	eventPublisher     gateway.EventPublisher
}

func NewCancelInvoice(invoiceRepo gateway.InvoiceRepository, txManager gateway.TransactionManager, publisher gateway.EventPublisher) *CancelInvoiceUseCase {
	return &CancelInvoiceUseCase{
		invoiceRepository:  invoiceRepo,
		transactionManager: txManager,
		eventPublisher:     publisher,
	}
}

func (u *CancelInvoiceUseCase) Execute(ctx context.Context, input CancelInvoiceInput) (*InvoiceOutput, error) {
	var invoice *domain.Invoice
	err := u.transactionManager.Run(ctx, func(contextWithTx context.Context) error {
		invoiceRepoTx := u.invoiceRepository.WithTx(gateway.TxFromContext(contextWithTx))

		locked, err := invoiceRepoTx.GetByIDForUpdate(contextWithTx, input.InvoiceID)
		if err != nil {
			return fmt.Errorf("falha ao travar fatura %s: %w", input.InvoiceID, err)
		}
		if err := locked.Cancel(input.Reason, input.Audit); err != nil {
			return err
		}
		if err := invoiceRepoTx.Save(contextWithTx, locked); err != nil {
			return fmt.Errorf("falha ao salvar fatura %s: %w", locked.ID, err)
		}
		invoice = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	if u.eventPublisher != nil {
		event := SettlementEvent{
			Event:     "invoice.cancelled",
			InvoiceID: invoice.ID,
			Amount:    invoice.GrandTotal,
			Status:    string(invoice.Status),
			ActorID:   input.Audit.ActorID,
			IPAddress: input.Audit.IPAddress,
			At:        input.Audit.At(),
		}
		if err := u.eventPublisher.Publish(ctx, settlementExchange, "invoice.cancelled", event); err != nil {
			log.Error().Err(err).Str("invoice_id", invoice.ID).Msg("Falha ao publicar cancelamento")
		}
	}
	return toInvoiceOutput(invoice), nil
}
