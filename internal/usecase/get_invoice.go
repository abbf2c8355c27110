package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/domain"
	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/gateway"
)

type InvoiceItemOutput struct {
	ID        string  `json:"id"`
	ProductID string  `json:"product_id,omitempty"`
	VariantID *string `json:"variant_id,omitempty"`
	SellerID  string  `json:"seller_id,omitempty"`
	Quantity  int32   `json:"quantity"`
	UnitPrice int64   `json:"unit_price"`
	Discount  int64   `json:"discount"`
	LineTotal int64   `json:"line_total"`
}

type TransactionOutput struct {
	ID           string     `json:"id"`
	Reference    string     `json:"reference"`
	Method       string     `json:"method"`
	Status       string     `json:"status"`
	Amount       int64      `json:"amount"`
	TrackingCode string     `json:"tracking_code,omitempty"`
	Message      string     `json:"message,omitempty"`
	ProcessedAt  *time.Time `json:"processed_at,omitempty"`
}

type InvoiceOutput struct {
	ID                string              `json:"id"`
	UserID            string              `json:"user_id"`
	Status            string              `json:"status"`
	GrandTotal        int64               `json:"grand_total"`
	PaidAmount        int64               `json:"paid_amount"`
	Currency          string              `json:"currency"`
	ExternalReference string              `json:"external_reference,omitempty"`
	Items             []InvoiceItemOutput `json:"items"`
	Transactions      []TransactionOutput `json:"transactions"`
	PaidAt            *time.Time          `json:"paid_at,omitempty"`
	CancelledAt       *time.Time          `json:"cancelled_at,omitempty"`
	CancelReason      string              `json:"cancel_reason,omitempty"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

func toInvoiceOutput(inv *domain.Invoice) *InvoiceOutput {
	out := &InvoiceOutput{
		ID:                inv.ID,
		UserID:            inv.UserID,
		Status:            string(inv.Status),
		GrandTotal:        inv.GrandTotal,
		PaidAmount:        inv.PaidAmount(),
		Currency:          inv.Currency,
		ExternalReference: inv.ExternalReference,
		Items:             make([]InvoiceItemOutput, 0, len(inv.Items)),
		Transactions:      make([]TransactionOutput, 0, len(inv.Transactions)),
		PaidAt:            inv.PaidAt,
		CancelledAt:       inv.CancelledAt,
		CancelReason:      inv.CancelReason,
		UpdatedAt:         inv.UpdatedAt,
	}
	for _, item := range inv.Items {
		out.Items = append(out.Items, InvoiceItemOutput{
			ID:        item.ID,
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			SellerID:  item.SellerID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Discount:  item.Discount,
			LineTotal: item.LineTotal(),
		})
	}
	for _, tx := range inv.Transactions {
		out.Transactions = append(out.Transactions, TransactionOutput{
			ID:           tx.ID,
			Reference:    tx.Reference,
			Method:       string(tx.Method),
			Status:       string(tx.Status),
			Amount:       tx.Amount,
			TrackingCode: tx.TrackingCode,
			Message:      tx.Message,
			ProcessedAt:  tx.ProcessedAt,
		})
	}
	return out
}

type GetInvoiceUseCase struct {
	invoiceRepository gateway.InvoiceRepository
	auditRepository   gateway.AuditRepository
}

func NewGetInvoice(invoiceRepo gateway.InvoiceRepository, auditRepo gateway.AuditRepository) *GetInvoiceUseCase {
	return &GetInvoiceUseCase{invoiceRepository: invoiceRepo, auditRepository: auditRepo}
}

func (u *GetInvoiceUseCase) Execute(ctx context.Context, id string) (*InvoiceOutput, error) {
	invoice, err := u.invoiceRepository.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("erro ao buscar fatura: %w", err)
	}
	return toInvoiceOutput(invoice), nil
}

// AuditTrail lista os eventos de liquidação gravados para a fatura.
func (u *GetInvoiceUseCase) AuditTrail(ctx context.Context, id string, limit int64) ([]gateway.SettlementAudit, error) {
	if u.auditRepository == nil {
		return []gateway.SettlementAudit{}, nil
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if _, err := u.Execute(ctx, id); err != nil {
		return nil, err
	}
	entries, err := u.auditRepository.ListByInvoice(ctx, id, limit)
	if err != nil {
		return nil, fmt.Errorf("erro ao buscar auditoria: %w", err)
	}
	return entries, nil
}
