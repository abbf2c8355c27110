package gateway

import (
	"context"
	"time"
)

// SettlementAudit é um registro de auditoria de liquidação.
type SettlementAudit struct {
	Event      string    `json:"event"`
	InvoiceID  string    `json:"invoice_id,omitempty"`
	Reference  string    `json:"reference,omitempty"`
	Amount     int64     `json:"amount"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	ActorID    string    `json:"actor_id,omitempty"`
	IPAddress  string    `json:"ip_address,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type AuditRepository interface {
	Save(ctx context.Context, entry SettlementAudit) error
	ListByInvoice(ctx context.Context, invoiceID string, limit int64) ([]SettlementAudit, error)
}
