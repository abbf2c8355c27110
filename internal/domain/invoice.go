package domain

import (
	"fmt"
	"time"

	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/reference"
)

type InvoiceStatus string

const (
	InvoiceDraft     InvoiceStatus = "draft"
	InvoicePending   InvoiceStatus = "pending"
	InvoicePaid      InvoiceStatus = "paid"
	InvoiceCancelled InvoiceStatus = "cancelled"
	InvoiceFailed    InvoiceStatus = "failed"
)

// Prefixos de ExternalReference que marcam uma fatura de recarga de carteira.
const (
	WalletChargePrefix      = reference.WalletChargePrefix
	WalletChargeShortPrefix = reference.WalletChargeShortPrefix
)

// InvoiceItem é uma linha da fatura (produto ou oferta de um vendedor).
type InvoiceItem struct {
	ID        string
	ProductID string
	VariantID *string
	SellerID  string
	Quantity  int32
	UnitPrice int64 // centavos
	Discount  int64
}

func (i InvoiceItem) LineTotal() int64 {
	return int64(i.Quantity)*i.UnitPrice - i.Discount
}

// Invoice é o agregado dono das suas transações e itens.
// Só muda de estado pelos métodos abaixo; nunca é apagada, apenas cancelada.
type Invoice struct {
	ID                string
	UserID            string
	Items             []InvoiceItem
	Status            InvoiceStatus
	GrandTotal        int64
	Currency          string
	ExternalReference string
	Transactions      []*Transaction

	PaidAt       *time.Time
	CancelledAt  *time.Time
	CancelReason string
	Version      int32
	CreatedAt    time.Time
	UpdatedAt    time.Time
	UpdaterID    string
}

// NewInvoice monta uma fatura em rascunho com o total calculado a partir dos itens.
func NewInvoice(id, userID, currency, externalRef string, items []InvoiceItem, audit AuditMetadata) (*Invoice, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrValidation)
	}
	if currency == "" {
		return nil, ErrMissingCurrency
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: invoice needs at least one item", ErrValidation)
	}

	var total int64
	for _, item := range items {
		if item.Quantity <= 0 || item.UnitPrice < 0 || item.Discount < 0 {
			return nil, fmt.Errorf("%w: invalid item %s", ErrValidation, item.ProductID)
		}
		if item.LineTotal() < 0 {
			return nil, fmt.Errorf("%w: discount exceeds line total for %s", ErrValidation, item.ProductID)
		}
		total += item.LineTotal()
	}
	if total <= 0 {
		return nil, ErrInvalidAmount
	}

	now := audit.At()
	return &Invoice{
		ID:                id,
		UserID:            userID,
		Items:             items,
		Status:            InvoiceDraft,
		GrandTotal:        total,
		Currency:          currency,
		ExternalReference: externalRef,
		CreatedAt:         now,
		UpdatedAt:         now,
		UpdaterID:         audit.ActorID,
	}, nil
}

// IsWalletCharge identifica faturas de recarga de carteira pela convenção de prefixo.
func (inv *Invoice) IsWalletCharge() bool {
	return reference.IsWalletCharge(inv.ExternalReference)
}

func (inv *Invoice) IsPaid() bool {
	return inv.Status == InvoicePaid
}

// PaidAmount soma as transações confirmadas.
func (inv *Invoice) PaidAmount() int64 {
	var sum int64
	for _, tx := range inv.Transactions {
		if tx.Status == TransactionSucceeded {
			sum += tx.Amount
		}
	}
	return sum
}

func (inv *Invoice) OutstandingAmount() int64 {
	if out := inv.GrandTotal - inv.PaidAmount(); out > 0 {
		return out
	}
	return 0
}

// FindTransaction busca a transação pela referência do gateway.
func (inv *Invoice) FindTransaction(reference string) (*Transaction, error) {
	for _, tx := range inv.Transactions {
		if tx.Reference == reference {
			return tx, nil
		}
	}
	return nil, ErrTransactionNotFound
}

func (inv *Invoice) acceptsPayments() bool {
	switch inv.Status {
	case InvoiceDraft, InvoicePending, InvoiceFailed:
		return true
	}
	return false
}

// AddTransaction registra uma nova tentativa de pagamento (Pending).
// O rascunho vira Pending na primeira tentativa.
func (inv *Invoice) AddTransaction(tx *Transaction, audit AuditMetadata) error {
	if !inv.acceptsPayments() {
		return fmt.Errorf("%w: invoice is %s", ErrInvalidTransition, inv.Status)
	}
	if tx.Reference == "" {
		return ErrMissingReference
	}
	if tx.Amount <= 0 {
		return ErrInvalidAmount
	}
	if _, err := inv.FindTransaction(tx.Reference); err == nil {
		return ErrDuplicateReference
	}

	tx.InvoiceID = inv.ID
	inv.Transactions = append(inv.Transactions, tx)
	if inv.Status == InvoiceDraft || inv.Status == InvoiceFailed {
		inv.Status = InvoicePending
	}
	inv.touch(audit)
	inv.settleIfCovered(audit)
	return nil
}

// UpdateTransaction aplica o resultado do gateway à transação da referência.
// Retorna changed=false quando a transação já estava em estado terminal: é assim
// que uma confirmação repetida vira no-op em vez de efeito duplicado.
func (inv *Invoice) UpdateTransaction(reference string, result VerificationResult, audit AuditMetadata) (bool, error) {
	tx, err := inv.FindTransaction(reference)
	if err != nil {
		return false, err
	}
	if tx.IsTerminal() {
		return false, nil
	}

	switch result.Status {
	case VerificationSucceeded:
		tx.markSucceeded(result, audit)
	case VerificationFailed:
		tx.markFailed(result.Message, audit)
	default:
		return false, fmt.Errorf("%w: gateway reports %q for %s", ErrGateway, result.Status, reference)
	}

	inv.touch(audit)
	inv.settleIfCovered(audit)
	return true, nil
}

// Cancel faz o cancelamento lógico. Fatura paga não pode ser cancelada.
func (inv *Invoice) Cancel(reason string, audit AuditMetadata) error {
	switch inv.Status {
	case InvoiceCancelled:
		return nil
	case InvoicePaid:
		return fmt.Errorf("%w: paid invoice cannot be cancelled", ErrInvalidTransition)
	}
	now := audit.At()
	inv.Status = InvoiceCancelled
	inv.CancelledAt = &now
	inv.CancelReason = reason
	inv.touch(audit)
	return nil
}

// CheckInvariants falha se a fatura estiver paga sem cobertura.
func (inv *Invoice) CheckInvariants() error {
	if inv.Status == InvoicePaid && inv.PaidAmount() < inv.GrandTotal {
		return fmt.Errorf("%w: invoice %s paid with %d of %d", ErrDomainInvariant, inv.ID, inv.PaidAmount(), inv.GrandTotal)
	}
	return nil
}

func (inv *Invoice) settleIfCovered(audit AuditMetadata) {
	if !inv.acceptsPayments() {
		return
	}
	if inv.PaidAmount() >= inv.GrandTotal {
		now := audit.At()
		inv.Status = InvoicePaid
		inv.PaidAt = &now
	}
}

func (inv *Invoice) touch(audit AuditMetadata) {
	inv.UpdatedAt = audit.At()
	inv.UpdaterID = audit.ActorID
}
