package gateway

import (
	"context"

	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/domain"
)

// InvoiceRepository persiste o agregado Invoice (itens e transações juntos).
type InvoiceRepository interface {
	Create(ctx context.Context, invoice *domain.Invoice) error
	GetByID(ctx context.Context, id string) (*domain.Invoice, error)

	// GetByIDForUpdate trava a linha da fatura (SELECT ... FOR UPDATE).
	// As transações só mudam sob essa trava.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Invoice, error)

	// FindByReference devolve o id da fatura dona da referência de pagamento.
	FindByReference(ctx context.Context, reference string) (string, error)

	// Save grava status da fatura e faz upsert das transações.
	Save(ctx context.Context, invoice *domain.Invoice) error

	WithTx(tx TransactionObject) InvoiceRepository
}
