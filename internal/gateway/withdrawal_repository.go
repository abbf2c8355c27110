package gateway

import (
	"context"

	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/domain"
)

type WithdrawalRepository interface {
	Create(ctx context.Context, req *domain.WithdrawalRequest) error
	GetByID(ctx context.Context, id string) (*domain.WithdrawalRequest, error)
	GetByIDForUpdate(ctx context.Context, id string) (*domain.WithdrawalRequest, error)
	Save(ctx context.Context, req *domain.WithdrawalRequest) error
	WithTx(tx TransactionObject) WithdrawalRepository
}
