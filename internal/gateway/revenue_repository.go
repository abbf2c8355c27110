package gateway

import (
	"context"

	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/domain"
)

// RevenueRepository é a contabilidade de receita dos vendedores (fora da carteira).
type RevenueRepository interface {
	GetSellerRevenue(ctx context.Context, sellerID string) (int64, error)
	// GetSellerWithdrawals soma os saques de receita já processados.
	GetSellerWithdrawals(ctx context.Context, sellerID string) (int64, error)
	// LockSeller serializa saques do mesmo vendedor até o fim da transação.
	LockSeller(ctx context.Context, sellerID string) error
	// Accrue grava as parcelas; parcelas já gravadas são ignoradas.
	Accrue(ctx context.Context, shares []domain.SellerRevenue) (inserted int, err error)
	WithTx(tx TransactionObject) RevenueRepository
}

type StockAdjuster interface {
	ReduceStock(ctx context.Context, reduction domain.StockReduction) error
}
