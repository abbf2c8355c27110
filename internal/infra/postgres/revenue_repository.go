package postgres

import (
	"context"
	"fmt"

	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/domain"
	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/gateway"
)

// RevenueRepository guarda a receita dos vendedores, separada das carteiras.
type RevenueRepository struct {
	db DBTX
}

func NewRevenueRepository(db DBTX) *RevenueRepository {
	return &RevenueRepository{db: db}
}

func (r *RevenueRepository) GetSellerRevenue(ctx context.Context, sellerID string) (int64, error) {
	var total int64
	err := r.db.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM seller_revenues WHERE seller_id = $1`, sellerID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum seller revenue: %w", err)
	}
	return total, nil
}

func (r *RevenueRepository) GetSellerWithdrawals(ctx context.Context, sellerID string) (int64, error) {
	var total int64
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM withdrawal_requests
		WHERE seller_id = $1 AND type = $2 AND status = $3`,
		sellerID, string(domain.WithdrawalSellerRevenue), string(domain.WithdrawalProcessed),
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum seller withdrawals: %w", err)
	}
	return total, nil
}

// LockSeller usa advisory lock de transação: só faz sentido dentro de uma.
func (r *RevenueRepository) LockSeller(ctx context.Context, sellerID string) error {
	if _, err := r.db.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, "seller:"+sellerID); err != nil {
		return fmt.Errorf("failed to lock seller: %w", err)
	}
	return nil
}

func (r *RevenueRepository) Accrue(ctx context.Context, shares []domain.SellerRevenue) (int, error) {
	inserted := 0
	for _, s := range shares {
		tag, err := r.db.Exec(ctx, `
			INSERT INTO seller_revenues (invoice_id, item_id, seller_id, currency, amount)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (invoice_id, item_id) DO NOTHING`,
			s.InvoiceID, s.ItemID, s.SellerID, s.Currency, s.Amount,
		)
		if err != nil {
			return inserted, fmt.Errorf("failed to accrue seller revenue: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

func (r *RevenueRepository) WithTx(tx gateway.TransactionObject) gateway.RevenueRepository {
	return &RevenueRepository{db: txOr(tx, r.db)}
}
