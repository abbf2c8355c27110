package postgres

import (
	"context"
	"fmt"

	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/domain"
	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/gateway"
)

// StockRepository implementa gateway.StockAdjuster. Cada baixa grava um
// movimento com a chave do efeito; a mesma chave nunca baixa duas vezes.
type StockRepository struct {
	db  DBTX
	uow gateway.TransactionManager
}

func NewStockRepository(db DBTX, uow gateway.TransactionManager) *StockRepository {
	return &StockRepository{db: db, uow: uow}
}

func (r *StockRepository) ReduceStock(ctx context.Context, reduction domain.StockReduction) error {
	if reduction.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive", domain.ErrValidation)
	}
	variant := ""
	if reduction.VariantID != nil {
		variant = *reduction.VariantID
	}

	return r.uow.Run(ctx, func(contextWithTx context.Context) error {
		db := txOr(gateway.TxFromContext(contextWithTx), r.db)

		tag, err := db.Exec(contextWithTx, `
			INSERT INTO stock_movements (key, product_id, variant_id, quantity)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (key) DO NOTHING`,
			reduction.Key, reduction.ProductID, variant, reduction.Quantity,
		)
		if err != nil {
			return fmt.Errorf("failed to record stock movement: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil
		}

		tag, err = db.Exec(contextWithTx, `
			UPDATE inventory SET quantity = quantity - $3, updated_at = NOW()
			WHERE product_id = $1 AND variant_id = $2`,
			reduction.ProductID, variant, reduction.Quantity,
		)
		if err != nil {
			return fmt.Errorf("failed to reduce stock: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: product %s variant %q", domain.ErrProductNotFound, reduction.ProductID, variant)
		}
		return nil
	})
}
