package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/domain"
	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/gateway"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const invoiceColumns = `id, user_id, status, grand_total, currency, external_reference, paid_at,
	cancelled_at, cancel_reason, version, created_at, updated_at, updater_id`

const paymentTransactionColumns = `id, invoice_id, reference, method, status, amount, tracking_code,
	message, processed_at, created_at, updated_at, updater_id`

// InvoiceRepository grava a fatura com itens e transações.
// Create precisa rodar dentro de uma transação para gravar tudo ou nada.
type InvoiceRepository struct {
	db DBTX
}

func NewInvoiceRepository(db DBTX) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

func (r *InvoiceRepository) Create(ctx context.Context, inv *domain.Invoice) error {
	inv.Version = 1
	_, err := r.db.Exec(ctx, `
		INSERT INTO invoices (`+invoiceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		inv.ID, inv.UserID, string(inv.Status), inv.GrandTotal, inv.Currency, inv.ExternalReference, inv.PaidAt,
		inv.CancelledAt, inv.CancelReason, inv.Version, inv.CreatedAt, inv.UpdatedAt, inv.UpdaterID,
	)
	if err != nil {
		return fmt.Errorf("failed to create invoice: %w", err)
	}

	for i, item := range inv.Items {
		_, err := r.db.Exec(ctx, `
			INSERT INTO invoice_items (id, invoice_id, position, product_id, variant_id, seller_id, quantity, unit_price, discount)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			item.ID, inv.ID, i, item.ProductID, textToPgType(item.VariantID), item.SellerID, item.Quantity, item.UnitPrice, item.Discount,
		)
		if err != nil {
			return fmt.Errorf("failed to create invoice item: %w", err)
		}
	}

	for _, tx := range inv.Transactions {
		if err := r.upsertTransaction(ctx, inv.ID, tx); err != nil {
			return err
		}
	}
	return nil
}

func (r *InvoiceRepository) GetByID(ctx context.Context, id string) (*domain.Invoice, error) {
	return r.load(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id)
}

// GetByIDForUpdate trava só a linha da fatura; itens e transações
// ficam protegidos porque só mudam com essa trava.
func (r *InvoiceRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Invoice, error) {
	return r.load(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1 FOR UPDATE`, id)
}

func (r *InvoiceRepository) FindByReference(ctx context.Context, reference string) (string, error) {
	var invoiceID string
	err := r.db.QueryRow(ctx, `SELECT invoice_id FROM payment_transactions WHERE reference = $1`, reference).Scan(&invoiceID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrTransactionNotFound
		}
		return "", fmt.Errorf("failed to find transaction reference: %w", err)
	}
	return invoiceID, nil
}

// Save grava o estado da fatura checando a versão e faz upsert das transações.
func (r *InvoiceRepository) Save(ctx context.Context, inv *domain.Invoice) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE invoices SET status = $2, paid_at = $3, cancelled_at = $4, cancel_reason = $5,
			version = version + 1, updated_at = $6, updater_id = $7
		WHERE id = $1 AND version = $8`,
		inv.ID, string(inv.Status), inv.PaidAt, inv.CancelledAt, inv.CancelReason, inv.UpdatedAt, inv.UpdaterID, inv.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConcurrentUpdate
	}

	for _, tx := range inv.Transactions {
		if err := r.upsertTransaction(ctx, inv.ID, tx); err != nil {
			return err
		}
	}
	inv.Version++
	return nil
}

func (r *InvoiceRepository) WithTx(tx gateway.TransactionObject) gateway.InvoiceRepository {
	return &InvoiceRepository{db: txOr(tx, r.db)}
}

func (r *InvoiceRepository) upsertTransaction(ctx context.Context, invoiceID string, tx *domain.Transaction) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO payment_transactions (`+paymentTransactionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			amount = EXCLUDED.amount,
			tracking_code = EXCLUDED.tracking_code,
			message = EXCLUDED.message,
			processed_at = EXCLUDED.processed_at,
			updated_at = EXCLUDED.updated_at,
			updater_id = EXCLUDED.updater_id`,
		tx.ID, invoiceID, tx.Reference, string(tx.Method), string(tx.Status), tx.Amount, tx.TrackingCode,
		tx.Message, tx.ProcessedAt, tx.CreatedAt, tx.UpdatedAt, tx.UpdaterID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateReference
		}
		return fmt.Errorf("failed to save payment transaction %s: %w", tx.Reference, err)
	}
	return nil
}

func (r *InvoiceRepository) load(ctx context.Context, query, id string) (*domain.Invoice, error) {
	var (
		inv    domain.Invoice
		status string
	)
	err := r.db.QueryRow(ctx, query, id).Scan(
		&inv.ID, &inv.UserID, &status, &inv.GrandTotal, &inv.Currency, &inv.ExternalReference, &inv.PaidAt,
		&inv.CancelledAt, &inv.CancelReason, &inv.Version, &inv.CreatedAt, &inv.UpdatedAt, &inv.UpdaterID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}
	inv.Status = domain.InvoiceStatus(status)

	if inv.Items, err = r.loadItems(ctx, inv.ID); err != nil {
		return nil, err
	}
	if inv.Transactions, err = r.loadTransactions(ctx, inv.ID); err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *InvoiceRepository) loadItems(ctx context.Context, invoiceID string) ([]domain.InvoiceItem, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, product_id, variant_id, seller_id, quantity, unit_price, discount
		FROM invoice_items WHERE invoice_id = $1 ORDER BY position`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load invoice items: %w", err)
	}
	defer rows.Close()

	var items []domain.InvoiceItem
	for rows.Next() {
		var (
			item    domain.InvoiceItem
			variant pgtype.Text
		)
		if err := rows.Scan(&item.ID, &item.ProductID, &variant, &item.SellerID, &item.Quantity, &item.UnitPrice, &item.Discount); err != nil {
			return nil, fmt.Errorf("failed to scan invoice item: %w", err)
		}
		item.VariantID = pgTypeToText(variant)
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *InvoiceRepository) loadTransactions(ctx context.Context, invoiceID string) ([]*domain.Transaction, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+paymentTransactionColumns+`
		FROM payment_transactions WHERE invoice_id = $1 ORDER BY created_at, id`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load payment transactions: %w", err)
	}
	defer rows.Close()

	var txs []*domain.Transaction
	for rows.Next() {
		var (
			tx             domain.Transaction
			method, status string
		)
		err := rows.Scan(
			&tx.ID, &tx.InvoiceID, &tx.Reference, &method, &status, &tx.Amount, &tx.TrackingCode,
			&tx.Message, &tx.ProcessedAt, &tx.CreatedAt, &tx.UpdatedAt, &tx.UpdaterID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment transaction: %w", err)
		}
		tx.Method = domain.PaymentMethod(method)
		tx.Status = domain.TransactionStatus(status)
		txs = append(txs, &tx)
	}
	return txs, rows.Err()
}

// Helper para converter *string -> pgtype.Text
func textToPgType(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: *s, Valid: true}
}

func pgTypeToText(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	s := t.String
	return &s
}
