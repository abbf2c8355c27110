package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	invoiceCols = []string{"id", "user_id", "status", "grand_total", "currency", "external_reference", "paid_at",
		"cancelled_at", "cancel_reason", "version", "created_at", "updated_at", "updater_id"}
	itemCols = []string{"id", "product_id", "variant_id", "seller_id", "quantity", "unit_price", "discount"}
	txCols   = []string{"id", "invoice_id", "reference", "method", "status", "amount", "tracking_code",
		"message", "processed_at", "created_at", "updated_at", "updater_id"}
)

func TestInvoiceRepository_GetByIDForUpdate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewInvoiceRepository(mock)
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	var noTime *time.Time

	mock.ExpectQuery(`FROM invoices WHERE id = \$1 FOR UPDATE`).
		WithArgs("inv-1").
		WillReturnRows(mock.NewRows(invoiceCols).AddRow(
			"inv-1", "buyer-1", "pending", int64(100000), "NGN", "ORDER-1", noTime,
			noTime, "", int32(2), now, now, "ops-1"))
	mock.ExpectQuery(`FROM invoice_items WHERE invoice_id = \$1 ORDER BY position`).
		WithArgs("inv-1").
		WillReturnRows(mock.NewRows(itemCols).
			AddRow("i1", "prod-1", pgtype.Text{}, "seller-1", int32(2), int64(30000), int64(0)).
			AddRow("i2", "prod-2", pgtype.Text{String: "offer-9", Valid: true}, "seller-2", int32(1), int64(40000), int64(0)))
	mock.ExpectQuery(`FROM payment_transactions WHERE invoice_id = \$1`).
		WithArgs("inv-1").
		WillReturnRows(mock.NewRows(txCols).AddRow(
			"tx-1", "inv-1", "PAY-1", "online_gateway", "pending", int64(100000), "",
			"", noTime, now, now, "ops-1"))
	mock.ExpectQuery(`FROM invoices WHERE id = \$1 FOR UPDATE`).
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	inv, err := repo.GetByIDForUpdate(context.Background(), "inv-1")
	require.NoError(t, err)
	assert.Equal(t, domain.InvoicePending, inv.Status)
	assert.Equal(t, int32(2), inv.Version)
	require.Len(t, inv.Items, 2)
	assert.Nil(t, inv.Items[0].VariantID)
	require.NotNil(t, inv.Items[1].VariantID)
	assert.Equal(t, "offer-9", *inv.Items[1].VariantID)
	require.Len(t, inv.Transactions, 1)
	assert.Equal(t, domain.MethodOnlineGateway, inv.Transactions[0].Method)

	_, err = repo.GetByIDForUpdate(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrInvoiceNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvoiceRepository_SaveChecksVersion(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewInvoiceRepository(mock)
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	inv := &domain.Invoice{
		ID: "inv-1", Status: domain.InvoicePaid, PaidAt: &now, Version: 2, UpdatedAt: now, UpdaterID: "ops-1",
		Transactions: []*domain.Transaction{{
			ID: "tx-1", Reference: "PAY-1", Method: domain.MethodOnlineGateway,
			Status: domain.TransactionSucceeded, Amount: 100000, CreatedAt: now, UpdatedAt: now,
		}},
	}

	mock.ExpectExec(`UPDATE invoices SET status = \$2`).
		WithArgs("inv-1", "paid", pgxmock.AnyArg(), pgxmock.AnyArg(), "", now, "ops-1", int32(2)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`INSERT INTO payment_transactions`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`UPDATE invoices SET status = \$2`).
		WithArgs("inv-1", "paid", pgxmock.AnyArg(), pgxmock.AnyArg(), "", now, "ops-1", int32(3)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	require.NoError(t, repo.Save(context.Background(), inv))
	assert.Equal(t, int32(3), inv.Version)

	err = repo.Save(context.Background(), inv)
	assert.ErrorIs(t, err, domain.ErrConcurrentUpdate)
	assert.Equal(t, int32(3), inv.Version)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRevenueRepository_LockSeller(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewRevenueRepository(mock)

	mock.ExpectExec(`SELECT pg_advisory_xact_lock\(hashtext\(\$1\)\)`).
		WithArgs("seller:seller-1").
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectQuery(`SELECT COALESCE\(SUM\(amount\), 0\) FROM seller_revenues WHERE seller_id = \$1`).
		WithArgs("seller-1").
		WillReturnRows(mock.NewRows([]string{"sum"}).AddRow(int64(500000)))
	mock.ExpectQuery(`FROM withdrawal_requests`).
		WithArgs("seller-1", "seller_revenue", "processed").
		WillReturnRows(mock.NewRows([]string{"sum"}).AddRow(int64(200000)))

	require.NoError(t, repo.LockSeller(context.Background(), "seller-1"))
	revenue, err := repo.GetSellerRevenue(context.Background(), "seller-1")
	require.NoError(t, err)
	withdrawn, err := repo.GetSellerWithdrawals(context.Background(), "seller-1")
	require.NoError(t, err)
	assert.Equal(t, int64(300000), revenue-withdrawn)

	assert.NoError(t, mock.ExpectationsWereMet())
}
