package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/domain"
	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/gateway"
	"github.com/jackc/pgx/v5"
)

const walletColumns = `id, user_id, currency, balance, is_locked, version, created_at, updated_at`

const walletTransactionColumns = `id, wallet_id, reference, amount, direction, balance_after, description,
	metadata, invoice_id, payment_transaction_id, status, actor_id, created_at`

// WalletRepository implementa gateway.WalletRepository usando pgx/v5
type WalletRepository struct {
	db DBTX
}

func NewWalletRepository(db DBTX) *WalletRepository {
	return &WalletRepository{db: db}
}

func (r *WalletRepository) GetByUserID(ctx context.Context, userID string) (*domain.WalletAccount, error) {
	row := r.db.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE user_id = $1`, userID)
	wallet, err := scanWallet(row)
	if err != nil {
		// pgx retorna pgx.ErrNoRows, diferente de sql.ErrNoRows
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return wallet, nil
}

// GetByUserIDForUpdate trava a linha até o fim da transação.
func (r *WalletRepository) GetByUserIDForUpdate(ctx context.Context, userID string) (*domain.WalletAccount, error) {
	row := r.db.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE user_id = $1 FOR UPDATE`, userID)
	wallet, err := scanWallet(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to lock wallet: %w", err)
	}
	return wallet, nil
}

func (r *WalletRepository) CreateIfMissing(ctx context.Context, wallet *domain.WalletAccount) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO wallets (id, user_id, currency, balance, is_locked, version, created_at, updated_at)
		VALUES ($1, $2, $3, 0, FALSE, 1, $4, $5)
		ON CONFLICT (user_id) DO NOTHING`,
		wallet.ID, wallet.UserID, wallet.Currency, wallet.CreatedAt, wallet.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create wallet: %w", err)
	}
	return nil
}

// UpdateBalance grava o saldo. A versão lida precisa bater, senão alguém
// alterou a carteira fora da trava.
func (r *WalletRepository) UpdateBalance(ctx context.Context, wallet *domain.WalletAccount) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE wallets SET balance = $2, version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $3`,
		wallet.ID, wallet.Balance, wallet.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update wallet balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConcurrentUpdate
	}
	wallet.Version++
	return nil
}

func (r *WalletRepository) AppendTransaction(ctx context.Context, tx *domain.WalletTransaction) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO wallet_transactions (`+walletTransactionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (reference) DO NOTHING`,
		tx.ID, tx.WalletID, tx.Reference, tx.Amount, string(tx.Direction), tx.BalanceAfter, tx.Description,
		tx.Metadata, tx.InvoiceID, tx.PaymentTransactionID, string(tx.Status), tx.ActorID, tx.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to append wallet transaction: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *WalletRepository) GetTransactionByReference(ctx context.Context, reference string) (*domain.WalletTransaction, error) {
	row := r.db.QueryRow(ctx, `SELECT `+walletTransactionColumns+` FROM wallet_transactions WHERE reference = $1`, reference)
	tx, err := scanWalletTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get wallet transaction: %w", err)
	}
	return tx, nil
}

func (r *WalletRepository) ListTransactions(ctx context.Context, walletID string, limit int) ([]*domain.WalletTransaction, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+walletTransactionColumns+` FROM wallet_transactions
		WHERE wallet_id = $1 ORDER BY created_at DESC LIMIT $2`,
		walletID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallet transactions: %w", err)
	}
	defer rows.Close()

	var out []*domain.WalletTransaction
	for rows.Next() {
		tx, err := scanWalletTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan wallet transaction: %w", err)
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

// WithTx retorna uma cópia do repositório usando uma transação específica
func (r *WalletRepository) WithTx(tx gateway.TransactionObject) gateway.WalletRepository {
	return &WalletRepository{db: txOr(tx, r.db)}
}

func scanWallet(row pgx.Row) (*domain.WalletAccount, error) {
	var w domain.WalletAccount
	err := row.Scan(&w.ID, &w.UserID, &w.Currency, &w.Balance, &w.IsLocked, &w.Version, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func scanWalletTransaction(row pgx.Row) (*domain.WalletTransaction, error) {
	var (
		t         domain.WalletTransaction
		direction string
		status    string
	)
	err := row.Scan(
		&t.ID, &t.WalletID, &t.Reference, &t.Amount, &direction, &t.BalanceAfter, &t.Description,
		&t.Metadata, &t.InvoiceID, &t.PaymentTransactionID, &status, &t.ActorID, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.Direction = domain.LedgerDirection(direction)
	t.Status = domain.WalletTransactionStatus(status)
	return &t, nil
}
