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

const withdrawalColumns = `id, type, status, amount, currency, bank_name, account_holder, account_number,
	user_id, seller_id, wallet_transaction_id, reason, processed_at, created_at, updated_at, updater_id`

type WithdrawalRepository struct {
	db DBTX
}

func NewWithdrawalRepository(db DBTX) *WithdrawalRepository {
	return &WithdrawalRepository{db: db}
}

func (r *WithdrawalRepository) Create(ctx context.Context, req *domain.WithdrawalRequest) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO withdrawal_requests (`+withdrawalColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		req.ID, string(req.Type), string(req.Status), req.Amount, req.Currency,
		req.Destination.BankName, req.Destination.AccountHolder, req.Destination.AccountNumber,
		emptyToNull(req.UserID), emptyToNull(req.SellerID), textToPgType(req.WalletTransactionID),
		req.Reason, req.ProcessedAt, req.CreatedAt, req.UpdatedAt, req.UpdaterID,
	)
	if err != nil {
		return fmt.Errorf("failed to create withdrawal request: %w", err)
	}
	return nil
}

func (r *WithdrawalRepository) GetByID(ctx context.Context, id string) (*domain.WithdrawalRequest, error) {
	return r.load(ctx, `SELECT `+withdrawalColumns+` FROM withdrawal_requests WHERE id = $1`, id)
}

func (r *WithdrawalRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.WithdrawalRequest, error) {
	return r.load(ctx, `SELECT `+withdrawalColumns+` FROM withdrawal_requests WHERE id = $1 FOR UPDATE`, id)
}

func (r *WithdrawalRepository) Save(ctx context.Context, req *domain.WithdrawalRequest) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE withdrawal_requests SET status = $2, wallet_transaction_id = $3, reason = $4,
			processed_at = $5, updated_at = $6, updater_id = $7
		WHERE id = $1`,
		req.ID, string(req.Status), textToPgType(req.WalletTransactionID), req.Reason,
		req.ProcessedAt, req.UpdatedAt, req.UpdaterID,
	)
	if err != nil {
		return fmt.Errorf("failed to update withdrawal request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrWithdrawalNotFound
	}
	return nil
}

func (r *WithdrawalRepository) WithTx(tx gateway.TransactionObject) gateway.WithdrawalRepository {
	return &WithdrawalRepository{db: txOr(tx, r.db)}
}

func (r *WithdrawalRepository) load(ctx context.Context, query, id string) (*domain.WithdrawalRequest, error) {
	var (
		req              domain.WithdrawalRequest
		kind, status     string
		userID, sellerID pgtype.Text
		walletTxID       pgtype.Text
	)
	err := r.db.QueryRow(ctx, query, id).Scan(
		&req.ID, &kind, &status, &req.Amount, &req.Currency,
		&req.Destination.BankName, &req.Destination.AccountHolder, &req.Destination.AccountNumber,
		&userID, &sellerID, &walletTxID, &req.Reason, &req.ProcessedAt, &req.CreatedAt, &req.UpdatedAt, &req.UpdaterID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrWithdrawalNotFound
		}
		return nil, fmt.Errorf("failed to get withdrawal request: %w", err)
	}
	req.Type = domain.WithdrawalType(kind)
	req.Status = domain.WithdrawalStatus(status)
	req.UserID = userID.String
	req.SellerID = sellerID.String
	req.WalletTransactionID = pgTypeToText(walletTxID)
	return &req, nil
}

func emptyToNull(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}
