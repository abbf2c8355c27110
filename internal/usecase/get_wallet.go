package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/domain"
	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/gateway"
)

type GetWalletOutput struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Currency  string `json:"currency"`
	Balance   int64  `json:"balance"`
	IsLocked  bool   `json:"is_locked"`
	UpdatedAt string `json:"updated_at"`
}

type WalletTransactionOutput struct {
	ID           string  `json:"id"`
	Reference    string  `json:"reference"`
	Direction    string  `json:"direction"`
	Amount       int64   `json:"amount"`
	BalanceAfter int64   `json:"balance_after"`
	Description  string  `json:"description,omitempty"`
	InvoiceID    *string `json:"invoice_id,omitempty"`
	Status       string  `json:"status"`
	CreatedAt    string  `json:"created_at"`
}

type GetWalletUseCase struct {
	walletRepository gateway.WalletRepository
}

func NewGetWallet(walletRepo gateway.WalletRepository) *GetWalletUseCase {
	return &GetWalletUseCase{
		walletRepository: walletRepo,
	}
}

func (u *GetWalletUseCase) Execute(ctx context.Context, userID string) (*GetWalletOutput, error) {
	wallet, err := u.walletRepository.GetByUserID(ctx, userID)
	if err != nil {
		// Se for erro de "não encontrado", retornamos o erro de domínio
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrWalletNotFound
		}
		// Outros erros (banco fora do ar, etc)
		return nil, fmt.Errorf("erro ao buscar carteira: %w", err)
	}

	return &GetWalletOutput{
		ID:        wallet.ID,
		UserID:    wallet.UserID,
		Currency:  wallet.Currency,
		Balance:   wallet.Balance,
		IsLocked:  wallet.IsLocked,
		UpdatedAt: wallet.UpdatedAt.Format("2006-01-02 15:04:05"),
	}, nil
}

// Transactions lista os últimos lançamentos da carteira (mais recentes primeiro).
func (u *GetWalletUseCase) Transactions(ctx context.Context, userID string, limit int) ([]WalletTransactionOutput, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	wallet, err := u.walletRepository.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrWalletNotFound
		}
		return nil, fmt.Errorf("erro ao buscar carteira: %w", err)
	}

	entries, err := u.walletRepository.ListTransactions(ctx, wallet.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("erro ao listar lançamentos: %w", err)
	}

	out := make([]WalletTransactionOutput, 0, len(entries))
	for _, e := range entries {
		out = append(out, WalletTransactionOutput{
			ID:           e.ID,
			Reference:    e.Reference,
			Direction:    string(e.Direction),
			Amount:       e.Amount,
			BalanceAfter: e.BalanceAfter,
			Description:  e.Description,
			InvoiceID:    e.InvoiceID,
			Status:       string(e.Status),
			CreatedAt:    e.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	return out, nil
}
