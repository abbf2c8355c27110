package usecase

import (
	"context"
	"fmt"

	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/domain"
	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/gateway"
	"github.com/google/uuid"
)

type CreateWalletInput struct {
	UserID   string
	Currency string
	Audit    domain.AuditMetadata
}

type CreateWalletUseCase struct {
	walletRepo gateway.WalletRepository
}

func NewCreateWallet(walletRepo gateway.WalletRepository) *CreateWalletUseCase {
	return &CreateWalletUseCase{
		walletRepo: walletRepo,
	}
}

// Execute abre a carteira do usuário com saldo zero. Se já existir, devolve a atual.
func (uc *CreateWalletUseCase) Execute(ctx context.Context, input CreateWalletInput) (*GetWalletOutput, error) {
	if input.UserID == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrValidation)
	}
	if input.Currency == "" {
		return nil, domain.ErrMissingCurrency
	}

	// Um insert só (ON CONFLICT DO NOTHING), então não precisamos abrir uma transação aqui
	now := input.Audit.At()
	err := uc.walletRepo.CreateIfMissing(ctx, &domain.WalletAccount{
		ID:        uuid.NewString(),
		UserID:    input.UserID,
		Currency:  input.Currency,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, err
	}

	wallet, err := uc.walletRepo.GetByUserID(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	if wallet.Currency != input.Currency {
		return nil, fmt.Errorf("%w: wallet is %s", domain.ErrCurrencyMismatch, wallet.Currency)
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
