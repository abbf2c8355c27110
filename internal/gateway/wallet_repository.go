package gateway

import (
	"context"

	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/domain"
)

// WalletRepository define o contrato para persistência de carteiras e lançamentos.
type WalletRepository interface {
	GetByUserID(ctx context.Context, userID string) (*domain.WalletAccount, error)

	// Lock Pessimista: Retorna a wallet travando a linha no banco
	GetByUserIDForUpdate(ctx context.Context, userID string) (*domain.WalletAccount, error)

	// CreateIfMissing cria a carteira na primeira vez (ON CONFLICT DO NOTHING).
	CreateIfMissing(ctx context.Context, wallet *domain.WalletAccount) error

	// UpdateBalance grava o saldo checando a versão lida.
	UpdateBalance(ctx context.Context, wallet *domain.WalletAccount) error

	// AppendTransaction insere o lançamento; inserted=false se a referência já existia.
	AppendTransaction(ctx context.Context, tx *domain.WalletTransaction) (inserted bool, err error)
	GetTransactionByReference(ctx context.Context, reference string) (*domain.WalletTransaction, error)
	ListTransactions(ctx context.Context, walletID string, limit int) ([]*domain.WalletTransaction, error)

	// WithTx permite que o repositório participe de uma transação iniciada no nível superior
	WithTx(tx TransactionObject) WalletRepository
}
