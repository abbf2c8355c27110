package gateway

import "context"

// TransactionObject é o "crachá" opaco que carrega a transação do banco
type TransactionObject interface{}

// TransactionManager define quem sabe iniciar/comitar transações (UoW).
// Se o contexto já carrega uma transação, Run participa dela em vez de abrir outra.
type TransactionManager interface {
	Run(ctx context.Context, fn func(ctx context.Context) error) error
}

// TransactionKeyType evita colisão de chaves no contexto
type TransactionKeyType string

const TransactionKey TransactionKeyType = "transaction"

// TxFromContext recupera a transação injetada pelo TransactionManager.
func TxFromContext(ctx context.Context) TransactionObject {
	return ctx.Value(TransactionKey)
}
