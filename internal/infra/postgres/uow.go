package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/domain"
	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/gateway"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	serializationFailure = "40001"
	deadlockDetected     = "40P01"
)

// Uow implementa gateway.TransactionManager sobre READ COMMITTED; a
// serialização fica por conta dos SELECT ... FOR UPDATE nos repositórios.
type Uow struct {
	db TxBeginner
}

func NewUow(db TxBeginner) *Uow {
	return &Uow{db: db}
}

// Run executa fn numa transação: erro faz rollback, sucesso faz commit.
// Chamada aninhada (ledger dentro da confirmação) reaproveita a transação aberta.
func (u *Uow) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := gateway.TxFromContext(ctx).(pgx.Tx); ok {
		return fn(ctx)
	}

	tx, err := u.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	// Rollback depois do Commit é no-op; com ctx cancelado ainda precisamos liberar a conexão
	defer func() {
		_ = tx.Rollback(context.WithoutCancel(ctx))
	}()

	if err := fn(context.WithValue(ctx, gateway.TransactionKey, tx)); err != nil {
		return classifyTxError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return classifyTxError(fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

// classifyTxError marca deadlock e falha de serialização como conflito
// retentável; o cliente repete a chamada com a mesma referência.
func classifyTxError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == deadlockDetected || pgErr.Code == serializationFailure) {
		return fmt.Errorf("%w: %s", domain.ErrConcurrentUpdate, pgErr.Message)
	}
	return err
}
