package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/gateway"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX é o que os repositórios precisam do banco. pgxpool.Pool, pgx.Tx e
// o pgxmock satisfazem a interface.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxBeginner abre transações (pgxpool.Pool em produção).
type TxBeginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

//go:embed schema.sql
var schema string

// Migrate cria as tabelas se ainda não existirem.
func Migrate(ctx context.Context, db DBTX) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// txOr devolve a transação do contexto quando houver, senão a conexão padrão.
func txOr(tx gateway.TransactionObject, fallback DBTX) DBTX {
	if pgTx, ok := tx.(pgx.Tx); ok {
		return pgTx
	}
	return fallback
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
