package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/domain"
	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/gateway"
)

// EffectHandler executa um efeito da fila. Falha do efeito não volta para a
// fila: o runner já registrou na auditoria para a reconciliação.
func EffectHandler(run func(ctx context.Context, effects []domain.Effect)) HandlerFunc {
	return func(ctx context.Context, body []byte) error {
		var msg EffectMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			return fmt.Errorf("%w: %v", ErrPoison, err)
		}
		if msg.Effect.Kind == "" || msg.Effect.InvoiceID == "" {
			return fmt.Errorf("%w: effect without kind or invoice", ErrPoison)
		}

		if wait := time.Until(msg.NotBefore); wait > 0 {
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		run(ctx, []domain.Effect{msg.Effect})
		return nil
	}
}

// AuditHandler grava os eventos de liquidação no repositório de auditoria.
func AuditHandler(repo gateway.AuditRepository, timeout time.Duration) HandlerFunc {
	return func(ctx context.Context, body []byte) error {
		var entry gateway.SettlementAudit
		if err := json.Unmarshal(body, &entry); err != nil {
			return fmt.Errorf("%w: %v", ErrPoison, err)
		}
		if entry.Event == "" {
			return fmt.Errorf("%w: event name missing", ErrPoison)
		}
		if entry.OccurredAt.IsZero() {
			entry.OccurredAt = time.Now().UTC()
		}

		saveCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return repo.Save(saveCtx, entry)
	}
}
