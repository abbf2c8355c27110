package rabbitmq

import (
	"context"
	"fmt"
	"time"

	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/domain"
	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/gateway"
)

// EffectMessage é o corpo de cada efeito na fila. O worker não executa
// antes de NotBefore.
type EffectMessage struct {
	Effect    domain.Effect `json:"effect"`
	NotBefore time.Time     `json:"not_before"`
}

// EffectPublisher implementa gateway.EffectDispatcher mandando os efeitos para o worker.
type EffectPublisher struct {
	publisher gateway.EventPublisher
	delay     time.Duration
	now       func() time.Time
}

func NewEffectPublisher(publisher gateway.EventPublisher, delay time.Duration) *EffectPublisher {
	return &EffectPublisher{publisher: publisher, delay: delay, now: time.Now}
}

func (p *EffectPublisher) Dispatch(ctx context.Context, effects []domain.Effect) error {
	notBefore := p.now().UTC().Add(p.delay)
	for _, effect := range effects {
		msg := EffectMessage{Effect: effect, NotBefore: notBefore}
		if err := p.publisher.Publish(ctx, SettlementExchange, "effect."+string(effect.Kind), msg); err != nil {
			return fmt.Errorf("failed to dispatch %s: %w", effect.Key(), err)
		}
	}
	return nil
}
