package gateway

import (
	"context"

	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/domain"
)

type EventPublisher interface {
	Publish(ctx context.Context, exchange, routingKey string, body interface{}) error
}

// EffectDispatcher entrega os efeitos pós-pagamento para quem vai executá-los
// (fila no RabbitMQ ou goroutine local). Não espera a execução.
type EffectDispatcher interface {
	Dispatch(ctx context.Context, effects []domain.Effect) error
}
