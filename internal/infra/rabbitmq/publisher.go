package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

const (
	SettlementExchange = "settlement_events"
	EffectsQueue       = "settlement_effects"
	AuditQueue         = "settlement_audit"
)

// Channel é o pedaço do *amqp.Channel que usamos para publicar.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type RabbitMQPublisher struct {
	channel Channel
}

func NewRabbitMQPublisher(ch Channel) *RabbitMQPublisher {
	return &RabbitMQPublisher{channel: ch}
}

func (p *RabbitMQPublisher) Publish(ctx context.Context, exchange, routingKey string, body interface{}) error {
	bytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = p.channel.PublishWithContext(ctx,
		exchange,   // exchange
		routingKey, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         bytes,
			DeliveryMode: amqp.Persistent, // Garante que a mensagem não suma se o Rabbit reiniciar
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	log.Info().Str("routing_key", routingKey).Msg("Evento publicado no RabbitMQ")
	return nil
}

// DeclareTopology declara o exchange e as filas (idempotente).
// Efeitos vão para uma fila, eventos de auditoria para outra.
func DeclareTopology(ch *amqp.Channel) error {
	err := ch.ExchangeDeclare(
		SettlementExchange, // name
		"topic",            // type
		true,               // durable
		false,              // auto-deleted
		false,              // internal
		false,              // no-wait
		nil,                // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	bindings := map[string][]string{
		EffectsQueue: {"effect.#"},
		AuditQueue:   {"payment.#", "withdrawal.#", "invoice.#"},
	}
	for queue, keys := range bindings {
		if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", queue, err)
		}
		for _, key := range keys {
			if err := ch.QueueBind(queue, key, SettlementExchange, false, nil); err != nil {
				return fmt.Errorf("failed to bind queue %s to %s: %w", queue, key, err)
			}
		}
	}
	return nil
}
