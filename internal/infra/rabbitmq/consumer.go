package rabbitmq

import (
	"context"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

// ErrPoison marca mensagens que nunca vão dar certo (JSON inválido):
// vão para Nack sem requeue.
var ErrPoison = errors.New("poison message")

// HandlerFunc processa uma mensagem. nil faz Ack, ErrPoison descarta,
// qualquer outro erro devolve a mensagem para a fila.
type HandlerFunc func(ctx context.Context, body []byte) error

type Consumer struct {
	channel *amqp.Channel
	queue   string
	tag     string
	handler HandlerFunc
}

func NewConsumer(ch *amqp.Channel, queue, tag string, handler HandlerFunc) *Consumer {
	return &Consumer{channel: ch, queue: queue, tag: tag, handler: handler}
}

// Run consome até o contexto acabar ou o canal fechar.
func (c *Consumer) Run(ctx context.Context) error {
	msgs, err := c.channel.Consume(
		c.queue, // queue
		c.tag,   // consumer tag
		false,   // auto-ack (manual: só confirmamos depois de processar)
		false,   // exclusive
		false,   // no-local
		false,   // no-wait
		nil,     // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer %s: %w", c.tag, err)
	}

	log.Info().Str("queue", c.queue).Msg("Consumidor iniciado")
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel for %s closed", c.queue)
			}
			c.handle(ctx, d)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, d amqp.Delivery) {
	err := c.handler(ctx, d.Body)
	switch {
	case err == nil:
		if err := d.Ack(false); err != nil {
			log.Error().Err(err).Str("queue", c.queue).Msg("Erro ao enviar Ack")
		}
	case errors.Is(err, ErrPoison):
		log.Error().Err(err).Str("queue", c.queue).Bytes("body", d.Body).Msg("Mensagem descartada")
		if err := d.Nack(false, false); err != nil {
			log.Error().Err(err).Msg("Erro ao enviar Nack (mensagem inválida)")
		}
	default:
		log.Error().Err(err).Str("queue", c.queue).Msg("Falha ao processar mensagem, devolvendo para a fila")
		if err := d.Nack(false, true); err != nil {
			log.Error().Err(err).Msg("Erro ao enviar Nack")
		}
	}
}
