package amqp

import (
	"context"

	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	conn "github.com/ykhdr/crack-campaign/common/amqp/connection"
)

func Dial(ctx context.Context, cfg *Config) (*conn.Connection, error) {
	opts := amqp.Config{
		SASL: []amqp.Authentication{
			&amqp.PlainAuth{
				Username: cfg.Username,
				Password: cfg.Password,
			},
		},
	}
	return conn.NewConnection(ctx, cfg.URI, opts, cfg.ReconnectTimeout)
}

// DeclareQueue declares a durable queue, binding it to exchange when one is
// given. Declaring is idempotent on the broker side.
func DeclareQueue(ch *conn.Channel, queue, exchange, routingKey string) error {
	if _, err := ch.Channel().QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return errors.Wrapf(err, "failed to declare queue %s", queue)
	}
	if exchange == "" {
		return nil
	}
	if err := ch.Channel().ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return errors.Wrapf(err, "failed to declare exchange %s", exchange)
	}
	if err := ch.Channel().QueueBind(queue, routingKey, exchange, false, nil); err != nil {
		return errors.Wrapf(err, "failed to bind queue %s", queue)
	}
	return nil
}

// DeclareExchange declares a durable topic exchange. The default exchange
// needs no declaration.
func DeclareExchange(ch *conn.Channel, exchange string) error {
	if exchange == "" {
		return nil
	}
	if err := ch.Channel().ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return errors.Wrapf(err, "failed to declare exchange %s", exchange)
	}
	return nil
}
