package consumer

import (
	"context"
	"encoding/json"
	"runtime/debug"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/ykhdr/crack-campaign/common/amqp/connection"
)

type Unmarshal func(data []byte, v any) error

type Handler[T any] func(ctx context.Context, data *T, delivery amqp.Delivery) error

type Config struct {
	Unmarshal Unmarshal
	Queue     string
	Consumer  string
	AutoAck   bool
	Exclusive bool
	NoLocal   bool
	NoWait    bool
	Args      map[string]any
}

type Consumer interface {
	Subscribe(ctx context.Context)
}

type consumer[T any] struct {
	cfg       *Config
	ch        *connection.Channel
	handler   Handler[T]
	unmarshal Unmarshal
	l         zerolog.Logger
}

func New[T any](ch *connection.Channel, handler Handler[T], cfg *Config) Consumer {
	if handler == nil {
		handler = func(context.Context, *T, amqp.Delivery) error { return nil }
	}
	if cfg.Unmarshal == nil {
		cfg.Unmarshal = json.Unmarshal
	}
	return &consumer[T]{
		ch:        ch,
		handler:   handler,
		cfg:       cfg,
		unmarshal: cfg.Unmarshal,
		l: log.With().
			Str("domain", "amqp").
			Str("component", "consumer").
			Type("type", *new(T)).
			Str("queue", cfg.Queue).
			Logger(),
	}
}

func (c *consumer[T]) connect(ctx context.Context) <-chan amqp.Delivery {
	return c.ch.Consume(
		ctx,
		c.cfg.Queue,
		c.cfg.Consumer,
		c.cfg.AutoAck,
		c.cfg.Exclusive,
		c.cfg.NoLocal,
		c.cfg.NoWait,
		amqp.Table(c.cfg.Args),
	)
}

// Subscribe blocks delivering messages to the handler until ctx is done.
// Without AutoAck a message is acked when the handler succeeds and rejected
// without requeue otherwise.
func (c *consumer[T]) Subscribe(ctx context.Context) {
	msgCh := c.connect(ctx)
	c.l.Debug().Msg("consumer connected")
	for {
		select {
		case <-ctx.Done():
			c.l.Debug().Msg("consumer stopped")
			return

		case d, ok := <-msgCh:
			if !ok {
				if c.ch.IsClosed() || ctx.Err() != nil {
					return
				}
				c.l.Debug().Msg("consumer closed, try to reconnect")
				msgCh = c.connect(ctx)
				continue
			}

			c.l.Debug().Str("message-id", d.MessageId).Msg("got new message")
			data := *new(T)
			if err := c.unmarshal(d.Body, &data); err != nil {
				c.l.Error().Err(err).Msg("failed to unmarshal message")
				c.settle(d, err)
				continue
			}
			c.settle(d, c.handle(ctx, &data, d))
		}
	}
}

func (c *consumer[T]) settle(d amqp.Delivery, err error) {
	if c.cfg.AutoAck {
		return
	}
	var ackErr error
	if err != nil {
		ackErr = d.Nack(false, false)
	} else {
		ackErr = d.Ack(false)
	}
	if ackErr != nil {
		c.l.Warn().Err(ackErr).Msg("failed to settle message")
	}
}

func (c *consumer[T]) handle(ctx context.Context, data *T, d amqp.Delivery) (err error) {
	defer func() {
		if r := recover(); r != nil {
			c.l.Error().Msgf("catch panic: %v\n%s", r, string(debug.Stack()))
			err = errPanic
		}
	}()
	if err = c.handler(ctx, data, d); err != nil {
		c.l.Error().Err(err).Msg("failed to handle message")
	}
	return err
}
