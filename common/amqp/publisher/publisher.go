package publisher

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/ykhdr/crack-campaign/common/amqp/connection"
)

type DeliveryMode uint8

const (
	Transient  DeliveryMode = 1
	Persistent DeliveryMode = 2
)

type Marshal func(any) ([]byte, error)

type Config struct {
	Exchange    string
	RoutingKey  string
	Marshal     Marshal
	ContentType string
	// Type is copied into the Type property of every message.
	Type string
}

type Publisher[T any] interface {
	SendMessage(ctx context.Context, message *T, mode DeliveryMode, mandatory, immediate bool) error
}

// Channel is the subset of connection.Channel the publisher needs.
type Channel interface {
	Publish(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

var _ Channel = (*connection.Channel)(nil)

type publisher[T any] struct {
	cfg         *Config
	ch          Channel
	marshal     Marshal
	contentType string
	l           zerolog.Logger
}

func New[T any](ch Channel, config *Config) Publisher[T] {
	if config.Marshal == nil {
		config.Marshal = json.Marshal
	}
	if config.ContentType == "" {
		config.ContentType = "application/json"
	}
	return &publisher[T]{
		cfg:         config,
		ch:          ch,
		marshal:     config.Marshal,
		contentType: config.ContentType,
		l: log.With().
			Str("domain", "amqp").
			Str("component", "publisher").
			Type("type", *new(T)).
			Str("exchange", config.Exchange).
			Str("routing-key", config.RoutingKey).
			Logger(),
	}
}

func (p *publisher[T]) SendMessage(ctx context.Context, message *T, mode DeliveryMode, mandatory, immediate bool) error {
	body, err := p.marshal(message)
	if err != nil {
		p.l.Error().Err(err).Msg("failed to marshal message")
		return errors.Wrap(err, "failed to marshal message")
	}
	msg := p.buildMessage(body, mode)
	p.l.Debug().Str("message-id", msg.MessageId).Msg("send message")
	if err := p.ch.Publish(ctx, p.cfg.Exchange, p.cfg.RoutingKey, mandatory, immediate, *msg); err != nil {
		p.l.Error().Err(err).Msg("failed to send message")
		return errors.Wrap(err, "failed to send message")
	}
	return nil
}

func (p *publisher[T]) buildMessage(body []byte, mode DeliveryMode) *amqp.Publishing {
	return &amqp.Publishing{
		DeliveryMode: uint8(mode),
		ContentType:  p.contentType,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		Type:         p.cfg.Type,
		Body:         body,
	}
}
