package connection

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	ConnAlreadyClosedErr    = errors.New("connection is already closed")
	ChannelAlreadyClosedErr = errors.New("channel is already closed")
)

// redial calls dial every timeout until it succeeds or closed is set. The
// second result is false when the owner was closed first.
func redial[T any](closed *atomic.Bool, timeout time.Duration, l zerolog.Logger, dial func() (T, error)) (T, bool) {
	for {
		if closed.Load() {
			var zero T
			return zero, false
		}
		v, err := dial()
		if err == nil {
			return v, true
		}
		l.Warn().Err(err).Dur("retry-in", timeout).Msg("reconnect failed")
		time.Sleep(timeout)
	}
}

// Connection is an AMQP connection that redials the broker whenever the
// server closes it.
type Connection struct {
	l    zerolog.Logger
	uri  string
	opts amqp.Config

	reconnectTimeout time.Duration

	m      sync.RWMutex
	conn   *amqp.Connection
	closed atomic.Bool
	cancel context.CancelFunc
}

func NewConnection(
	ctx context.Context,
	uri string,
	opts amqp.Config,
	reconnectTimeout time.Duration,
) (*Connection, error) {
	c, err := amqp.DialConfig(uri, opts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to dial amqp connection")
	}
	ctx, cancel := context.WithCancel(ctx)
	conn := &Connection{
		uri:              uri,
		opts:             opts,
		conn:             c,
		cancel:           cancel,
		reconnectTimeout: reconnectTimeout,
		l:                log.With().Str("domain", "amqp").Str("component", "connection").Logger(),
	}
	go conn.watch(ctx)
	return conn, nil
}

func (c *Connection) Connection() *amqp.Connection {
	c.m.RLock()
	defer c.m.RUnlock()
	return c.conn
}

func (c *Connection) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return ConnAlreadyClosedErr
	}
	c.cancel()
	if err := c.Connection().Close(); err != nil {
		return errors.Wrap(err, "error close amqp connection")
	}
	return nil
}

func (c *Connection) watch(ctx context.Context) {
	for {
		notify := c.Connection().NotifyClose(make(chan *amqp.Error, 1))
		select {
		case <-ctx.Done():
			return
		case amqpErr, ok := <-notify:
			if !ok || amqpErr == nil || c.closed.Load() {
				return
			}
			c.l.Warn().Err(amqpErr).Msg("connection closed, try to reconnect")
		}
		conn, ok := redial(&c.closed, c.reconnectTimeout, c.l, func() (*amqp.Connection, error) {
			return amqp.DialConfig(c.uri, c.opts)
		})
		if !ok {
			return
		}
		c.m.Lock()
		c.conn = conn
		c.m.Unlock()
		c.l.Info().Msg("amqp connection reconnected")
	}
}

// Channel is an AMQP channel that reopens itself on the current connection
// after the server closes it.
type Channel struct {
	l    zerolog.Logger
	conn *Connection

	reconnectTimeout time.Duration

	m      sync.RWMutex
	ch     *amqp.Channel
	closed atomic.Bool
	cancel context.CancelFunc
}

func (c *Connection) Channel(ctx context.Context) (*Channel, error) {
	amqpCh, err := c.Connection().Channel()
	if err != nil {
		return nil, errors.Wrap(err, "failed to open channel")
	}
	ctx, cancel := context.WithCancel(ctx)
	ch := &Channel{
		ch:               amqpCh,
		conn:             c,
		reconnectTimeout: c.reconnectTimeout,
		cancel:           cancel,
		l:                log.With().Str("domain", "amqp").Str("component", "channel").Logger(),
	}
	go ch.watch(ctx)
	return ch, nil
}

func (ch *Channel) Channel() *amqp.Channel {
	ch.m.RLock()
	defer ch.m.RUnlock()
	return ch.ch
}

func (ch *Channel) Close() error {
	if !ch.closed.CompareAndSwap(false, true) {
		return ChannelAlreadyClosedErr
	}
	ch.cancel()
	if err := ch.Channel().Close(); err != nil {
		return errors.Wrap(err, "failed to close amqp channel")
	}
	return nil
}

func (ch *Channel) IsClosed() bool {
	return ch.closed.Load()
}

func (ch *Channel) watch(ctx context.Context) {
	for {
		notify := ch.Channel().NotifyClose(make(chan *amqp.Error, 1))
		select {
		case <-ctx.Done():
			return
		case amqpErr, ok := <-notify:
			if ch.closed.Load() {
				return
			}
			// a closed notify channel without an error means the connection
			// went away underneath; reopen once it is back
			if ok && amqpErr != nil {
				ch.l.Warn().Err(amqpErr).Msg("channel closed, try to reopen")
			}
		}
		amqpCh, ok := redial(&ch.closed, ch.reconnectTimeout, ch.l, func() (*amqp.Channel, error) {
			return ch.conn.Connection().Channel()
		})
		if !ok {
			return
		}
		ch.m.Lock()
		ch.ch = amqpCh
		ch.m.Unlock()
		ch.l.Info().Msg("amqp channel reopened")
	}
}

// Consume delivers messages from queue until ctx is done or the channel is
// closed, resubscribing after the channel is reopened.
func (ch *Channel) Consume(
	ctx context.Context, queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table,
) <-chan amqp.Delivery {
	deliveries := make(chan amqp.Delivery)
	go ch.consume(ctx, deliveries, queue, consumer, autoAck, exclusive, noLocal, noWait, args)
	return deliveries
}

func (ch *Channel) consume(
	ctx context.Context, deliveries chan<- amqp.Delivery, queue, consumer string, autoAck, exclusive, noLocal,
	noWait bool, args amqp.Table,
) {
	defer close(deliveries)
	for {
		if ctx.Err() != nil || ch.IsClosed() {
			return
		}
		d, err := ch.Channel().ConsumeWithContext(ctx, queue, consumer, autoAck, exclusive, noLocal, noWait, args)
		if err != nil {
			ch.l.Error().Err(err).Str("queue", queue).Msg("failed to consume")
			select {
			case <-ctx.Done():
				return
			case <-time.After(ch.reconnectTimeout):
			}
			continue
		}
		for msg := range d {
			select {
			case deliveries <- msg:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (ch *Channel) Publish(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if ch.IsClosed() {
		return ChannelAlreadyClosedErr
	}
	if err := ch.Channel().PublishWithContext(ctx, exchange, key, mandatory, immediate, msg); err != nil {
		return errors.Wrap(err, "failed to publish")
	}
	return nil
}
