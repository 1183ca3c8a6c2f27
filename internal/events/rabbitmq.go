package events

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

const (
	ExchangeKind     = "topic"
	routingKeyPrefix = "decorbook."
	publishTimeout   = 5 * time.Second
)

// amqpChannel is the part of *amqp.Channel the bridge needs.
type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Spool keeps events the broker refused so they can be redelivered later.
type Spool interface {
	Enqueue(ctx context.Context, eventType string, payload []byte, cause error) error
}

// Bridge forwards bus events to a RabbitMQ topic exchange so other services
// can follow booking lifecycle changes.
type Bridge struct {
	conn     *amqp.Connection
	channel  amqpChannel
	exchange string
	spool    Spool
	logger   *zerolog.Logger
}

func DialBridge(url, exchange string, logger *zerolog.Logger) (*Bridge, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, ExchangeKind, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("rabbitmq exchange declare: %w", err)
	}

	return &Bridge{conn: conn, channel: ch, exchange: exchange, logger: logger}, nil
}

func newBridge(ch amqpChannel, exchange string, logger *zerolog.Logger) *Bridge {
	return &Bridge{channel: ch, exchange: exchange, logger: logger}
}

// RoutingKey maps an event type to its topic, e.g. decorbook.payment_confirmed.
func RoutingKey(eventType string) string {
	return routingKeyPrefix + eventType
}

// SetSpool installs the redelivery store used when a publish fails.
func (b *Bridge) SetSpool(s Spool) {
	b.spool = s
}

// Attach subscribes the bridge to every event type on bus.
func (b *Bridge) Attach(bus *EventBus) {
	for _, t := range AllTypes() {
		bus.Subscribe(t, b.forward)
	}
}

func (b *Bridge) forward(event *Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	err := b.Publish(ctx, event.Type, event.Payload, event.CreatedAt)
	if err == nil || b.spool == nil {
		return err
	}
	if spoolErr := b.spool.Enqueue(ctx, event.Type, event.Payload, err); spoolErr != nil {
		return fmt.Errorf("%w (spool: %v)", err, spoolErr)
	}
	b.logger.Warn().Err(err).Str("event_type", event.Type).Msg("event spooled for redelivery")
	return nil
}

// Publish sends one event body to the exchange.
func (b *Bridge) Publish(ctx context.Context, eventType string, payload []byte, ts time.Time) error {
	err := b.channel.PublishWithContext(ctx, b.exchange, RoutingKey(eventType), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    ts,
		Type:         eventType,
		Body:         payload,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}

	b.logger.Debug().Str("exchange", b.exchange).Str("event_type", eventType).Msg("event forwarded")
	return nil
}

func (b *Bridge) Close() {
	if b.channel != nil {
		b.channel.Close()
	}
	if b.conn != nil {
		b.conn.Close()
	}
}
