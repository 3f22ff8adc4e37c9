package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"catalog-admin/internal/catalog"

	"github.com/prometheus/client_golang/prometheus"
	amqp "github.com/rabbitmq/amqp091-go"
)

const consumerTag = "notifications-service"

const (
	outcomeHandled   = "handled"
	outcomeMalformed = "malformed"
)

var errMalformedEvent = errors.New("malformed event")

// NewEventsCounter counts consumed messages by entity, event type and
// outcome.
func NewEventsCounter(namespace string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_consumed_total",
		Help:      "Catalog change events consumed, by outcome.",
	}, []string{"entity", "event", "outcome"})
}

type Consumer struct {
	channel *amqp.Channel
	queue   string
	logger  *slog.Logger
	events  *prometheus.CounterVec
}

// NewConsumer opens a channel on conn and declares queue. events may be nil.
func NewConsumer(conn *amqp.Connection, queue string, prefetch int, logger *slog.Logger, events *prometheus.CounterVec) (*Consumer, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	_, err = ch.QueueDeclare(
		queue,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare queue %q: %w", queue, err)
	}

	if err := ch.Qos(prefetch, 0, false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("set qos: %w", err)
	}

	return &Consumer{
		channel: ch,
		queue:   queue,
		logger:  logger,
		events:  events,
	}, nil
}

func (c *Consumer) Listen(ctx context.Context) error {
	msgs, err := c.channel.Consume(
		c.queue,
		consumerTag,
		false, // manual ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume queue %q: %w", c.queue, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}

			c.settle(msg)
		}
	}
}

// settle acks msg once handled. handle only fails on events that can never
// be processed, so those are dropped instead of requeued.
func (c *Consumer) settle(msg amqp.Delivery) {
	event, err := c.handle(msg.Body)
	if err != nil {
		c.logger.Warn("dropping malformed event", "message_id", msg.MessageId, "type", msg.Type, "error", err)
		c.count(event, outcomeMalformed)
		_ = msg.Nack(false, false)
		return
	}

	c.count(event, outcomeHandled)
	_ = msg.Ack(false)
}

func (c *Consumer) count(event catalog.Event, outcome string) {
	if c.events == nil {
		return
	}
	c.events.WithLabelValues(labelOrUnknown(event.Entity), labelOrUnknown(event.EventType), outcome).Inc()
}

func labelOrUnknown(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}

func (c *Consumer) handle(body []byte) (catalog.Event, error) {
	event, err := decodeEvent(body)
	if err != nil {
		return catalog.Event{}, err
	}

	c.logger.Info("catalog change",
		"entity", event.Entity,
		"event_type", event.EventType,
		"entity_id", event.EntityID,
		"name", event.Name,
		"timestamp", event.Timestamp,
	)

	return event, nil
}

func decodeEvent(body []byte) (catalog.Event, error) {
	var event catalog.Event
	if err := json.Unmarshal(body, &event); err != nil {
		return catalog.Event{}, fmt.Errorf("%w: %v", errMalformedEvent, err)
	}

	switch event.Entity {
	case catalog.EntityProduct, catalog.EntityCategory:
	default:
		return catalog.Event{}, fmt.Errorf("%w: unknown entity %q", errMalformedEvent, event.Entity)
	}
	switch event.EventType {
	case catalog.EventCreated, catalog.EventUpdated, catalog.EventDeleted:
	default:
		return catalog.Event{}, fmt.Errorf("%w: unknown event type %q", errMalformedEvent, event.EventType)
	}

	return event, nil
}

func (c *Consumer) Close() error {
	return c.channel.Close()
}
