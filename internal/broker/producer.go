package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/taskhub/task-management/internal/domain"
)

// publishChannel is the slice of *amqp.Channel the producer needs.
// Tests substitute a recording fake.
type publishChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// ProducerHooks carries metric callbacks injected by main (nil = no-op).
type ProducerHooks struct {
	OnPublished  func(eventType domain.EventType)
	OnUnroutable func()
}

func (h *ProducerHooks) fill() {
	if h.OnPublished == nil {
		h.OnPublished = func(domain.EventType) {}
	}
	if h.OnUnroutable == nil {
		h.OnUnroutable = func() {}
	}
}

// Producer publishes task events after a successful state mutation.
//
// It exclusively owns its broker connection and channel, acquired once at
// construction and released by Close. A broken connection is not recreated
// within the producer's lifetime; publish errors propagate to the caller,
// who decides whether the surrounding mutation fails or logs and continues.
type Producer struct {
	conn      *amqp.Connection
	ch        publishChannel
	logger    *zap.Logger
	hooks     ProducerHooks
	closeOnce sync.Once
}

// NewProducer dials the broker, declares the topology, and starts a listener
// that logs returned (unroutable) messages. An unroutable message is a
// warning, never a publish failure: the mutation that triggered it has
// already committed.
func NewProducer(url string, retryDelay time.Duration, logger *zap.Logger, hooks ProducerHooks) (*Producer, error) {
	hooks.fill()

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := declareTopology(ch, retryDelay); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	returns := ch.NotifyReturn(make(chan amqp.Return, 16))
	p := &Producer{conn: conn, ch: ch, logger: logger, hooks: hooks}
	go p.drainReturns(returns)

	return p, nil
}

// PublishTaskAssigned publishes a targeted TaskAssigned event routed to the
// assignee's queue binding.
func (p *Producer) PublishTaskAssigned(ctx context.Context, taskID, assignedToID uuid.UUID) error {
	event := domain.TaskEvent{
		MessageID:        uuid.New(),
		TaskItemID:       taskID,
		AssignedToUserID: assignedToID,
		Timestamp:        time.Now().UTC(),
		MessageType:      domain.EventTaskAssigned,
		Description:      "You have been assigned a new task",
	}
	routingKey := fmt.Sprintf("user.%s", assignedToID)
	return p.publish(ctx, TaskExchange, routingKey, event)
}

// PublishTaskUpdated publishes a broadcast event on the fanout exchange.
// The task's current assignee travels in the event so consumers can derive
// a correctly-owned notification.
func (p *Producer) PublishTaskUpdated(ctx context.Context, taskID, assignedToID, updatedByID uuid.UUID, kind domain.EventType) error {
	event := domain.TaskEvent{
		MessageID:        uuid.New(),
		TaskItemID:       taskID,
		AssignedToUserID: assignedToID,
		UpdatedByUserID:  &updatedByID,
		Timestamp:        time.Now().UTC(),
		MessageType:      kind,
		Description:      updateDescription(kind),
	}
	return p.publish(ctx, UserExchange, "", event)
}

// Close tears down the channel and connection exactly once.
func (p *Producer) Close() {
	p.closeOnce.Do(func() {
		if ch, ok := p.ch.(*amqp.Channel); ok {
			if err := ch.Close(); err != nil {
				p.logger.Error("close producer channel", zap.Error(err))
			}
		}
		if p.conn != nil {
			if err := p.conn.Close(); err != nil {
				p.logger.Error("close producer connection", zap.Error(err))
			}
		}
	})
}

func (p *Producer) publish(ctx context.Context, exchange, routingKey string, event domain.TaskEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	// MessageId is regenerated per publish attempt; it traces a delivery,
	// it does not identify the logical event.
	err = p.ch.PublishWithContext(ctx, exchange, routingKey, true, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		MessageId:    uuid.New().String(),
		Timestamp:    event.Timestamp,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", event.MessageType, err)
	}

	p.hooks.OnPublished(event.MessageType)
	p.logger.Debug("event published",
		zap.String("exchange", exchange),
		zap.String("routing_key", routingKey),
		zap.String("message_type", string(event.MessageType)),
		zap.String("task_item_id", event.TaskItemID.String()),
	)
	return nil
}

// drainReturns logs mandatory-flagged messages the broker could not route.
// The channel closes when the producer channel closes, ending the goroutine.
func (p *Producer) drainReturns(returns <-chan amqp.Return) {
	for r := range returns {
		p.hooks.OnUnroutable()
		p.logger.Warn("message not routed",
			zap.String("exchange", r.Exchange),
			zap.String("routing_key", r.RoutingKey),
			zap.String("reply_text", r.ReplyText),
		)
	}
}

func updateDescription(kind domain.EventType) string {
	switch kind {
	case domain.EventTaskCompleted:
		return "Task has been completed"
	default:
		return "Task has been updated"
	}
}
