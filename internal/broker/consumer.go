package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/taskhub/task-management/internal/domain"
)

// Delivery outcomes reported through ConsumerHooks.
const (
	OutcomeAcked        = "acked"
	OutcomeDropped      = "dropped"
	OutcomeRetried      = "retried"
	OutcomeDeadLettered = "dead_lettered"
)

// EventHandler processes one accepted delivery. Implementations must tolerate
// repeated invocations for the same logical event: a delivery is redelivered
// whenever processing fails or the consumer dies before acknowledging.
type EventHandler interface {
	HandleNotification(ctx context.Context, event domain.TaskEvent) error
}

// consumeChannel is the slice of *amqp.Channel the consumer needs.
// Tests substitute a recording fake.
type consumeChannel interface {
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// ConsumerHooks carries metric callbacks injected by main (nil = no-op).
type ConsumerHooks struct {
	OnProcessed func(eventType domain.EventType, outcome string)
}

func (h *ConsumerHooks) fill() {
	if h.OnProcessed == nil {
		h.OnProcessed = func(domain.EventType, string) {}
	}
}

// Consumer drains the notification queue one delivery at a time.
//
// Acknowledgement protocol per delivery:
//   - unparseable or empty payload: ack and drop, it will never succeed
//   - handler success: ack
//   - handler failure: nack without requeue, which dead-letters the message
//     into the delayed retry queue; once the x-death count reaches the
//     configured ceiling the message is parked on the dead queue instead
//
// The consumer exclusively owns its connection and channel, separate from the
// producer's.
type Consumer struct {
	conn        *amqp.Connection
	ch          consumeChannel
	handler     EventHandler
	maxAttempts int64
	logger      *zap.Logger
	hooks       ConsumerHooks
	closeOnce   sync.Once
}

// NewConsumer dials the broker, declares the topology, and configures a
// prefetch of one so a single in-flight message is processed at a time.
func NewConsumer(url string, retryDelay time.Duration, maxAttempts int64, handler EventHandler, logger *zap.Logger, hooks ConsumerHooks) (*Consumer, error) {
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

	if err := ch.Qos(1, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("set qos: %w", err)
	}

	return &Consumer{
		conn:        conn,
		ch:          ch,
		handler:     handler,
		maxAttempts: maxAttempts,
		logger:      logger,
		hooks:       hooks,
	}, nil
}

// Run consumes deliveries until ctx is cancelled or the channel closes.
// Manual acknowledgement mode is mandatory: auto-ack would lose messages when
// the process dies mid-handler. The in-flight delivery is always acked or
// nacked before Run returns.
func (c *Consumer) Run(ctx context.Context) error {
	deliveries, err := c.ch.Consume(ConsumerQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	c.logger.Info("consumer started", zap.String("queue", ConsumerQueue))

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("consumer stopping")
			return nil
		case d, ok := <-deliveries:
			if !ok {
				c.logger.Warn("delivery channel closed")
				return nil
			}
			c.process(ctx, d)
		}
	}
}

// Close tears down the channel and connection exactly once. Call after Run
// has returned so the in-flight acknowledgement completes first.
func (c *Consumer) Close() {
	c.closeOnce.Do(func() {
		if err := c.ch.Close(); err != nil {
			c.logger.Error("close consumer channel", zap.Error(err))
		}
		if c.conn != nil {
			if err := c.conn.Close(); err != nil {
				c.logger.Error("close consumer connection", zap.Error(err))
			}
		}
	})
}

func (c *Consumer) process(ctx context.Context, d amqp.Delivery) {
	var event domain.TaskEvent
	if err := json.Unmarshal(d.Body, &event); err != nil || event.IsZero() {
		// Malformed but harmless: requeueing can never fix it.
		if err := d.Ack(false); err != nil {
			c.logger.Error("ack dropped message", zap.Error(err))
		}
		c.hooks.OnProcessed(event.MessageType, OutcomeDropped)
		c.logger.Warn("dropped undecodable delivery", zap.Int("body_bytes", len(d.Body)))
		return
	}

	log := c.logger.With(
		zap.String("message_id", event.MessageID.String()),
		zap.String("message_type", string(event.MessageType)),
		zap.String("task_item_id", event.TaskItemID.String()),
	)

	if err := c.handler.HandleNotification(ctx, event); err != nil {
		c.handleFailure(d, event, err, log)
		return
	}

	if err := d.Ack(false); err != nil {
		log.Error("ack processed message", zap.Error(err))
		return
	}
	c.hooks.OnProcessed(event.MessageType, OutcomeAcked)
	log.Info("notification processed")
}

// handleFailure routes the delivery into the delayed retry cycle, or parks it
// on the dead queue once its attempts are exhausted.
func (c *Consumer) handleFailure(d amqp.Delivery, event domain.TaskEvent, handleErr error, log *zap.Logger) {
	attempts := deathCount(d, RetryQueue) + 1

	if attempts >= c.maxAttempts {
		// Republish the original body to the dead exchange, then ack the
		// source delivery. Nacking here would only loop it through retry again.
		err := c.ch.PublishWithContext(context.Background(), DeadExchange, "", false, false, amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  d.ContentType,
			MessageId:    d.MessageId,
			Body:         d.Body,
		})
		if err != nil {
			log.Error("park on dead queue", zap.Error(err))
			// Leave it unacked; the broker redelivers after the channel drops.
			return
		}
		if err := d.Ack(false); err != nil {
			log.Error("ack dead-lettered message", zap.Error(err))
			return
		}
		c.hooks.OnProcessed(event.MessageType, OutcomeDeadLettered)
		log.Error("message dead-lettered after repeated failures",
			zap.Int64("attempts", attempts),
			zap.Error(handleErr),
		)
		return
	}

	if err := d.Nack(false, false); err != nil {
		log.Error("nack failed message", zap.Error(err))
		return
	}
	c.hooks.OnProcessed(event.MessageType, OutcomeRetried)
	log.Warn("handler failed, delivery scheduled for retry",
		zap.Int64("attempt", attempts),
		zap.Error(handleErr),
	)
}

// deathCount reads how many times this delivery has cycled through the named
// dead-letter queue from the broker-maintained x-death header.
func deathCount(d amqp.Delivery, queue string) int64 {
	deaths, ok := d.Headers["x-death"].([]interface{})
	if !ok {
		return 0
	}
	for _, raw := range deaths {
		entry, ok := raw.(amqp.Table)
		if !ok {
			continue
		}
		if q, _ := entry["queue"].(string); q != queue {
			continue
		}
		if count, ok := entry["count"].(int64); ok {
			return count
		}
	}
	return 0
}
