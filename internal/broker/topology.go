package broker

import (
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange and queue names shared by producer and consumer. Both sides declare
// the full topology at startup; AMQP declarations are idempotent so whichever
// process starts first creates it and the other is a no-op.
const (
	// TaskExchange receives targeted events, routed by "user.<uuid>".
	TaskExchange = "task.notifications"
	// UserExchange receives broadcast events; fanout ignores routing keys.
	UserExchange = "user.notifications"
	// RetryExchange is the dead-letter target of the consumer queue. Failed
	// deliveries park in the retry queue and flow back after its TTL.
	RetryExchange = "task.notifications.retry"
	// DeadExchange receives messages that exhausted their delivery attempts.
	DeadExchange = "task.notifications.dead"

	ConsumerQueue = "task.notifications.queue"
	RetryQueue    = "task.notifications.retry.queue"
	DeadQueue     = "task.notifications.dead.queue"
)

// declareTopology sets up all exchanges, queues, and bindings.
//
// Retry flow: a nacked (requeue=false) delivery dead-letters to RetryExchange,
// waits retryDelay in RetryQueue, then its expiry dead-letters it to the
// default exchange with the consumer queue's name as routing key, which lands
// it back on ConsumerQueue with an incremented x-death count.
func declareTopology(ch *amqp.Channel, retryDelay time.Duration) error {
	exchanges := []struct {
		name string
		kind string
	}{
		{TaskExchange, "topic"},
		{UserExchange, "fanout"},
		{RetryExchange, "fanout"},
		{DeadExchange, "fanout"},
	}
	for _, e := range exchanges {
		if err := ch.ExchangeDeclare(e.name, e.kind, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare exchange %s: %w", e.name, err)
		}
	}

	_, err := ch.QueueDeclare(ConsumerQueue, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange": RetryExchange,
	})
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", ConsumerQueue, err)
	}

	_, err = ch.QueueDeclare(RetryQueue, true, false, false, false, amqp.Table{
		"x-message-ttl":             retryDelay.Milliseconds(),
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": ConsumerQueue,
	})
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", RetryQueue, err)
	}

	_, err = ch.QueueDeclare(DeadQueue, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", DeadQueue, err)
	}

	bindings := []struct {
		queue    string
		key      string
		exchange string
	}{
		{ConsumerQueue, "user.#", TaskExchange},
		{ConsumerQueue, "", UserExchange},
		{RetryQueue, "", RetryExchange},
		{DeadQueue, "", DeadExchange},
	}
	for _, b := range bindings {
		if err := ch.QueueBind(b.queue, b.key, b.exchange, false, nil); err != nil {
			return fmt.Errorf("bind %s to %s: %w", b.queue, b.exchange, err)
		}
	}

	return nil
}
