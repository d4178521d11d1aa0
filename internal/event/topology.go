package event

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	OrderPlacedQueue = "orders.placed"
	DeadLetterQueue  = "orders.dlq"
	deadLetterX      = "orders.dlx"
)

// TopologyChannel is the declaring half of *amqp.Channel.
type TopologyChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
}

// DeclareTopology declares the order queue and its dead-letter path.
// Rejected messages land in DeadLetterQueue. Safe to call repeatedly.
func DeclareTopology(ch TopologyChannel) error {
	if err := ch.ExchangeDeclare(deadLetterX, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare dead-letter exchange: %w", err)
	}
	if _, err := ch.QueueDeclare(DeadLetterQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare dead-letter queue: %w", err)
	}
	if err := ch.QueueBind(DeadLetterQueue, OrderPlacedQueue, deadLetterX, false, nil); err != nil {
		return fmt.Errorf("bind dead-letter queue: %w", err)
	}
	if _, err := ch.QueueDeclare(OrderPlacedQueue, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    deadLetterX,
		"x-dead-letter-routing-key": OrderPlacedQueue,
	}); err != nil {
		return fmt.Errorf("declare order queue: %w", err)
	}
	return nil
}
