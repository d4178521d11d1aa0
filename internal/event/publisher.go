package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sony/gobreaker/v2"

	"github.com/flicky/go-storefront/internal/config"
	"github.com/flicky/go-storefront/internal/model"
)

// Channel is the publishing half of *amqp.Channel.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Publisher sends order events to the default exchange. After
// BreakerConfig.MaxFailures consecutive failures it stops calling the broker
// for BreakerConfig.Timeout and fails fast with gobreaker.ErrOpenState.
type Publisher struct {
	ch      Channel
	breaker *gobreaker.CircuitBreaker[struct{}]
}

func NewPublisher(ch Channel, cfg config.BreakerConfig, log *slog.Logger) *Publisher {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = 1
	}
	breaker := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:    "order-events",
		Timeout: cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return &Publisher{ch: ch, breaker: breaker}
}

func (p *Publisher) PublishOrderPlaced(ctx context.Context, msg model.OrderMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal order message: %w", err)
	}

	_, err = p.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, p.ch.PublishWithContext(ctx, "", OrderPlacedQueue, false, false, amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    msg.OrderID.String(),
			Timestamp:    time.Now(),
			Body:         body,
		})
	})
	if err != nil {
		return fmt.Errorf("publish order placed: %w", err)
	}
	return nil
}

func (p *Publisher) State() gobreaker.State { return p.breaker.State() }

// Check fails while the breaker is open.
func (p *Publisher) Check(context.Context) error {
	if p.State() == gobreaker.StateOpen {
		return gobreaker.ErrOpenState
	}
	return nil
}
