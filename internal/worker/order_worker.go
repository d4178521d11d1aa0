package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/flicky/go-storefront/internal/event"
	"github.com/flicky/go-storefront/internal/model"
	"github.com/flicky/go-storefront/internal/service"
)

const idempotencyTTL = 24 * time.Hour

// Consumer is the consuming half of *amqp.Channel.
type Consumer interface {
	Qos(prefetchCount, prefetchSize int, global bool) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

type OrderAdvancer interface {
	Advance(ctx context.Context, orderID uuid.UUID, from, to model.OrderStatus) (bool, error)
}

// OrderWorker picks up placed orders and moves them from pending to
// processing. Redelivered messages are skipped using a Redis marker.
type OrderWorker struct {
	consumer    Consumer
	orders      OrderAdvancer
	cache       service.ProductCache
	redisClient *redis.Client
	log         *slog.Logger
	done        chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
}

func NewOrderWorker(
	consumer Consumer,
	orders OrderAdvancer,
	cache service.ProductCache,
	redisClient *redis.Client,
	log *slog.Logger,
) *OrderWorker {
	return &OrderWorker{
		consumer:    consumer,
		orders:      orders,
		cache:       cache,
		redisClient: redisClient,
		log:         log,
		done:        make(chan struct{}),
	}
}

func (w *OrderWorker) Start(ctx context.Context) error {
	if err := w.consumer.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set QoS: %w", err)
	}
	msgs, err := w.consumer.Consume(event.OrderPlacedQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				w.handle(ctx, msg)
			case <-w.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	w.log.Info("order worker started", "queue", event.OrderPlacedQueue)
	return nil
}

// Stop ends consumption and waits for the in-flight message to finish.
func (w *OrderWorker) Stop() {
	w.stopOnce.Do(func() { close(w.done) })
	w.wg.Wait()
}

func idempotencyKey(orderID uuid.UUID) string {
	return "order_processed:" + orderID.String()
}

func (w *OrderWorker) handle(ctx context.Context, msg amqp.Delivery) {
	var orderMsg model.OrderMessage
	if err := json.Unmarshal(msg.Body, &orderMsg); err != nil {
		w.log.Error("unmarshal order message", "error", err)
		_ = msg.Nack(false, false)
		return
	}

	log := w.log.With("order_id", orderMsg.OrderID, "order_number", orderMsg.OrderNumber)

	key := idempotencyKey(orderMsg.OrderID)
	exists, err := w.redisClient.Exists(ctx, key).Result()
	if err != nil {
		log.Error("check idempotency key", "error", err)
		_ = msg.Nack(false, true)
		return
	}
	if exists > 0 {
		log.Info("order already handled, skipping")
		_ = msg.Ack(false)
		return
	}

	if err := w.process(ctx, orderMsg); err != nil {
		log.Error("process order", "error", err)
		_ = msg.Nack(false, false)
		return
	}

	if err := w.redisClient.Set(ctx, key, "1", idempotencyTTL).Err(); err != nil {
		log.Error("set idempotency key", "error", err)
	}
	_ = msg.Ack(false)
}

func (w *OrderWorker) process(ctx context.Context, msg model.OrderMessage) error {
	changed, err := w.orders.Advance(ctx, msg.OrderID, model.OrderStatusPending, model.OrderStatusProcessing)
	if err != nil {
		return err
	}
	if changed {
		w.log.Info("order processing", "order_id", msg.OrderID)
	} else {
		w.log.Info("order no longer pending", "order_id", msg.OrderID)
	}
	w.cache.InvalidateProducts(ctx, msg.ProductIDs...)
	return nil
}
