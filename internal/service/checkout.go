package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"

	"github.com/flicky/go-storefront/internal/model"
	"github.com/flicky/go-storefront/internal/repository"
)

// OrderNumberGenerator returns a candidate order number. Candidates need not
// be unique; collisions are retried.
type OrderNumberGenerator func() string

// NewOrderNumberGenerator yields prefix followed by six random digits.
func NewOrderNumberGenerator(prefix string) OrderNumberGenerator {
	return func() string {
		return fmt.Sprintf("%s%d", prefix, 100000+rand.IntN(900000))
	}
}

type OrderEventPublisher interface {
	PublishOrderPlaced(ctx context.Context, msg model.OrderMessage) error
}

type ProductCache interface {
	InvalidateProducts(ctx context.Context, ids ...uuid.UUID)
}

type CheckoutRequest struct {
	ShippingAddress string              `validate:"required"`
	Phone           string              `validate:"required,max=15"`
	PaymentMethod   model.PaymentMethod `validate:"required"`
}

type CheckoutService struct {
	cartRepo        repository.CartRepository
	checkoutRepo    repository.CheckoutRepository
	nextOrderNumber OrderNumberGenerator
	maxAttempts     int
	publisher       OrderEventPublisher
	cache           ProductCache
	log             *slog.Logger
}

func NewCheckoutService(
	cartRepo repository.CartRepository,
	checkoutRepo repository.CheckoutRepository,
	nextOrderNumber OrderNumberGenerator,
	maxAttempts int,
	publisher OrderEventPublisher,
	cache ProductCache,
	log *slog.Logger,
) *CheckoutService {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &CheckoutService{
		cartRepo:        cartRepo,
		checkoutRepo:    checkoutRepo,
		nextOrderNumber: nextOrderNumber,
		maxAttempts:     maxAttempts,
		publisher:       publisher,
		cache:           cache,
		log:             log,
	}
}

// Checkout converts the user's cart into a pending order. Order, order
// items, stock decrements and cart clearing commit together or not at all.
//
// Errors: *ValidationError for a bad request, ErrEmptyCart when there is
// nothing to buy, and *CheckoutError (matching ErrCheckoutFailed) for
// anything that went wrong inside the transaction, including
// *InsufficientStockError and exhausted order-number retries.
func (s *CheckoutService) Checkout(ctx context.Context, userID uuid.UUID, req CheckoutRequest) (*model.Order, error) {
	req.ShippingAddress = strings.TrimSpace(req.ShippingAddress)
	req.Phone = strings.TrimSpace(req.Phone)
	if err := validate.Struct(req); err != nil {
		return nil, validationError(err)
	}
	if !req.PaymentMethod.Valid() {
		return nil, invalid("paymentmethod", "is invalid")
	}

	n, err := s.cartRepo.Count(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count cart items: %w", err)
	}
	if n == 0 {
		return nil, ErrEmptyCart
	}

	log := s.log.With("user_id", userID)
	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		order, err := s.placeOrder(ctx, userID, req)
		if err == nil {
			log.Info("order placed", "order_id", order.ID, "order_number", order.OrderNumber, "items", len(order.Items))
			s.afterCommit(ctx, order)
			return order, nil
		}
		if errors.Is(err, ErrEmptyCart) {
			return nil, ErrEmptyCart
		}
		if !errors.Is(err, repository.ErrDuplicateOrderNumber) {
			log.Warn("checkout rolled back", "error", err)
			return nil, &CheckoutError{Err: err}
		}
		log.Warn("order number collision", "attempt", attempt)
		lastErr = err
	}
	return nil, &CheckoutError{Err: fmt.Errorf("%w after %d attempts", lastErr, s.maxAttempts)}
}

func (s *CheckoutService) placeOrder(ctx context.Context, userID uuid.UUID, req CheckoutRequest) (*model.Order, error) {
	var order *model.Order
	err := s.checkoutRepo.InTx(ctx, func(tx repository.CheckoutTx) error {
		lines, err := tx.LockCart(ctx, userID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return ErrEmptyCart
		}

		cart := model.Cart{UserID: userID, Lines: lines}
		o := &model.Order{
			UserID:          userID,
			OrderNumber:     s.nextOrderNumber(),
			TotalAmount:     cart.Total(),
			Status:          model.OrderStatusPending,
			PaymentMethod:   req.PaymentMethod,
			ShippingAddress: req.ShippingAddress,
			Phone:           req.Phone,
		}
		if err := tx.InsertOrder(ctx, o); err != nil {
			return err
		}

		o.Items = make([]model.OrderItem, 0, len(lines))
		lineIDs := make([]uuid.UUID, 0, len(lines))
		for _, line := range lines {
			item := model.NewOrderItem(line)
			item.OrderID = o.ID
			if err := tx.InsertOrderItem(ctx, &item); err != nil {
				return err
			}
			if err := tx.DecrementStock(ctx, line.ProductID, line.Quantity); err != nil {
				if errors.Is(err, repository.ErrInsufficientStock) {
					return &InsufficientStockError{
						ProductID: line.ProductID, ProductName: line.ProductName,
						Requested: line.Quantity, Available: line.ProductStock,
					}
				}
				return err
			}
			o.Items = append(o.Items, item)
			lineIDs = append(lineIDs, line.ID)
		}

		if err := tx.ClearCart(ctx, userID, lineIDs); err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// afterCommit runs the side effects of a committed order. Failures are
// logged; the order stands regardless.
func (s *CheckoutService) afterCommit(ctx context.Context, order *model.Order) {
	productIDs := make([]uuid.UUID, 0, len(order.Items))
	for _, item := range order.Items {
		if item.ProductID.Valid {
			productIDs = append(productIDs, item.ProductID.UUID)
		}
	}

	if s.cache != nil {
		s.cache.InvalidateProducts(ctx, productIDs...)
	}
	if s.publisher != nil {
		msg := model.OrderMessage{
			OrderID: order.ID, UserID: order.UserID,
			OrderNumber: order.OrderNumber, ProductIDs: productIDs,
		}
		if err := s.publisher.PublishOrderPlaced(ctx, msg); err != nil {
			s.log.Error("publish order placed", "order_id", order.ID, "error", err)
		}
	}
}
