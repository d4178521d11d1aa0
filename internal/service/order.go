package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/flicky/go-storefront/internal/model"
	"github.com/flicky/go-storefront/internal/repository"
)

type OrderService struct {
	orderRepo repository.OrderRepository
}

func NewOrderService(orderRepo repository.OrderRepository) *OrderService {
	return &OrderService{orderRepo: orderRepo}
}

// GetOrder returns one of the user's orders. Orders owned by someone else
// are reported as not found.
func (s *OrderService) GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*model.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil || order.UserID != userID {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *OrderService) ListOrders(ctx context.Context, userID uuid.UUID) ([]model.Order, error) {
	orders, err := s.orderRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// UpdateStatus moves an order along the fulfilment lifecycle. The write is
// conditional on the status read here, so a concurrent change surfaces as
// ErrInvalidStatusTransition instead of being overwritten.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, to model.OrderStatus) (*model.Order, error) {
	if !to.Valid() {
		return nil, invalid("status", "is invalid")
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if !order.Status.CanTransitionTo(to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, order.Status, to)
	}

	changed, err := s.orderRepo.TransitionStatus(ctx, orderID, order.Status, to)
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}
	if !changed {
		return nil, fmt.Errorf("%w: %s changed concurrently", ErrInvalidStatusTransition, order.OrderNumber)
	}
	order.Status = to
	return order, nil
}

// Advance applies a from -> to transition only if the order is still in
// `from`. It reports false when the order is missing or has already moved,
// which makes repeated calls harmless.
func (s *OrderService) Advance(ctx context.Context, orderID uuid.UUID, from, to model.OrderStatus) (bool, error) {
	if !from.CanTransitionTo(to) {
		return false, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, from, to)
	}
	changed, err := s.orderRepo.TransitionStatus(ctx, orderID, from, to)
	if err != nil {
		return false, fmt.Errorf("advance order: %w", err)
	}
	return changed, nil
}
