package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/flicky/go-storefront/internal/repository"
)

var (
	ErrProductNotFound         = errors.New("product not found")
	ErrCategoryNotFound        = errors.New("category not found")
	ErrCartItemNotFound        = errors.New("cart item not found")
	ErrOrderNotFound           = errors.New("order not found")
	ErrEmptyCart               = errors.New("cart is empty")
	ErrInsufficientStock       = errors.New("insufficient stock")
	ErrCheckoutFailed          = errors.New("checkout failed")
	ErrInvalidStatusTransition = errors.New("invalid order status transition")
	ErrDuplicateOrderNumber    = repository.ErrDuplicateOrderNumber
)

// ValidationError rejects a request before it has any effect.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// InsufficientStockError identifies the product that could not cover the
// requested quantity.
type InsufficientStockError struct {
	ProductID   uuid.UUID
	ProductName string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: requested %d, available %d", e.ProductName, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// CheckoutError is returned for any failure after the checkout transaction
// was opened. Nothing from the attempt was committed, so the whole checkout
// can be retried.
type CheckoutError struct {
	Err error
}

func (e *CheckoutError) Error() string { return "checkout failed: " + e.Err.Error() }

func (e *CheckoutError) Unwrap() error { return e.Err }

func (e *CheckoutError) Is(target error) bool { return target == ErrCheckoutFailed }

var validate = validator.New(validator.WithRequiredStructEnabled())

// validationError converts validator output into a ValidationError naming
// the first offending field.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ValidationError{Message: err.Error()}
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return invalid(field, "is required")
	case "max":
		return invalid(field, "must be at most "+fe.Param()+" characters")
	default:
		return invalid(field, "is invalid")
	}
}
