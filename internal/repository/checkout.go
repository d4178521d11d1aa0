package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flicky/go-storefront/internal/model"
)

// CheckoutTx is the set of writes a checkout performs. All calls share one
// database transaction.
type CheckoutTx interface {
	// LockCart locks the user's cart lines and their products and returns the
	// lines in cart order with live price and stock.
	LockCart(ctx context.Context, userID uuid.UUID) ([]model.CartLine, error)
	InsertOrder(ctx context.Context, order *model.Order) error
	InsertOrderItem(ctx context.Context, item *model.OrderItem) error
	// DecrementStock removes quantity units from the product, returning
	// ErrInsufficientStock instead of letting stock go negative.
	DecrementStock(ctx context.Context, productID uuid.UUID, quantity int) error
	// ClearCart deletes the given lines of the user's cart. Lines added after
	// LockCart are left in place.
	ClearCart(ctx context.Context, userID uuid.UUID, lineIDs []uuid.UUID) error
}

type CheckoutRepository interface {
	// InTx runs fn in a transaction, committing only if fn returns nil.
	InTx(ctx context.Context, fn func(tx CheckoutTx) error) error
}

type pgCheckoutRepo struct{ pool *pgxpool.Pool }

func NewCheckoutRepository(pool *pgxpool.Pool) CheckoutRepository {
	return &pgCheckoutRepo{pool: pool}
}

func (r *pgCheckoutRepo) InTx(ctx context.Context, fn func(tx CheckoutTx) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&pgCheckoutTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type pgCheckoutTx struct{ tx pgx.Tx }

func (t *pgCheckoutTx) LockCart(ctx context.Context, userID uuid.UUID) ([]model.CartLine, error) {
	// Products are locked in id order so concurrent checkouts over the same
	// products queue up instead of deadlocking.
	_, err := t.tx.Exec(ctx,
		`SELECT p.id FROM products p JOIN cart_items ci ON ci.product_id = p.id
		 WHERE ci.user_id = $1 ORDER BY p.id FOR UPDATE`, userID)
	if err != nil {
		return nil, fmt.Errorf("lock cart: %w", err)
	}

	rows, err := t.tx.Query(ctx, cartLinesQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("read locked cart: %w", err)
	}
	return collectCartLines(rows)
}

func (t *pgCheckoutTx) InsertOrder(ctx context.Context, order *model.Order) error {
	order.ID = uuid.New()
	err := t.tx.QueryRow(ctx,
		`INSERT INTO orders (id, user_id, order_number, total_amount, status, payment_method, shipping_address, phone, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW()) RETURNING created_at, updated_at`,
		order.ID, order.UserID, order.OrderNumber, order.TotalAmount, order.Status,
		order.PaymentMethod, order.ShippingAddress, order.Phone,
	).Scan(&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "orders_order_number_key") {
			return ErrDuplicateOrderNumber
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (t *pgCheckoutTx) InsertOrderItem(ctx context.Context, item *model.OrderItem) error {
	item.ID = uuid.New()
	_, err := t.tx.Exec(ctx,
		`INSERT INTO order_items (id, order_id, product_id, product_name, product_price, quantity)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		item.ID, item.OrderID, item.ProductID, item.ProductName, item.ProductPrice, item.Quantity,
	)
	if err != nil {
		return fmt.Errorf("insert order item: %w", err)
	}
	return nil
}

func (t *pgCheckoutTx) DecrementStock(ctx context.Context, productID uuid.UUID, quantity int) error {
	ct, err := t.tx.Exec(ctx,
		`UPDATE products SET stock = stock - $2, updated_at = NOW() WHERE id = $1 AND stock >= $2`,
		productID, quantity,
	)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("product %s: %w", productID, ErrInsufficientStock)
	}
	return nil
}

func (t *pgCheckoutTx) ClearCart(ctx context.Context, userID uuid.UUID, lineIDs []uuid.UUID) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1 AND id = ANY($2)`, userID, lineIDs)
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
