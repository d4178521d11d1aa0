package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flicky/go-storefront/internal/model"
)

// CartRepository stores cart lines keyed by user. Every method that takes an
// item id also takes the owning user id; a line owned by someone else behaves
// as if it did not exist.
type CartRepository interface {
	AddOrIncrement(ctx context.Context, item *model.CartItem) error
	SetQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) error
	DeleteItem(ctx context.Context, userID, itemID uuid.UUID) error
	ListLines(ctx context.Context, userID uuid.UUID) ([]model.CartLine, error)
	Count(ctx context.Context, userID uuid.UUID) (int, error)
}

type pgCartRepo struct{ pool *pgxpool.Pool }

func NewCartRepository(pool *pgxpool.Pool) CartRepository {
	return &pgCartRepo{pool: pool}
}

// AddOrIncrement creates the (user, product) line or adds item.Quantity to the
// existing one. item is updated with the stored line.
func (r *pgCartRepo) AddOrIncrement(ctx context.Context, item *model.CartItem) error {
	query := `INSERT INTO cart_items (id, user_id, product_id, quantity, added_at, updated_at)
			  VALUES ($1, $2, $3, $4, NOW(), NOW())
			  ON CONFLICT (user_id, product_id) DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = NOW()
			  RETURNING id, quantity, added_at, updated_at`
	err := r.pool.QueryRow(ctx, query, uuid.New(), item.UserID, item.ProductID, item.Quantity).
		Scan(&item.ID, &item.Quantity, &item.AddedAt, &item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("add cart item: %w", err)
	}
	return nil
}

func (r *pgCartRepo) SetQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) error {
	ct, err := r.pool.Exec(ctx,
		`UPDATE cart_items SET quantity = $3, updated_at = NOW() WHERE id = $1 AND user_id = $2`,
		itemID, userID, quantity,
	)
	if err != nil {
		return fmt.Errorf("update cart item: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *pgCartRepo) DeleteItem(ctx context.Context, userID, itemID uuid.UUID) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE id = $1 AND user_id = $2`, itemID, userID)
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

const cartLinesQuery = `SELECT ci.id, ci.user_id, ci.product_id, ci.quantity, ci.added_at, ci.updated_at,
		p.name, p.slug, p.price, p.stock
	FROM cart_items ci JOIN products p ON p.id = ci.product_id
	WHERE ci.user_id = $1
	ORDER BY ci.added_at DESC, ci.id`

// ListLines returns the user's lines newest first, priced at the current
// product price.
func (r *pgCartRepo) ListLines(ctx context.Context, userID uuid.UUID) ([]model.CartLine, error) {
	rows, err := r.pool.Query(ctx, cartLinesQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("list cart lines: %w", err)
	}
	return collectCartLines(rows)
}

func collectCartLines(rows pgx.Rows) ([]model.CartLine, error) {
	defer rows.Close()
	var lines []model.CartLine
	for rows.Next() {
		var l model.CartLine
		if err := rows.Scan(
			&l.ID, &l.UserID, &l.ProductID, &l.Quantity, &l.AddedAt, &l.UpdatedAt,
			&l.ProductName, &l.ProductSlug, &l.ProductPrice, &l.ProductStock,
		); err != nil {
			return nil, fmt.Errorf("scan cart line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (r *pgCartRepo) Count(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM cart_items WHERE user_id = $1`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count cart items: %w", err)
	}
	return n, nil
}
