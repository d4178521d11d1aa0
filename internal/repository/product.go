package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/flicky/go-storefront/internal/model"
)

const (
	SortPriceLow  = "price_low"
	SortPriceHigh = "price_high"
	SortNewest    = "newest"
	SortName      = "name"

	StockIn  = "in_stock"
	StockOut = "out_of_stock"
)

// ProductFilter narrows a catalog listing. Zero values disable a filter.
type ProductFilter struct {
	CategorySlug string
	Search       string
	MinPrice     decimal.NullDecimal
	MaxPrice     decimal.NullDecimal
	Stock        string
	Sort         string
	Limit        int
	Offset       int
}

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	GetBySlug(ctx context.Context, slug string) (*model.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]model.Product, int, error)
	Featured(ctx context.Context, limit int) ([]model.Product, error)
	Related(ctx context.Context, product *model.Product, limit int) ([]model.Product, error)
	PriceRange(ctx context.Context) (decimal.Decimal, decimal.Decimal, error)
	Update(ctx context.Context, product *model.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	SlugExists(ctx context.Context, slug string) (bool, error)
}

type pgProductRepo struct{ pool *pgxpool.Pool }

func NewProductRepository(pool *pgxpool.Pool) ProductRepository {
	return &pgProductRepo{pool: pool}
}

const productColumns = `p.id, p.category_id, c.name, p.name, p.slug, p.description, p.price, p.stock,
	p.is_active, p.added_by, p.created_at, p.updated_at`

const productFrom = `FROM products p JOIN categories c ON c.id = p.category_id`

func scanProduct(row pgx.Row, p *model.Product) error {
	return row.Scan(
		&p.ID, &p.CategoryID, &p.CategoryName, &p.Name, &p.Slug, &p.Description, &p.Price, &p.Stock,
		&p.IsActive, &p.AddedBy, &p.CreatedAt, &p.UpdatedAt,
	)
}

func collectProducts(rows pgx.Rows) ([]model.Product, error) {
	defer rows.Close()
	var products []model.Product
	for rows.Next() {
		var p model.Product
		if err := scanProduct(rows, &p); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *pgProductRepo) Create(ctx context.Context, product *model.Product) error {
	product.ID = uuid.New()
	query := `INSERT INTO products (id, category_id, name, slug, description, price, stock, is_active, added_by, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW()) RETURNING created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		product.ID, product.CategoryID, product.Name, product.Slug, product.Description,
		product.Price, product.Stock, product.IsActive, product.AddedBy,
	).Scan(&product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "products_slug_key") {
			return ErrDuplicateSlug
		}
		if isForeignKeyViolation(err, "products_category_id_fkey") {
			return ErrUnknownCategory
		}
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

func (r *pgProductRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	p := &model.Product{}
	err := scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` `+productFrom+` WHERE p.id = $1`, id), p)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

func (r *pgProductRepo) GetBySlug(ctx context.Context, slug string) (*model.Product, error) {
	p := &model.Product{}
	err := scanProduct(r.pool.QueryRow(ctx,
		`SELECT `+productColumns+` `+productFrom+` WHERE p.slug = $1 AND p.is_active`, slug), p)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product by slug: %w", err)
	}
	return p, nil
}

func (r *pgProductRepo) List(ctx context.Context, f ProductFilter) ([]model.Product, int, error) {
	where, args := buildProductWhere(f)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) `+productFrom+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	args = append(args, f.Limit, f.Offset)
	query := fmt.Sprintf(`SELECT %s %s%s ORDER BY %s LIMIT $%d OFFSET $%d`,
		productColumns, productFrom, where, productOrderBy(f.Sort), len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	products, err := collectProducts(rows)
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func buildProductWhere(f ProductFilter) (string, []any) {
	conds := []string{"p.is_active"}
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.CategorySlug != "" {
		conds = append(conds, "c.slug = "+arg(f.CategorySlug))
	}
	if f.Search != "" {
		n := arg(f.Search)
		conds = append(conds, fmt.Sprintf("(p.name ILIKE '%%' || %s || '%%' OR p.description ILIKE '%%' || %s || '%%')", n, n))
	}
	if f.MinPrice.Valid {
		conds = append(conds, "p.price >= "+arg(f.MinPrice.Decimal))
	}
	if f.MaxPrice.Valid {
		conds = append(conds, "p.price <= "+arg(f.MaxPrice.Decimal))
	}
	switch f.Stock {
	case StockIn:
		conds = append(conds, "p.stock > 0")
	case StockOut:
		conds = append(conds, "p.stock = 0")
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func productOrderBy(sort string) string {
	switch sort {
	case SortPriceLow:
		return "p.price ASC, p.id"
	case SortPriceHigh:
		return "p.price DESC, p.id"
	case SortName:
		return "p.name ASC, p.id"
	default:
		return "p.created_at DESC, p.id"
	}
}

func (r *pgProductRepo) Featured(ctx context.Context, limit int) ([]model.Product, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+productColumns+` `+productFrom+` WHERE p.is_active ORDER BY p.created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("featured products: %w", err)
	}
	return collectProducts(rows)
}

func (r *pgProductRepo) Related(ctx context.Context, product *model.Product, limit int) ([]model.Product, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+productColumns+` `+productFrom+`
		 WHERE p.is_active AND p.category_id = $1 AND p.id <> $2
		 ORDER BY p.created_at DESC LIMIT $3`,
		product.CategoryID, product.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("related products: %w", err)
	}
	return collectProducts(rows)
}

func (r *pgProductRepo) PriceRange(ctx context.Context) (decimal.Decimal, decimal.Decimal, error) {
	var lo, hi decimal.NullDecimal
	err := r.pool.QueryRow(ctx, `SELECT MIN(price), MAX(price) FROM products WHERE is_active`).Scan(&lo, &hi)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("price range: %w", err)
	}
	return lo.Decimal, hi.Decimal, nil
}

// Update writes the mutable product fields. The slug is never rewritten.
func (r *pgProductRepo) Update(ctx context.Context, product *model.Product) error {
	query := `UPDATE products SET name=$2, description=$3, price=$4, stock=$5, is_active=$6, updated_at=NOW()
			  WHERE id=$1 RETURNING updated_at`
	err := r.pool.QueryRow(ctx, query,
		product.ID, product.Name, product.Description, product.Price, product.Stock, product.IsActive,
	).Scan(&product.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pgx.ErrNoRows
		}
		return fmt.Errorf("update product: %w", err)
	}
	return nil
}

func (r *pgProductRepo) Delete(ctx context.Context, id uuid.UUID) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *pgProductRepo) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE slug = $1)`, slug).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check product slug: %w", err)
	}
	return exists, nil
}
