package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/flicky/go-storefront/internal/model"
)

// AnalyticsRepository computes read-only rollups over order history. Each
// method issues a single statement; empty history yields zero values.
type AnalyticsRepository interface {
	Totals(ctx context.Context) (model.SalesTotals, error)
	TopProducts(ctx context.Context, limit int) ([]model.ProductSales, error)
	CategorySales(ctx context.Context) ([]model.CategorySales, error)
	OrdersByStatus(ctx context.Context) ([]model.StatusCount, error)
	// RevenueBetween sums revenue-status orders created in [from, to).
	// A zero `to` leaves the range open-ended.
	RevenueBetween(ctx context.Context, from, to time.Time) (decimal.Decimal, error)
	CountOrdersBetween(ctx context.Context, from, to time.Time) (int, error)
	LowStock(ctx context.Context, threshold int) ([]model.LowStockProduct, error)
	RecentOrders(ctx context.Context, limit int) ([]model.RecentOrder, error)
	TopCustomers(ctx context.Context, limit int) ([]model.CustomerSpend, error)
	// DailySales buckets orders by calendar day in since's location, which
	// must be a zone name Postgres understands (UTC or IANA).
	DailySales(ctx context.Context, since time.Time) ([]model.DailySales, error)
}

type pgAnalyticsRepo struct{ pool *pgxpool.Pool }

func NewAnalyticsRepository(pool *pgxpool.Pool) AnalyticsRepository {
	return &pgAnalyticsRepo{pool: pool}
}

func revenueStatuses() []string {
	out := make([]string, len(model.RevenueStatuses))
	for i, s := range model.RevenueStatuses {
		out[i] = string(s)
	}
	return out
}

func (r *pgAnalyticsRepo) Totals(ctx context.Context) (model.SalesTotals, error) {
	var t model.SalesTotals
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE status = 'pending'),
		        COUNT(DISTINCT user_id),
		        COALESCE(SUM(total_amount) FILTER (WHERE status <> 'cancelled'), 0)
		 FROM orders`,
	).Scan(&t.TotalOrders, &t.PendingOrders, &t.TotalCustomers, &t.TotalRevenue)
	if err != nil {
		return model.SalesTotals{}, fmt.Errorf("sales totals: %w", err)
	}
	return t, nil
}

// TopProducts ranks products by units sold. Lines whose product was deleted
// have no identity and are not ranked.
func (r *pgAnalyticsRepo) TopProducts(ctx context.Context, limit int) ([]model.ProductSales, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT oi.product_id,
		        MAX(oi.product_name),
		        SUM(oi.quantity) AS total_sold,
		        SUM(oi.quantity * oi.product_price) AS revenue
		 FROM order_items oi
		 WHERE oi.product_id IS NOT NULL
		 GROUP BY oi.product_id
		 ORDER BY total_sold DESC, revenue DESC, MAX(oi.product_name)
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("top products: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.ProductSales, error) {
		var s model.ProductSales
		err := row.Scan(&s.ProductID, &s.ProductName, &s.TotalSold, &s.Revenue)
		return s, err
	})
}

// CategorySales groups revenue through the product's current category.
// Lines whose product was deleted drop out of the join.
func (r *pgAnalyticsRepo) CategorySales(ctx context.Context) ([]model.CategorySales, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT c.id, c.name,
		        SUM(oi.quantity) AS total_sold,
		        SUM(oi.quantity * oi.product_price) AS revenue
		 FROM order_items oi
		 JOIN products p ON p.id = oi.product_id
		 JOIN categories c ON c.id = p.category_id
		 GROUP BY c.id, c.name
		 ORDER BY revenue DESC, c.name`)
	if err != nil {
		return nil, fmt.Errorf("category sales: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.CategorySales, error) {
		var s model.CategorySales
		err := row.Scan(&s.CategoryID, &s.CategoryName, &s.TotalSold, &s.Revenue)
		return s, err
	})
}

func (r *pgAnalyticsRepo) OrdersByStatus(ctx context.Context) ([]model.StatusCount, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM orders GROUP BY status ORDER BY status`)
	if err != nil {
		return nil, fmt.Errorf("orders by status: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.StatusCount, error) {
		var s model.StatusCount
		err := row.Scan(&s.Status, &s.Count)
		return s, err
	})
}

func (r *pgAnalyticsRepo) RevenueBetween(ctx context.Context, from, to time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(total_amount), 0) FROM orders
		 WHERE created_at >= $1 AND ($2::timestamptz IS NULL OR created_at < $2) AND status = ANY($3)`,
		from, nullTime(to), revenueStatuses(),
	).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("revenue between: %w", err)
	}
	return total, nil
}

func (r *pgAnalyticsRepo) CountOrdersBetween(ctx context.Context, from, to time.Time) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM orders WHERE created_at >= $1 AND ($2::timestamptz IS NULL OR created_at < $2)`,
		from, nullTime(to),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count orders between: %w", err)
	}
	return n, nil
}

func (r *pgAnalyticsRepo) LowStock(ctx context.Context, threshold int) ([]model.LowStockProduct, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, stock, price, stock * price AS inventory_value
		 FROM products
		 WHERE stock < $1 AND is_active
		 ORDER BY stock ASC, name`, threshold)
	if err != nil {
		return nil, fmt.Errorf("low stock: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.LowStockProduct, error) {
		var p model.LowStockProduct
		err := row.Scan(&p.ProductID, &p.Name, &p.Stock, &p.Price, &p.InventoryValue)
		return p, err
	})
}

func (r *pgAnalyticsRepo) RecentOrders(ctx context.Context, limit int) ([]model.RecentOrder, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT o.id, o.order_number, u.email, o.total_amount, o.status, o.created_at
		 FROM orders o JOIN users u ON u.id = o.user_id
		 ORDER BY o.created_at DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent orders: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.RecentOrder, error) {
		var o model.RecentOrder
		err := row.Scan(&o.OrderID, &o.OrderNumber, &o.CustomerEmail, &o.TotalAmount, &o.Status, &o.CreatedAt)
		return o, err
	})
}

func (r *pgAnalyticsRepo) TopCustomers(ctx context.Context, limit int) ([]model.CustomerSpend, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT u.id, u.email, COUNT(o.id) AS total_orders, SUM(o.total_amount) AS total_spent
		 FROM users u JOIN orders o ON o.user_id = u.id
		 WHERE o.status <> 'cancelled'
		 GROUP BY u.id, u.email
		 ORDER BY total_spent DESC, u.email
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("top customers: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.CustomerSpend, error) {
		var c model.CustomerSpend
		err := row.Scan(&c.UserID, &c.Email, &c.TotalOrders, &c.TotalSpent)
		return c, err
	})
}

func (r *pgAnalyticsRepo) DailySales(ctx context.Context, since time.Time) ([]model.DailySales, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT date_trunc('day', created_at AT TIME ZONE $2::text) AS day, COUNT(*), COALESCE(SUM(total_amount), 0)
		 FROM orders
		 WHERE created_at >= $1
		 GROUP BY day
		 ORDER BY day DESC`, since, since.Location().String())
	if err != nil {
		return nil, fmt.Errorf("daily sales: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.DailySales, error) {
		var d model.DailySales
		err := row.Scan(&d.Day, &d.OrderCount, &d.Revenue)
		return d, err
	})
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
