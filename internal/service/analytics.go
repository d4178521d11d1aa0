package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/flicky/go-storefront/internal/model"
	"github.com/flicky/go-storefront/internal/repository"
)

const (
	recentOrdersLimit = 10
	topCustomersLimit = 10
	dailySalesDays    = 7
)

// AnalyticsService serves read-only sales rollups. Calendar boundaries
// (month start, today, daily buckets) are taken from the service clock in
// the configured location.
type AnalyticsService struct {
	repo              repository.AnalyticsRepository
	topProducts       int
	lowStockThreshold int
	now               func() time.Time
}

func NewAnalyticsService(repo repository.AnalyticsRepository, topProducts, lowStockThreshold int, loc *time.Location) *AnalyticsService {
	return &AnalyticsService{
		repo:              repo,
		topProducts:       topProducts,
		lowStockThreshold: lowStockThreshold,
		now:               func() time.Time { return time.Now().In(loc) },
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

func (s *AnalyticsService) Totals(ctx context.Context) (model.SalesTotals, error) {
	return s.repo.Totals(ctx)
}

func (s *AnalyticsService) TopProducts(ctx context.Context) ([]model.ProductSales, error) {
	return s.repo.TopProducts(ctx, s.topProducts)
}

func (s *AnalyticsService) CategorySales(ctx context.Context) ([]model.CategorySales, error) {
	return s.repo.CategorySales(ctx)
}

func (s *AnalyticsService) OrdersByStatus(ctx context.Context) ([]model.StatusCount, error) {
	return s.repo.OrdersByStatus(ctx)
}

// MonthToDateRevenue sums non-cancelled orders placed since the first day
// of the current month.
func (s *AnalyticsService) MonthToDateRevenue(ctx context.Context) (decimal.Decimal, error) {
	return s.repo.RevenueBetween(ctx, startOfMonth(s.now()), time.Time{})
}

func (s *AnalyticsService) TodayOrderCount(ctx context.Context) (int, error) {
	today := startOfDay(s.now())
	return s.repo.CountOrdersBetween(ctx, today, today.AddDate(0, 0, 1))
}

func (s *AnalyticsService) LowStock(ctx context.Context) ([]model.LowStockProduct, error) {
	return s.repo.LowStock(ctx, s.lowStockThreshold)
}

// RevenueBetween sums non-cancelled orders placed in [from, to).
func (s *AnalyticsService) RevenueBetween(ctx context.Context, from, to time.Time) (decimal.Decimal, error) {
	if from.IsZero() {
		return decimal.Zero, invalid("from", "is required")
	}
	if !to.IsZero() && !from.Before(to) {
		return decimal.Zero, invalid("to", "must be after from")
	}
	return s.repo.RevenueBetween(ctx, from, to)
}

// Dashboard runs every rollup concurrently against the same clock reading.
// Results may straddle concurrent writes; each metric is consistent on its own.
func (s *AnalyticsService) Dashboard(ctx context.Context) (*model.Dashboard, error) {
	now := s.now()
	today := startOfDay(now)
	d := &model.Dashboard{GeneratedAt: now}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		d.Totals, err = s.repo.Totals(ctx)
		return err
	})
	g.Go(func() (err error) {
		d.MonthRevenue, err = s.repo.RevenueBetween(ctx, startOfMonth(now), time.Time{})
		return err
	})
	g.Go(func() (err error) {
		d.TodayOrders, err = s.repo.CountOrdersBetween(ctx, today, today.AddDate(0, 0, 1))
		return err
	})
	g.Go(func() (err error) {
		d.TopProducts, err = s.repo.TopProducts(ctx, s.topProducts)
		return err
	})
	g.Go(func() (err error) {
		d.CategorySales, err = s.repo.CategorySales(ctx)
		return err
	})
	g.Go(func() (err error) {
		d.OrdersByStatus, err = s.repo.OrdersByStatus(ctx)
		return err
	})
	g.Go(func() (err error) {
		d.LowStockProducts, err = s.repo.LowStock(ctx, s.lowStockThreshold)
		return err
	})
	g.Go(func() (err error) {
		d.RecentOrders, err = s.repo.RecentOrders(ctx, recentOrdersLimit)
		return err
	})
	g.Go(func() (err error) {
		d.TopCustomers, err = s.repo.TopCustomers(ctx, topCustomersLimit)
		return err
	})
	g.Go(func() (err error) {
		d.DailySales, err = s.repo.DailySales(ctx, today.AddDate(0, 0, -dailySalesDays))
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("build dashboard: %w", err)
	}
	return d, nil
}
