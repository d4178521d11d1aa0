package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/flicky/go-storefront/internal/model"
)

type DashboardResponse struct {
	TotalRevenue     decimal.Decimal        `json:"total_revenue"`
	TotalOrders      int                    `json:"total_orders"`
	PendingOrders    int                    `json:"pending_orders"`
	TotalCustomers   int                    `json:"total_customers"`
	MonthRevenue     decimal.Decimal        `json:"month_revenue"`
	TodayOrders      int                    `json:"today_orders"`
	TopProducts      []ProductSalesResponse `json:"top_products"`
	CategorySales    []CategorySalesEntry   `json:"category_sales"`
	OrdersByStatus   map[string]int         `json:"orders_by_status"`
	LowStockProducts []LowStockEntry        `json:"low_stock_products"`
	RecentOrders     []RecentOrderEntry     `json:"recent_orders"`
	TopCustomers     []CustomerSpendEntry   `json:"top_customers"`
	DailySales       []DailySalesEntry      `json:"daily_sales"`
	GeneratedAt      time.Time              `json:"generated_at"`
}

type ProductSalesResponse struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	TotalSold   int             `json:"total_sold"`
	Revenue     decimal.Decimal `json:"revenue"`
}

type CategorySalesEntry struct {
	CategoryID   uuid.UUID       `json:"category_id"`
	CategoryName string          `json:"category_name"`
	TotalSold    int             `json:"total_sold"`
	Revenue      decimal.Decimal `json:"revenue"`
}

type LowStockEntry struct {
	ProductID      uuid.UUID       `json:"product_id"`
	Name           string          `json:"name"`
	Stock          int             `json:"stock"`
	Price          decimal.Decimal `json:"price"`
	InventoryValue decimal.Decimal `json:"inventory_value"`
}

type RecentOrderEntry struct {
	OrderID       uuid.UUID         `json:"order_id"`
	OrderNumber   string            `json:"order_number"`
	CustomerEmail string            `json:"customer_email"`
	TotalAmount   decimal.Decimal   `json:"total_amount"`
	Status        model.OrderStatus `json:"status"`
	CreatedAt     time.Time         `json:"created_at"`
}

type CustomerSpendEntry struct {
	UserID      uuid.UUID       `json:"user_id"`
	Email       string          `json:"email"`
	TotalOrders int             `json:"total_orders"`
	TotalSpent  decimal.Decimal `json:"total_spent"`
}

type DailySalesEntry struct {
	Day        string          `json:"day"`
	OrderCount int             `json:"order_count"`
	Revenue    decimal.Decimal `json:"revenue"`
}

func NewDashboardResponse(d *model.Dashboard) DashboardResponse {
	resp := DashboardResponse{
		TotalRevenue:     d.Totals.TotalRevenue,
		TotalOrders:      d.Totals.TotalOrders,
		PendingOrders:    d.Totals.PendingOrders,
		TotalCustomers:   d.Totals.TotalCustomers,
		MonthRevenue:     d.MonthRevenue,
		TodayOrders:      d.TodayOrders,
		TopProducts:      make([]ProductSalesResponse, 0, len(d.TopProducts)),
		CategorySales:    make([]CategorySalesEntry, 0, len(d.CategorySales)),
		OrdersByStatus:   make(map[string]int, len(d.OrdersByStatus)),
		LowStockProducts: make([]LowStockEntry, 0, len(d.LowStockProducts)),
		RecentOrders:     make([]RecentOrderEntry, 0, len(d.RecentOrders)),
		TopCustomers:     make([]CustomerSpendEntry, 0, len(d.TopCustomers)),
		DailySales:       make([]DailySalesEntry, 0, len(d.DailySales)),
		GeneratedAt:      d.GeneratedAt,
	}
	for _, p := range d.TopProducts {
		resp.TopProducts = append(resp.TopProducts, ProductSalesResponse(p))
	}
	for _, s := range d.CategorySales {
		resp.CategorySales = append(resp.CategorySales, CategorySalesEntry(s))
	}
	for _, s := range d.OrdersByStatus {
		resp.OrdersByStatus[string(s.Status)] = s.Count
	}
	for _, p := range d.LowStockProducts {
		resp.LowStockProducts = append(resp.LowStockProducts, LowStockEntry(p))
	}
	for _, o := range d.RecentOrders {
		resp.RecentOrders = append(resp.RecentOrders, RecentOrderEntry(o))
	}
	for _, cs := range d.TopCustomers {
		resp.TopCustomers = append(resp.TopCustomers, CustomerSpendEntry(cs))
	}
	for _, ds := range d.DailySales {
		resp.DailySales = append(resp.DailySales, DailySalesEntry{
			Day: ds.Day.Format(time.DateOnly), OrderCount: ds.OrderCount, Revenue: ds.Revenue,
		})
	}
	return resp
}
