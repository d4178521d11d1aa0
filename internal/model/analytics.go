package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type SalesTotals struct {
	TotalOrders    int
	PendingOrders  int
	TotalCustomers int
	TotalRevenue   decimal.Decimal
}

type ProductSales struct {
	ProductID   uuid.UUID
	ProductName string
	TotalSold   int
	Revenue     decimal.Decimal
}

type CategorySales struct {
	CategoryID   uuid.UUID
	CategoryName string
	TotalSold    int
	Revenue      decimal.Decimal
}

type StatusCount struct {
	Status OrderStatus
	Count  int
}

type LowStockProduct struct {
	ProductID      uuid.UUID
	Name           string
	Stock          int
	Price          decimal.Decimal
	InventoryValue decimal.Decimal
}

type RecentOrder struct {
	OrderID       uuid.UUID
	OrderNumber   string
	CustomerEmail string
	TotalAmount   decimal.Decimal
	Status        OrderStatus
	CreatedAt     time.Time
}

type CustomerSpend struct {
	UserID      uuid.UUID
	Email       string
	TotalOrders int
	TotalSpent  decimal.Decimal
}

type DailySales struct {
	Day        time.Time
	OrderCount int
	Revenue    decimal.Decimal
}

// Dashboard is the full set of rollups shown to staff.
type Dashboard struct {
	Totals           SalesTotals
	MonthRevenue     decimal.Decimal
	TodayOrders      int
	TopProducts      []ProductSales
	CategorySales    []CategorySales
	OrdersByStatus   []StatusCount
	LowStockProducts []LowStockProduct
	RecentOrders     []RecentOrder
	TopCustomers     []CustomerSpend
	DailySales       []DailySales
	GeneratedAt      time.Time
}
