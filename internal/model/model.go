package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

type User struct {
	ID        uuid.UUID
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Profile extends a User with contact details. It is created together with
// the user by the registration path.
type Profile struct {
	UserID    uuid.UUID
	Phone     string
	Address   string
	City      string
	State     string
	Pincode   string
	UserType  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewProfile returns the default profile for a freshly registered user.
func NewProfile(user *User) *Profile {
	userType := RoleCustomer
	if user.Role == RoleAdmin {
		userType = RoleAdmin
	}
	return &Profile{UserID: user.ID, UserType: userType}
}

func (p *Profile) FullAddress() string {
	parts := make([]string, 0, 4)
	for _, part := range []string{p.Address, p.City, p.State, p.Pincode} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, ", ")
}

type Category struct {
	ID          uuid.UUID
	Name        string
	Slug        string
	Description string
	CreatedAt   time.Time
}

type Product struct {
	ID           uuid.UUID
	CategoryID   uuid.UUID
	CategoryName string
	Name         string
	Slug         string
	Description  string
	Price        decimal.Decimal
	Stock        int
	IsActive     bool
	AddedBy      uuid.NullUUID
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (p *Product) InStock() bool { return p.Stock > 0 }

// CartItem is one line of a user's cart. At most one line exists per
// (user, product).
type CartItem struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	ProductID uuid.UUID
	Quantity  int
	AddedAt   time.Time
	UpdatedAt time.Time
}

// CartLine is a cart item joined with the current state of its product.
type CartLine struct {
	CartItem
	ProductName  string
	ProductSlug  string
	ProductPrice decimal.Decimal
	ProductStock int
}

func (l CartLine) Subtotal() decimal.Decimal {
	return l.ProductPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type Cart struct {
	UserID uuid.UUID
	Lines  []CartLine
}

func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

func (c *Cart) IsEmpty() bool { return len(c.Lines) == 0 }

type Order struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	OrderNumber     string
	TotalAmount     decimal.Decimal
	Status          OrderStatus
	PaymentMethod   PaymentMethod
	ShippingAddress string
	Phone           string
	Items           []OrderItem
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ItemsTotal sums the snapshot prices of the order's lines.
func (o *Order) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// OrderItem is a point-in-time snapshot of a purchased product. ProductID is
// invalid once the product has been deleted.
type OrderItem struct {
	ID           uuid.UUID
	OrderID      uuid.UUID
	ProductID    uuid.NullUUID
	ProductName  string
	ProductPrice decimal.Decimal
	Quantity     int
}

// NewOrderItem snapshots the line's product name and price.
func NewOrderItem(line CartLine) OrderItem {
	return OrderItem{
		ProductID:    uuid.NullUUID{UUID: line.ProductID, Valid: true},
		ProductName:  line.ProductName,
		ProductPrice: line.ProductPrice,
		Quantity:     line.Quantity,
	}
}

func (i OrderItem) Subtotal() decimal.Decimal {
	return i.ProductPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type OrderMessage struct {
	OrderID     uuid.UUID   `json:"order_id"`
	UserID      uuid.UUID   `json:"user_id"`
	OrderNumber string      `json:"order_number"`
	ProductIDs  []uuid.UUID `json:"product_ids"`
}
