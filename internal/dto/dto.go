package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/flicky/go-storefront/internal/model"
)

// --- Auth ---

type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Role      string    `json:"role"`
}

func NewUserResponse(user *model.User) UserResponse {
	return UserResponse{
		ID: user.ID, Email: user.Email,
		FirstName: user.FirstName, LastName: user.LastName, Role: user.Role,
	}
}

type UpdateProfileRequest struct {
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
	City    *string `json:"city"`
	State   *string `json:"state"`
	Pincode *string `json:"pincode"`
}

type ProfileResponse struct {
	UserID      uuid.UUID `json:"user_id"`
	Phone       string    `json:"phone"`
	Address     string    `json:"address"`
	City        string    `json:"city"`
	State       string    `json:"state"`
	Pincode     string    `json:"pincode"`
	UserType    string    `json:"user_type"`
	FullAddress string    `json:"full_address"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func NewProfileResponse(p *model.Profile) ProfileResponse {
	return ProfileResponse{
		UserID: p.UserID, Phone: p.Phone, Address: p.Address, City: p.City,
		State: p.State, Pincode: p.Pincode, UserType: p.UserType,
		FullAddress: p.FullAddress(), UpdatedAt: p.UpdatedAt,
	}
}

// --- Catalog ---

type CreateCategoryRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description"`
}

type CategoryResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
}

func NewCategoryResponse(c *model.Category) CategoryResponse {
	return CategoryResponse{ID: c.ID, Name: c.Name, Slug: c.Slug, Description: c.Description}
}

type CreateProductRequest struct {
	CategoryID  uuid.UUID       `json:"category_id" binding:"required"`
	Name        string          `json:"name" binding:"required,max=200"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price" binding:"required"`
	Stock       int             `json:"stock" binding:"min=0"`
	IsActive    *bool           `json:"is_active"`
}

type UpdateProductRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock"`
	IsActive    *bool            `json:"is_active"`
}

type ListProductsRequest struct {
	Page     int    `form:"page,default=1" binding:"min=1"`
	Limit    int    `form:"limit,default=12" binding:"min=1,max=100"`
	Category string `form:"category"`
	Search   string `form:"search"`
	MinPrice string `form:"min_price"`
	MaxPrice string `form:"max_price"`
	Stock    string `form:"stock" binding:"omitempty,oneof=in_stock out_of_stock"`
	Sort     string `form:"sort,default=newest" binding:"oneof=price_low price_high newest name"`
}

type ProductResponse struct {
	ID           uuid.UUID       `json:"id"`
	CategoryID   uuid.UUID       `json:"category_id"`
	CategoryName string          `json:"category_name"`
	Name         string          `json:"name"`
	Slug         string          `json:"slug"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	Stock        int             `json:"stock"`
	InStock      bool            `json:"in_stock"`
	IsActive     bool            `json:"is_active"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func NewProductResponse(p *model.Product) ProductResponse {
	return ProductResponse{
		ID: p.ID, CategoryID: p.CategoryID, CategoryName: p.CategoryName,
		Name: p.Name, Slug: p.Slug, Description: p.Description,
		Price: p.Price, Stock: p.Stock, InStock: p.InStock(), IsActive: p.IsActive,
		CreatedAt: p.CreatedAt, UpdatedAt: p.UpdatedAt,
	}
}

func NewProductResponses(products []model.Product) []ProductResponse {
	out := make([]ProductResponse, len(products))
	for i := range products {
		out[i] = NewProductResponse(&products[i])
	}
	return out
}

type ProductDetailResponse struct {
	Product ProductResponse   `json:"product"`
	Related []ProductResponse `json:"related"`
}

type ProductListResponse struct {
	Products []ProductResponse `json:"products"`
	Total    int               `json:"total"`
	Page     int               `json:"page"`
	Limit    int               `json:"limit"`
	MinPrice decimal.Decimal   `json:"min_price"`
	MaxPrice decimal.Decimal   `json:"max_price"`
}

// --- Cart ---

// AddCartItemRequest adds one unit when quantity is omitted.
type AddCartItemRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  *int      `json:"quantity"`
}

type UpdateCartItemRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

type CartResponse struct {
	Items []CartItemResponse `json:"items"`
	Total decimal.Decimal    `json:"total"`
	Count int                `json:"count"`
}

type CartItemResponse struct {
	ID        uuid.UUID       `json:"id"`
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Slug      string          `json:"slug"`
	Price     decimal.Decimal `json:"price"`
	Stock     int             `json:"stock"`
	Quantity  int             `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

func NewCartResponse(cart *model.Cart) CartResponse {
	items := make([]CartItemResponse, len(cart.Lines))
	for i, l := range cart.Lines {
		items[i] = CartItemResponse{
			ID: l.ID, ProductID: l.ProductID, Name: l.ProductName, Slug: l.ProductSlug,
			Price: l.ProductPrice, Stock: l.ProductStock, Quantity: l.Quantity, Subtotal: l.Subtotal(),
		}
	}
	return CartResponse{Items: items, Total: cart.Total(), Count: len(items)}
}

// --- Order ---

type CheckoutRequest struct {
	ShippingAddress string `json:"shipping_address"`
	Phone           string `json:"phone"`
	PaymentMethod   string `json:"payment_method"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type OrderResponse struct {
	ID              uuid.UUID           `json:"id"`
	OrderNumber     string              `json:"order_number"`
	Status          model.OrderStatus   `json:"status"`
	PaymentMethod   model.PaymentMethod `json:"payment_method"`
	TotalAmount     decimal.Decimal     `json:"total_amount"`
	ShippingAddress string              `json:"shipping_address"`
	Phone           string              `json:"phone"`
	Items           []OrderItemResponse `json:"items,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

type OrderItemResponse struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   *uuid.UUID      `json:"product_id"`
	ProductName string          `json:"product_name"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

func NewOrderResponse(o *model.Order) OrderResponse {
	resp := OrderResponse{
		ID: o.ID, OrderNumber: o.OrderNumber, Status: o.Status, PaymentMethod: o.PaymentMethod,
		TotalAmount: o.TotalAmount, ShippingAddress: o.ShippingAddress, Phone: o.Phone,
		CreatedAt: o.CreatedAt, UpdatedAt: o.UpdatedAt,
	}
	for _, item := range o.Items {
		r := OrderItemResponse{
			ID: item.ID, ProductName: item.ProductName, Price: item.ProductPrice,
			Quantity: item.Quantity, Subtotal: item.Subtotal(),
		}
		if item.ProductID.Valid {
			id := item.ProductID.UUID
			r.ProductID = &id
		}
		resp.Items = append(resp.Items, r)
	}
	return resp
}

type OrderListResponse struct {
	Orders []OrderResponse `json:"orders"`
	Total  int             `json:"total"`
}

// --- Errors ---

type ErrorResponse struct {
	Error     string     `json:"error"`
	Field     string     `json:"field,omitempty"`
	ProductID *uuid.UUID `json:"product_id,omitempty"`
	Available *int       `json:"available,omitempty"`
	Retryable bool       `json:"retryable,omitempty"`
}
