package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/flicky/go-storefront/internal/middleware"
)

type Handlers struct {
	Auth      *AuthHandler
	Product   *ProductHandler
	Cart      *CartHandler
	Order     *OrderHandler
	Analytics *AnalyticsHandler
	Health    *HealthHandler
}

func NewRouter(h Handlers, jwtSecret string) *gin.Engine {
	router := gin.Default()
	router.GET("/healthz", h.Health.Healthz)
	router.GET("/readyz", h.Health.Readyz)

	authed := middleware.AuthMiddleware(jwtSecret)

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)

		profile := v1.Group("/profile", authed)
		profile.GET("", h.Auth.GetProfile)
		profile.PUT("", h.Auth.UpdateProfile)

		v1.GET("/categories", h.Product.ListCategories)
		products := v1.Group("/products")
		products.GET("", h.Product.List)
		products.GET("/featured", h.Product.Featured)
		products.GET("/:slug", h.Product.GetBySlug)

		cart := v1.Group("/cart", authed)
		cart.GET("", h.Cart.GetCart)
		cart.GET("/count", h.Cart.Count)
		cart.POST("/items", h.Cart.AddItem)
		cart.PUT("/items/:id", h.Cart.UpdateItem)
		cart.DELETE("/items/:id", h.Cart.DeleteItem)

		orders := v1.Group("/orders", authed)
		orders.POST("/checkout", h.Order.Checkout)
		orders.GET("", h.Order.ListOrders)
		orders.GET("/:id", h.Order.GetOrder)

		admin := v1.Group("/admin", authed, middleware.AdminOnly())
		admin.POST("/products", h.Product.Create)
		admin.PUT("/products/:id", h.Product.Update)
		admin.DELETE("/products/:id", h.Product.Delete)
		admin.POST("/categories", h.Product.CreateCategory)
		admin.DELETE("/categories/:id", h.Product.DeleteCategory)
		admin.PUT("/orders/:id/status", h.Order.UpdateStatus)
		admin.GET("/dashboard", h.Analytics.Dashboard)
		admin.GET("/dashboard/revenue", h.Analytics.Revenue)
	}
	return router
}
