package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/flicky/go-storefront/internal/dto"
	"github.com/flicky/go-storefront/internal/middleware"
	"github.com/flicky/go-storefront/internal/repository"
	"github.com/flicky/go-storefront/internal/service"
)

type ProductHandler struct {
	catalog *service.CatalogService
}

func NewProductHandler(catalog *service.CatalogService) *ProductHandler {
	return &ProductHandler{catalog: catalog}
}

func (h *ProductHandler) List(c *gin.Context) {
	var req dto.ListProductsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}

	q := service.ProductQuery{
		ProductFilter: repository.ProductFilter{
			CategorySlug: req.Category, Search: req.Search, Stock: req.Stock, Sort: req.Sort,
		},
		Page: req.Page, Limit: req.Limit,
	}
	var ok bool
	if q.MinPrice, ok = parsePrice(c, "min_price", req.MinPrice); !ok {
		return
	}
	if q.MaxPrice, ok = parsePrice(c, "max_price", req.MaxPrice); !ok {
		return
	}

	page, err := h.catalog.ListProducts(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ProductListResponse{
		Products: dto.NewProductResponses(page.Products),
		Total:    page.Total, Page: page.Page, Limit: page.Limit,
		MinPrice: page.MinPrice, MaxPrice: page.MaxPrice,
	})
}

func parsePrice(c *gin.Context, field, raw string) (decimal.NullDecimal, bool) {
	if raw == "" {
		return decimal.NullDecimal{}, true
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid price", Field: field})
		return decimal.NullDecimal{}, false
	}
	return decimal.NewNullDecimal(d), true
}

func (h *ProductHandler) Featured(c *gin.Context) {
	products, err := h.catalog.Featured(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": dto.NewProductResponses(products)})
}

func (h *ProductHandler) GetBySlug(c *gin.Context) {
	product, related, err := h.catalog.GetProductBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ProductDetailResponse{
		Product: dto.NewProductResponse(product),
		Related: dto.NewProductResponses(related),
	})
}

func (h *ProductHandler) Create(c *gin.Context) {
	var req dto.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	in := service.ProductInput{
		CategoryID: req.CategoryID, Name: req.Name, Description: req.Description,
		Price: req.Price, Stock: req.Stock, IsActive: true,
		AddedBy: uuid.NullUUID{UUID: middleware.GetUserID(c), Valid: true},
	}
	if req.IsActive != nil {
		in.IsActive = *req.IsActive
	}

	product, err := h.catalog.CreateProduct(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewProductResponse(product))
}

func (h *ProductHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	product, err := h.catalog.UpdateProduct(c.Request.Context(), id, service.ProductUpdate{
		Name: req.Name, Description: req.Description, Price: req.Price,
		Stock: req.Stock, IsActive: req.IsActive,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewProductResponse(product))
}

func (h *ProductHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeleteProduct(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ProductHandler) ListCategories(c *gin.Context) {
	categories, err := h.catalog.ListCategories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]dto.CategoryResponse, len(categories))
	for i := range categories {
		out[i] = dto.NewCategoryResponse(&categories[i])
	}
	c.JSON(http.StatusOK, gin.H{"categories": out})
}

func (h *ProductHandler) CreateCategory(c *gin.Context) {
	var req dto.CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	category, err := h.catalog.CreateCategory(c.Request.Context(), req.Name, req.Description)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewCategoryResponse(category))
}

func (h *ProductHandler) DeleteCategory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeleteCategory(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
