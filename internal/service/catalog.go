package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/flicky/go-storefront/internal/model"
	"github.com/flicky/go-storefront/internal/repository"
)

const (
	productCacheTTL = 60 * time.Second
	featuredLimit   = 8
	relatedLimit    = 4
	defaultPageSize = 12
	maxSlugAttempts = 50
)

type CatalogService struct {
	productRepo  repository.ProductRepository
	categoryRepo repository.CategoryRepository
	redisClient  *redis.Client
}

func NewCatalogService(productRepo repository.ProductRepository, categoryRepo repository.CategoryRepository, redisClient *redis.Client) *CatalogService {
	return &CatalogService{productRepo: productRepo, categoryRepo: categoryRepo, redisClient: redisClient}
}

type ProductInput struct {
	CategoryID  uuid.UUID
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	IsActive    bool
	AddedBy     uuid.NullUUID
}

type ProductUpdate struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Stock       *int
	IsActive    *bool
}

type ProductQuery struct {
	repository.ProductFilter
	Page  int
	Limit int
}

type ProductPage struct {
	Products []model.Product
	Total    int
	Page     int
	Limit    int
	MinPrice decimal.Decimal
	MaxPrice decimal.Decimal
}

func (s *CatalogService) CreateCategory(ctx context.Context, name, description string) (*model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("name", "is required")
	}
	categorySlug, err := uniqueSlug(ctx, name, s.categoryRepo.SlugExists)
	if err != nil {
		return nil, err
	}
	category := &model.Category{Name: name, Slug: categorySlug, Description: description}
	if err := s.categoryRepo.Create(ctx, category); err != nil {
		if errors.Is(err, repository.ErrDuplicateSlug) {
			return nil, invalid("name", "already exists")
		}
		return nil, fmt.Errorf("create category: %w", err)
	}
	return category, nil
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]model.Category, error) {
	return s.categoryRepo.List(ctx)
}

func (s *CatalogService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	if err := s.categoryRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("delete category: %w", err)
	}
	return nil
}

// CreateProduct stores a new product with a slug derived from its name. The
// slug never changes afterwards.
func (s *CatalogService) CreateProduct(ctx context.Context, in ProductInput) (*model.Product, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, invalid("name", "is required")
	}
	if in.Price.IsNegative() {
		return nil, invalid("price", "must not be negative")
	}
	if in.Stock < 0 {
		return nil, invalid("stock", "must not be negative")
	}

	productSlug, err := uniqueSlug(ctx, in.Name, s.productRepo.SlugExists)
	if err != nil {
		return nil, err
	}

	product := &model.Product{
		CategoryID:  in.CategoryID,
		Name:        in.Name,
		Slug:        productSlug,
		Description: in.Description,
		Price:       in.Price,
		Stock:       in.Stock,
		IsActive:    in.IsActive,
		AddedBy:     in.AddedBy,
	}
	if err := s.productRepo.Create(ctx, product); err != nil {
		if errors.Is(err, repository.ErrUnknownCategory) {
			return nil, ErrCategoryNotFound
		}
		if errors.Is(err, repository.ErrDuplicateSlug) {
			return nil, invalid("name", "already exists")
		}
		return nil, fmt.Errorf("create product: %w", err)
	}
	return product, nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	cacheKey := productCacheKey(id)

	if s.redisClient != nil {
		if cached, err := s.redisClient.Get(ctx, cacheKey).Bytes(); err == nil {
			var p model.Product
			if json.Unmarshal(cached, &p) == nil {
				return &p, nil
			}
		}
	}

	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	if s.redisClient != nil {
		if data, err := json.Marshal(product); err == nil {
			s.redisClient.Set(ctx, cacheKey, data, productCacheTTL)
		}
	}
	return product, nil
}

// GetProductBySlug returns an active product and up to four active products
// from the same category.
func (s *CatalogService) GetProductBySlug(ctx context.Context, productSlug string) (*model.Product, []model.Product, error) {
	product, err := s.productRepo.GetBySlug(ctx, productSlug)
	if err != nil {
		return nil, nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, nil, ErrProductNotFound
	}
	related, err := s.productRepo.Related(ctx, product, relatedLimit)
	if err != nil {
		return nil, nil, fmt.Errorf("related products: %w", err)
	}
	return product, related, nil
}

func (s *CatalogService) Featured(ctx context.Context) ([]model.Product, error) {
	return s.productRepo.Featured(ctx, featuredLimit)
}

func (s *CatalogService) ListProducts(ctx context.Context, q ProductQuery) (*ProductPage, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = defaultPageSize
	}
	if q.MinPrice.Valid && q.MaxPrice.Valid && q.MinPrice.Decimal.GreaterThan(q.MaxPrice.Decimal) {
		return nil, invalid("min_price", "must not exceed max_price")
	}

	filter := q.ProductFilter
	filter.Limit = q.Limit
	filter.Offset = (q.Page - 1) * q.Limit

	products, total, err := s.productRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	lo, hi, err := s.productRepo.PriceRange(ctx)
	if err != nil {
		return nil, fmt.Errorf("price range: %w", err)
	}
	return &ProductPage{
		Products: products, Total: total, Page: q.Page, Limit: q.Limit,
		MinPrice: lo, MaxPrice: hi,
	}, nil
}

func (s *CatalogService) UpdateProduct(ctx context.Context, id uuid.UUID, u ProductUpdate) (*model.Product, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	if u.Name != nil {
		if strings.TrimSpace(*u.Name) == "" {
			return nil, invalid("name", "is required")
		}
		product.Name = strings.TrimSpace(*u.Name)
	}
	if u.Description != nil {
		product.Description = *u.Description
	}
	if u.Price != nil {
		if u.Price.IsNegative() {
			return nil, invalid("price", "must not be negative")
		}
		product.Price = *u.Price
	}
	if u.Stock != nil {
		if *u.Stock < 0 {
			return nil, invalid("stock", "must not be negative")
		}
		product.Stock = *u.Stock
	}
	if u.IsActive != nil {
		product.IsActive = *u.IsActive
	}

	if err := s.productRepo.Update(ctx, product); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("update product: %w", err)
	}

	s.InvalidateProducts(ctx, id)
	return product, nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if err := s.productRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrProductNotFound
		}
		return fmt.Errorf("delete product: %w", err)
	}
	s.InvalidateProducts(ctx, id)
	return nil
}

// InvalidateProducts drops cached copies of the given products.
func (s *CatalogService) InvalidateProducts(ctx context.Context, ids ...uuid.UUID) {
	if s.redisClient == nil || len(ids) == 0 {
		return
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = productCacheKey(id)
	}
	s.redisClient.Del(ctx, keys...)
}

func productCacheKey(id uuid.UUID) string {
	return "product:" + id.String()
}

// uniqueSlug derives a slug from name, appending -2, -3, ... until exists
// reports it free.
func uniqueSlug(ctx context.Context, name string, exists func(context.Context, string) (bool, error)) (string, error) {
	base := slug.Make(name)
	if base == "" {
		base = "item"
	}
	candidate := base
	for i := 2; i <= maxSlugAttempts; i++ {
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check slug: %w", err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = base + "-" + strconv.Itoa(i)
	}
	return base + "-" + uuid.NewString()[:8], nil
}
