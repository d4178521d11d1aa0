package service

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flicky/go-storefront/internal/repository"
)

func newCatalogFixture(t *testing.T) (*memStore, *miniredis.Miniredis, *CatalogService) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	store := newMemStore()
	svc := NewCatalogService(&mockProductRepo{s: store}, &mockCategoryRepo{s: store}, rdb)
	return store, mr, svc
}

func TestCatalogService_CreateProduct_Slugs(t *testing.T) {
	store, _, svc := newCatalogFixture(t)
	cat := store.addCategory("Shirts")

	in := ProductInput{CategoryID: cat.ID, Name: "Blue Shirt!", Price: decimal.NewFromInt(20), Stock: 3, IsActive: true}
	first, err := svc.CreateProduct(context.Background(), in)
	require.NoError(t, err)
	second, err := svc.CreateProduct(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, "blue-shirt", first.Slug)
	assert.Equal(t, "blue-shirt-2", second.Slug)

	name := "Navy Shirt"
	updated, err := svc.UpdateProduct(context.Background(), first.ID, ProductUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Navy Shirt", updated.Name)
	assert.Equal(t, "blue-shirt", updated.Slug)
}

func TestCatalogService_CreateProduct_Errors(t *testing.T) {
	store, _, svc := newCatalogFixture(t)
	cat := store.addCategory("Shirts")

	_, err := svc.CreateProduct(context.Background(), ProductInput{CategoryID: uuid.New(), Name: "Orphan", Price: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, ErrCategoryNotFound)

	var verr *ValidationError
	_, err = svc.CreateProduct(context.Background(), ProductInput{CategoryID: cat.ID, Name: "  "})
	assert.True(t, errors.As(err, &verr))

	_, err = svc.CreateProduct(context.Background(), ProductInput{CategoryID: cat.ID, Name: "Neg", Stock: -1})
	assert.True(t, errors.As(err, &verr))
	assert.Equal(t, "stock", verr.Field)
}

func TestCatalogService_GetProduct_Cache(t *testing.T) {
	store, mr, svc := newCatalogFixture(t)
	p := store.addProduct("Alpha", "10.00", 5)

	got, err := svc.GetProduct(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alpha", got.Name)
	assert.True(t, mr.Exists("product:"+p.ID.String()))

	store.mu.Lock()
	store.products[p.ID].Stock = 1
	store.mu.Unlock()

	cached, err := svc.GetProduct(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, cached.Stock)

	svc.InvalidateProducts(context.Background(), p.ID)
	assert.False(t, mr.Exists("product:"+p.ID.String()))

	fresh, err := svc.GetProduct(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, fresh.Stock)

	_, err = svc.GetProduct(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestCatalogService_UpdateAndDeleteInvalidateCache(t *testing.T) {
	store, mr, svc := newCatalogFixture(t)
	p := store.addProduct("Alpha", "10.00", 5)
	key := "product:" + p.ID.String()

	_, err := svc.GetProduct(context.Background(), p.ID)
	require.NoError(t, err)
	price := decimal.NewFromInt(12)
	_, err = svc.UpdateProduct(context.Background(), p.ID, ProductUpdate{Price: &price})
	require.NoError(t, err)
	assert.False(t, mr.Exists(key))

	_, err = svc.GetProduct(context.Background(), p.ID)
	require.NoError(t, err)
	require.NoError(t, svc.DeleteProduct(context.Background(), p.ID))
	assert.False(t, mr.Exists(key))

	assert.ErrorIs(t, svc.DeleteProduct(context.Background(), p.ID), ErrProductNotFound)
}

func TestCatalogService_ListProducts(t *testing.T) {
	store, _, svc := newCatalogFixture(t)
	for i, name := range []string{"Alpha", "Bravo", "Charlie", "Delta", "Echo"} {
		store.addProduct(name, decimal.NewFromInt(int64(10*(i+1))).String(), 3)
	}

	page, err := svc.ListProducts(context.Background(), ProductQuery{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	require.Len(t, page.Products, 2)
	assert.Equal(t, "Charlie", page.Products[0].Name)
	assert.True(t, decimal.NewFromInt(10).Equal(page.MinPrice))
	assert.True(t, decimal.NewFromInt(50).Equal(page.MaxPrice))

	_, err = svc.ListProducts(context.Background(), ProductQuery{ProductFilter: repository.ProductFilter{
		MinPrice: decimal.NewNullDecimal(decimal.NewFromInt(40)),
		MaxPrice: decimal.NewNullDecimal(decimal.NewFromInt(20)),
	}})
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestCatalogService_GetProductBySlug(t *testing.T) {
	store, _, svc := newCatalogFixture(t)
	a := store.addProduct("Alpha", "10.00", 5)
	store.addProduct("Bravo", "10.00", 5)

	product, related, err := svc.GetProductBySlug(context.Background(), "alpha")
	require.NoError(t, err)
	assert.Equal(t, a.ID, product.ID)
	require.Len(t, related, 1)
	assert.Equal(t, "Bravo", related[0].Name)

	_, _, err = svc.GetProductBySlug(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestCatalogService_Categories(t *testing.T) {
	store, _, svc := newCatalogFixture(t)

	shoes, err := svc.CreateCategory(context.Background(), "Shoes", "")
	require.NoError(t, err)
	_, err = svc.CreateCategory(context.Background(), "Hats", "")
	require.NoError(t, err)
	assert.Equal(t, "shoes", shoes.Slug)

	p, err := svc.CreateProduct(context.Background(), ProductInput{CategoryID: shoes.ID, Name: "Boot", Price: decimal.NewFromInt(5)})
	require.NoError(t, err)

	list, err := svc.ListCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Hats", list[0].Name)

	require.NoError(t, svc.DeleteCategory(context.Background(), shoes.ID))
	store.mu.Lock()
	_, exists := store.products[p.ID]
	store.mu.Unlock()
	assert.False(t, exists)

	assert.ErrorIs(t, svc.DeleteCategory(context.Background(), shoes.ID), ErrCategoryNotFound)
}
