package service

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/flicky/go-storefront/internal/model"
	"github.com/flicky/go-storefront/internal/repository"
)

// memStore holds the rows shared by the repository mocks below. InTx holds
// the lock for the whole transaction and restores a snapshot on error.
type memStore struct {
	mu         sync.Mutex
	categories map[uuid.UUID]*model.Category
	products   map[uuid.UUID]*model.Product
	cart       []*model.CartItem
	orders     map[uuid.UUID]*model.Order
	items      []model.OrderItem
	clock      time.Time
}

func newMemStore() *memStore {
	return &memStore{
		categories: make(map[uuid.UUID]*model.Category),
		products:   make(map[uuid.UUID]*model.Product),
		orders:     make(map[uuid.UUID]*model.Order),
		clock:      time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (s *memStore) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func (s *memStore) addCategory(name string) *model.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := &model.Category{ID: uuid.New(), Name: name, Slug: strings.ToLower(name), CreatedAt: s.tick()}
	s.categories[c.ID] = c
	return c
}

func (s *memStore) addProduct(name, price string, stock int) *model.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := &model.Product{
		ID: uuid.New(), Name: name, Slug: strings.ToLower(name),
		Price: decimal.RequireFromString(price), Stock: stock, IsActive: true,
		CreatedAt: s.tick(),
	}
	s.products[p.ID] = p
	return p
}

func (s *memStore) stock(id uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[id].Stock
}

func (s *memStore) orderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

func (s *memStore) snapshot() *memStore {
	c := &memStore{
		categories: make(map[uuid.UUID]*model.Category, len(s.categories)),
		products:   make(map[uuid.UUID]*model.Product, len(s.products)),
		orders:     make(map[uuid.UUID]*model.Order, len(s.orders)),
		items:      slices.Clone(s.items),
		clock:      s.clock,
	}
	for id, v := range s.categories {
		cp := *v
		c.categories[id] = &cp
	}
	for id, v := range s.products {
		cp := *v
		c.products[id] = &cp
	}
	for _, v := range s.cart {
		cp := *v
		c.cart = append(c.cart, &cp)
	}
	for id, v := range s.orders {
		cp := *v
		c.orders[id] = &cp
	}
	return c
}

func (s *memStore) restore(from *memStore) {
	s.categories, s.products, s.cart = from.categories, from.products, from.cart
	s.orders, s.items, s.clock = from.orders, from.items, from.clock
}

// lines returns the user's cart newest first, joined with live products.
func (s *memStore) lines(userID uuid.UUID) []model.CartLine {
	var out []model.CartLine
	for i := len(s.cart) - 1; i >= 0; i-- {
		item := s.cart[i]
		if item.UserID != userID {
			continue
		}
		p := s.products[item.ProductID]
		out = append(out, model.CartLine{
			CartItem: *item, ProductName: p.Name, ProductSlug: p.Slug,
			ProductPrice: p.Price, ProductStock: p.Stock,
		})
	}
	return out
}

// --- products ---

type mockProductRepo struct{ s *memStore }

func (m *mockProductRepo) Create(_ context.Context, p *model.Product) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.categories[p.CategoryID]; !ok {
		return repository.ErrUnknownCategory
	}
	for _, existing := range m.s.products {
		if existing.Slug == p.Slug {
			return repository.ErrDuplicateSlug
		}
	}
	p.ID = uuid.New()
	p.CreatedAt = m.s.tick()
	p.UpdatedAt = p.CreatedAt
	cp := *p
	m.s.products[p.ID] = &cp
	return nil
}

func (m *mockProductRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	p, ok := m.s.products[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *mockProductRepo) GetBySlug(_ context.Context, slug string) (*model.Product, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, p := range m.s.products {
		if p.Slug == slug && p.IsActive {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockProductRepo) active() []model.Product {
	var out []model.Product
	for _, p := range m.s.products {
		if p.IsActive {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (m *mockProductRepo) List(_ context.Context, f repository.ProductFilter) ([]model.Product, int, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var matched []model.Product
	for _, p := range m.active() {
		if f.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.Search)) {
			continue
		}
		if f.MinPrice.Valid && p.Price.LessThan(f.MinPrice.Decimal) {
			continue
		}
		if f.MaxPrice.Valid && p.Price.GreaterThan(f.MaxPrice.Decimal) {
			continue
		}
		matched = append(matched, p)
	}
	total := len(matched)
	start := min(f.Offset, total)
	end := min(start+f.Limit, total)
	return matched[start:end], total, nil
}

func (m *mockProductRepo) Featured(_ context.Context, limit int) ([]model.Product, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	all := m.active()
	return all[:min(limit, len(all))], nil
}

func (m *mockProductRepo) Related(_ context.Context, product *model.Product, limit int) ([]model.Product, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []model.Product
	for _, p := range m.active() {
		if p.CategoryID == product.CategoryID && p.ID != product.ID && len(out) < limit {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockProductRepo) PriceRange(_ context.Context) (decimal.Decimal, decimal.Decimal, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	all := m.active()
	if len(all) == 0 {
		return decimal.Zero, decimal.Zero, nil
	}
	lo, hi := all[0].Price, all[0].Price
	for _, p := range all[1:] {
		lo, hi = decimal.Min(lo, p.Price), decimal.Max(hi, p.Price)
	}
	return lo, hi, nil
}

func (m *mockProductRepo) Update(_ context.Context, p *model.Product) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	existing, ok := m.s.products[p.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	slug := existing.Slug
	*existing = *p
	existing.Slug = slug
	existing.UpdatedAt = m.s.tick()
	return nil
}

func (m *mockProductRepo) Delete(_ context.Context, id uuid.UUID) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.products[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(m.s.products, id)
	m.s.cart = slices.DeleteFunc(m.s.cart, func(c *model.CartItem) bool { return c.ProductID == id })
	for i := range m.s.items {
		if m.s.items[i].ProductID.Valid && m.s.items[i].ProductID.UUID == id {
			m.s.items[i].ProductID = uuid.NullUUID{}
		}
	}
	return nil
}

func (m *mockProductRepo) SlugExists(_ context.Context, slug string) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, p := range m.s.products {
		if p.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

// --- categories ---

type mockCategoryRepo struct{ s *memStore }

func (m *mockCategoryRepo) Create(_ context.Context, c *model.Category) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, existing := range m.s.categories {
		if existing.Slug == c.Slug || existing.Name == c.Name {
			return repository.ErrDuplicateSlug
		}
	}
	c.ID = uuid.New()
	c.CreatedAt = m.s.tick()
	cp := *c
	m.s.categories[c.ID] = &cp
	return nil
}

func (m *mockCategoryRepo) GetBySlug(_ context.Context, slug string) (*model.Category, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, c := range m.s.categories {
		if c.Slug == slug {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockCategoryRepo) List(_ context.Context) ([]model.Category, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []model.Category
	for _, c := range m.s.categories {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *mockCategoryRepo) Delete(_ context.Context, id uuid.UUID) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.categories[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(m.s.categories, id)
	for pid, p := range m.s.products {
		if p.CategoryID == id {
			delete(m.s.products, pid)
		}
	}
	return nil
}

func (m *mockCategoryRepo) SlugExists(_ context.Context, slug string) (bool, error) {
	c, err := m.GetBySlug(context.Background(), slug)
	return c != nil, err
}

// --- cart ---

type mockCartRepo struct{ s *memStore }

func (m *mockCartRepo) AddOrIncrement(_ context.Context, item *model.CartItem) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	now := m.s.tick()
	for _, existing := range m.s.cart {
		if existing.UserID == item.UserID && existing.ProductID == item.ProductID {
			existing.Quantity += item.Quantity
			existing.UpdatedAt = now
			*item = *existing
			return nil
		}
	}
	item.ID = uuid.New()
	item.AddedAt, item.UpdatedAt = now, now
	cp := *item
	m.s.cart = append(m.s.cart, &cp)
	return nil
}

func (m *mockCartRepo) find(userID, itemID uuid.UUID) int {
	return slices.IndexFunc(m.s.cart, func(c *model.CartItem) bool { return c.ID == itemID && c.UserID == userID })
}

func (m *mockCartRepo) SetQuantity(_ context.Context, userID, itemID uuid.UUID, quantity int) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	i := m.find(userID, itemID)
	if i < 0 {
		return pgx.ErrNoRows
	}
	m.s.cart[i].Quantity = quantity
	return nil
}

func (m *mockCartRepo) DeleteItem(_ context.Context, userID, itemID uuid.UUID) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	i := m.find(userID, itemID)
	if i < 0 {
		return pgx.ErrNoRows
	}
	m.s.cart = slices.Delete(m.s.cart, i, i+1)
	return nil
}

func (m *mockCartRepo) ListLines(_ context.Context, userID uuid.UUID) ([]model.CartLine, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return m.s.lines(userID), nil
}

func (m *mockCartRepo) Count(_ context.Context, userID uuid.UUID) (int, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return len(m.s.lines(userID)), nil
}

// --- checkout ---

type mockCheckoutRepo struct {
	s *memStore
	// beforeLock runs inside the transaction before the cart is read.
	beforeLock func()
	// afterLock runs inside the transaction once the cart has been read.
	afterLock func()
}

func (m *mockCheckoutRepo) InTx(_ context.Context, fn func(tx repository.CheckoutTx) error) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	saved := m.s.snapshot()
	if err := fn(&mockCheckoutTx{m: m}); err != nil {
		m.s.restore(saved)
		return err
	}
	return nil
}

type mockCheckoutTx struct{ m *mockCheckoutRepo }

func (tx *mockCheckoutTx) LockCart(_ context.Context, userID uuid.UUID) ([]model.CartLine, error) {
	if tx.m.beforeLock != nil {
		tx.m.beforeLock()
	}
	lines := tx.m.s.lines(userID)
	if tx.m.afterLock != nil {
		tx.m.afterLock()
	}
	return lines, nil
}

func (tx *mockCheckoutTx) InsertOrder(_ context.Context, o *model.Order) error {
	s := tx.m.s
	for _, existing := range s.orders {
		if existing.OrderNumber == o.OrderNumber {
			return repository.ErrDuplicateOrderNumber
		}
	}
	o.ID = uuid.New()
	o.CreatedAt = s.tick()
	o.UpdatedAt = o.CreatedAt
	cp := *o
	cp.Items = nil
	s.orders[o.ID] = &cp
	return nil
}

func (tx *mockCheckoutTx) InsertOrderItem(_ context.Context, item *model.OrderItem) error {
	item.ID = uuid.New()
	tx.m.s.items = append(tx.m.s.items, *item)
	return nil
}

func (tx *mockCheckoutTx) DecrementStock(_ context.Context, productID uuid.UUID, quantity int) error {
	p, ok := tx.m.s.products[productID]
	if !ok || p.Stock < quantity {
		return repository.ErrInsufficientStock
	}
	p.Stock -= quantity
	return nil
}

func (tx *mockCheckoutTx) ClearCart(_ context.Context, userID uuid.UUID, lineIDs []uuid.UUID) error {
	tx.m.s.cart = slices.DeleteFunc(tx.m.s.cart, func(c *model.CartItem) bool {
		return c.UserID == userID && slices.Contains(lineIDs, c.ID)
	})
	return nil
}

// --- orders ---

type mockOrderRepo struct{ s *memStore }

func (m *mockOrderRepo) addOrder(userID uuid.UUID, status model.OrderStatus) *model.Order {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	o := &model.Order{
		ID: uuid.New(), UserID: userID, OrderNumber: "ORD" + uuid.NewString()[:6],
		Status: status, PaymentMethod: model.PaymentCashOnDelivery, CreatedAt: m.s.tick(),
	}
	m.s.orders[o.ID] = o
	return o
}

func (m *mockOrderRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Order, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	o, ok := m.s.orders[id]
	if !ok {
		return nil, nil
	}
	cp := *o
	for _, item := range m.s.items {
		if item.OrderID == id {
			cp.Items = append(cp.Items, item)
		}
	}
	return &cp, nil
}

func (m *mockOrderRepo) ListByUserID(_ context.Context, userID uuid.UUID) ([]model.Order, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []model.Order
	for _, o := range m.s.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *mockOrderRepo) TransitionStatus(_ context.Context, id uuid.UUID, from, to model.OrderStatus) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	o, ok := m.s.orders[id]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	return true, nil
}
