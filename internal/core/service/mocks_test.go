package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rl1809/scan-catalog/internal/core/domain"
)

func strPtr(s string) *string { return &s }
func idPtr(id int64) *int64   { return &id }

func product(barcode, name string, price int64) domain.Product {
	return domain.Product{Barcode: barcode, Name: name, Price: domain.NewPrice(price)}
}

// Mock CatalogSource
type mockSource struct {
	products   []domain.Product
	categories []domain.Category
	err        error
	calls      int
	mu         sync.Mutex
}

func (m *mockSource) FetchProducts(ctx context.Context) ([]domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return append([]domain.Product(nil), m.products...), nil
}

func (m *mockSource) FetchCategories(ctx context.Context) ([]domain.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return append([]domain.Category(nil), m.categories...), nil
}

// Mock ScanControl
type mockScanner struct {
	running bool
	stops   int
	mu      sync.Mutex
}

func (m *mockScanner) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = false
	m.stops++
}

func (m *mockScanner) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Mock Renderer
type mockRenderer struct {
	views []View
	mu    sync.Mutex
}

func (m *mockRenderer) Render(v View) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.views = append(m.views, v)
}

// Mock CatalogRepository
type mockRepo struct {
	products   map[int64]domain.Product
	categories map[int64]domain.Category
	nextID     int64
	failList   bool
	mu         sync.Mutex
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		products:   make(map[int64]domain.Product),
		categories: make(map[int64]domain.Category),
	}
}

func (m *mockRepo) ListProducts(ctx context.Context, categoryID *int64) ([]domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failList {
		return nil, errors.New("db down")
	}
	var out []domain.Product
	for id := int64(1); id <= m.nextID; id++ {
		p, ok := m.products[id]
		if !ok {
			continue
		}
		if categoryID != nil && (p.CategoryID == nil || *p.CategoryID != *categoryID) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (m *mockRepo) GetProductByID(ctx context.Context, id int64) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *mockRepo) GetProductByBarcode(ctx context.Context, barcode string) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.products {
		if p.Barcode == barcode {
			return &p, nil
		}
	}
	return nil, nil
}

func (m *mockRepo) CreateProduct(ctx context.Context, p domain.Product) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	p.ID = m.nextID
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	m.products[p.ID] = p
	return p.ID, nil
}

func (m *mockRepo) UpdateProduct(ctx context.Context, id int64, u domain.ProductUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.products[id]
	if u.Barcode != nil {
		p.Barcode = *u.Barcode
	}
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.SetPrice {
		p.Price = u.Price
	}
	if u.SetImage {
		p.Image = u.Image
	}
	if u.SetCategoryID {
		p.CategoryID = u.CategoryID
	}
	m.products[id] = p
	return nil
}

func (m *mockRepo) DeleteProduct(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.products, id)
	return nil
}

func (m *mockRepo) BarcodeExists(ctx context.Context, barcode string, excludeID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, p := range m.products {
		if p.Barcode == barcode && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRepo) ListCategories(ctx context.Context) ([]domain.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Category
	for id := int64(1); id <= m.nextID; id++ {
		if c, ok := m.categories[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockRepo) GetCategory(ctx context.Context, id int64) (*domain.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.categories[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *mockRepo) GetCategoryByType(ctx context.Context, typ string) (*domain.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.categories {
		if c.Type == typ {
			return &c, nil
		}
	}
	return nil, nil
}

func (m *mockRepo) CreateCategory(ctx context.Context, typ string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.categories[m.nextID] = domain.Category{ID: m.nextID, Type: typ}
	return m.nextID, nil
}

func (m *mockRepo) UpdateCategory(ctx context.Context, id int64, typ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.categories[id]
	c.Type = typ
	m.categories[id] = c
	return nil
}

func (m *mockRepo) DeleteCategory(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.categories, id)
	for pid, p := range m.products {
		if p.CategoryID != nil && *p.CategoryID == id {
			p.CategoryID = nil
			m.products[pid] = p
		}
	}
	return nil
}

// Mock CacheRepository
type mockCache struct {
	products    []domain.Product
	categories  []domain.Category
	hasProducts bool
	hasCats     bool
	invalidated int
	mu          sync.Mutex
}

func (m *mockCache) GetProducts(ctx context.Context) ([]domain.Product, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products, m.hasProducts, nil
}

func (m *mockCache) SetProducts(ctx context.Context, products []domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products = products
	m.hasProducts = true
	return nil
}

func (m *mockCache) GetCategories(ctx context.Context) ([]domain.Category, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.categories, m.hasCats, nil
}

func (m *mockCache) SetCategories(ctx context.Context, categories []domain.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.categories = categories
	m.hasCats = true
	return nil
}

func (m *mockCache) Invalidate(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products, m.categories = nil, nil
	m.hasProducts, m.hasCats = false, false
	m.invalidated++
	return nil
}
