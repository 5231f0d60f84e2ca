package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/scan-catalog/internal/core/domain"
	"github.com/rl1809/scan-catalog/internal/port"
)

// Catalog is a read-only copy of the product and category lists, keyed by
// barcode and by category id. It is refreshed on demand only.
type Catalog struct {
	source port.CatalogSource

	// loadMu serialises Load so that the most recent fetch is the one kept.
	loadMu sync.Mutex

	mu         sync.RWMutex
	products   map[string]domain.Product
	order      []string
	categories map[int64]domain.Category
	catOrder   []int64
	loadErr    error
	loadedAt   time.Time
}

func NewCatalog(source port.CatalogSource) *Catalog {
	return &Catalog{
		source:     source,
		products:   make(map[string]domain.Product),
		categories: make(map[int64]domain.Category),
	}
}

// Load fetches products and categories. A failed fetch leaves the affected
// list empty and returns an error wrapping ErrCatalogLoadFailed; filtering and
// lookups keep working on the empty set.
func (c *Catalog) Load(ctx context.Context) error {
	c.loadMu.Lock()
	defer c.loadMu.Unlock()

	var loadErr error

	products, err := c.source.FetchProducts(ctx)
	if err != nil {
		zap.S().Errorf("failed to load products: %v", err)
		products = nil
		loadErr = fmt.Errorf("%w: products: %w", ErrCatalogLoadFailed, err)
	}

	categories, err := c.source.FetchCategories(ctx)
	if err != nil {
		zap.S().Errorf("failed to load categories: %v", err)
		categories = nil
		if loadErr == nil {
			loadErr = fmt.Errorf("%w: categories: %w", ErrCatalogLoadFailed, err)
		}
	}

	c.replace(products, categories, loadErr)
	return loadErr
}

func (c *Catalog) replace(products []domain.Product, categories []domain.Category, loadErr error) {
	byCode := make(map[string]domain.Product, len(products))
	order := make([]string, 0, len(products))
	for _, p := range products {
		if _, seen := byCode[p.Barcode]; !seen {
			order = append(order, p.Barcode)
		}
		byCode[p.Barcode] = p
	}

	byID := make(map[int64]domain.Category, len(categories))
	catOrder := make([]int64, 0, len(categories))
	for _, cat := range categories {
		if _, seen := byID[cat.ID]; !seen {
			catOrder = append(catOrder, cat.ID)
		}
		byID[cat.ID] = cat
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.products = byCode
	c.order = order
	c.categories = byID
	c.catOrder = catOrder
	c.loadErr = loadErr
	c.loadedAt = time.Now()
}

// EnsureLoaded loads the catalog when no product is cached yet.
func (c *Catalog) EnsureLoaded(ctx context.Context) error {
	if !c.Empty() {
		return nil
	}
	return c.Load(ctx)
}

func (c *Catalog) Lookup(barcode string) (domain.Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.products[barcode]
	return p, ok
}

// Products returns the cached products in fetch order.
func (c *Catalog) Products() []domain.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Product, 0, len(c.order))
	for _, code := range c.order {
		out = append(out, c.products[code])
	}
	return out
}

func (c *Catalog) Categories() []domain.Category {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Category, 0, len(c.catOrder))
	for _, id := range c.catOrder {
		out = append(out, c.categories[id])
	}
	return out
}

func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.products)
}

func (c *Catalog) Empty() bool {
	return c.Len() == 0
}

// LoadErr returns the error of the most recent load, if any.
func (c *Catalog) LoadErr() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadErr
}

func (c *Catalog) LoadedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadedAt
}
