package service

import (
	"fmt"
	"sync"

	"github.com/rl1809/scan-catalog/internal/core/domain"
)

// PreviewLines is how many cart lines a compact cart summary lists.
const PreviewLines = 5

type ProductLookup interface {
	Lookup(barcode string) (domain.Product, bool)
}

// Cart aggregates scanned products by barcode. Quantities are always >= 1;
// entries keep insertion order.
type Cart struct {
	catalog ProductLookup

	mu      sync.Mutex
	entries map[string]*domain.CartEntry
	order   []string
}

func NewCart(catalog ProductLookup) *Cart {
	return &Cart{
		catalog: catalog,
		entries: make(map[string]*domain.CartEntry),
	}
}

// Add increments the entry for barcode, creating it at qty 1 when the
// product is in the catalog. It returns the new quantity.
func (c *Cart) Add(barcode string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[barcode]; ok {
		e.Qty++
		return e.Qty, nil
	}

	p, ok := c.catalog.Lookup(barcode)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownProduct, barcode)
	}
	c.entries[barcode] = &domain.CartEntry{Product: p, Qty: 1}
	c.order = append(c.order, barcode)
	return 1, nil
}

func (c *Cart) Increment(barcode string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[barcode]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNotInCart, barcode)
	}
	e.Qty++
	return e.Qty, nil
}

// Decrement lowers the quantity but never below 1; use Remove to drop a line.
func (c *Cart) Decrement(barcode string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[barcode]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNotInCart, barcode)
	}
	if e.Qty > 1 {
		e.Qty--
	}
	return e.Qty, nil
}

func (c *Cart) Remove(barcode string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[barcode]; !ok {
		return false
	}
	delete(c.entries, barcode)
	for i, code := range c.order {
		if code == barcode {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true
}

func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*domain.CartEntry)
	c.order = nil
}

func (c *Cart) Qty(barcode string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[barcode]; ok {
		return e.Qty
	}
	return 0
}

// Total sums unit price times quantity; unpriced products count as 0.
func (c *Cart) Total() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	var total int64
	for _, e := range c.entries {
		total += e.Product.Price.Unit() * int64(e.Qty)
	}
	return total
}

// Count is the number of items, i.e. the sum of quantities.
func (c *Cart) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.entries {
		n += e.Qty
	}
	return n
}

// Len is the number of distinct products.
func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cart) Lines() []domain.CartLine {
	c.mu.Lock()
	defer c.mu.Unlock()
	lines := make([]domain.CartLine, 0, len(c.order))
	for _, code := range c.order {
		e := c.entries[code]
		unit := e.Product.Price.Unit()
		lines = append(lines, domain.CartLine{
			Barcode:   code,
			Product:   e.Product,
			Qty:       e.Qty,
			UnitPrice: unit,
			LineTotal: unit * int64(e.Qty),
		})
	}
	return lines
}
