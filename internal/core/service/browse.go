package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rl1809/scan-catalog/internal/core/domain"
)

const (
	DefaultPageSize = 6
	AdminPageSize   = 10
)

type PriceBucket string

const (
	PriceAny        PriceBucket = ""
	PriceUnder100k  PriceBucket = "0-100000"
	Price100kTo200k PriceBucket = "100000-200000"
	Price200kTo300k PriceBucket = "200000-300000"
	Price300kTo400k PriceBucket = "300000-400000"
	PriceOver400k   PriceBucket = "400000+"
)

type priceRange struct {
	min, max int64 // max < 0 means open ended
}

var priceRanges = map[PriceBucket]priceRange{
	PriceUnder100k:  {0, 100000},
	Price100kTo200k: {100000, 200000},
	Price200kTo300k: {200000, 300000},
	Price300kTo400k: {300000, 400000},
	PriceOver400k:   {400000, -1},
}

func PriceBuckets() []PriceBucket {
	return []PriceBucket{PriceUnder100k, Price100kTo200k, Price200kTo300k, Price300kTo400k, PriceOver400k}
}

func ParsePriceBucket(s string) (PriceBucket, error) {
	b := PriceBucket(strings.TrimSpace(s))
	if b == PriceAny {
		return b, nil
	}
	if _, ok := priceRanges[b]; !ok {
		return PriceAny, fmt.Errorf("%w: %q", ErrInvalidPriceBucket, s)
	}
	return b, nil
}

// Contains reports whether price falls in the half-open range [min, max).
func (b PriceBucket) Contains(price int64) bool {
	if b == PriceAny {
		return true
	}
	r, ok := priceRanges[b]
	if !ok {
		return false
	}
	if r.max < 0 {
		return price >= r.min
	}
	return price >= r.min && price < r.max
}

type Filter struct {
	Query      string      `json:"query"`
	CategoryID int64       `json:"category_id"`
	Price      PriceBucket `json:"price"`
}

func (f Filter) words() []string {
	return strings.Fields(strings.ToLower(f.Query))
}

// Match applies all active criteria. Free text matches when any query word
// is a substring of the barcode, name or category type.
func (f Filter) Match(p domain.Product) bool {
	return f.match(p, f.words())
}

func (f Filter) match(p domain.Product, words []string) bool {
	if len(words) > 0 {
		haystack := strings.ToLower(p.Barcode + " " + p.Name + " " + p.CategoryName())
		hit := false
		for _, w := range words {
			if strings.Contains(haystack, w) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	if f.CategoryID != 0 {
		if p.CategoryID == nil || *p.CategoryID != f.CategoryID {
			return false
		}
	}
	return f.Price.Contains(p.Price.Unit())
}

func FilterProducts(products []domain.Product, f Filter) []domain.Product {
	words := f.words()
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if f.match(p, words) {
			out = append(out, p)
		}
	}
	return out
}

type Page struct {
	Items      []domain.Product `json:"items"`
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
	TotalPages int              `json:"total_pages"`
	TotalItems int              `json:"total_items"`
}

func TotalPages(total, size int) int {
	if size <= 0 {
		size = DefaultPageSize
	}
	pages := (total + size - 1) / size
	if pages < 1 {
		pages = 1
	}
	return pages
}

// ClampPage keeps page within [1, TotalPages(total, size)].
func ClampPage(page, total, size int) int {
	if page < 1 {
		return 1
	}
	if last := TotalPages(total, size); page > last {
		return last
	}
	return page
}

func Paginate(items []domain.Product, page, size int) Page {
	if size <= 0 {
		size = DefaultPageSize
	}
	page = ClampPage(page, len(items), size)
	start := (page - 1) * size
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return Page{
		Items:      items[start:end],
		Page:       page,
		PageSize:   size,
		TotalPages: TotalPages(len(items), size),
		TotalItems: len(items),
	}
}

// SortNewest orders products by updated_at, then created_at, then id, all
// descending.
func SortNewest(products []domain.Product) {
	sort.SliceStable(products, func(i, j int) bool {
		a, b := products[i], products[j]
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.After(b.UpdatedAt)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
}

// Browser holds the filter and page index of one storefront view.
type Browser struct {
	filter   Filter
	page     int
	pageSize int
}

func NewBrowser(pageSize int) *Browser {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Browser{page: 1, pageSize: pageSize}
}

func (b *Browser) Filter() Filter {
	return b.filter
}

// SetFilter replaces the filter and resets to the first page.
func (b *Browser) SetFilter(f Filter) {
	b.filter = f
	b.page = 1
}

func (b *Browser) SetPage(page int) {
	if page < 1 {
		page = 1
	}
	b.page = page
}

// Step moves the page index by delta; the result is clamped on Render.
func (b *Browser) Step(delta int) {
	b.SetPage(b.page + delta)
}

// Render filters products and returns the current page, re-clamping the
// stored index against the new total.
func (b *Browser) Render(products []domain.Product) Page {
	page := Paginate(FilterProducts(products, b.filter), b.page, b.pageSize)
	b.page = page.Page
	return page
}
