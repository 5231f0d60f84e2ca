package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rl1809/scan-catalog/internal/core/domain"
)

func browseFixture() []domain.Product {
	drinks := "Drinks"
	snacks := "Snacks"
	return []domain.Product{
		{Barcode: "8930001", Name: "Green Tea", Price: domain.NewPrice(15000), CategoryID: idPtr(1), CategoryType: &drinks},
		{Barcode: "8930002", Name: "Coffee Beans", Price: domain.NewPrice(250000), CategoryID: idPtr(1), CategoryType: &drinks},
		{Barcode: "8930003", Name: "Potato Chips", Price: domain.NewPrice(100000), CategoryID: idPtr(2), CategoryType: &snacks},
		{Barcode: "8930004", Name: "Gift Box", Price: domain.NewPrice(400000)},
		{Barcode: "8930005", Name: "Sample"},
	}
}

func barcodes(products []domain.Product) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.Barcode
	}
	return out
}

func TestFilterProducts(t *testing.T) {
	products := browseFixture()

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"no filter", Filter{}, []string{"8930001", "8930002", "8930003", "8930004", "8930005"}},
		{"name word", Filter{Query: "tea"}, []string{"8930001"}},
		{"any word matches", Filter{Query: "tea chips"}, []string{"8930001", "8930003"}},
		{"barcode substring", Filter{Query: "0004"}, []string{"8930004"}},
		{"category type", Filter{Query: "SNACKS"}, []string{"8930003"}},
		{"category id", Filter{CategoryID: 1}, []string{"8930001", "8930002"}},
		{"under 100k includes unpriced", Filter{Price: PriceUnder100k}, []string{"8930001", "8930005"}},
		{"lower bound inclusive", Filter{Price: Price100kTo200k}, []string{"8930003"}},
		{"open top bucket", Filter{Price: PriceOver400k}, []string{"8930004"}},
		{"combined", Filter{Query: "coffee tea", CategoryID: 1, Price: Price200kTo300k}, []string{"8930002"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := barcodes(FilterProducts(products, tt.filter))
			if fmt.Sprint(got) != fmt.Sprint(tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestFilterProducts_SubsetOfInput(t *testing.T) {
	products := browseFixture()
	for _, b := range append(PriceBuckets(), PriceAny) {
		got := FilterProducts(products, Filter{Price: b, Query: "a e"})
		if len(got) > len(products) {
			t.Errorf("bucket %q: filter grew the list", b)
		}
	}
}

func TestParsePriceBucket(t *testing.T) {
	if b, err := ParsePriceBucket("400000+"); err != nil || b != PriceOver400k {
		t.Errorf("expected 400000+, got %q (%v)", b, err)
	}
	if b, err := ParsePriceBucket(""); err != nil || b != PriceAny {
		t.Errorf("expected any, got %q (%v)", b, err)
	}
	if _, err := ParsePriceBucket("cheap"); !errors.Is(err, ErrInvalidPriceBucket) {
		t.Errorf("expected ErrInvalidPriceBucket, got: %v", err)
	}
}

func makeProducts(n int) []domain.Product {
	out := make([]domain.Product, n)
	for i := range out {
		out[i] = product(fmt.Sprintf("%03d", i), "Item", int64(i))
	}
	return out
}

func TestPaginate(t *testing.T) {
	items := makeProducts(14)

	tests := []struct {
		page      int
		wantPage  int
		wantCount int
	}{
		{1, 1, 6},
		{2, 2, 6},
		{3, 3, 2},
		{9, 3, 2},
		{0, 1, 6},
		{-4, 1, 6},
	}
	for _, tt := range tests {
		p := Paginate(items, tt.page, DefaultPageSize)
		if p.Page != tt.wantPage || len(p.Items) != tt.wantCount {
			t.Errorf("page %d: expected page %d with %d items, got page %d with %d",
				tt.page, tt.wantPage, tt.wantCount, p.Page, len(p.Items))
		}
		if p.TotalPages != 3 || p.TotalItems != 14 {
			t.Errorf("page %d: unexpected totals %+v", tt.page, p)
		}
	}
}

func TestPaginate_Empty(t *testing.T) {
	p := Paginate(nil, 5, DefaultPageSize)
	if p.Page != 1 || p.TotalPages != 1 || len(p.Items) != 0 {
		t.Errorf("expected single empty page, got %+v", p)
	}
}

func TestBrowser_FilterResetsPage(t *testing.T) {
	b := NewBrowser(DefaultPageSize)
	items := makeProducts(20)

	b.SetPage(3)
	if got := b.Render(items); got.Page != 3 {
		t.Fatalf("expected page 3, got %d", got.Page)
	}

	b.SetFilter(Filter{Query: "01"})
	if got := b.Render(items); got.Page != 1 {
		t.Errorf("expected filter change to reset page to 1, got %d", got.Page)
	}
}

func TestBrowser_ReclampsWhenTotalShrinks(t *testing.T) {
	b := NewBrowser(DefaultPageSize)

	b.SetPage(4)
	if got := b.Render(makeProducts(24)); got.Page != 4 {
		t.Fatalf("expected page 4, got %d", got.Page)
	}
	if got := b.Render(makeProducts(7)); got.Page != 2 {
		t.Errorf("expected page clamped to 2, got %d", got.Page)
	}

	b.Step(5)
	if got := b.Render(makeProducts(7)); got.Page != 2 {
		t.Errorf("expected step past end to clamp to 2, got %d", got.Page)
	}
	b.Step(-5)
	if got := b.Render(makeProducts(7)); got.Page != 1 {
		t.Errorf("expected step before start to clamp to 1, got %d", got.Page)
	}
}

func TestSortNewest(t *testing.T) {
	now := time.Now()
	products := []domain.Product{
		{ID: 1, Barcode: "a", UpdatedAt: now.Add(-time.Hour), CreatedAt: now.Add(-time.Hour)},
		{ID: 2, Barcode: "b", UpdatedAt: now, CreatedAt: now.Add(-2 * time.Hour)},
		{ID: 3, Barcode: "c", UpdatedAt: now.Add(-time.Hour), CreatedAt: now.Add(-time.Hour)},
	}
	SortNewest(products)

	if got := barcodes(products); fmt.Sprint(got) != "[b c a]" {
		t.Errorf("expected [b c a], got %v", got)
	}
}

func TestFilterProducts_CategoryAndPriceCommute(t *testing.T) {
	products := browseFixture()
	categories := []int64{0, 1, 2, 3}

	for _, id := range categories {
		for _, b := range append(PriceBuckets(), PriceAny) {
			categoryFirst := FilterProducts(FilterProducts(products, Filter{CategoryID: id}), Filter{Price: b})
			priceFirst := FilterProducts(FilterProducts(products, Filter{Price: b}), Filter{CategoryID: id})
			combined := FilterProducts(products, Filter{CategoryID: id, Price: b})

			if fmt.Sprint(barcodes(categoryFirst)) != fmt.Sprint(barcodes(priceFirst)) {
				t.Errorf("category %d, bucket %q: %v != %v", id, b, barcodes(categoryFirst), barcodes(priceFirst))
			}
			if fmt.Sprint(barcodes(categoryFirst)) != fmt.Sprint(barcodes(combined)) {
				t.Errorf("category %d, bucket %q: chained %v, combined %v", id, b, barcodes(categoryFirst), barcodes(combined))
			}
		}
	}
}

func TestFilterProducts_QueryThenBucket(t *testing.T) {
	products := []domain.Product{
		product("A1", "Widget", 50000),
		product("A2", "Gadget", 150000),
	}

	steps := []struct {
		filter Filter
		want   []string
	}{
		{Filter{Query: "a"}, []string{"A1", "A2"}},
		{Filter{Query: "a", Price: Price100kTo200k}, []string{"A2"}},
	}
	for _, s := range steps {
		got := barcodes(FilterProducts(products, s.filter))
		if fmt.Sprint(got) != fmt.Sprint(s.want) {
			t.Errorf("filter %+v: expected %v, got %v", s.filter, s.want, got)
		}
	}
}
