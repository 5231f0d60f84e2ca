package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/mattn/go-runewidth"

	"github.com/rl1809/scan-catalog/internal/core/domain"
	"github.com/rl1809/scan-catalog/internal/core/service"
)

const (
	nameWidth    = 28
	barcodeWidth = 15
	noImage      = "(no image)"
)

// terminalRenderer draws views as plain text. Scanner callbacks render from
// their own goroutine, so writes are serialised.
type terminalRenderer struct {
	mu        sync.Mutex
	out       io.Writer
	formatter *service.PriceFormatter
}

func newTerminalRenderer(out io.Writer, formatter *service.PriceFormatter) *terminalRenderer {
	return &terminalRenderer{out: out, formatter: formatter}
}

func (r *terminalRenderer) Render(v service.View) {
	var b strings.Builder

	scanning := "off"
	if v.Scanning {
		scanning = "on"
	}
	fmt.Fprintf(&b, "\n== %s mode | camera %s ==\n", strings.ToUpper(string(v.Mode)), scanning)
	if v.CatalogError != "" {
		fmt.Fprintf(&b, "! catalog: %s\n", v.CatalogError)
	}
	if v.Notice != nil {
		fmt.Fprintf(&b, "[%s] %s\n", v.Notice.Level, v.Notice.Message)
	}

	switch {
	case v.Checkout != nil:
		r.writeCheckout(&b, v.Checkout)
	case v.Mode == domain.ModeCart:
		r.writeCart(&b, v.Cart)
	default:
		r.writeProduct(&b, v)
	}
	r.writeBrowse(&b, v)

	r.mu.Lock()
	defer r.mu.Unlock()
	io.WriteString(r.out, b.String())
}

// Message writes a one-off line outside of a view.
func (r *terminalRenderer) Message(format string, args ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, format+"\n", args...)
}

func (r *terminalRenderer) writeProduct(b *strings.Builder, v service.View) {
	if v.NotFound {
		b.WriteString("Product not found\n")
		return
	}
	if v.Product == nil {
		return
	}
	p := v.Product
	fmt.Fprintf(b, "%s\n  barcode  %s\n  price    %s\n", p.Name, p.Barcode, v.ProductPrice)
	if c := p.CategoryName(); c != "" {
		fmt.Fprintf(b, "  category %s\n", c)
	}
	fmt.Fprintf(b, "  image    %s\n", p.ImageURL(noImage))
}

func (r *terminalRenderer) writeCart(b *strings.Builder, cart service.CartView) {
	if len(cart.Lines) == 0 {
		b.WriteString("Cart is empty\n")
		return
	}
	for _, l := range cart.Lines {
		fmt.Fprintf(b, "  %s %s x%-3d %s\n",
			cell(l.Barcode, barcodeWidth),
			cell(l.Product.Name, nameWidth),
			l.Qty,
			r.formatter.Format(l.LineTotal))
	}
	fmt.Fprintf(b, "  %d items, total %s\n", cart.Count, cart.Formatted)
	if cart.More > 0 {
		fmt.Fprintf(b, "  (preview shows %d, +%d more)\n", len(cart.Preview), cart.More)
	}
}

func (r *terminalRenderer) writeCheckout(b *strings.Builder, c *service.Checkout) {
	fmt.Fprintf(b, "CHECKOUT total %s\n", c.Formatted)
	if c.QR != "" {
		fmt.Fprintf(b, "  pay with QR: %s\n", c.QR)
	}
}

func (r *terminalRenderer) writeBrowse(b *strings.Builder, v service.View) {
	page := v.Browse
	if page.TotalItems == 0 {
		b.WriteString("-- no products match --\n")
		return
	}
	fmt.Fprintf(b, "-- products %d/%d (%d) --\n", page.Page, page.TotalPages, page.TotalItems)
	for _, p := range page.Items {
		fmt.Fprintf(b, "  %s %s %s\n",
			cell(p.Barcode, barcodeWidth),
			cell(p.Name, nameWidth),
			r.formatter.FormatPrice(p.Price))
	}
}

// cell pads or truncates s to width terminal columns.
func cell(s string, width int) string {
	return runewidth.FillRight(runewidth.Truncate(s, width, "…"), width)
}
