package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/rl1809/scan-catalog/internal/core/domain"
)

type IntentKind string

const (
	IntentScanDetected   IntentKind = "scan-detected"
	IntentManualLookup   IntentKind = "manual-lookup"
	IntentCartAdd        IntentKind = "cart-add"
	IntentCartIncrement  IntentKind = "cart-increment"
	IntentCartDecrement  IntentKind = "cart-decrement"
	IntentCartRemove     IntentKind = "cart-remove"
	IntentCartClear      IntentKind = "cart-clear"
	IntentModeChanged    IntentKind = "mode-changed"
	IntentFilterChanged  IntentKind = "filter-changed"
	IntentPageChanged    IntentKind = "page-changed"
	IntentCatalogRefresh IntentKind = "catalog-refresh"
	IntentCheckout       IntentKind = "checkout"
)

// Intent is a user or scanner action. Only the fields relevant to Kind are
// read: Code for lookups and cart actions, Mode for mode-changed, Filter for
// filter-changed, Page (absolute) or Step (relative) for page-changed.
type Intent struct {
	Kind   IntentKind  `json:"kind"`
	Code   string      `json:"code,omitempty"`
	Mode   domain.Mode `json:"mode,omitempty"`
	Filter Filter      `json:"filter"`
	Page   int         `json:"page,omitempty"`
	Step   int         `json:"step,omitempty"`
}

type CartView struct {
	Lines     []domain.CartLine `json:"lines"`
	Preview   []domain.CartLine `json:"preview"`
	More      int               `json:"more"`
	Count     int               `json:"count"`
	Total     int64             `json:"total"`
	Formatted string            `json:"formatted"`
}

type Checkout struct {
	Total     int64  `json:"total"`
	Formatted string `json:"formatted"`
	QR        string `json:"qr"`
}

// View is the full render state after one dispatch.
type View struct {
	SessionID    string            `json:"session_id"`
	Mode         domain.Mode       `json:"mode"`
	Product      *domain.Product   `json:"product,omitempty"`
	ProductPrice string            `json:"product_price,omitempty"`
	NotFound     bool              `json:"not_found"`
	Notice       *Notice           `json:"notice,omitempty"`
	Cart         CartView          `json:"cart"`
	Filter       Filter            `json:"filter"`
	Browse       Page              `json:"browse"`
	Categories   []domain.Category `json:"categories"`
	Checkout     *Checkout         `json:"checkout,omitempty"`
	Scanning     bool              `json:"scanning"`
	CatalogError string            `json:"catalog_error,omitempty"`
}

type Renderer interface {
	Render(v View)
}

type Dispatcher struct {
	formatter *PriceFormatter
	paymentQR string
	renderer  Renderer
}

func NewDispatcher(formatter *PriceFormatter, paymentQR string, renderer Renderer) *Dispatcher {
	if formatter == nil {
		formatter = NewPriceFormatter("vi-VN", "₫")
	}
	return &Dispatcher{
		formatter: formatter,
		paymentQR: paymentQR,
		renderer:  renderer,
	}
}

// Dispatch applies in to s and returns the re-rendered view. The view is
// valid even when err is set; errors accepted by IsNotice are user outcomes
// that the view already describes in its notice.
func (d *Dispatcher) Dispatch(ctx context.Context, s *Session, in Intent) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notice = nil
	s.checkout = nil

	err := d.apply(ctx, s, in)
	v := d.render(s)
	if d.renderer != nil {
		d.renderer.Render(v)
	}
	return v, err
}

// Render returns the current view without mutating state.
func (d *Dispatcher) Render(s *Session) View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return d.render(s)
}

func (d *Dispatcher) apply(ctx context.Context, s *Session, in Intent) error {
	switch in.Kind {
	case IntentScanDetected:
		return d.lookup(ctx, s, in.Code)

	case IntentManualLookup:
		code := strings.TrimSpace(in.Code)
		if code == "" {
			s.notice = &Notice{Level: NoticeError, Message: "enter a barcode"}
			return ErrEmptyCode
		}
		return d.lookup(ctx, s, code)

	case IntentCartAdd:
		return d.addToCart(ctx, s, strings.TrimSpace(in.Code))

	case IntentCartIncrement:
		if _, err := s.cart.Increment(in.Code); err != nil {
			s.notice = &Notice{Level: NoticeError, Message: "product is not in the cart"}
			return err
		}
		return nil

	case IntentCartDecrement:
		if _, err := s.cart.Decrement(in.Code); err != nil {
			s.notice = &Notice{Level: NoticeError, Message: "product is not in the cart"}
			return err
		}
		return nil

	case IntentCartRemove:
		if !s.cart.Remove(in.Code) {
			s.notice = &Notice{Level: NoticeError, Message: "product is not in the cart"}
			return fmt.Errorf("%w: %s", ErrNotInCart, in.Code)
		}
		s.notice = &Notice{Level: NoticeInfo, Message: "removed from cart"}
		return nil

	case IntentCartClear:
		s.cart.Clear()
		s.notice = &Notice{Level: NoticeInfo, Message: "cart cleared"}
		return nil

	case IntentModeChanged:
		if !in.Mode.Valid() {
			return fmt.Errorf("%w: %q", ErrInvalidMode, in.Mode)
		}
		s.stopScanner()
		s.mode = in.Mode
		s.product = nil
		s.notFound = false
		return nil

	case IntentFilterChanged:
		s.browser.SetFilter(in.Filter)
		return nil

	case IntentPageChanged:
		if in.Page > 0 {
			s.browser.SetPage(in.Page)
		} else {
			s.browser.Step(in.Step)
		}
		return nil

	case IntentCatalogRefresh:
		if err := s.catalog.Load(ctx); err != nil {
			s.notice = &Notice{Level: NoticeError, Message: "failed to load products"}
			return err
		}
		s.notice = &Notice{Level: NoticeInfo, Message: fmt.Sprintf("loaded %d products", s.catalog.Len())}
		return nil

	case IntentCheckout:
		total := s.cart.Total()
		if s.cart.Len() == 0 || total <= 0 {
			s.notice = &Notice{Level: NoticeError, Message: "cart empty"}
			return ErrEmptyCart
		}
		s.stopScanner()
		s.checkout = &Checkout{
			Total:     total,
			Formatted: d.formatter.Format(total),
			QR:        d.paymentQR,
		}
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidIntent, in.Kind)
}

// lookup resolves code against the catalog and applies the result according
// to the session mode. An empty catalog is loaded first.
func (d *Dispatcher) lookup(ctx context.Context, s *Session, code string) error {
	d.ensureCatalog(ctx, s)

	p, ok := s.catalog.Lookup(code)
	switch s.mode {
	case domain.ModeCart:
		if !ok {
			s.notice = &Notice{Level: NoticeError, Message: "product not found: " + code}
			return fmt.Errorf("%w: %s", ErrUnknownProduct, code)
		}
		return d.addFound(s, p)

	default:
		if !ok {
			s.product = nil
			s.notFound = true
			s.notice = &Notice{Level: NoticeError, Message: "product not found"}
			return fmt.Errorf("%w: %s", ErrUnknownProduct, code)
		}
		s.product = &p
		s.notFound = false
		s.notice = &Notice{Level: NoticeSuccess, Message: "product found"}
		s.stopScanner()
		return nil
	}
}

func (d *Dispatcher) addToCart(ctx context.Context, s *Session, code string) error {
	if code == "" {
		s.notice = &Notice{Level: NoticeError, Message: "enter a barcode"}
		return ErrEmptyCode
	}
	d.ensureCatalog(ctx, s)
	p, ok := s.catalog.Lookup(code)
	if !ok {
		s.notice = &Notice{Level: NoticeError, Message: "product not found: " + code}
		return fmt.Errorf("%w: %s", ErrUnknownProduct, code)
	}
	return d.addFound(s, p)
}

func (d *Dispatcher) addFound(s *Session, p domain.Product) error {
	qty, err := s.cart.Add(p.Barcode)
	if err != nil {
		return err
	}
	if qty > 1 {
		s.notice = &Notice{Level: NoticeSuccess, Message: fmt.Sprintf("%s x%d", p.Name, qty)}
	} else {
		s.notice = &Notice{Level: NoticeSuccess, Message: "added " + p.Name}
	}
	return nil
}

func (d *Dispatcher) ensureCatalog(ctx context.Context, s *Session) {
	if err := s.catalog.EnsureLoaded(ctx); err != nil && !errors.Is(err, context.Canceled) {
		zap.S().Warnf("Lookup continues on empty catalog: %v", err)
	}
}

func (d *Dispatcher) render(s *Session) View {
	lines := s.cart.Lines()
	preview := lines
	more := 0
	if len(lines) > PreviewLines {
		preview = lines[:PreviewLines]
		more = len(lines) - PreviewLines
	}
	total := s.cart.Total()

	v := View{
		SessionID:  s.ID,
		Mode:       s.mode,
		NotFound:   s.notFound,
		Notice:     s.notice,
		Filter:     s.browser.Filter(),
		Browse:     s.browser.Render(s.catalog.Products()),
		Categories: s.catalog.Categories(),
		Checkout:   s.checkout,
		Scanning:   s.scanner != nil && s.scanner.Running(),
		Cart: CartView{
			Lines:     lines,
			Preview:   preview,
			More:      more,
			Count:     s.cart.Count(),
			Total:     total,
			Formatted: d.formatter.Format(total),
		},
	}
	if s.product != nil {
		p := *s.product
		v.Product = &p
		v.ProductPrice = d.formatter.Format(p.Price.Unit())
	}
	if err := s.catalog.LoadErr(); err != nil {
		v.CatalogError = err.Error()
	}
	return v
}
