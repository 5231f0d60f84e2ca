package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/rl1809/scan-catalog/internal/core/domain"
	"github.com/rl1809/scan-catalog/internal/port"
)

// ChangeEvent is emitted after every successful admin write.
type ChangeEvent struct {
	Kind string
	ID   int64
}

// CatalogService serves product and category reads through the snapshot
// cache and validates admin writes against the repository. It implements
// port.CatalogSource for the server-side Catalog.
type CatalogService struct {
	repo  port.CatalogRepository
	cache port.CacheRepository

	mu      sync.Mutex
	closed  bool
	changes chan ChangeEvent
}

// NewCatalogService accepts a nil cache; reads then always hit the repository.
func NewCatalogService(repo port.CatalogRepository, cache port.CacheRepository, queueSize int) *CatalogService {
	return &CatalogService{
		repo:    repo,
		cache:   cache,
		changes: make(chan ChangeEvent, queueSize),
	}
}

// Changes delivers change events to the reload worker.
func (s *CatalogService) Changes() <-chan ChangeEvent {
	return s.changes
}

// Close ends the change queue. Writes that finish afterwards still succeed
// but queue nothing. Close is safe to call more than once.
func (s *CatalogService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.changes)
}

func (s *CatalogService) FetchProducts(ctx context.Context) ([]domain.Product, error) {
	if s.cache != nil {
		products, ok, err := s.cache.GetProducts(ctx)
		if err != nil {
			zap.S().Warnf("product cache read failed: %v", err)
		} else if ok {
			return products, nil
		}
	}

	products, err := s.repo.ListProducts(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.SetProducts(ctx, products); err != nil {
			zap.S().Warnf("product cache write failed: %v", err)
		}
	}
	return products, nil
}

func (s *CatalogService) FetchCategories(ctx context.Context) ([]domain.Category, error) {
	if s.cache != nil {
		categories, ok, err := s.cache.GetCategories(ctx)
		if err != nil {
			zap.S().Warnf("category cache read failed: %v", err)
		} else if ok {
			return categories, nil
		}
	}

	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.SetCategories(ctx, categories); err != nil {
			zap.S().Warnf("category cache write failed: %v", err)
		}
	}
	return categories, nil
}

// ListProducts returns every product, or only those of categoryID when set.
func (s *CatalogService) ListProducts(ctx context.Context, categoryID *int64) ([]domain.Product, error) {
	if categoryID == nil {
		return s.FetchProducts(ctx)
	}
	products, err := s.repo.ListProducts(ctx, categoryID)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// SearchProducts is the admin listing: filtered, newest first, AdminPageSize
// per page.
func (s *CatalogService) SearchProducts(ctx context.Context, f Filter, page int) (Page, error) {
	products, err := s.repo.ListProducts(ctx, nil)
	if err != nil {
		return Page{}, fmt.Errorf("list products: %w", err)
	}
	products = FilterProducts(products, f)
	SortNewest(products)
	return Paginate(products, page, AdminPageSize), nil
}

func (s *CatalogService) GetProductByBarcode(ctx context.Context, barcode string) (*domain.Product, error) {
	p, err := s.repo.GetProductByBarcode(ctx, barcode)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if p == nil {
		return nil, ErrProductNotFound
	}
	return p, nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	p, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if p == nil {
		return nil, ErrProductNotFound
	}
	return p, nil
}

func (s *CatalogService) CreateProduct(ctx context.Context, in ProductInput) (*domain.Product, error) {
	verr := &ValidationError{}
	if in.Barcode.Blank() {
		verr.add("barcode", "Barcode is required")
	}
	if in.Name.Blank() {
		verr.add("name", "Name is required")
	}
	price, ok := parsePriceInput(in.Price)
	if !ok {
		verr.add("price", "Price must be a non-negative integer")
	}
	categoryID, err := s.categoryRef(ctx, in.CategoryID, verr)
	if err != nil {
		return nil, err
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	barcode := in.Barcode.Trimmed()
	exists, err := s.repo.BarcodeExists(ctx, barcode, 0)
	if err != nil {
		return nil, fmt.Errorf("check barcode: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: %s", ErrBarcodeExists, barcode)
	}

	p := domain.Product{
		Barcode:    barcode,
		Name:       in.Name.Trimmed(),
		Price:      price,
		Image:      optionalString(in.Image),
		CategoryID: categoryID,
	}
	id, err := s.repo.CreateProduct(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	s.changed(ctx, "product.created", id)
	return s.GetProduct(ctx, id)
}

// UpdateProduct applies a partial update. Blank barcode or name keep the
// stored value; a blank price, image or category clears it.
func (s *CatalogService) UpdateProduct(ctx context.Context, id int64, in ProductInput) (*domain.Product, error) {
	if _, err := s.GetProduct(ctx, id); err != nil {
		return nil, err
	}

	verr := &ValidationError{}
	var u domain.ProductUpdate
	if in.Price.Set {
		price, ok := parsePriceInput(in.Price)
		if !ok {
			verr.add("price", "Price must be a non-negative integer")
		}
		u.SetPrice = true
		u.Price = price
	}
	if in.CategoryID.Set {
		categoryID, err := s.categoryRef(ctx, in.CategoryID, verr)
		if err != nil {
			return nil, err
		}
		u.SetCategoryID = true
		u.CategoryID = categoryID
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	if !in.Barcode.Blank() {
		barcode := in.Barcode.Trimmed()
		exists, err := s.repo.BarcodeExists(ctx, barcode, id)
		if err != nil {
			return nil, fmt.Errorf("check barcode: %w", err)
		}
		if exists {
			return nil, fmt.Errorf("%w: %s", ErrBarcodeExists, barcode)
		}
		u.Barcode = &barcode
	}
	if !in.Name.Blank() {
		name := in.Name.Trimmed()
		u.Name = &name
	}
	if in.Image.Set {
		u.SetImage = true
		u.Image = optionalString(in.Image)
	}

	if !u.Empty() {
		if err := s.repo.UpdateProduct(ctx, id, u); err != nil {
			return nil, fmt.Errorf("update product: %w", err)
		}
		s.changed(ctx, "product.updated", id)
	}
	return s.GetProduct(ctx, id)
}

func (s *CatalogService) DeleteProduct(ctx context.Context, id int64) error {
	if _, err := s.GetProduct(ctx, id); err != nil {
		return err
	}
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	s.changed(ctx, "product.deleted", id)
	return nil
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.FetchCategories(ctx)
}

func (s *CatalogService) GetCategory(ctx context.Context, id int64) (*domain.Category, error) {
	c, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	if c == nil {
		return nil, ErrCategoryNotFound
	}
	return c, nil
}

func (s *CatalogService) CreateCategory(ctx context.Context, in CategoryInput) (*domain.Category, error) {
	typ := in.Value()
	if typ == "" {
		return nil, &ValidationError{Errors: []FieldError{{Msg: "Category type is required", Param: "type"}}}
	}
	if err := s.ensureUniqueType(ctx, typ, 0); err != nil {
		return nil, err
	}
	id, err := s.repo.CreateCategory(ctx, typ)
	if err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	s.changed(ctx, "category.created", id)
	return s.GetCategory(ctx, id)
}

func (s *CatalogService) UpdateCategory(ctx context.Context, id int64, in CategoryInput) (*domain.Category, error) {
	if _, err := s.GetCategory(ctx, id); err != nil {
		return nil, err
	}
	typ := in.Value()
	if typ == "" {
		return nil, &ValidationError{Errors: []FieldError{{Msg: "Category type is required", Param: "type"}}}
	}
	if err := s.ensureUniqueType(ctx, typ, id); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateCategory(ctx, id, typ); err != nil {
		return nil, fmt.Errorf("update category: %w", err)
	}
	s.changed(ctx, "category.updated", id)
	return s.GetCategory(ctx, id)
}

// DeleteCategory removes the category; its products become uncategorised.
func (s *CatalogService) DeleteCategory(ctx context.Context, id int64) error {
	if _, err := s.GetCategory(ctx, id); err != nil {
		return err
	}
	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	s.changed(ctx, "category.deleted", id)
	return nil
}

func (s *CatalogService) ensureUniqueType(ctx context.Context, typ string, excludeID int64) error {
	existing, err := s.repo.GetCategoryByType(ctx, typ)
	if err != nil {
		return fmt.Errorf("check category: %w", err)
	}
	if existing != nil && existing.ID != excludeID {
		return fmt.Errorf("%w: %s", ErrCategoryExists, typ)
	}
	return nil
}

// categoryRef resolves an optional category id. A blank or zero value means
// no category; an unknown id is a validation error.
func (s *CatalogService) categoryRef(ctx context.Context, v FieldValue, verr *ValidationError) (*int64, error) {
	if v.Blank() {
		return nil, nil
	}
	id, ok := v.uint()
	if !ok {
		verr.add("category_id", "Category must be a valid id")
		return nil, nil
	}
	if id == 0 {
		return nil, nil
	}
	c, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	if c == nil {
		verr.add("category_id", "Category does not exist")
		return nil, nil
	}
	return &id, nil
}

// changed invalidates the snapshot cache and queues a reload event. The send
// never blocks; a full queue already holds a pending reload.
func (s *CatalogService) changed(ctx context.Context, kind string, id int64) {
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			zap.S().Warnf("cache invalidate failed: %v", err)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.changes <- ChangeEvent{Kind: kind, ID: id}:
	default:
		zap.S().Debugf("change queue full, dropping %s %d", kind, id)
	}
}

func parsePriceInput(v FieldValue) (domain.Price, bool) {
	if v.Blank() {
		return domain.Price{}, true
	}
	n, ok := v.uint()
	if !ok {
		return domain.Price{}, false
	}
	return domain.NewPrice(n), true
}

func optionalString(v FieldValue) *string {
	if v.Blank() {
		return nil
	}
	s := strings.TrimSpace(v.Text)
	return &s
}
