package port

import (
	"context"

	"github.com/rl1809/scan-catalog/internal/core/domain"
)

type CatalogRepository interface {
	// ListProducts returns products joined with their category type; a nil
	// categoryID lists everything
	ListProducts(ctx context.Context, categoryID *int64) ([]domain.Product, error)

	// GetProductByID returns nil, nil when the product does not exist
	GetProductByID(ctx context.Context, id int64) (*domain.Product, error)

	// GetProductByBarcode returns nil, nil when no product carries the barcode
	GetProductByBarcode(ctx context.Context, barcode string) (*domain.Product, error)

	CreateProduct(ctx context.Context, p domain.Product) (int64, error)

	// UpdateProduct writes only the columns present in the update
	UpdateProduct(ctx context.Context, id int64, u domain.ProductUpdate) error

	DeleteProduct(ctx context.Context, id int64) error

	// BarcodeExists reports whether another product (id != excludeID) uses barcode
	BarcodeExists(ctx context.Context, barcode string, excludeID int64) (bool, error)

	ListCategories(ctx context.Context) ([]domain.Category, error)
	GetCategory(ctx context.Context, id int64) (*domain.Category, error)
	GetCategoryByType(ctx context.Context, typ string) (*domain.Category, error)
	CreateCategory(ctx context.Context, typ string) (int64, error)
	UpdateCategory(ctx context.Context, id int64, typ string) error
	DeleteCategory(ctx context.Context, id int64) error
}
