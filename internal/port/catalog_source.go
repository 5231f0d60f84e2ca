package port

import (
	"context"

	"github.com/rl1809/scan-catalog/internal/core/domain"
)

// CatalogSource is where a client-side catalog copy is fetched from: the
// repository on the server, the HTTP API in the kiosk.
type CatalogSource interface {
	FetchProducts(ctx context.Context) ([]domain.Product, error)
	FetchCategories(ctx context.Context) ([]domain.Category, error)
}
