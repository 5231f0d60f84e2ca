package port

import (
	"context"

	"github.com/rl1809/scan-catalog/internal/core/domain"
)

type CacheRepository interface {
	// GetProducts returns the cached product snapshot, ok=false on a miss
	GetProducts(ctx context.Context) ([]domain.Product, bool, error)

	SetProducts(ctx context.Context, products []domain.Product) error

	// GetCategories returns the cached category snapshot, ok=false on a miss
	GetCategories(ctx context.Context) ([]domain.Category, bool, error)

	SetCategories(ctx context.Context, categories []domain.Category) error

	// Invalidate drops both snapshots after an admin write
	Invalidate(ctx context.Context) error
}
