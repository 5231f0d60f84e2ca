package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/scan-catalog/internal/core/domain"
)

const (
	productsKey        = "catalog:products"
	categoriesKey      = "catalog:categories"
	DefaultSnapshotTTL = 5 * time.Minute
)

// RedisAdapter caches JSON snapshots of the product and category lists.
type RedisAdapter struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisAdapter(client *redis.Client, ttl time.Duration) *RedisAdapter {
	if ttl <= 0 {
		ttl = DefaultSnapshotTTL
	}
	return &RedisAdapter{client: client, ttl: ttl}
}

func (r *RedisAdapter) GetProducts(ctx context.Context) ([]domain.Product, bool, error) {
	var products []domain.Product
	ok, err := r.get(ctx, productsKey, &products)
	return products, ok, err
}

func (r *RedisAdapter) SetProducts(ctx context.Context, products []domain.Product) error {
	return r.set(ctx, productsKey, products)
}

func (r *RedisAdapter) GetCategories(ctx context.Context) ([]domain.Category, bool, error) {
	var categories []domain.Category
	ok, err := r.get(ctx, categoriesKey, &categories)
	return categories, ok, err
}

func (r *RedisAdapter) SetCategories(ctx context.Context, categories []domain.Category) error {
	return r.set(ctx, categoriesKey, categories)
}

func (r *RedisAdapter) Invalidate(ctx context.Context) error {
	return r.client.Del(ctx, productsKey, categoriesKey).Err()
}

func (r *RedisAdapter) get(ctx context.Context, key string, dst interface{}) (bool, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (r *RedisAdapter) set(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return r.client.Set(ctx, key, data, r.ttl).Err()
}
