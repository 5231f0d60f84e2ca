package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/scan-catalog/internal/adapter/storage"
	"github.com/rl1809/scan-catalog/internal/core/domain"
	"github.com/rl1809/scan-catalog/internal/core/service"
)

const (
	productCount  = 20
	totalScans    = 50
	unitPrice     = 10000
	changeQueue   = 16
	unknownPrefix = "unknown-"
)

func main() {
	ctx := context.Background()
	logger, _ := zap.NewDevelopment()
	zap.ReplaceGlobals(logger)
	defer logger.Sync()

	// Initialize in-memory catalog database
	db, err := storage.Open(ctx, storage.DriverSQLite, ":memory:", storage.PoolConfig{})
	if err != nil {
		zap.S().Fatalf("failed to open sqlite: %v", err)
	}
	defer db.Close()
	if err := storage.Migrate(ctx, db); err != nil {
		zap.S().Fatalf("failed to migrate: %v", err)
	}

	catalogService := service.NewCatalogService(storage.NewSQLAdapter(db), nil, changeQueue)
	defer catalogService.Close()
	go func() {
		for range catalogService.Changes() {
		}
	}()

	for i := 0; i < productCount; i++ {
		_, err := catalogService.CreateProduct(ctx, service.ProductInput{
			Barcode: service.Value(barcode(i)),
			Name:    service.Value("Item " + strconv.Itoa(i)),
			Price:   service.Value(strconv.Itoa(unitPrice)),
		})
		if err != nil {
			zap.S().Fatalf("failed to seed product %d: %v", i, err)
		}
	}

	storefront := service.NewCatalog(catalogService)
	if err := storefront.Load(ctx); err != nil {
		zap.S().Fatalf("failed to load catalog: %v", err)
	}

	sessions := service.NewSessionStore(storefront, service.SessionStoreConfig{})
	dispatcher := service.NewDispatcher(nil, "", nil)
	session := sessions.Create()
	if _, err := dispatcher.Dispatch(ctx, session, service.Intent{Kind: service.IntentModeChanged, Mode: domain.ModeCart}); err != nil {
		zap.S().Fatalf("failed to switch to cart mode: %v", err)
	}

	var addedCount atomic.Int32
	var unknownCount atomic.Int32

	// Every scan i < productCount hits the catalog, the rest are misses.
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalScans; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			code := unknownPrefix + strconv.Itoa(n)
			if n < productCount {
				code = barcode(n)
			}
			_, err := dispatcher.Dispatch(ctx, session, service.Intent{Kind: service.IntentScanDetected, Code: code})
			switch {
			case err == nil:
				addedCount.Add(1)
			case errors.Is(err, service.ErrUnknownProduct):
				unknownCount.Add(1)
			default:
				zap.S().Errorf("scan %s failed: %v", code, err)
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	added := addedCount.Load()
	unknown := unknownCount.Load()
	cart := session.Cart()

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Catalog Size:     %d\n", productCount)
	fmt.Printf("Total Scans:      %d\n", totalScans)
	fmt.Printf("Added:            %d\n", added)
	fmt.Printf("Unknown:          %d\n", unknown)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	if added == productCount && unknown == totalScans-productCount {
		fmt.Printf("PASS: Exactly %d scans added, %d unknown\n", productCount, totalScans-productCount)
	} else {
		fmt.Printf("FAIL: Expected %d added/%d unknown, got %d/%d\n",
			productCount, totalScans-productCount, added, unknown)
	}

	wantTotal := int64(productCount * unitPrice)
	fmt.Printf("Cart Lines: %d, Count: %d, Total: %d\n", cart.Len(), cart.Count(), cart.Total())
	if cart.Len() == productCount && cart.Count() == productCount && cart.Total() == wantTotal {
		fmt.Println("PASS: Cart matches accepted scans")
	} else {
		fmt.Printf("FAIL: Expected %d lines totalling %d\n", productCount, wantTotal)
	}
}

func barcode(i int) string {
	return fmt.Sprintf("89300000%05d", i)
}
