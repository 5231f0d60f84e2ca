package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/rl1809/scan-catalog/internal/adapter/handler"
	"github.com/rl1809/scan-catalog/internal/adapter/storage"
	"github.com/rl1809/scan-catalog/internal/config"
	"github.com/rl1809/scan-catalog/internal/core/service"
	"github.com/rl1809/scan-catalog/internal/logging"
	"github.com/rl1809/scan-catalog/internal/port"
	"github.com/rl1809/scan-catalog/internal/scan"
)

const (
	changeQueueSize = 64
	sweepInterval   = time.Minute
	reloadTimeout   = 10 * time.Second
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the YAML config file")
	flag.Parse()

	logging.Bootstrap()

	cfg, err := config.Load(*configPath)
	if err != nil {
		zap.S().Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.Setup(cfg.Logger)
	if err != nil {
		zap.S().Fatalf("failed to set up logging: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database
	db, err := storage.Open(ctx, cfg.Database.Driver, cfg.Database.DSN, storage.PoolConfig{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		zap.S().Fatalf("failed to connect %s: %v", cfg.Database.Driver, err)
	}
	if err := storage.Migrate(ctx, db); err != nil {
		zap.S().Fatalf("failed to migrate: %v", err)
	}
	zap.S().Infof("connected to %s", cfg.Database.Driver)

	// Initialize Redis snapshot cache, optional
	var rdb *redis.Client
	var cache port.CacheRepository
	if cfg.Redis.Enabled {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			zap.S().Warnf("redis unavailable, serving without cache: %v", err)
			rdb.Close()
			rdb = nil
		} else {
			cache = storage.NewRedisAdapter(rdb, cfg.Redis.SnapshotTTL)
			zap.S().Info("connected to redis")
		}
	}

	// Initialize services
	catalogService := service.NewCatalogService(storage.NewSQLAdapter(db), cache, changeQueueSize)
	storefront := service.NewCatalog(catalogService)
	if err := storefront.Load(ctx); err != nil {
		zap.S().Warnf("initial catalog load failed: %v", err)
	}
	zap.S().Infof("loaded %d products", storefront.Len())

	sessions := service.NewSessionStore(storefront, service.SessionStoreConfig{
		PageSize: cfg.Store.PageSize,
		IdleTTL:  cfg.Server.SessionIdleTTL,
		NewDecoder: func() service.FrameDecoder {
			return scan.NewPipeline(scan.DefaultAdapter(cfg.Scan.FallbackInterval), scan.NewGate(cfg.Scan.Debounce))
		},
	})
	go sessions.Run(ctx, sweepInterval)

	dispatcher := service.NewDispatcher(
		service.NewPriceFormatter(cfg.Store.Locale, cfg.Store.Currency),
		cfg.Store.PaymentQR,
		nil,
	)

	// Start reload workers
	var wg sync.WaitGroup
	for i := 0; i < cfg.Server.ReloadWorkers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			reloadLoop(id, catalogService.Changes(), storefront)
		}(i)
	}
	zap.S().Infof("started %d reload workers", cfg.Server.ReloadWorkers)

	// Initialize gRPC server
	grpcServer := grpc.NewServer()
	handler.RegisterCatalogServer(grpcServer, handler.NewGRPCHandler(catalogService))

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		zap.S().Fatalf("failed to listen: %v", err)
	}

	go func() {
		zap.S().Infof("gRPC server listening on %s", cfg.Server.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			zap.S().Errorf("gRPC server error: %v", err)
		}
	}()

	// Initialize HTTP server
	if cfg.Admin.Token == "" {
		zap.S().Warn("ADMIN_TOKEN is not set, admin writes are disabled")
	}
	httpHandler := handler.NewHTTPHandler(catalogService, storefront, sessions, dispatcher, cfg.Admin.Token)

	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           httpHandler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zap.S().Infof("HTTP server listening on %s", cfg.Server.HTTPAddr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			zap.S().Errorf("HTTP server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zap.S().Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	zap.S().Info("HTTP server stopped")

	grpcServer.GracefulStop()
	zap.S().Info("gRPC server stopped")

	// Close change queue and wait for workers
	cancel()
	catalogService.Close()
	wg.Wait()
	zap.S().Info("workers stopped")

	closeConnections(db, rdb)
	zap.S().Info("connections closed")
}

// reloadLoop refreshes the storefront catalog after each admin write. Events
// queued while a reload runs are collapsed into the next one.
func reloadLoop(id int, changes <-chan service.ChangeEvent, catalog *service.Catalog) {
	for ev := range changes {
		drained := drain(changes)

		ctx, cancel := context.WithTimeout(context.Background(), reloadTimeout)
		if err := catalog.Load(ctx); err != nil {
			zap.S().Errorf("worker %d: reload after %s %d failed: %v", id, ev.Kind, ev.ID, err)
		} else {
			zap.S().Infof("worker %d: reloaded %d products after %s %d (+%d queued)", id, catalog.Len(), ev.Kind, ev.ID, drained)
		}
		cancel()
	}
}

func drain(changes <-chan service.ChangeEvent) int {
	n := 0
	for {
		select {
		case _, ok := <-changes:
			if !ok {
				return n
			}
			n++
		default:
			return n
		}
	}
}

func closeConnections(db *sqlx.DB, rdb *redis.Client) {
	if rdb != nil {
		rdb.Close()
	}
	db.Close()
}
