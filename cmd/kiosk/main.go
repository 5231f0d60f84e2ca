package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rl1809/scan-catalog/internal/adapter/client"
	"github.com/rl1809/scan-catalog/internal/config"
	"github.com/rl1809/scan-catalog/internal/core/domain"
	"github.com/rl1809/scan-catalog/internal/core/service"
	"github.com/rl1809/scan-catalog/internal/logging"
	"github.com/rl1809/scan-catalog/internal/scan"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the YAML config file")
	frames := flag.String("frames", "", "Replay image files from this directory instead of the camera")
	loop := flag.Bool("loop", false, "Loop replayed frames")
	flag.Parse()

	logging.Bootstrap()

	cfg, err := config.Load(*configPath)
	if err != nil {
		zap.S().Fatalf("failed to load config: %v", err)
	}
	if *frames != "" {
		cfg.Scan.ImageDir = *frames
	}

	logger, err := logging.Setup(cfg.Logger)
	if err != nil {
		zap.S().Fatalf("failed to set up logging: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	formatter := service.NewPriceFormatter(cfg.Store.Locale, cfg.Store.Currency)
	renderer := newTerminalRenderer(os.Stdout, formatter)
	dispatcher := service.NewDispatcher(formatter, cfg.Store.PaymentQR, renderer)

	catalog := service.NewCatalog(client.NewHTTPSource(cfg.Store.APIURL, cfg.Store.FetchTimeout))
	session := service.NewSession(uuid.NewString(), catalog, cfg.Store.PageSize)

	var k *kiosk
	var camera *scan.Scanner
	if src := frameSource(cfg.Scan, *loop); src != nil {
		camera = scan.NewScanner(src,
			scan.DefaultAdapter(cfg.Scan.FallbackInterval),
			scan.NewGate(cfg.Scan.Debounce),
			cfg.Scan.Interval,
			func(d domain.Detection) { k.onDetect(ctx, d) },
		)
	}
	if camera != nil {
		k = newKiosk(session, dispatcher, renderer, camera)
	} else {
		k = newKiosk(session, dispatcher, renderer, nil)
	}

	zap.S().Infof("kiosk session %s, catalog %s", session.ID, cfg.Store.APIURL)
	k.dispatch(ctx, service.Intent{Kind: service.IntentCatalogRefresh})
	renderer.Message("type help for commands")

	k.run(ctx, os.Stdin)

	if camera != nil {
		camera.Stop()
		camera.Wait()
	}
	zap.S().Info("kiosk stopped")
}

// frameSource picks replayed images over the live camera; nil means manual
// entry only.
func frameSource(cfg config.ScanConfig, loop bool) scan.Source {
	switch {
	case cfg.ImageDir != "":
		return &scan.DirSource{Dir: cfg.ImageDir, Loop: loop}
	case cfg.CameraURL != "" || len(cfg.CameraFallbacks) > 0:
		return &scan.MJPEGSource{URL: cfg.CameraURL, Fallbacks: cfg.CameraFallbacks}
	}
	return nil
}
