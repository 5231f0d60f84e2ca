package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rl1809/scan-catalog/internal/config"
)

func TestSetup_WritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	logger, err := Setup(config.LoggerConfig{Mode: "production", FileEnable: true, Filename: path})
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	defer zap.ReplaceGlobals(zap.NewNop())

	zap.S().Infof("catalog loaded: %d products", 3)
	logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"catalog loaded: 3 products"`) {
		t.Errorf("expected JSON record in log file, got %s", data)
	}
}

func TestSetup_Console(t *testing.T) {
	logger, err := Setup(config.LoggerConfig{Mode: "development"})
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	defer zap.ReplaceGlobals(zap.NewNop())

	if zap.L() != logger {
		t.Error("expected global logger replaced")
	}
}

func TestBootstrap_ReportsConfigErrors(t *testing.T) {
	t.Setenv("DB_DRIVER", "")
	var buf bytes.Buffer
	bootstrap(zapcore.AddSync(&buf))
	defer zap.ReplaceGlobals(zap.NewNop())

	_, err := config.Load(writeBadConfig(t))
	if err == nil {
		t.Fatal("expected config error")
	}
	zap.S().Errorf("failed to load config: %v", err)

	if !strings.Contains(buf.String(), `unsupported database driver "postgres"`) {
		t.Errorf("expected the config error on the bootstrap logger, got %q", buf.String())
	}
}

func TestBootstrap_ReplacesGlobal(t *testing.T) {
	logger := Bootstrap()
	defer zap.ReplaceGlobals(zap.NewNop())

	if zap.L() != logger {
		t.Error("expected bootstrap logger installed globally")
	}
}

func writeBadConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("database:\n  driver: postgres\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
