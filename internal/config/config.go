package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	HTTPAddr        string        `yaml:"http_addr"`
	GRPCAddr        string        `yaml:"grpc_addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	SessionIdleTTL  time.Duration `yaml:"session_idle_ttl"`
	ReloadWorkers   int           `yaml:"reload_workers"`
}

type DatabaseConfig struct {
	Driver          string        `yaml:"driver"`
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

type RedisConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Addr        string        `yaml:"addr"`
	PoolSize    int           `yaml:"pool_size"`
	SnapshotTTL time.Duration `yaml:"snapshot_ttl"`
}

type AdminConfig struct {
	Token string `yaml:"token"`
}

type ScanConfig struct {
	CameraURL        string        `yaml:"camera_url"`
	CameraFallbacks  []string      `yaml:"camera_fallbacks"`
	ImageDir         string        `yaml:"image_dir"`
	Interval         time.Duration `yaml:"interval"`
	Debounce         time.Duration `yaml:"debounce"`
	FallbackInterval time.Duration `yaml:"fallback_interval"`
}

type StoreConfig struct {
	APIURL       string        `yaml:"api_url"`
	Locale       string        `yaml:"locale"`
	Currency     string        `yaml:"currency"`
	PaymentQR    string        `yaml:"payment_qr"`
	PageSize     int           `yaml:"page_size"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
}

type LoggerConfig struct {
	Mode       string `yaml:"mode"`
	FileEnable bool   `yaml:"file_enable"`
	Filename   string `yaml:"filename"`
}

type AppConfig struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Admin    AdminConfig    `yaml:"admin"`
	Scan     ScanConfig     `yaml:"scan"`
	Store    StoreConfig    `yaml:"store"`
	Logger   LoggerConfig   `yaml:"logger"`
}

func Default() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			HTTPAddr:        ":8080",
			GRPCAddr:        ":50051",
			ShutdownTimeout: 5 * time.Second,
			SessionIdleTTL:  30 * time.Minute,
			ReloadWorkers:   1,
		},
		Database: DatabaseConfig{
			Driver:          "mysql",
			DSN:             "root:root@tcp(localhost:3306)/scancatalog?parseTime=true",
			MaxOpenConns:    50,
			MaxIdleConns:    25,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			Enabled:     true,
			Addr:        "localhost:6379",
			PoolSize:    100,
			SnapshotTTL: 5 * time.Minute,
		},
		Scan: ScanConfig{
			Interval:         300 * time.Millisecond,
			Debounce:         800 * time.Millisecond,
			FallbackInterval: 600 * time.Millisecond,
		},
		Store: StoreConfig{
			APIURL:       "http://localhost:8080",
			Locale:       "vi-VN",
			Currency:     "₫",
			PaymentQR:    "/img/payment-qr.png",
			PageSize:     6,
			FetchTimeout: 10 * time.Second,
		},
		Logger: LoggerConfig{
			Mode:     "development",
			Filename: "logs/scan-catalog.log",
		},
	}
}

// Load reads .env, then the YAML file at path, then environment overrides.
// A missing .env or config file leaves the defaults in place.
func Load(path string) (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		zap.S().Debug("No .env file found. Proceeding with environment variables.")
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			zap.S().Infof("Config file %s not found, using defaults", path)
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *AppConfig) {
	setString(&cfg.Server.HTTPAddr, "HTTP_ADDR")
	setString(&cfg.Server.GRPCAddr, "GRPC_ADDR")
	setString(&cfg.Database.Driver, "DB_DRIVER")
	setString(&cfg.Database.DSN, "MYSQL_DSN")
	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Admin.Token, "ADMIN_TOKEN")
	setString(&cfg.Store.APIURL, "CATALOG_API_URL")
	setString(&cfg.Scan.CameraURL, "CAMERA_URL")
	setString(&cfg.Logger.Mode, "LOG_MODE")
	if v, ok := os.LookupEnv("REDIS_ENABLED"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Redis.Enabled = b
		}
	}
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func (c *AppConfig) Validate() error {
	switch c.Database.Driver {
	case "mysql", "sqlite3":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database dsn is required")
	}
	if c.Store.PageSize <= 0 {
		return errors.New("store page_size must be positive")
	}
	if c.Scan.Interval <= 0 || c.Scan.Debounce <= 0 || c.Scan.FallbackInterval <= 0 {
		return errors.New("scan intervals must be positive")
	}
	return nil
}
