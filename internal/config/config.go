package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/example/facecheck/internal/logging"
)

// Config holds the settings of the facecheck server.
type Config struct {
	// HTTPAddress is the listen address of the HTTP API.
	HTTPAddress string `yaml:"http_addr"`
	// ProviderAddress is the gRPC address of the face service.
	ProviderAddress string `yaml:"provider_addr"`
	// DatabaseDSN is the postgres DSN of the comparison audit store.
	DatabaseDSN string `yaml:"database_dsn"`
	// RedisAddress is the address of the snapshot cache.
	RedisAddress string `yaml:"redis_addr"`
	// JWTSecret is the HMAC key for bearer tokens.
	JWTSecret string `yaml:"jwt_secret"`
	// JWTAudience is the required token audience. Empty disables the check.
	JWTAudience string `yaml:"jwt_audience"`
	// LogLevel is a zap level name.
	LogLevel string `yaml:"log_level"`
	// EventBuffer is the per-session event channel capacity.
	EventBuffer int `yaml:"event_buffer"`
	// SnapshotTTL is how long session snapshots stay in the cache.
	SnapshotTTL time.Duration `yaml:"snapshot_ttl"`
	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

const (
	// DefaultConfigFilename is the default settings file. It is optional.
	DefaultConfigFilename = "facecheck.yaml"

	defaultHTTPAddress     = ":8080"
	defaultProviderAddress = "face-service:50051"
	defaultDatabaseDSN     = "host=postgres user=postgres password=postgres dbname=facecheck port=5432 sslmode=disable"
	defaultRedisAddress    = "redis:6379"
	defaultJWTSecret       = "dev-secret"
	defaultEventBuffer     = 16
	defaultSnapshotTTL     = 30 * time.Minute
	defaultShutdownTimeout = 15 * time.Second
)

var errConfigIsNotSet = errors.New("configuration is not set")

// Load reads settings from path, applies environment overrides and validates them.
// A missing file at the default path is not an error.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFilename
	}

	var cfg Config

	contents, err := os.ReadFile(filepath.Clean(path))
	switch {
	case err == nil:
		if err := yaml.Unmarshal(contents, &cfg); err != nil {
			return nil, fmt.Errorf("unmarshal settings: %w", err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("read settings: %w", err)
	}

	applyEnv(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate fills defaults and checks the provided settings.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.HTTPAddress == "" {
		cfg.HTTPAddress = defaultHTTPAddress
	}

	if cfg.ProviderAddress == "" {
		cfg.ProviderAddress = defaultProviderAddress
	}

	if cfg.DatabaseDSN == "" {
		cfg.DatabaseDSN = defaultDatabaseDSN
	}

	if cfg.RedisAddress == "" {
		cfg.RedisAddress = defaultRedisAddress
	}

	if cfg.JWTSecret == "" {
		cfg.JWTSecret = defaultJWTSecret
	}

	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = defaultEventBuffer
	}

	if cfg.SnapshotTTL <= 0 {
		cfg.SnapshotTTL = defaultSnapshotTTL
	}

	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	for name, addr := range map[string]string{
		"http_addr":     cfg.HTTPAddress,
		"provider_addr": cfg.ProviderAddress,
		"redis_addr":    cfg.RedisAddress,
	} {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, addr, err)
		}
	}

	if _, err := logging.ParseLevel(cfg.LogLevel); err != nil {
		return err
	}

	return nil
}

func applyEnv(cfg *Config) {
	override(&cfg.HTTPAddress, "HTTP_ADDR")
	override(&cfg.ProviderAddress, "FACE_PROVIDER_ADDR")
	override(&cfg.DatabaseDSN, "DATABASE_DSN")
	override(&cfg.RedisAddress, "REDIS_ADDR")
	override(&cfg.JWTSecret, "JWT_SECRET")
	override(&cfg.JWTAudience, "JWT_AUDIENCE")
	override(&cfg.LogLevel, "LOG_LEVEL")
}

func override(field *string, key string) {
	if value := os.Getenv(key); value != "" {
		*field = value
	}
}
