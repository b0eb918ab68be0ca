package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestValidateFillsDefaults checks defaults for an empty config.
func TestValidateFillsDefaults(t *testing.T) {
	t.Parallel()

	cfg := new(Config)
	require.NoError(t, Validate(cfg))
	require.Equal(t, ":8080", cfg.HTTPAddress)
	require.Equal(t, defaultEventBuffer, cfg.EventBuffer)
	require.Equal(t, defaultSnapshotTTL, cfg.SnapshotTTL)
	require.NotEmpty(t, cfg.JWTSecret)

	require.Error(t, Validate(nil))
}

// TestValidateRejectsBadValues checks address and log level validation.
func TestValidateRejectsBadValues(t *testing.T) {
	t.Parallel()

	require.Error(t, Validate(&Config{ProviderAddress: "no-port"}))
	require.Error(t, Validate(&Config{LogLevel: "chatty"}))
}

// TestLoadFileAndEnv reads YAML and applies environment overrides on top.
func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "facecheck.yaml")

	contents := []byte("http_addr: 127.0.0.1:9090\nprovider_addr: 127.0.0.1:50051\nsnapshot_ttl: 5m\nlog_level: debug\n")
	require.NoError(t, os.WriteFile(path, contents, 0o600))

	t.Setenv("REDIS_ADDR", "127.0.0.1:6380")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:9090", cfg.HTTPAddress)
	require.Equal(t, "127.0.0.1:50051", cfg.ProviderAddress)
	require.Equal(t, "127.0.0.1:6380", cfg.RedisAddress)
	require.Equal(t, 5*time.Minute, cfg.SnapshotTTL)
	require.Equal(t, "debug", cfg.LogLevel)
}

// TestLoadMissingExplicitFile fails only when the path was given explicitly.
func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
