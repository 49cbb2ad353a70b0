package config

import (
	"strings"
	"time"

	"github.com/marmos91/filevault/internal/bytesize"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and
// environment variables to fill in any missing values with sensible
// defaults, grounded on the original server's fixed constants (PORT 8888,
// UPLOAD_TIMEOUT 300, MAX_CLIENT_TRACK 128, FAILURE_THRESHOLD 3,
// BLOCK_SECONDS 600).
func ApplyDefaults(cfg *Config) {
	applyServerDefaults(&cfg.Server)
	applyLoggingDefaults(&cfg.Logging)
	applyStorageDefaults(&cfg.Storage)
	applySecurityDefaults(&cfg.Security)
	applyMetricsDefaults(&cfg.Metrics)
	applyAdminDefaults(&cfg.Admin)
}

// applyServerDefaults sets TCP listener defaults.
func applyServerDefaults(cfg *ServerConfig) {
	if cfg.Port == 0 {
		cfg.Port = 8888
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	// MaxConnections defaults to 0 (unlimited)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyStorageDefaults sets on-disk layout defaults.
func applyStorageDefaults(cfg *StorageConfig) {
	if cfg.StorageDir == "" {
		cfg.StorageDir = "./storage"
	}
	if cfg.MetadataDir == "" {
		cfg.MetadataDir = "./metadata"
	}
	if cfg.LogDir == "" {
		cfg.LogDir = "./logs"
	}
}

// applySecurityDefaults sets brute-force tracking and upload limit defaults.
func applySecurityDefaults(cfg *SecurityConfig) {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.BlockWindow == 0 {
		cfg.BlockWindow = 600 * time.Second
	}
	if cfg.UploadTimeout == 0 {
		cfg.UploadTimeout = 300 * time.Second
	}
	if cfg.MaxUploadSize == 0 {
		cfg.MaxUploadSize = 100 * bytesize.MiB
	}
	if cfg.MaxClientsTracked == 0 {
		cfg.MaxClientsTracked = 128
	}
}

// applyMetricsDefaults sets metrics defaults. Disabled by default, same
// opt-in posture as the teacher's metrics config.
func applyMetricsDefaults(cfg *MetricsConfig) {
	// Enabled defaults to false
}

// applyAdminDefaults sets admin HTTP surface defaults.
func applyAdminDefaults(cfg *AdminConfig) {
	// Admin surface is enabled by default — it is a read-only operability
	// concern, not a feature covered by the Non-goals.
	cfg.Enabled = true

	if cfg.Port == 0 {
		cfg.Port = 9090
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 60 * time.Second
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// Useful for generating sample configuration files, tests, and documentation.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
