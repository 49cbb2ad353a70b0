package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestApplyDefaults_EmptyConfig(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, 8888, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)

	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "stdout", cfg.Logging.Output)

	assert.Equal(t, "./storage", cfg.Storage.StorageDir)
	assert.Equal(t, "./metadata", cfg.Storage.MetadataDir)
	assert.Equal(t, "./logs", cfg.Storage.LogDir)

	assert.Equal(t, 3, cfg.Security.FailureThreshold)
	assert.Equal(t, 600*time.Second, cfg.Security.BlockWindow)
	assert.Equal(t, 300*time.Second, cfg.Security.UploadTimeout)
	assert.EqualValues(t, 100*1024*1024, cfg.Security.MaxUploadSize)
	assert.Equal(t, 128, cfg.Security.MaxClientsTracked)

	assert.False(t, cfg.Metrics.Enabled)

	assert.True(t, cfg.Admin.Enabled)
	assert.Equal(t, 9090, cfg.Admin.Port)
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{Port: 12345},
		Security: SecurityConfig{
			FailureThreshold: 10,
		},
	}
	ApplyDefaults(cfg)

	assert.Equal(t, 12345, cfg.Server.Port)
	assert.Equal(t, 10, cfg.Security.FailureThreshold)
	// Untouched fields still get defaults
	assert.Equal(t, 600*time.Second, cfg.Security.BlockWindow)
}

func TestApplyDefaults_NormalizesLoggingLevelCase(t *testing.T) {
	cfg := &Config{Logging: LoggingConfig{Level: "debug"}}
	ApplyDefaults(cfg)
	assert.Equal(t, "DEBUG", cfg.Logging.Level)
}

func TestGetDefaultConfig_PassesValidation(t *testing.T) {
	cfg := GetDefaultConfig()
	assert.NoError(t, Validate(cfg))
}
