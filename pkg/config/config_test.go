package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_NoConfigFile_ReturnsDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "does-not-exist.yaml")

	cfg, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, 8888, cfg.Server.Port)
	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.True(t, cfg.Admin.Enabled)
}

func TestLoad_PartialConfig_FillsDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `
server:
  port: 9999

logging:
  level: debug

security:
  max_upload_size: 50MiB
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "DEBUG", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format) // default filled in
	assert.EqualValues(t, 50*1024*1024, cfg.Security.MaxUploadSize)
	assert.Equal(t, 3, cfg.Security.FailureThreshold) // default filled in
	assert.Equal(t, "./storage", cfg.Storage.StorageDir)
}

func TestMustLoad_MissingExplicitFile(t *testing.T) {
	_, err := MustLoad("/nonexistent/path/config.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nested", "config.yaml")

	original := GetDefaultConfig()
	original.Server.Port = 7777

	require.NoError(t, SaveConfig(original, configPath))

	loaded, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, 7777, loaded.Server.Port)
}

func TestLoadAuthToken_DefaultsWhenUnset(t *testing.T) {
	old, had := os.LookupEnv(EnvAuthToken)
	require.NoError(t, os.Unsetenv(EnvAuthToken))
	defer func() {
		if had {
			_ = os.Setenv(EnvAuthToken, old)
		}
	}()

	assert.Equal(t, DefaultAuthToken, LoadAuthToken())
}

func TestLoadAuthToken_TruncatesOverlongValue(t *testing.T) {
	old, had := os.LookupEnv(EnvAuthToken)
	long := make([]byte, MaxAuthTokenLen+50)
	for i := range long {
		long[i] = 'a'
	}
	require.NoError(t, os.Setenv(EnvAuthToken, string(long)))
	defer func() {
		if had {
			_ = os.Setenv(EnvAuthToken, old)
		} else {
			_ = os.Unsetenv(EnvAuthToken)
		}
	}()

	token := LoadAuthToken()
	assert.Len(t, token, MaxAuthTokenLen)
}

func TestLoadAuthToken_RespectsEnvOverride(t *testing.T) {
	old, had := os.LookupEnv(EnvAuthToken)
	require.NoError(t, os.Setenv(EnvAuthToken, "custom-token"))
	defer func() {
		if had {
			_ = os.Setenv(EnvAuthToken, old)
		} else {
			_ = os.Unsetenv(EnvAuthToken)
		}
	}()

	assert.Equal(t, "custom-token", LoadAuthToken())
}
