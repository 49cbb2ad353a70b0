package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/marmos91/filevault/internal/bytesize"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvAuthToken is the environment variable holding the shared client
// authentication token. It is deliberately never read through viper and
// never persisted to the YAML config file — it is a secret, read once at
// process startup exactly like the original server's getenv("FILE_SERVER_AUTH").
const EnvAuthToken = "FILE_SERVER_AUTH"

// DefaultAuthToken is used when FILE_SERVER_AUTH is unset.
const DefaultAuthToken = "os-core-token"

// MaxAuthTokenLen caps the accepted token length, mirroring the original
// server's fixed MAX_TOKEN_LEN buffer.
const MaxAuthTokenLen = 127

// Config represents the file vault server configuration.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (FILEVAULT_*, highest priority)
//  2. Configuration file (YAML)
//  3. Default values (lowest priority)
//
// The --config CLI flag only selects the configuration file; no CLI flag
// sets a configuration value. See Load for when environment variables apply.
//
// FILE_SERVER_AUTH is a separate, deliberate exception: it is never read
// through this struct. See LoadAuthToken.
type Config struct {
	// Server controls the TCP listener the line protocol is served on.
	Server ServerConfig `mapstructure:"server" yaml:"server"`

	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Storage controls where uploaded file content, metadata sidecars, and
	// audit/security logs live on disk.
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`

	// Security controls brute-force tracking and upload limits.
	Security SecurityConfig `mapstructure:"security" yaml:"security"`

	// Metrics contains Prometheus metrics server configuration.
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// Admin contains the liveness/readiness/metrics HTTP surface configuration.
	Admin AdminConfig `mapstructure:"admin" yaml:"admin"`
}

// ServerConfig controls the TCP line-protocol listener.
type ServerConfig struct {
	// Port is the TCP port the file vault listens on.
	// Default: 8888
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`

	// MaxConnections bounds concurrently active client connections.
	// 0 means unlimited.
	MaxConnections int `mapstructure:"max_connections" yaml:"max_connections"`

	// ShutdownTimeout is the maximum time to wait for in-flight connections
	// to finish during a graceful shutdown before they are force-closed.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output.
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format.
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written.
	// Valid values: stdout, stderr, or a file path.
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// StorageConfig controls on-disk layout for file content, metadata
// sidecars, and append-only logs.
type StorageConfig struct {
	// StorageDir holds uploaded file content.
	// Default: ./storage
	StorageDir string `mapstructure:"storage_dir" validate:"required" yaml:"storage_dir"`

	// MetadataDir holds per-file metadata sidecars.
	// Default: ./metadata
	MetadataDir string `mapstructure:"metadata_dir" validate:"required" yaml:"metadata_dir"`

	// LogDir holds audit.log and security.log.
	// Default: ./logs
	LogDir string `mapstructure:"log_dir" validate:"required" yaml:"log_dir"`
}

// SecurityConfig controls brute-force tracking, upload limits, and timeouts.
type SecurityConfig struct {
	// FailureThreshold is the number of consecutive auth failures from a
	// client before it is temporarily blocked.
	// Default: 3
	FailureThreshold int `mapstructure:"failure_threshold" validate:"omitempty,gt=0" yaml:"failure_threshold"`

	// BlockWindow is how long a client stays blocked after crossing
	// FailureThreshold.
	// Default: 600s
	BlockWindow time.Duration `mapstructure:"block_window" yaml:"block_window"`

	// UploadTimeout bounds how long an UPLOAD's data transfer may take,
	// counted from the READY response.
	// Default: 300s
	UploadTimeout time.Duration `mapstructure:"upload_timeout" yaml:"upload_timeout"`

	// MaxUploadSize is the largest file the server accepts.
	// Supports human-readable formats: "100MiB", "1Gi".
	// Default: 100MiB
	MaxUploadSize bytesize.ByteSize `mapstructure:"max_upload_size" yaml:"max_upload_size"`

	// MaxClientsTracked bounds the number of distinct client addresses the
	// brute-force tracker retains state for.
	// Default: 128
	MaxClientsTracked int `mapstructure:"max_clients_tracked" validate:"omitempty,gt=0" yaml:"max_clients_tracked"`
}

// MetricsConfig configures the Prometheus metrics endpoint exposed on the
// admin HTTP surface.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected and served.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// AdminConfig configures the side HTTP surface exposing /health,
// /health/ready, and /metrics. It never participates in the line protocol.
type AdminConfig struct {
	// Enabled controls whether the admin HTTP surface is started at all.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the HTTP port the admin surface listens on.
	// Default: 9090
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`

	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (FILEVAULT_*)
//  2. Configuration file
//  3. Default values
//
// An environment variable overrides only a key that also appears in the
// configuration file. When no configuration file is found, the defaults are
// returned as they are and FILEVAULT_* variables are not read.
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	configFileFound, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	if !configFileFound {
		cfg := GetDefaultConfig()
		return cfg, nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	// ApplyDefaults always enables the admin surface; an admin.enabled
	// setting in the file takes precedence over that default.
	if v.InConfig("admin.enabled") {
		cfg.Admin.Enabled = v.GetBool("admin.enabled")
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration with helpful error messages when an
// explicitly specified config file is missing. Unlike MustLoad in
// control-plane-style services, a missing *default* config file is not an
// error here — the file vault runs happily on defaults alone.
func MustLoad(configPath string) (*Config, error) {
	if configPath != "" {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found: %s", configPath)
		}
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to the specified file path in YAML format.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadAuthToken reads the shared client authentication token directly from
// the environment, bypassing viper entirely so it never ends up in a YAML
// dump or a logged config struct. Falls back to DefaultAuthToken when unset,
// and truncates to MaxAuthTokenLen, matching the original C server's fixed
// auth_token buffer semantics.
func LoadAuthToken() string {
	token := os.Getenv(EnvAuthToken)
	if token == "" {
		return DefaultAuthToken
	}
	if len(token) > MaxAuthTokenLen {
		token = token[:MaxAuthTokenLen]
	}
	return token
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use FILEVAULT_ prefix and underscores.
	// Example: FILEVAULT_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("FILEVAULT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		configDir := getConfigDir()
		v.AddConfigPath(configDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
// Returns (fileFound, error) where fileFound indicates if a config file was found.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}

	return true, nil
}

// configDecodeHooks returns a combined decode hook for all custom types.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		durationDecodeHook(),
	)
}

// byteSizeDecodeHook converts strings and numbers to bytesize.ByteSize so
// config files can use human-readable sizes like "100MiB" or plain numbers.
func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return bytesize.ParseByteSize(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

// durationDecodeHook converts strings to time.Duration so config files can
// use human-readable durations like "30s", "5m", "1h".
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to the
// current directory if the home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "filevault")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "filevault")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists checks if a config file exists at the default location.
func DefaultConfigExists() bool {
	path := GetDefaultConfigPath()
	_, err := os.Stat(path)
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for the CLI).
func GetConfigDir() string {
	return getConfigDir()
}
