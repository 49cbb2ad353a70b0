package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks a fully-defaulted Config for internal consistency using
// struct tags plus a handful of cross-field checks the tags can't express.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return translateValidationError(err)
	}

	if cfg.Security.FailureThreshold < 1 {
		return fmt.Errorf("security.failure_threshold must be at least 1")
	}
	if cfg.Security.BlockWindow < 0 {
		return fmt.Errorf("security.block_window must not be negative")
	}
	if cfg.Security.MaxUploadSize == 0 {
		return fmt.Errorf("security.max_upload_size must be greater than zero")
	}
	if cfg.Server.Port == cfg.Admin.Port && cfg.Admin.Enabled {
		return fmt.Errorf("server.port and admin.port must differ (both %d)", cfg.Server.Port)
	}
	if cfg.Admin.Enabled && cfg.Metrics.Enabled && cfg.Admin.Port == 0 {
		return fmt.Errorf("admin.port must be set when metrics are enabled")
	}

	return nil
}

// translateValidationError turns validator field errors into a single
// readable message instead of the library's default Go-struct-shaped dump.
func translateValidationError(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q validation", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("%s", strings.Join(msgs, "; "))
}
