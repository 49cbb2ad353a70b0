package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate_DefaultConfigIsValid(t *testing.T) {
	cfg := GetDefaultConfig()
	assert.NoError(t, Validate(cfg))
}

func TestValidate_RejectsInvalidLogLevel(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Level = "VERBOSE"
	assert.Error(t, Validate(cfg))
}

func TestValidate_RejectsInvalidLogFormat(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Format = "xml"
	assert.Error(t, Validate(cfg))
}

func TestValidate_RejectsZeroFailureThreshold(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Security.FailureThreshold = 0
	assert.Error(t, Validate(cfg))
}

func TestValidate_RejectsZeroMaxUploadSize(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Security.MaxUploadSize = 0
	assert.Error(t, Validate(cfg))
}

func TestValidate_RejectsCollidingPorts(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Server.Port = 9090
	cfg.Admin.Port = 9090
	cfg.Admin.Enabled = true
	assert.Error(t, Validate(cfg))
}

func TestValidate_RejectsOutOfRangePort(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Server.Port = 70000
	assert.Error(t, Validate(cfg))
}
