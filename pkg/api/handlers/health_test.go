package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLiveness_AlwaysReturnsHealthy(t *testing.T) {
	handler := NewHealthHandler("/nonexistent", "/nonexistent", "/nonexistent")
	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	handler.Liveness(w, req)

	assert.Equal(t, 200, w.Code)

	var resp response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "healthy", resp.Status)
}

func TestReadiness_AllDirsWritable_ReturnsHealthy(t *testing.T) {
	storage := t.TempDir()
	metadata := t.TempDir()
	logs := t.TempDir()

	handler := NewHealthHandler(storage, metadata, logs)
	req := httptest.NewRequest("GET", "/health/ready", nil)
	w := httptest.NewRecorder()

	handler.Readiness(w, req)

	assert.Equal(t, 200, w.Code)

	var resp response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "healthy", resp.Status)
}

func TestReadiness_MissingDir_ReturnsUnavailable(t *testing.T) {
	storage := t.TempDir()
	missing := filepath.Join(storage, "does-not-exist")

	handler := NewHealthHandler(storage, missing, storage)
	req := httptest.NewRequest("GET", "/health/ready", nil)
	w := httptest.NewRecorder()

	handler.Readiness(w, req)

	assert.Equal(t, 503, w.Code)

	var resp response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "unhealthy", resp.Status)
	assert.Contains(t, resp.Error, "metadata")
}

func TestReadiness_UnwritableDir_ReturnsUnavailable(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("permission checks don't apply when running as root")
	}

	storage := t.TempDir()
	readOnly := t.TempDir()
	require.NoError(t, os.Chmod(readOnly, 0500))
	defer os.Chmod(readOnly, 0700)

	handler := NewHealthHandler(readOnly, storage, storage)
	req := httptest.NewRequest("GET", "/health/ready", nil)
	w := httptest.NewRecorder()

	handler.Readiness(w, req)

	assert.Equal(t, 503, w.Code)
}
