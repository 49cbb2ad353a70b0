package handlers

import (
	"fmt"
	"net/http"
	"os"
)

// HealthHandler handles the admin surface's liveness and readiness endpoints.
//
// These endpoints are unauthenticated and never participate in the line
// protocol — they exist purely so the process can be probed by an
// orchestrator the same way every teacher service exposes one.
type HealthHandler struct {
	storageDir  string
	metadataDir string
	logDir      string
}

// NewHealthHandler creates a health handler that checks the given
// directories for readiness.
func NewHealthHandler(storageDir, metadataDir, logDir string) *HealthHandler {
	return &HealthHandler{
		storageDir:  storageDir,
		metadataDir: metadataDir,
		logDir:      logDir,
	}
}

// Liveness handles GET /health — always 200 as long as the process is
// serving HTTP at all.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthyResponse(map[string]string{
		"service": "filevault",
	}))
}

// Readiness handles GET /health/ready — 200 only once the storage,
// metadata, and log directories all exist and are writable.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	dirs := map[string]string{
		"storage":  h.storageDir,
		"metadata": h.metadataDir,
		"logs":     h.logDir,
	}

	for name, dir := range dirs {
		if err := checkDirWritable(dir); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse(
				fmt.Sprintf("%s directory not ready: %v", name, err)))
			return
		}
	}

	writeJSON(w, http.StatusOK, healthyResponse(dirs))
}

// checkDirWritable verifies dir exists and accepts a file write, by
// creating and removing a throwaway temp file inside it.
func checkDirWritable(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	probe, err := os.CreateTemp(dir, ".health-check-*")
	if err != nil {
		return err
	}
	name := probe.Name()
	_ = probe.Close()
	defer os.Remove(name)

	return nil
}
