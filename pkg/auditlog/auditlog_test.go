package auditlog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAudit_AppendsFormattedLine(t *testing.T) {
	dir := t.TempDir()
	w := New(dir)

	w.Audit("UPLOAD", "alice/note", "SUCCESS", "stored 42 bytes")

	data, err := os.ReadFile(filepath.Join(dir, "audit.log"))
	require.NoError(t, err)
	line := string(data)

	assert.Contains(t, line, "OPERATION=UPLOAD")
	assert.Contains(t, line, "FILE=alice/note")
	assert.Contains(t, line, "STATUS=SUCCESS")
	assert.Contains(t, line, "DETAILS=stored 42 bytes")
	assert.True(t, strings.HasPrefix(line, "["))
	assert.True(t, strings.HasSuffix(line, "\n"))
}

func TestAudit_MissingFileBecomesNA(t *testing.T) {
	dir := t.TempDir()
	w := New(dir)

	w.Audit("LIST", "", "SUCCESS", "3 entries")

	data, err := os.ReadFile(filepath.Join(dir, "audit.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "FILE=N/A")
}

func TestSecurity_AppendsFormattedLine(t *testing.T) {
	dir := t.TempDir()
	w := New(dir)

	w.Security(EventAuthFailure, "10.0.0.5", "", "bad token")

	data, err := os.ReadFile(filepath.Join(dir, "security.log"))
	require.NoError(t, err)
	line := string(data)

	assert.Contains(t, line, "EVENT=AUTH_FAILURE")
	assert.Contains(t, line, "IP=10.0.0.5")
	assert.Contains(t, line, "FILE=N/A")
	assert.Contains(t, line, "DETAILS=bad token")
}

func TestAuditTail_ReturnsEmptyForMissingFile(t *testing.T) {
	dir := t.TempDir()
	w := New(dir)

	out, err := w.AuditTail(1024)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestAuditTail_TruncatesToMaxBytes(t *testing.T) {
	dir := t.TempDir()
	w := New(dir)

	for i := 0; i < 50; i++ {
		w.Audit("LIST", "f", "SUCCESS", "entry")
	}

	full, err := w.AuditTail(-1)
	require.NoError(t, err)

	tail, err := w.AuditTail(100)
	require.NoError(t, err)

	assert.LessOrEqual(t, len(tail), 100)
	assert.Greater(t, len(full), len(tail))
	assert.True(t, strings.HasSuffix(full, tail))
}

func TestSecurityFull_ReturnsEntireFile(t *testing.T) {
	dir := t.TempDir()
	w := New(dir)

	w.Security(EventBlockedClient, "10.0.0.5", "", "too many failures")
	w.Security(EventIntegrityFail, "10.0.0.9", "bob/report", "digest mismatch")

	out, err := w.SecurityFull()
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "EVENT="))
}
