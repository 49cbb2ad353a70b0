package metadata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutThenGetDigest_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "note.meta")

	require.NoError(t, Put(path, "note", 5, "abc123"))

	digest, err := GetDigest(path)
	require.NoError(t, err)
	assert.Equal(t, "abc123", digest)
}

func TestPut_OverwritesPriorRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "note.meta")

	require.NoError(t, Put(path, "note", 5, "first"))
	require.NoError(t, Put(path, "note", 9, "second"))

	rec, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, "second", rec.SHA256)
	assert.EqualValues(t, 9, rec.Size)
}

func TestGetDigest_MissingSidecarReturnsEmpty(t *testing.T) {
	digest, err := GetDigest(filepath.Join(t.TempDir(), "absent.meta"))
	require.NoError(t, err)
	assert.Empty(t, digest)
}

func TestGetDigest_MissingSHA256LineReturnsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.meta")
	require.NoError(t, os.WriteFile(path, []byte("Filename: note\nSize: 5\n"), 0644))

	digest, err := GetDigest(path)
	require.NoError(t, err)
	assert.Empty(t, digest)
}

func TestRead_ParsesAllFourFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "note.meta")
	require.NoError(t, Put(path, "note", 42, "deadbeef"))

	rec, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, "note", rec.Filename)
	assert.EqualValues(t, 42, rec.Size)
	assert.Equal(t, "deadbeef", rec.SHA256)
	assert.False(t, rec.UploadTime.IsZero())
}
