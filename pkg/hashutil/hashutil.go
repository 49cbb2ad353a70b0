// Package hashutil computes the streaming content digest used to detect
// tampering between upload and download.
package hashutil

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
)

// ChunkSize is the read buffer size used while streaming a file through the
// hasher. Matches the transfer loop's own 4 KiB chunking.
const ChunkSize = 4096

// HashErrorSentinel is written to the metadata record in place of a digest
// when hashing the just-stored file fails. It can never collide with a real
// SHA-256 hex digest (wrong length, non-hex characters).
const HashErrorSentinel = "HASH_ERROR"

// HashFile opens path and returns the lowercase hex SHA-256 digest of its
// contents, reading in ChunkSize pieces. It fails only on an open or read
// error; it never returns a partial digest.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	return HashReader(f)
}

// HashReader streams r through SHA-256 in ChunkSize pieces and returns the
// lowercase hex digest.
func HashReader(r io.Reader) (string, error) {
	h := sha256.New()
	buf := make([]byte, ChunkSize)

	// Hide any WriterTo on r so the copy goes through buf.
	if _, err := io.CopyBuffer(h, struct{ io.Reader }{r}, buf); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
