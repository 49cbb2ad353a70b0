// Package metadata reads and writes the four-line sidecar record stored
// alongside each uploaded file, used to detect tampering on download.
package metadata

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Record is the parsed form of a sidecar file.
type Record struct {
	Filename   string
	Size       int64
	UploadTime time.Time
	SHA256     string
}

// Put truncate-writes the sidecar at path with name, size, the current wall
// clock time, and digest. A pre-existing sidecar is fully overwritten, never
// merged — each upload replaces the prior record entirely.
func Put(path, name string, size int64, digest string) error {
	body := fmt.Sprintf(
		"Filename: %s\nSize: %d\nUploadTime: %s\nSHA256: %s\n",
		name, size, time.Now().Format("2006-01-02 15:04:05"), digest,
	)
	return os.WriteFile(path, []byte(body), 0644)
}

// GetDigest reads the SHA256 line out of the sidecar at path. It returns an
// empty string, rather than an error, when the sidecar is missing or has no
// SHA256 line — callers treat both cases as "no digest on record".
func GetDigest(path string) (string, error) {
	rec, err := read(path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return rec.SHA256, nil
}

// Read parses the full sidecar at path.
func Read(path string) (Record, error) {
	return read(path)
}

func read(path string) (Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return Record{}, err
	}
	defer f.Close()

	var rec Record
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		label, value, ok := strings.Cut(line, ": ")
		if !ok {
			continue
		}
		switch label {
		case "Filename":
			rec.Filename = value
		case "Size":
			if n, err := strconv.ParseInt(value, 10, 64); err == nil {
				rec.Size = n
			}
		case "UploadTime":
			if ts, err := time.ParseInLocation("2006-01-02 15:04:05", value, time.Local); err == nil {
				rec.UploadTime = ts
			}
		case "SHA256":
			rec.SHA256 = value
		}
	}
	if err := scanner.Err(); err != nil {
		return Record{}, err
	}
	return rec, nil
}
