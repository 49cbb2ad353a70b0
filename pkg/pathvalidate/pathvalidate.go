// Package pathvalidate rejects traversal and over-nested client-supplied
// file names and derives the on-disk path they map to.
package pathvalidate

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidFilename is returned for any name that fails validation. The
// caller is responsible for turning it into the wire-protocol
// "Invalid filename" error and an ACCESS_VIOLATION security event.
var ErrInvalidFilename = errors.New("invalid filename")

// Validate checks name against the traversal and nesting rules:
//   - must not contain ".." anywhere
//   - must not begin with a path separator
//   - 0 or 1 separators are accepted ("note" or "alice/note"); 2+ is rejected
//   - for the 1-separator case, neither side may be empty
//
// It returns nil on success. The name itself is not cleaned or normalized;
// callers use it as-is to derive storage and metadata paths.
func Validate(name string) error {
	if name == "" {
		return ErrInvalidFilename
	}
	if strings.Contains(name, "..") {
		return ErrInvalidFilename
	}
	if strings.HasPrefix(name, "/") || strings.HasPrefix(name, "\\") {
		return ErrInvalidFilename
	}

	sep := separatorOf(name)
	if sep == 0 {
		return nil
	}

	segments := strings.FieldsFunc(name, func(r rune) bool { return r == '/' || r == '\\' })
	if sep > 1 || len(segments) != 2 || segments[0] == "" || segments[1] == "" {
		return ErrInvalidFilename
	}

	return nil
}

// separatorOf counts the number of '/' or '\' characters in name.
func separatorOf(name string) int {
	count := 0
	for _, r := range name {
		if r == '/' || r == '\\' {
			count++
		}
	}
	return count
}

// StoragePath returns the absolute on-disk path for name under root,
// verifying the result still resolves inside root. name must already have
// passed Validate.
func StoragePath(root, name string) (string, error) {
	return resolveWithin(root, name)
}

// MetadataPath returns the absolute sidecar path for name under
// metadataRoot, verifying the result resolves inside metadataRoot.
func MetadataPath(metadataRoot, name string) (string, error) {
	return resolveWithin(metadataRoot, name+".meta")
}

func resolveWithin(root, rel string) (string, error) {
	full := filepath.Join(root, filepath.FromSlash(strings.ReplaceAll(rel, "\\", "/")))
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	absFull, err := filepath.Abs(full)
	if err != nil {
		return "", err
	}
	if absFull != absRoot && !strings.HasPrefix(absFull, absRoot+string(filepath.Separator)) {
		return "", ErrInvalidFilename
	}
	return absFull, nil
}

// EnsureUserDir creates the user subdirectory for a user-scoped name with
// owner rwx permissions if it does not already exist. Only UPLOAD calls
// this — every other operation must leave the filesystem untouched on a
// missing directory.
func EnsureUserDir(storageRoot, name string) error {
	if separatorOf(name) == 0 {
		return nil
	}
	full, err := StoragePath(storageRoot, name)
	if err != nil {
		return err
	}
	return os.MkdirAll(filepath.Dir(full), 0700)
}
