package server

import (
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/marmos91/filevault/internal/logger"
	"github.com/marmos91/filevault/pkg/advisorylock"
	"github.com/marmos91/filevault/pkg/auditlog"
	"github.com/marmos91/filevault/pkg/hashutil"
	"github.com/marmos91/filevault/pkg/metadata"
	"github.com/marmos91/filevault/pkg/pathvalidate"
	"github.com/marmos91/filevault/pkg/protocol"
)

const transferChunkSize = 4096

// handleUpload implements UPLOAD per spec §4.9: validate, acquire the
// table lock, stream the declared size within the configured timeout,
// release the lock, then hash and record metadata outside the critical
// section.
func handleUpload(c *connection, req protocol.Request) {
	name, size, ok := protocol.ParseUpload(req)
	if !ok {
		_ = protocol.WriteError(c.conn, protocol.ErrInvalidCommandFormat(protocol.VerbUpload))
		return
	}
	if err := pathvalidate.Validate(name); err != nil {
		c.rejectAccess(protocol.VerbUpload, name)
		return
	}
	if size < 1 || size > int64(c.server.security.MaxUploadSize) {
		_ = protocol.WriteError(c.conn, protocol.ErrInvalidFileSize)
		c.audit(protocol.VerbUpload, name, false, "invalid size")
		return
	}

	if err := pathvalidate.EnsureUserDir(c.server.storage.StorageDir, name); err != nil {
		_ = protocol.WriteError(c.conn, protocol.ErrCannotCreateUserDir)
		c.audit(protocol.VerbUpload, name, false, "cannot create user directory")
		return
	}

	storagePath, err := pathvalidate.StoragePath(c.server.storage.StorageDir, name)
	if err != nil {
		c.rejectAccess(protocol.VerbUpload, name)
		return
	}

	if !c.server.locks.TryAcquire(name) {
		_ = protocol.WriteError(c.conn, protocol.ErrFileLockedByOther)
		if c.server.metrics != nil {
			c.server.metrics.RecordLockContention()
		}
		c.audit(protocol.VerbUpload, name, false, "lock busy")
		return
	}
	locked := true
	defer func() {
		if locked {
			c.server.locks.Release(name)
		}
	}()

	f, err := os.OpenFile(storagePath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		_ = protocol.WriteError(c.conn, protocol.ErrCannotCreateFile)
		c.audit(protocol.VerbUpload, name, false, "cannot create file")
		return
	}

	if err := protocol.WriteReady(c.conn, "Send file data"); err != nil {
		f.Close()
		os.Remove(storagePath)
		return
	}

	if err := streamUpload(c, f, size); err != nil {
		f.Close()
		os.Remove(storagePath)
		_ = protocol.WriteError(c.conn, err.Error())
		c.audit(protocol.VerbUpload, name, false, err.Error())
		return
	}

	if err := f.Close(); err != nil {
		os.Remove(storagePath)
		_ = protocol.WriteError(c.conn, protocol.ErrWriteError)
		c.audit(protocol.VerbUpload, name, false, "close failed")
		return
	}
	c.server.locks.Release(name)
	locked = false

	digest, err := hashutil.HashFile(storagePath)
	if err != nil {
		digest = hashutil.HashErrorSentinel
		logger.Warn("failed to hash uploaded file", "name", name, "error", err)
	}

	metaPath, err := pathvalidate.MetadataPath(c.server.storage.MetadataDir, name)
	if err == nil {
		if err := metadata.Put(metaPath, name, size, digest); err != nil {
			logger.Warn("failed to write metadata", "name", name, "error", err)
		}
	}

	_ = protocol.WriteSuccess(c.conn, "File uploaded successfully")
	c.audit(protocol.VerbUpload, name, true, fmt.Sprintf("%d bytes", size))
}

// uploadError carries one of the exact wire-protocol error strings
// through the transfer loop's normal error return path.
type uploadError string

func (e uploadError) Error() string { return string(e) }

// streamUpload reads exactly size bytes from the connection and writes
// them to f. Every read carries a deadline derived from the remaining
// timeout budget, so a client that goes silent mid-transfer is unblocked
// and reported as a timeout instead of hanging the goroutine forever.
func streamUpload(c *connection, f *os.File, size int64) error {
	deadline := time.Now().Add(c.server.security.UploadTimeout)
	defer c.conn.SetReadDeadline(time.Time{})
	buf := make([]byte, transferChunkSize)

	var written int64
	for written < size {
		now := time.Now()
		if !now.Before(deadline) {
			return uploadError(protocol.ErrUploadTimeout)
		}
		if err := c.conn.SetReadDeadline(deadline); err != nil {
			return uploadError(protocol.ErrTransferInterrupted)
		}

		remaining := size - written
		chunk := int64(transferChunkSize)
		if remaining < chunk {
			chunk = remaining
		}

		n, err := c.conn.Read(buf[:chunk])
		if n > 0 {
			wn, werr := f.Write(buf[:n])
			if werr != nil || wn != n {
				return uploadError(protocol.ErrWriteError)
			}
			written += int64(n)
		}
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				return uploadError(protocol.ErrUploadTimeout)
			}
			if err == io.EOF && written < size {
				return uploadError(protocol.ErrTransferInterrupted)
			}
			if err != io.EOF {
				return uploadError(protocol.ErrTransferInterrupted)
			}
		}
	}
	return nil
}

// handleDownload implements DOWNLOAD per spec §4.10: verify integrity
// before sending a single byte, using a non-blocking shared fd lock that
// is entirely separate from the mutating lock table.
func handleDownload(c *connection, req protocol.Request) {
	name, ok := protocol.ParseSingleName(req)
	if !ok {
		_ = protocol.WriteError(c.conn, protocol.ErrInvalidCommandFormat(protocol.VerbDownload))
		return
	}
	if err := pathvalidate.Validate(name); err != nil {
		c.rejectAccess(protocol.VerbDownload, name)
		return
	}

	storagePath, err := pathvalidate.StoragePath(c.server.storage.StorageDir, name)
	if err != nil {
		c.rejectAccess(protocol.VerbDownload, name)
		return
	}

	info, err := os.Stat(storagePath)
	if err != nil {
		_ = protocol.WriteError(c.conn, protocol.ErrFileNotFound)
		c.audit(protocol.VerbDownload, name, false, "not found")
		return
	}

	f, err := os.Open(storagePath)
	if err != nil {
		_ = protocol.WriteError(c.conn, protocol.ErrCannotOpenFile)
		c.audit(protocol.VerbDownload, name, false, "cannot open")
		return
	}
	defer f.Close()

	if err := advisorylock.TryShared(f.Fd()); err != nil {
		_ = protocol.WriteError(c.conn, protocol.ErrFileLockedForWrite)
		c.audit(protocol.VerbDownload, name, false, "locked for writing")
		return
	}
	defer advisorylock.Unlock(f.Fd())

	metaPath, _ := pathvalidate.MetadataPath(c.server.storage.MetadataDir, name)
	recordedDigest, _ := metadata.GetDigest(metaPath)

	liveDigest, err := hashutil.HashFile(storagePath)
	if err != nil {
		_ = protocol.WriteError(c.conn, protocol.ErrCannotOpenFile)
		c.audit(protocol.VerbDownload, name, false, "hash failed")
		return
	}

	if recordedDigest != "" && recordedDigest != liveDigest {
		c.server.audit.Security(auditlog.EventIntegrityFail, c.peerIP, name, "digest mismatch")
		_ = protocol.WriteError(c.conn, protocol.ErrIntegrityCheckFail)
		c.audit(protocol.VerbDownload, name, false, "integrity check failed")
		return
	}

	if err := protocol.WriteDownloadHeader(c.conn, info.Size()); err != nil {
		return
	}

	sent, err := io.CopyBuffer(c.conn, io.LimitReader(f, info.Size()), make([]byte, transferChunkSize))
	if err != nil {
		logger.Debug("download transfer interrupted", "name", name, "error", err)
		c.audit(protocol.VerbDownload, name, false, "transfer interrupted")
		return
	}

	c.audit(protocol.VerbDownload, name, true, fmt.Sprintf("%d bytes", sent))
}

// handleDelete implements DELETE per spec §4.11.
func handleDelete(c *connection, req protocol.Request) {
	name, ok := protocol.ParseSingleName(req)
	if !ok {
		_ = protocol.WriteError(c.conn, protocol.ErrInvalidCommandFormat(protocol.VerbDelete))
		return
	}
	if err := pathvalidate.Validate(name); err != nil {
		c.rejectAccess(protocol.VerbDelete, name)
		return
	}

	storagePath, err := pathvalidate.StoragePath(c.server.storage.StorageDir, name)
	if err != nil {
		c.rejectAccess(protocol.VerbDelete, name)
		return
	}

	if _, err := os.Stat(storagePath); err != nil {
		_ = protocol.WriteError(c.conn, protocol.ErrFileNotFound)
		c.audit(protocol.VerbDelete, name, false, "not found")
		return
	}

	f, err := os.OpenFile(storagePath, os.O_RDWR, 0644)
	if err != nil {
		_ = protocol.WriteError(c.conn, protocol.ErrCannotOpenFile)
		c.audit(protocol.VerbDelete, name, false, "cannot open")
		return
	}

	if err := advisorylock.TryExclusive(f.Fd()); err != nil {
		f.Close()
		_ = protocol.WriteError(c.conn, protocol.ErrFileInUse)
		if c.server.metrics != nil {
			c.server.metrics.RecordLockContention()
		}
		c.audit(protocol.VerbDelete, name, false, "locked")
		return
	}

	closeErr := f.Close()
	if closeErr != nil || os.Remove(storagePath) != nil {
		_ = protocol.WriteError(c.conn, protocol.ErrDeleteFailed)
		c.audit(protocol.VerbDelete, name, false, "delete failed")
		return
	}

	if metaPath, err := pathvalidate.MetadataPath(c.server.storage.MetadataDir, name); err == nil {
		_ = os.Remove(metaPath)
	}

	_ = protocol.WriteSuccess(c.conn, "File deleted successfully")
	c.audit(protocol.VerbDelete, name, true, "")
}

// handleList implements LIST per spec §4.12: the storage root, or one
// user subdirectory, non-recursively, skipping dotfiles and symlinks.
func handleList(c *connection, req protocol.Request) {
	user, ok := protocol.ParseList(req)
	if !ok {
		_ = protocol.WriteError(c.conn, protocol.ErrInvalidCommandFormat(protocol.VerbList))
		return
	}
	if user != "" {
		if err := pathvalidate.Validate(user); err != nil {
			c.rejectAccess(protocol.VerbList, user)
			return
		}
	}

	dir := c.server.storage.StorageDir
	prefix := ""
	if user != "" {
		dir = filepath.Join(c.server.storage.StorageDir, user)
		prefix = user + "/"
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		_ = protocol.WriteError(c.conn, protocol.ErrCannotOpenStorage)
		c.audit(protocol.VerbList, user, false, "cannot open storage directory")
		return
	}

	var lines []string
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s%s (%d bytes)", prefix, entry.Name(), info.Size()))
	}
	sort.Strings(lines)

	var body strings.Builder
	body.WriteString("SUCCESS\n")
	if len(lines) == 0 {
		body.WriteString("No files found\n")
	} else {
		for _, line := range lines {
			body.WriteString(line)
			body.WriteByte('\n')
		}
	}
	_, _ = io.WriteString(c.conn, body.String())
	c.audit(protocol.VerbList, user, true, fmt.Sprintf("%d entries", len(lines)))
}

// handleLocks implements LOCKS per spec §4.13: report every name in the
// table lock that this connection itself does not hold. Since the
// connection never holds a lock by the time LOCKS runs, every held name
// qualifies.
func handleLocks(c *connection, req protocol.Request) {
	names := c.server.locks.Snapshot()
	sort.Strings(names)

	var body strings.Builder
	body.WriteString("SUCCESS\n")
	if len(names) == 0 {
		body.WriteString("No locked files\n")
	} else {
		for _, name := range names {
			fmt.Fprintf(&body, "LOCKED: %s (PID: %d)\n", name, os.Getpid())
		}
	}
	_, _ = io.WriteString(c.conn, body.String())
	c.audit(protocol.VerbLocks, "", true, fmt.Sprintf("%d locked", len(names)))
}

// handleLogs implements LOGS per spec §4.14. It is exempt from producing
// its own audit record, to avoid recursing into the log it is reading.
func handleLogs(c *connection, req protocol.Request) {
	auditTail, err := c.server.audit.AuditTail(10 * 1024)
	if err != nil {
		_ = protocol.WriteError(c.conn, protocol.ErrCannotOpenFile)
		return
	}
	if auditTail == "" {
		_ = protocol.WriteSuccess(c.conn, "No logs available")
		return
	}

	securityLog, err := c.server.audit.SecurityFull()
	if err != nil {
		securityLog = ""
	}

	var body strings.Builder
	body.WriteString("SUCCESS\n=== AUDIT LOGS ===\n")
	body.WriteString(auditTail)
	body.WriteString("\n=== SECURITY LOGS ===\n")
	body.WriteString(securityLog)
	_, _ = io.WriteString(c.conn, body.String())
}

// rejectAccess handles the shared "Invalid filename" failure path used by
// every operation's path validation step.
func (c *connection) rejectAccess(op, name string) {
	c.server.audit.Security(auditlog.EventAccessViolation, c.peerIP, name, "path validation failed")
	c.audit(op, name, false, "invalid filename")
	_ = protocol.WriteError(c.conn, protocol.ErrInvalidFilename)
}

// audit writes exactly one audit record for the operation that just ran and
// reports its outcome and latency to the metrics registry, if any.
func (c *connection) audit(op, file string, success bool, details string) {
	status := "FAILED"
	if success {
		status = "SUCCESS"
	}
	c.server.audit.Audit(op, file, status, details)
	if c.server.metrics != nil {
		c.server.metrics.RecordOperation(op, status, time.Since(c.start))
	}
}
