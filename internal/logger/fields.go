package logger

import (
	"log/slog"
)

// Standard field keys for structured logging. Use these keys consistently
// across all log statements so aggregation and querying stay uniform.
const (
	// Tracing / correlation
	KeyTraceID      = "trace_id"
	KeyConnectionID = "connection_id"

	// Protocol & operation
	KeyOperation = "operation" // command verb: UPLOAD, DOWNLOAD, LIST, DELETE, LOCKS, LOGS
	KeyStatus    = "status"    // SUCCESS, FAILED, READY, ERROR
	KeyStatusMsg = "status_msg"

	// File identity
	KeyFile = "file"
	KeySize = "size"
	KeyHash = "hash"

	// Client identity
	KeyClientIP = "client_ip"

	// Timing
	KeyDurationMs = "duration_ms"

	// Errors
	KeyError = "error"

	// Security
	KeyFailures = "failures"
	KeyEvent    = "security_event"
)

// TraceID returns a slog attribute for the connection's correlation id.
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// ConnectionID returns a slog attribute identifying the connection.
func ConnectionID(id string) slog.Attr {
	return slog.String(KeyConnectionID, id)
}

// Operation returns a slog attribute for the dispatched command verb.
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// Status returns a slog attribute for the outcome of an operation.
func Status(s string) slog.Attr {
	return slog.String(KeyStatus, s)
}

// StatusMsg returns a slog attribute carrying a human-readable status message.
func StatusMsg(msg string) slog.Attr {
	return slog.String(KeyStatusMsg, msg)
}

// File returns a slog attribute for the file name an operation targets.
func File(name string) slog.Attr {
	return slog.String(KeyFile, name)
}

// Size returns a slog attribute for a byte count.
func Size(n int64) slog.Attr {
	return slog.Int64(KeySize, n)
}

// Hash returns a slog attribute for a content digest.
func Hash(hex string) slog.Attr {
	return slog.String(KeyHash, hex)
}

// ClientIP returns a slog attribute for the peer address.
func ClientIP(addr string) slog.Attr {
	return slog.String(KeyClientIP, addr)
}

// DurationMs returns a slog attribute for an operation's duration in milliseconds.
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog attribute wrapping an error value.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}

// Failures returns a slog attribute for a client's consecutive failure count.
func Failures(n int) slog.Attr {
	return slog.Int(KeyFailures, n)
}

// SecurityEvent returns a slog attribute naming a security event kind.
func SecurityEvent(kind string) slog.Attr {
	return slog.String(KeyEvent, kind)
}
