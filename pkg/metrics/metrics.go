// Package metrics defines the observability surface the file vault server
// reports through, independent of any particular metrics backend.
package metrics

import "time"

// Registry records server metrics: connection lifecycle, per-operation
// outcomes, lock contention, and brute-force blocking.
//
// Every concrete implementation must make all methods safe to call on a nil
// receiver, so a nil pointer of the implementing type works as a disabled
// registry. A Registry interface value that is itself nil has no methods to
// call; the server checks for that case before each call.
type Registry interface {
	// RecordConnectionAccepted increments the total accepted connections counter.
	RecordConnectionAccepted()

	// RecordConnectionClosed increments the total closed connections counter.
	RecordConnectionClosed()

	// SetActiveConnections updates the current connection gauge.
	SetActiveConnections(count int32)

	// RecordOperation records a completed command dispatch: its verb
	// (UPLOAD, DOWNLOAD, LIST, DELETE, LOCKS, LOGS), its outcome (SUCCESS,
	// FAILED), and how long it took.
	RecordOperation(op string, status string, duration time.Duration)

	// RecordLockContention increments the counter of try_acquire calls that
	// found the file already locked.
	RecordLockContention()

	// RecordBlockedClient increments the counter of commands rejected
	// because the client is within its brute-force block window.
	RecordBlockedClient()
}
