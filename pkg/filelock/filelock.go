// Package filelock implements the in-process table of file names currently
// being written, used to serialize concurrent UPLOAD/DELETE access to the
// same name without ever blocking a goroutine.
package filelock

import "sync"

// Table is a non-blocking mutual-exclusion set keyed by file name. Unlike a
// per-file sync.Mutex, TryAcquire never waits: a name that is already held
// fails fast so the caller can report "File is locked by another process"
// and move on. The table grows and shrinks with the names currently in use,
// rather than a fixed-size slot array.
type Table struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// New returns an empty lock table.
func New() *Table {
	return &Table{held: make(map[string]struct{})}
}

// TryAcquire claims name for the caller and returns true, or returns false
// immediately if another caller already holds it.
func (t *Table) TryAcquire(name string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, busy := t.held[name]; busy {
		return false
	}
	t.held[name] = struct{}{}
	return true
}

// Release frees name. Releasing a name that isn't held is a no-op.
func (t *Table) Release(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.held, name)
}

// Held reports whether name is currently locked. Intended for the LOCKS
// operation's listing, not for making acquire decisions.
func (t *Table) Held(name string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, busy := t.held[name]
	return busy
}

// Snapshot returns the names currently locked, for the LOCKS operation.
func (t *Table) Snapshot() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	names := make([]string, 0, len(t.held))
	for name := range t.held {
		names = append(names, name)
	}
	return names
}
