// Package security tracks per-IP authentication failures and enforces the
// temporary block imposed after repeated bad AUTH attempts.
package security

import (
	"sync"
	"time"
)

// clientState holds one tracked client's failure count and, once blocked,
// the time at which the block lifts.
type clientState struct {
	failures     int
	blockedUntil time.Time
	lastSeen     time.Time
}

// Tracker is a capacity-bounded, concurrency-safe map of client IP to
// failure state. Capacity is bounded at maxClients; when full, the
// least-recently-seen client that is not currently blocked is evicted to
// make room. If every tracked client is currently blocked, a new IP is
// simply not tracked until one unblocks.
type Tracker struct {
	mu               sync.Mutex
	clients          map[string]*clientState
	failureThreshold int
	blockWindow      time.Duration
	maxClients       int
	now              func() time.Time
}

// New returns a Tracker that blocks a client after failureThreshold
// consecutive AUTH failures for blockWindow, tracking at most maxClients
// distinct IPs at a time.
func New(failureThreshold int, blockWindow time.Duration, maxClients int) *Tracker {
	return &Tracker{
		clients:          make(map[string]*clientState),
		failureThreshold: failureThreshold,
		blockWindow:      blockWindow,
		maxClients:       maxClients,
		now:              time.Now,
	}
}

// IsBlocked reports whether ip is currently within its block window.
func (t *Tracker) IsBlocked(ip string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	cs, ok := t.clients[ip]
	if !ok {
		return false
	}
	cs.lastSeen = t.now()
	return t.now().Before(cs.blockedUntil)
}

// RecordFailure records one AUTH failure for ip and reports whether this
// failure just pushed the client over the threshold into a fresh block.
func (t *Tracker) RecordFailure(ip string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	cs, ok := t.clients[ip]
	if !ok {
		if !t.makeRoom() {
			// Every tracked slot is blocked; the new client can't be
			// tracked, so its failure silently isn't counted. The next
			// AUTH from this IP goes through the same ungated path.
			return false
		}
		cs = &clientState{}
		t.clients[ip] = cs
	}

	cs.lastSeen = t.now()
	cs.failures++
	if cs.failures >= t.failureThreshold && t.now().After(cs.blockedUntil) {
		cs.blockedUntil = t.now().Add(t.blockWindow)
		return true
	}
	return false
}

// RecordSuccess clears ip's failure count and any active block.
func (t *Tracker) RecordSuccess(ip string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	cs, ok := t.clients[ip]
	if !ok {
		return
	}
	cs.failures = 0
	cs.blockedUntil = time.Time{}
	cs.lastSeen = t.now()
}

// makeRoom ensures there is space for a new client, evicting the
// least-recently-seen unblocked client if the tracker is at capacity. It
// returns false if the tracker is full and every client is blocked.
func (t *Tracker) makeRoom() bool {
	if len(t.clients) < t.maxClients {
		return true
	}

	var evictIP string
	var oldest time.Time
	for ip, cs := range t.clients {
		if t.now().Before(cs.blockedUntil) {
			continue
		}
		if evictIP == "" || cs.lastSeen.Before(oldest) {
			evictIP = ip
			oldest = cs.lastSeen
		}
	}
	if evictIP == "" {
		return false
	}
	delete(t.clients, evictIP)
	return true
}
