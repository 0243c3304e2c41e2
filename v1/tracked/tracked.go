package tracked

import (
	"sync"

	"github.com/mirkobrombin/go-lockgraph/v1/goid"
	"github.com/mirkobrombin/go-lockgraph/v1/graph"
)

// Mutex instruments one raw mutex with wait/acquire/release bookkeeping on a
// shared Graph. It is a scoped guard, not a shared lock: create one per
// goroutine per critical section and defer Release.
//
// The zero value is not usable; construct with New.
type Mutex struct {
	mu     *sync.Mutex
	graph  *graph.Graph
	locked bool
}

// New returns a guard for mu that reports transitions to g.
func New(mu *sync.Mutex, g *graph.Graph) *Mutex {
	return &Mutex{mu: mu, graph: g}
}

// Lock blocks until the raw mutex is acquired, recording the wait beforehand
// and the acquisition afterwards.
//
// Blocking is genuine: the goroutine parks inside sync.Mutex.Lock, and the
// graph's wait record can outlive the actual grant by the short window before
// the bookkeeping runs. Detection is best-effort.
func (m *Mutex) Lock() {
	tid := goid.ID()
	m.graph.WaitForLock(tid, m.mu)
	m.mu.Lock()
	m.locked = true
	m.graph.StopWaiting(tid, m.mu)
	m.graph.AcquireLock(tid, m.mu)
}

// TryLock attempts a non-blocking acquisition. On success it performs the
// same bookkeeping as Lock and returns true; on failure it withdraws the
// wait record and returns false without ever claiming a hold.
func (m *Mutex) TryLock() bool {
	tid := goid.ID()
	m.graph.WaitForLock(tid, m.mu)
	if m.mu.TryLock() {
		m.locked = true
		m.graph.StopWaiting(tid, m.mu)
		m.graph.AcquireLock(tid, m.mu)
		return true
	}
	m.graph.StopWaiting(tid, m.mu)
	return false
}

// Unlock releases the raw mutex and withdraws the hold record. Calling
// Unlock on a guard that is not holding the lock is a no-op; the raw mutex
// is never double-released.
func (m *Mutex) Unlock() {
	if !m.locked {
		return
	}
	m.graph.ReleaseLock(goid.ID(), m.mu)
	m.mu.Unlock()
	m.locked = false
}

// Release is the deferred safety net: it unlocks if the guard still holds
// the lock and is a no-op otherwise. Deferring Release right after New makes
// every exit path, including panics, leave both the raw mutex and the graph
// in a clean state.
func (m *Mutex) Release() {
	m.Unlock()
}

// Held reports whether this guard currently holds the raw mutex.
func (m *Mutex) Held() bool {
	return m.locked
}
