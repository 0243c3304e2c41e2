package hierarchy

import (
	"fmt"
	"math"
	"sync"

	"github.com/mirkobrombin/go-lockgraph/v1/errors"
	"github.com/mirkobrombin/go-lockgraph/v1/goid"
)

// unlocked is the level reported for a goroutine holding no hierarchical
// lock; every real level compares strictly below it.
const unlocked = math.MaxUint64

// The per-goroutine current level. Go has no thread-local storage, so the
// package keeps one cell per goroutine in a registry keyed by goroutine ID;
// entries are dropped as soon as a goroutine is back at the sentinel.
var (
	regMu  sync.Mutex
	levels = make(map[int64]uint64)
)

func currentLevel(tid int64) uint64 {
	regMu.Lock()
	defer regMu.Unlock()
	if l, ok := levels[tid]; ok {
		return l
	}
	return unlocked
}

func setLevel(tid int64, level uint64) {
	regMu.Lock()
	defer regMu.Unlock()
	if level == unlocked {
		delete(levels, tid)
		return
	}
	levels[tid] = level
}

// CurrentLevel returns the level of the most recently entered hierarchical
// lock on the calling goroutine, or math.MaxUint64 if it holds none.
func CurrentLevel() uint64 {
	return currentLevel(goid.ID())
}

// Mutex is an exclusive lock with a fixed hierarchy level. A goroutine may
// only acquire a Mutex whose level is strictly below the level it most
// recently entered; larger levels therefore must be locked first.
//
// Lock and Unlock must be called on the same goroutine, and lock/unlock
// pairs must nest strictly; Unlock restores the level that was current when
// the matching Lock succeeded.
type Mutex struct {
	mu    sync.Mutex
	level uint64
	prev  uint64 // level to restore on Unlock; written only while held
}

// New returns a Mutex fixed at the given hierarchy level.
func New(level uint64) *Mutex {
	return &Mutex{level: level}
}

// Level returns the hierarchy level fixed at construction.
func (m *Mutex) Level() uint64 {
	return m.level
}

// Lock acquires the mutex, blocking on contention. If the calling
// goroutine's current level is not strictly greater than this mutex's level
// the call fails with errors.ErrHierarchyViolation before the raw lock is
// touched; the caller can recover and retry in the correct order.
func (m *Mutex) Lock() error {
	tid := goid.ID()
	cur := currentLevel(tid)
	if cur <= m.level {
		return violation(m.level, cur)
	}
	m.mu.Lock()
	m.prev = cur
	setLevel(tid, m.level)
	return nil
}

// TryLock attempts a non-blocking acquisition. An ordering violation yields
// (false, errors.ErrHierarchyViolation); plain contention yields
// (false, nil). Neither failure has side effects.
func (m *Mutex) TryLock() (bool, error) {
	tid := goid.ID()
	cur := currentLevel(tid)
	if cur <= m.level {
		return false, violation(m.level, cur)
	}
	if !m.mu.TryLock() {
		return false, nil
	}
	m.prev = cur
	setLevel(tid, m.level)
	return true, nil
}

// Unlock releases the mutex and restores the goroutine's level to the value
// current before the matching Lock.
func (m *Mutex) Unlock() {
	tid := goid.ID()
	prev := m.prev
	m.mu.Unlock()
	setLevel(tid, prev)
}

func violation(want, cur uint64) error {
	if cur == unlocked {
		// Only reachable for a mutex constructed at the sentinel level.
		return fmt.Errorf("%w: acquiring level %d", errors.ErrHierarchyViolation, want)
	}
	return fmt.Errorf("%w: acquiring level %d while at level %d", errors.ErrHierarchyViolation, want, cur)
}
