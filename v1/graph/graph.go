package graph

import (
	"context"
	"sync"

	"github.com/mirkobrombin/go-lockgraph/v1/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/mirkobrombin/go-lockgraph/v1/graph")

// A Lock identifies one exclusive lock. Any comparable value works; a pointer
// to the underlying mutex is the usual choice, since its address is stable
// for the lock's lifetime and usable as a map key.
type Lock any

// Graph records, per goroutine, the set of locks currently held and the set
// of locks currently waited on. All operations are serialized by a single
// internal mutex, so mutations and scans observe a consistent state.
//
// Every operation is total: releasing or un-waiting a pair that was never
// recorded is a no-op, never an error. The graph only records claims made by
// its callers; mutual exclusion itself is the raw lock's job.
type Graph struct {
	mu    sync.Mutex
	holds map[int64]map[Lock]struct{}
	waits map[int64]map[Lock]struct{}

	traceEnabled bool
}

// Option configures a Graph.
type Option func(*Graph)

// WithTracing enables OpenTelemetry spans around deadlock scans.
func WithTracing() Option {
	return func(g *Graph) {
		g.traceEnabled = true
	}
}

// New returns an empty Graph.
func New(opts ...Option) *Graph {
	g := &Graph{
		holds: make(map[int64]map[Lock]struct{}),
		waits: make(map[int64]map[Lock]struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// AcquireLock records that goroutine tid now holds lock. Recording the same
// pair twice is idempotent.
func (g *Graph) AcquireLock(tid int64, lock Lock) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.holds[tid] == nil {
		g.holds[tid] = make(map[Lock]struct{})
	}
	g.holds[tid][lock] = struct{}{}
	metrics.AcquireCounter.Inc()
}

// ReleaseLock records that goroutine tid no longer holds lock. The
// goroutine's entry is pruned once its held set is empty, so scans only
// visit goroutines with live holds.
func (g *Graph) ReleaseLock(tid int64, lock Lock) {
	g.mu.Lock()
	defer g.mu.Unlock()
	held, ok := g.holds[tid]
	if !ok {
		return
	}
	delete(held, lock)
	if len(held) == 0 {
		delete(g.holds, tid)
	}
	metrics.ReleaseCounter.Inc()
}

// WaitForLock records that goroutine tid is blocked trying to acquire lock.
func (g *Graph) WaitForLock(tid int64, lock Lock) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.waits[tid] == nil {
		g.waits[tid] = make(map[Lock]struct{})
	}
	g.waits[tid][lock] = struct{}{}
	metrics.WaitCounter.Inc()
}

// StopWaiting records that goroutine tid is no longer waiting on lock,
// either because it acquired the lock or because it gave up.
func (g *Graph) StopWaiting(tid int64, lock Lock) {
	g.mu.Lock()
	defer g.mu.Unlock()
	waiting, ok := g.waits[tid]
	if !ok {
		return
	}
	delete(waiting, lock)
	if len(waiting) == 0 {
		delete(g.waits, tid)
	}
}

// HasDeadlock reports whether the current wait-for graph contains a cycle.
//
// The wait-for graph is implicit: for every goroutine T and every lock L in
// T's wait set there is an edge T→H for every goroutine H holding L. The
// scan is a depth-first traversal from every goroutine with at least one
// held lock, using a visited set and an in-progress set; an edge back into
// the in-progress set is a cycle.
//
// The scan runs while the internal mutex is held, so it is mutually
// exclusive with every mutation.
func (g *Graph) HasDeadlock() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	var span trace.Span
	if g.traceEnabled {
		_, span = tracer.Start(context.Background(), "Graph.HasDeadlock")
		defer span.End()
		span.SetAttributes(attribute.Int("lockgraph.holders", len(g.holds)))
	}
	metrics.ScanCounter.Inc()

	visited := make(map[int64]bool)
	inPath := make(map[int64]bool)
	for tid := range g.holds {
		if visited[tid] {
			continue
		}
		if g.cycleFrom(tid, visited, inPath) {
			metrics.DeadlockGauge.Set(1)
			if g.traceEnabled {
				span.SetAttributes(attribute.Bool("lockgraph.deadlock", true))
			}
			return true
		}
	}
	metrics.DeadlockGauge.Set(0)
	if g.traceEnabled {
		span.SetAttributes(attribute.Bool("lockgraph.deadlock", false))
	}
	return false
}

// frame is one level of the iterative depth-first traversal. An explicit
// stack avoids recursion-depth limits on long wait chains.
type frame struct {
	tid  int64
	next []int64
	i    int
}

// cycleFrom runs the traversal from start, mutating visited and inPath.
// Caller holds g.mu.
func (g *Graph) cycleFrom(start int64, visited, inPath map[int64]bool) bool {
	visited[start] = true
	inPath[start] = true
	stack := []frame{{tid: start, next: g.blockers(start)}}
	for len(stack) > 0 {
		f := &stack[len(stack)-1]
		if f.i < len(f.next) {
			n := f.next[f.i]
			f.i++
			if inPath[n] {
				return true
			}
			if !visited[n] {
				visited[n] = true
				inPath[n] = true
				stack = append(stack, frame{tid: n, next: g.blockers(n)})
			}
			continue
		}
		inPath[f.tid] = false
		stack = stack[:len(stack)-1]
	}
	return false
}

// blockers returns the goroutines holding any lock that tid waits on.
// Caller holds g.mu.
func (g *Graph) blockers(tid int64) []int64 {
	var out []int64
	for lock := range g.waits[tid] {
		for holder, held := range g.holds {
			if _, ok := held[lock]; ok {
				out = append(out, holder)
			}
		}
	}
	return out
}

// Snapshot is a point-in-time copy of the graph state, suitable for
// diagnostic reports.
type Snapshot struct {
	Holds map[int64][]Lock `json:"holds"`
	Waits map[int64][]Lock `json:"waits"`
}

// Snapshot returns a copy of the current holds and waits.
func (g *Graph) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	s := Snapshot{
		Holds: make(map[int64][]Lock, len(g.holds)),
		Waits: make(map[int64][]Lock, len(g.waits)),
	}
	for tid, held := range g.holds {
		locks := make([]Lock, 0, len(held))
		for l := range held {
			locks = append(locks, l)
		}
		s.Holds[tid] = locks
	}
	for tid, waiting := range g.waits {
		locks := make([]Lock, 0, len(waiting))
		for l := range waiting {
			locks = append(locks, l)
		}
		s.Waits[tid] = locks
	}
	return s
}

// WaitingThreads returns the IDs of goroutines currently blocked on a lock.
func (g *Graph) WaitingThreads() []int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]int64, 0, len(g.waits))
	for tid := range g.waits {
		out = append(out, tid)
	}
	return out
}
