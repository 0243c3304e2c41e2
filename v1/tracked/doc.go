// Package tracked wraps raw mutexes so that every wait, acquisition and
// release is reported to a graph.Graph. A Mutex is a per-scope guard: each
// goroutine creates its own wrapper around the shared raw lock and defers
// Release, which guarantees that the graph never retains a stale held entry
// and that the raw lock is never leaked, even on panic paths.
package tracked
