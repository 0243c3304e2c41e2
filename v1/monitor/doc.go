// Package monitor polls a graph.Graph for deadlocks at a fixed interval and
// fans detection reports out to subscribers. Detection is advisory only: the
// monitor announces cycles, it never unblocks goroutines or forces locks
// open. Reports can also be streamed over SSE or WebSocket for live
// inspection.
package monitor
