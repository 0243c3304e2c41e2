// Package graph maintains a live record of which goroutine holds and waits
// on which locks, and answers on demand whether the implied wait-for graph
// contains a cycle, which is equivalent to a deadlock among the recorded
// participants.
//
// A Graph is constructed explicitly and shared by reference; several
// independent graphs can coexist, for example one per subsystem or one per
// test. Detection is advisory: the graph reports cycles but never aborts a
// goroutine or forces a lock open. The tracked package feeds a Graph
// automatically; code can also call the four bookkeeping hooks directly as
// long as wait/acquire/release calls stay paired.
package graph
