// Package hierarchy implements level-ordered mutexes that prevent deadlock
// by construction: on any single goroutine, locks must be acquired in
// strictly descending level order. Violations are rejected synchronously,
// before the raw lock is touched, so no wait-for bookkeeping is needed.
//
// This is the prevention counterpart to the detection in package graph; the
// two are independent and a program can use either or both.
package hierarchy
