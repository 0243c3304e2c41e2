// Package goid exposes the identity of the calling goroutine. The identifier
// is assigned by the runtime, unique for the goroutine's lifetime and usable
// as a map key, which is all the lock tracking layers need.
package goid
