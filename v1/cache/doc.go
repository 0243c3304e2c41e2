// Package cache provides a read-through cache guarded by a single
// reader/writer mutex: many concurrent readers, exclusive writers, and an
// optional loader invoked on miss. It is a shared-mutex exercise
// collaborator of the lock toolkit.
package cache
