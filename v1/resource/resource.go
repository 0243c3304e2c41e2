// Package resource provides a named exclusive lock, a trivial identity
// holder used by example and test code to obtain an addressable mutex.
package resource

import (
	"sync"

	"github.com/google/uuid"
)

// Resource is a named resource guarded by its own mutex. The mutex address
// is the resource's lock identity for graph bookkeeping.
type Resource struct {
	id string
	mu sync.Mutex
}

// New returns a Resource with a generated unique ID.
func New() *Resource {
	return &Resource{id: uuid.NewString()}
}

// NewWithID returns a Resource with the given ID.
func NewWithID(id string) *Resource {
	return &Resource{id: id}
}

// ID returns the resource identifier.
func (r *Resource) ID() string {
	return r.id
}

// Mutex returns the resource's mutex, suitable for wrapping with a tracked
// guard.
func (r *Resource) Mutex() *sync.Mutex {
	return &r.mu
}
