// Package pool implements a worker pool with task priorities, per-task
// deadlines, cancellation and panic recovery. It is a plain
// mutex/condition-variable collaborator of the lock toolkit: scheduling
// state is guarded by one mutex, workers sleep on a condition variable.
package pool
