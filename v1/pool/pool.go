package pool

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

var (
	// ErrClosed is returned by Submit after Shutdown.
	ErrClosed = errors.New("pool: closed")
	// ErrTimedOut is reported for tasks whose deadline passed before a
	// worker picked them up.
	ErrTimedOut = errors.New("pool: task timed out")
	// ErrCancelled is reported for tasks cancelled before execution.
	ErrCancelled = errors.New("pool: task cancelled")
)

// Task is a unit of work. The context carries the pool's shutdown signal.
type Task func(ctx context.Context) error

// Stats is a snapshot of pool activity counters.
type Stats struct {
	Active    int32
	Completed uint64
	Failed    uint64
	TimedOut  uint64
	Cancelled uint64
}

type task struct {
	fn        Task
	priority  int
	deadline  time.Time
	seq       uint64
	cancelled atomic.Bool
	done      chan error
}

// Handle tracks one submitted task.
type Handle struct {
	t *task
}

// Cancel marks the task so workers skip it. Cancelling a task that already
// started has no effect.
func (h *Handle) Cancel() {
	h.t.cancelled.Store(true)
}

// Done returns a channel receiving the task's terminal error: nil on
// success, ErrTimedOut, ErrCancelled, the task's own error, or a wrapped
// panic value.
func (h *Handle) Done() <-chan error {
	return h.t.done
}

// Pool runs tasks on a fixed set of worker goroutines, highest priority
// first, FIFO within a priority.
type Pool struct {
	mu    sync.Mutex
	cond  *sync.Cond
	tasks taskHeap
	seq   uint64
	stop  bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	active    atomic.Int32
	completed atomic.Uint64
	failed    atomic.Uint64
	timedOut  atomic.Uint64
	cancelled atomic.Uint64
}

// New starts a pool with the given number of workers; non-positive means
// runtime.NumCPU.
func New(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	p := &Pool{}
	p.cond = sync.NewCond(&p.mu)
	p.ctx, p.cancel = context.WithCancel(context.Background())
	heap.Init(&p.tasks)
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Submit enqueues fn with a priority and an optional timeout (zero means no
// deadline). Larger priorities run first.
func (p *Pool) Submit(priority int, timeout time.Duration, fn Task) (*Handle, error) {
	t := &task{
		fn:       fn,
		priority: priority,
		done:     make(chan error, 1),
	}
	if timeout > 0 {
		t.deadline = time.Now().Add(timeout)
	}

	p.mu.Lock()
	if p.stop {
		p.mu.Unlock()
		return nil, ErrClosed
	}
	p.seq++
	t.seq = p.seq
	heap.Push(&p.tasks, t)
	p.mu.Unlock()
	p.cond.Signal()
	return &Handle{t: t}, nil
}

// Stats returns a snapshot of the activity counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Active:    p.active.Load(),
		Completed: p.completed.Load(),
		Failed:    p.failed.Load(),
		TimedOut:  p.timedOut.Load(),
		Cancelled: p.cancelled.Load(),
	}
}

// Shutdown stops accepting tasks, runs everything already queued, and waits
// for the workers to drain or ctx to expire.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.stop {
		p.mu.Unlock()
		return nil
	}
	p.stop = true
	p.mu.Unlock()
	p.cond.Broadcast()

	drained := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(drained)
	}()
	select {
	case <-drained:
		p.cancel()
		return nil
	case <-ctx.Done():
		// give up on stragglers; running tasks observe the cancelled context
		p.cancel()
		return ctx.Err()
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		for len(p.tasks) == 0 && !p.stop {
			p.cond.Wait()
		}
		if len(p.tasks) == 0 && p.stop {
			p.mu.Unlock()
			return
		}
		t := heap.Pop(&p.tasks).(*task)
		p.mu.Unlock()

		switch {
		case !t.deadline.IsZero() && time.Now().After(t.deadline):
			p.timedOut.Add(1)
			t.done <- ErrTimedOut
		case t.cancelled.Load():
			p.cancelled.Add(1)
			t.done <- ErrCancelled
		default:
			p.active.Add(1)
			err := p.runTask(t)
			p.active.Add(-1)
			if err != nil {
				p.failed.Add(1)
			} else {
				p.completed.Add(1)
			}
			t.done <- err
		}
	}
}

// runTask executes the task, converting panics into errors so one bad task
// cannot kill a worker.
func (p *Pool) runTask(t *task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pool: task panic: %v", r)
		}
	}()
	return t.fn(p.ctx)
}

// taskHeap orders by priority descending, then submission order.
type taskHeap []*task

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority > h[j].priority
	}
	return h[i].seq < h[j].seq
}

func (h taskHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *taskHeap) Push(x any) { *h = append(*h, x.(*task)) }

func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return t
}
