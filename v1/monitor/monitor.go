package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mirkobrombin/go-lockgraph/v1/errors"
	"github.com/mirkobrombin/go-lockgraph/v1/graph"
)

// defaultInterval is the default polling period. Detection blocks graph
// mutations for the scan duration, so the default favors low frequency.
const defaultInterval = 500 * time.Millisecond

// ThreadState summarizes one goroutine's recorded lock activity.
type ThreadState struct {
	TID   int64 `json:"tid"`
	Holds int   `json:"holds"`
	Waits int   `json:"waits"`
}

// Report describes one detected deadlock.
type Report struct {
	ID      string        `json:"id"`
	Time    time.Time     `json:"time"`
	Threads []ThreadState `json:"threads"`
}

// Monitor periodically queries a Graph for cycles and publishes a Report on
// every transition into deadlock. There is no push notification from the
// graph itself; polling is the contract.
type Monitor struct {
	g        *graph.Graph
	interval time.Duration

	mu         sync.Mutex
	subs       []chan Report
	cancel     context.CancelFunc
	done       chan struct{}
	quit       chan struct{}
	closed     bool
	deadlocked bool
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithInterval sets the polling period. Non-positive values keep the default.
func WithInterval(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

// New returns a Monitor for g. It does not start polling; call Start.
func New(g *graph.Graph, opts ...Option) *Monitor {
	m := &Monitor{g: g, interval: defaultInterval, quit: make(chan struct{})}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start begins polling until ctx is cancelled or Stop is called. Starting a
// running or stopped monitor is a no-op.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || m.done != nil {
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	go m.run(ctx)
}

// Stop halts polling and closes all subscriber channels.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	cancel, done := m.cancel, m.done
	m.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	m.mu.Lock()
	for _, ch := range m.subs {
		close(ch)
	}
	m.subs = nil
	m.mu.Unlock()
	// release the per-subscription watcher goroutines
	close(m.quit)
}

// Subscribe registers a channel receiving deadlock reports. The channel is
// buffered; a slow consumer drops reports rather than stalling the poller.
// The subscription ends when ctx is cancelled or the monitor stops.
func (m *Monitor) Subscribe(ctx context.Context) (<-chan Report, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, errors.ErrMonitorClosed
	}
	ch := make(chan Report, 1)
	m.subs = append(m.subs, ch)
	m.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			m.unsubscribe(ch)
		case <-m.quit:
			// Stop already closed every subscriber channel
		}
	}()
	return ch, nil
}

func (m *Monitor) unsubscribe(ch chan Report) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	for i, c := range m.subs {
		if c == ch {
			m.subs[i] = m.subs[len(m.subs)-1]
			m.subs = m.subs[:len(m.subs)-1]
			close(c)
			break
		}
	}
}

func (m *Monitor) run(ctx context.Context) {
	defer close(m.done)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.poll()
		}
	}
}

// poll runs one scan and publishes a report on the transition into deadlock.
// Repeated positive scans do not re-publish; the condition clears only when
// a scan comes back negative.
func (m *Monitor) poll() {
	found := m.g.HasDeadlock()

	m.mu.Lock()
	rising := found && !m.deadlocked
	m.deadlocked = found
	m.mu.Unlock()

	if !rising {
		return
	}
	m.publish(m.report())
}

func (m *Monitor) report() Report {
	s := m.g.Snapshot()
	r := Report{ID: uuid.NewString(), Time: time.Now()}
	seen := make(map[int64]*ThreadState)
	for tid, locks := range s.Holds {
		seen[tid] = &ThreadState{TID: tid, Holds: len(locks)}
	}
	for tid, locks := range s.Waits {
		if st, ok := seen[tid]; ok {
			st.Waits = len(locks)
			continue
		}
		seen[tid] = &ThreadState{TID: tid, Waits: len(locks)}
	}
	for _, st := range seen {
		r.Threads = append(r.Threads, *st)
	}
	return r
}

func (m *Monitor) publish(r Report) {
	m.mu.Lock()
	defer m.mu.Unlock()
	// non-blocking sends under the lock, so no channel closes mid-publish
	for _, ch := range m.subs {
		select {
		case ch <- r:
		default:
		}
	}
}
