package monitor

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"testing"
	"time"

	lgerrors "github.com/mirkobrombin/go-lockgraph/v1/errors"
	"github.com/mirkobrombin/go-lockgraph/v1/graph"
)

func cyclicGraph() (*graph.Graph, func()) {
	g := graph.New()
	var l1, l2 sync.Mutex
	g.AcquireLock(1, &l1)
	g.AcquireLock(2, &l2)
	g.WaitForLock(1, &l2)
	g.WaitForLock(2, &l1)
	breakCycle := func() {
		g.StopWaiting(2, &l1)
		g.ReleaseLock(2, &l2)
	}
	return g, breakCycle
}

func TestMonitorReportsDeadlock(t *testing.T) {
	g, _ := cyclicGraph()
	m := New(g, WithInterval(5*time.Millisecond))
	defer m.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := m.Subscribe(ctx)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	m.Start(ctx)

	select {
	case rep := <-ch:
		if rep.ID == "" {
			t.Fatal("report without id")
		}
		if len(rep.Threads) != 2 {
			t.Fatalf("expected two threads in report, got %v", rep.Threads)
		}
	case <-time.After(time.Second):
		t.Fatal("no report received")
	}
}

func TestMonitorReportsRisingEdgeOnly(t *testing.T) {
	g, breakCycle := cyclicGraph()
	m := New(g, WithInterval(5*time.Millisecond))
	defer m.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := m.Subscribe(ctx)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	m.Start(ctx)

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("no first report")
	}

	// still deadlocked: no second report
	select {
	case rep := <-ch:
		t.Fatalf("unexpected repeat report %v", rep.ID)
	case <-time.After(50 * time.Millisecond):
	}

	// clear and re-form the cycle: a new report must arrive
	breakCycle()
	time.Sleep(30 * time.Millisecond)
	var l1, l2 sync.Mutex
	g.AcquireLock(3, &l1)
	g.AcquireLock(4, &l2)
	g.WaitForLock(3, &l2)
	g.WaitForLock(4, &l1)

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("no report after cycle re-formed")
	}
}

func TestSubscribeAfterStop(t *testing.T) {
	g := graph.New()
	m := New(g)
	m.Stop()
	if _, err := m.Subscribe(context.Background()); !errors.Is(err, lgerrors.ErrMonitorClosed) {
		t.Fatalf("expected ErrMonitorClosed, got %v", err)
	}
}

func TestStopClosesSubscribers(t *testing.T) {
	g := graph.New()
	m := New(g, WithInterval(5*time.Millisecond))
	ch, err := m.Subscribe(context.Background())
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	m.Start(context.Background())
	m.Stop()
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed on stop")
	}
}

func TestSubscriptionEndsWithContext(t *testing.T) {
	g := graph.New()
	m := New(g)
	defer m.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := m.Subscribe(ctx)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	cancel()
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed on ctx cancel")
	}
}

// Subscriptions made with a never-cancelled context must not pin their
// watcher goroutines after Stop.
func TestStopReleasesSubscriberWatchers(t *testing.T) {
	g := graph.New()
	m := New(g)
	before := runtime.NumGoroutine()
	for i := 0; i < 8; i++ {
		if _, err := m.Subscribe(context.Background()); err != nil {
			t.Fatalf("subscribe: %v", err)
		}
	}
	m.Stop()

	deadline := time.After(2 * time.Second)
	for {
		if runtime.NumGoroutine() <= before {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("watcher goroutines leaked: %d running, started with %d",
				runtime.NumGoroutine(), before)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestStartTwiceIsNoOp(t *testing.T) {
	g := graph.New()
	m := New(g, WithInterval(5*time.Millisecond))
	ctx := context.Background()
	m.Start(ctx)
	m.Start(ctx)
	m.Stop()
}
