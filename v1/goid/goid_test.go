package goid

import (
	"sync"
	"testing"
)

func TestIDStable(t *testing.T) {
	if got := ID(); got <= 0 {
		t.Fatalf("expected positive id, got %d", got)
	}
	if a, b := ID(), ID(); a != b {
		t.Fatalf("id changed within one goroutine: %d vs %d", a, b)
	}
}

func TestIDDistinctAcrossGoroutines(t *testing.T) {
	const n = 16
	ids := make(chan int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- ID()
		}()
	}
	wg.Wait()
	close(ids)
	seen := make(map[int64]bool)
	for id := range ids {
		if id <= 0 {
			t.Fatalf("invalid id %d", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %d", id)
		}
		seen[id] = true
	}
}

func TestParse(t *testing.T) {
	if got := parse([]byte("goroutine 42 [running]:\n")); got != 42 {
		t.Fatalf("parse: got %d, want 42", got)
	}
	if got := parse([]byte("garbage")); got != 0 {
		t.Fatalf("parse garbage: got %d, want 0", got)
	}
}
