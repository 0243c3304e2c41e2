// lockgraph-watch runs a synthetic contended workload and serves live
// deadlock reports: Prometheus metrics on /metrics, SSE on /events and
// WebSocket on /ws. Pass -deadlock to make two workers acquire in opposite
// order so a cycle actually forms.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"time"

	"github.com/mirkobrombin/go-lockgraph/v1/graph"
	"github.com/mirkobrombin/go-lockgraph/v1/metrics"
	"github.com/mirkobrombin/go-lockgraph/v1/monitor"
	"github.com/mirkobrombin/go-lockgraph/v1/resource"
	"github.com/mirkobrombin/go-lockgraph/v1/tracked"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	interval := flag.Duration("interval", 250*time.Millisecond, "polling interval")
	workers := flag.Int("workers", 4, "workload goroutines")
	induce := flag.Bool("deadlock", false, "induce an opposite-order deadlock")
	flag.Parse()

	g := graph.New()
	m := monitor.New(g, monitor.WithInterval(*interval))
	ctx := context.Background()
	m.Start(ctx)
	defer m.Stop()

	resources := []*resource.Resource{
		resource.NewWithID("alpha"),
		resource.NewWithID("beta"),
		resource.NewWithID("gamma"),
	}

	var eg errgroup.Group
	for w := 0; w < *workers; w++ {
		eg.Go(func() error {
			for {
				// fixed order keeps the workload deadlock-free
				guards := make([]*tracked.Mutex, 0, len(resources))
				for _, r := range resources {
					guard := tracked.New(r.Mutex(), g)
					guard.Lock()
					guards = append(guards, guard)
				}
				time.Sleep(5 * time.Millisecond)
				for i := len(guards) - 1; i >= 0; i-- {
					guards[i].Release()
				}
			}
		})
	}
	if *induce {
		go crossAcquire(g, resources[0], resources[1])
		go crossAcquire(g, resources[1], resources[0])
	}

	reg := metrics.NewRegistry()
	metrics.RegisterCoreMetrics(reg)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.Handle("/events", monitor.SSEHandler(m))
	mux.Handle("/ws", monitor.WebSocketHandler(m))

	go func() {
		ch, err := m.Subscribe(ctx)
		if err != nil {
			return
		}
		for rep := range ch {
			log.Printf("deadlock: report %s, %d goroutines", rep.ID, len(rep.Threads))
		}
	}()

	log.Printf("listening on %s", *addr)
	log.Fatal(http.ListenAndServe(*addr, mux))
}

func crossAcquire(g *graph.Graph, first, second *resource.Resource) {
	a := tracked.New(first.Mutex(), g)
	defer a.Release()
	b := tracked.New(second.Mutex(), g)
	defer b.Release()
	a.Lock()
	time.Sleep(50 * time.Millisecond)
	b.Lock()
}
