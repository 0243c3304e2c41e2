package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// AcquireCounter tracks recorded lock acquisitions.
	AcquireCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lockgraph_acquire_total",
		Help: "Total number of recorded lock acquisitions",
	})
	// ReleaseCounter tracks recorded lock releases.
	ReleaseCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lockgraph_release_total",
		Help: "Total number of recorded lock releases",
	})
	// WaitCounter tracks recorded wait registrations.
	WaitCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lockgraph_wait_total",
		Help: "Total number of recorded wait registrations",
	})
	// ScanCounter tracks deadlock detection scans.
	ScanCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lockgraph_scan_total",
		Help: "Total number of deadlock detection scans",
	})
	// DeadlockGauge reports whether the last scan found a cycle.
	DeadlockGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "lockgraph_deadlock",
		Help: "1 if the last deadlock scan found a cycle, 0 otherwise",
	})
)

// NewRegistry creates a new Prometheus registry.
func NewRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// RegisterCoreMetrics registers lockgraph core metrics on the provided registry.
func RegisterCoreMetrics(reg prometheus.Registerer) {
	reg.MustRegister(AcquireCounter, ReleaseCounter, WaitCounter, ScanCounter, DeadlockGauge)
}
