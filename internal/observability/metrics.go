package observability

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Fetch results used as the "result" label of FetchesTotal.
const (
	ResultOK        = "ok"
	ResultEmpty     = "empty"
	ResultStatus    = "status_error"
	ResultTransport = "transport_error"
	ResultDecode    = "decode_error"
	ResultCancelled = "cancelled"
	ResultOffline   = "offline"
)

var (
	FetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "utahsky_fetches_total",
		Help: "Network refresh attempts by outcome",
	}, []string{"result"})
	FetchLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "utahsky_fetch_latency_seconds",
		Help:    "Duration of OpenSky states requests",
		Buckets: prometheus.DefBuckets,
	})
	AircraftTracked = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "utahsky_aircraft_tracked",
		Help: "Aircraft in the live collection",
	})
	AircraftLocated = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "utahsky_aircraft_located",
		Help: "Aircraft in the live collection with a known position",
	})
	CacheWriteErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "utahsky_cache_write_errors_total",
		Help: "Failed writes of the snapshot cache",
	})
	SnapshotsInstalled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "utahsky_snapshots_installed_total",
		Help: "Snapshots that replaced the live collection, by source",
	}, []string{"source"})
)

// ObserveFetchLatency records the time since start.
func ObserveFetchLatency(start time.Time) {
	FetchLatency.Observe(time.Since(start).Seconds())
}

// HealthCheck reports whether a dependency the process needs is usable.
type HealthCheck func(ctx context.Context) error

// MetricsHandler returns a mux serving /metrics and /healthz. /healthz
// answers 503 with the error text while check fails; a nil check is always
// healthy.
func MetricsHandler(check HealthCheck) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r.Context()); err != nil {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}
