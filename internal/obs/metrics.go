package obs

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP metrics
var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	readyGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "rostergate_ready",
		Help: "1 when the service reports ready.",
	})

	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "build_info",
			Help: "rostergate build information.",
		},
		[]string{"version"},
	)
)

// Domain metrics
var (
	gateDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rostergate_seat_gate_decisions_total",
			Help: "Seat gate decisions by reason.",
		},
		[]string{"reason"},
	)

	rosterApplies = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rostergate_roster_snapshots_total",
			Help: "Roster snapshot poll results.",
		},
		[]string{"result"},
	)

	cacheCommunities = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "rostergate_ownership_communities",
		Help: "Communities in the ownership cache.",
	})

	cacheTags = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "rostergate_ownership_tags",
		Help: "Distinct membership tags in the ownership cache.",
	})

	workerAuth = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rostergate_worker_auth_total",
			Help: "Worker shared-secret authentication outcomes.",
		},
		[]string{"outcome"},
	)

	seatCountRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rostergate_seat_count_runs_total",
			Help: "Seat-count job runs by result.",
		},
		[]string{"result"},
	)
)

var initOnce sync.Once

// Init registers all metrics in the default registry and records the build version.
// Calling it more than once is harmless.
func Init(version string) {
	initOnce.Do(func() {
		prometheus.MustRegister(
			httpInFlight, httpRequestsTotal, httpRequestDuration, readyGauge, buildInfo,
			gateDecisions, rosterApplies, cacheCommunities, cacheTags, workerAuth, seatCountRuns,
		)
	})
	buildInfo.WithLabelValues(version).Set(1)
}

// Handler serves the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// SetReady records the current readiness state.
func SetReady(ready bool) {
	if ready {
		readyGauge.Set(1)
		return
	}
	readyGauge.Set(0)
}

// GateDecision counts a seat gate verdict.
func GateDecision(reason string) {
	gateDecisions.WithLabelValues(reason).Inc()
}

// RosterApplied records a successful snapshot ingestion and the resulting sizes.
func RosterApplied(communities, tags int) {
	rosterApplies.WithLabelValues("applied").Inc()
	cacheCommunities.Set(float64(communities))
	cacheTags.Set(float64(tags))
}

// RosterFailed records a failed roster fetch.
func RosterFailed() {
	rosterApplies.WithLabelValues("failed").Inc()
}

// WorkerAuth counts a worker authentication outcome.
func WorkerAuth(outcome string) {
	workerAuth.WithLabelValues(outcome).Inc()
}

// SeatCountRun counts a seat-count job run.
func SeatCountRun(err error) {
	if err != nil {
		seatCountRuns.WithLabelValues("failed").Inc()
		return
	}
	seatCountRuns.WithLabelValues("ok").Inc()
}

// CanonicalPath collapses identifiers in request paths so metric label
// cardinality stays bounded.
func CanonicalPath(raw string) string {
	path := raw
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "/"
	}
	parts := strings.Split(strings.Trim(path, "/"), "/")
	switch {
	case len(parts) == 4 && parts[0] == "v1" && parts[1] == "seats" && parts[3] == "check":
		return "/v1/seats/:id/check"
	case len(parts) == 3 && parts[0] == "v1" && parts[1] == "communities":
		return "/v1/communities/:id"
	case len(parts) == 5 && parts[0] == "v1" && parts[1] == "communities" && parts[3] == "tags":
		return "/v1/communities/:id/tags/:tag"
	}
	return path
}

// Instrument records request count, latency and in-flight gauge.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		defer httpInFlight.Dec()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		status := strconv.Itoa(sw.code)
		httpRequestDuration.WithLabelValues(method, path, status).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	})
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
