package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "interview"

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests received",
	}, []string{"method", "route", "status"})

	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	httpInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "http_in_flight_requests",
		Help:      "Current number of in-flight HTTP requests",
	})

	sandboxCases = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sandbox_cases_total",
		Help:      "Test cases executed by the sandbox, by language and outcome",
	}, []string{"language", "outcome"})

	sandboxDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "sandbox_case_duration_seconds",
		Help:      "Wall-clock duration of a single sandboxed test case",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"language"})

	sandboxRejections = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sandbox_rejections_total",
		Help:      "Submissions refused by the pre-screen",
	})

	oracleCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "oracle_calls_total",
		Help:      "Evaluation oracle calls by kind and outcome",
	}, []string{"kind", "outcome"})

	transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "section_transitions_total",
		Help:      "Section transitions by target section and whether the timer forced them",
	}, []string{"section", "forced"})

	finalized = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_finalized_total",
		Help:      "Sessions finalized by hire recommendation",
	}, []string{"recommendation"})
)

// Sandbox case outcomes.
const (
	OutcomePassed   = "passed"
	OutcomeFailed   = "failed"
	OutcomeTimeout  = "timeout"
	OutcomeError    = "error"
	OutcomeDegraded = "degraded"
	OutcomeOK       = "ok"
)

func ObserveSandboxCase(language, outcome string, d time.Duration) {
	sandboxCases.WithLabelValues(language, outcome).Inc()
	sandboxDuration.WithLabelValues(language).Observe(d.Seconds())
}

func IncSandboxRejection() {
	sandboxRejections.Inc()
}

// ObserveOracleCall records one oracle call. A degraded call is one that fell
// back to the fixed default result.
func ObserveOracleCall(kind string, degraded bool) {
	outcome := OutcomeOK
	if degraded {
		outcome = OutcomeDegraded
	}
	oracleCalls.WithLabelValues(kind, outcome).Inc()
}

func IncTransition(section string, forced bool) {
	transitions.WithLabelValues(section, strconv.FormatBool(forced)).Inc()
}

func IncFinalized(recommendation string) {
	finalized.WithLabelValues(recommendation).Inc()
}

type responseRecorder struct {
	http.ResponseWriter
	status int
}

func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *responseRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *responseRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := r.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, fmt.Errorf("metrics: underlying ResponseWriter does not support hijacking")
}

// Middleware records request metrics labelled by the matched chi route
// pattern, so path parameters do not explode label cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		labels := prometheus.Labels{
			"method": r.Method,
			"route":  route,
			"status": strconv.Itoa(rec.status),
		}
		httpRequests.With(labels).Inc()
		httpLatency.With(labels).Observe(time.Since(start).Seconds())
	})
}

// Handler exposes the default Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
