// Package metrics exposes the judge agent's counters and histograms via
// the real prometheus client, replacing the teacher's hand-rolled
// MonitoringSystem struct with the library the rest of the example pack
// actually imports for this concern.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// VerdictsTotal counts terminal verdicts by kind, so an operator can
	// see TLE/MLE/RuntimeError rates without parsing logs.
	VerdictsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "judge_verdicts_total",
		Help: "Total number of submissions judged, by verdict kind.",
	}, []string{"verdict"})

	// SubmissionDuration tracks total wall-clock time to judge one
	// submission end to end, including compile and every test case.
	SubmissionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "judge_submission_duration_seconds",
		Help:    "Wall-clock time to fully judge one submission.",
		Buckets: prometheus.DefBuckets,
	})

	// HandlerErrorsTotal counts internal (non-verdict) failures raised by a
	// Handler, broken out by the operation that failed.
	HandlerErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "judge_handler_errors_total",
		Help: "Total number of internal handler errors, by operation.",
	}, []string{"operation"})
)

// Serve starts a blocking HTTP server exposing /metrics on addr. Callers
// typically run this in its own goroutine alongside the agent loop.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(addr, mux)
}
