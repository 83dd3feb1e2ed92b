package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "almmr"

var (
	// storeOperations counts entity store calls.
	// Labels: kind, operation (insert, update, archive, replace), result (ok, error)
	storeOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "operations_total",
		Help:      "Entity store write operations",
	}, []string{"kind", "operation", "result"})

	storeLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "operation_seconds",
		Help:      "Entity store write latency in seconds",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
	}, []string{"operation"})

	// backupOperations counts backup, restore and integrity runs.
	// Labels: operation, result
	backupOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "backup",
		Name:      "operations_total",
		Help:      "Backup, restore and integrity check runs",
	}, []string{"operation", "result"})

	backupBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "backup",
		Name:      "last_size_bytes",
		Help:      "Size of the most recently written snapshot",
	})

	integrityIssues = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "integrity",
		Name:      "issues",
		Help:      "Violations found by the last integrity check",
	})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP API requests",
	}, []string{"method", "route", "status"})

	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_seconds",
		Help:      "HTTP API latency in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route"})
)

// Result buckets an error into the label value used by every counter.
func Result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}

// ObserveStore records one entity store write.
func ObserveStore(kind, operation string, started time.Time, err error) {
	storeOperations.WithLabelValues(kind, operation, Result(err)).Inc()
	storeLatency.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

func ObserveBackup(operation string, err error) {
	backupOperations.WithLabelValues(operation, Result(err)).Inc()
}

func SetBackupSize(bytes int64) {
	backupBytes.Set(float64(bytes))
}

func SetIntegrityIssues(n int) {
	integrityIssues.Set(float64(n))
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Instrument wraps next so every request is counted under route.
func Instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(recorder.status)).Inc()
		httpLatency.WithLabelValues(route).Observe(time.Since(started).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
