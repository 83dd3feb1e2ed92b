package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestResult(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{errors.New("boom"), "error"},
		{fmt.Errorf("wrapped: %w", context.Canceled), "canceled"},
		{context.DeadlineExceeded, "canceled"},
	}
	for _, tt := range tests {
		if got := Result(tt.err); got != tt.want {
			t.Fatalf("Result(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestObserveStoreIncrementsCounter(t *testing.T) {
	before := testutil.ToFloat64(storeOperations.WithLabelValues("test-kind", "insert", "ok"))
	ObserveStore("test-kind", "insert", time.Now(), nil)
	after := testutil.ToFloat64(storeOperations.WithLabelValues("test-kind", "insert", "ok"))
	if after != before+1 {
		t.Fatalf("counter = %v, want %v", after, before+1)
	}
}

func TestGauges(t *testing.T) {
	SetBackupSize(2048)
	if got := testutil.ToFloat64(backupBytes); got != 2048 {
		t.Fatalf("backup bytes = %v", got)
	}
	SetIntegrityIssues(3)
	if got := testutil.ToFloat64(integrityIssues); got != 3 {
		t.Fatalf("integrity issues = %v", got)
	}
}

func TestInstrumentRecordsStatus(t *testing.T) {
	handler := Instrument("/test/teapot", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/teapot", nil))

	if rec.Code != http.StatusTeapot {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/test/teapot", "418")); got != 1 {
		t.Fatalf("request counter = %v, want 1", got)
	}
}

func TestHandlerExposesCollectors(t *testing.T) {
	ObserveBackup("create", nil)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if !strings.Contains(rec.Body.String(), "almmr_backup_operations_total") {
		t.Fatal("expected backup counter in exposition output")
	}
}
