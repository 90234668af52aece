package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordApproval(t *testing.T) {
	m := New()

	m.RecordApproval("approve", "success")
	m.RecordApproval("approve", "success")
	m.RecordApproval("reject", "not_found")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.approvalsTotal.WithLabelValues("approve", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.approvalsTotal.WithLabelValues("reject", "not_found")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.approvalsTotal.WithLabelValues("reject", "success")))
}

func TestRecordGenerationAndEvent(t *testing.T) {
	m := New()

	m.RecordGeneration("mock", "completed")
	m.RecordEvent("job.approved", "failed")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.generationsTotal.WithLabelValues("mock", "completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.eventsTotal.WithLabelValues("job.approved", "failed")))
}

func TestNew_InstancesAreIndependent(t *testing.T) {
	a := New()
	b := New()

	a.RecordApproval("approve", "success")

	assert.Equal(t, 1.0, testutil.ToFloat64(a.approvalsTotal.WithLabelValues("approve", "success")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.approvalsTotal.WithLabelValues("approve", "success")))
}

func TestHandler_ExposesCollectors(t *testing.T) {
	m := New()
	m.RecordApproval("reject", "success")
	m.ObserveRequest(http.MethodPost, "/api/portal/approvals/{approvalID}/reject", http.StatusOK, 15*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	out := string(body)

	assert.True(t, strings.Contains(out, `rpohub_approval_resolutions_total{action="reject",outcome="success"} 1`))
	assert.True(t, strings.Contains(out, `rpohub_http_request_duration_seconds_count{method="POST",route="/api/portal/approvals/{approvalID}/reject",status="200"} 1`))
	assert.True(t, strings.Contains(out, "go_goroutines"))
}
