package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordIngest(t *testing.T) {
	before := testutil.ToFloat64(DefaultMetrics.IngestOutcomes.WithLabelValues("stored", "helius", ""))
	RecordIngest("stored", "helius", "", 0.01)
	after := testutil.ToFloat64(DefaultMetrics.IngestOutcomes.WithLabelValues("stored", "helius", ""))
	assert.Equal(t, before+1, after)
}

func TestRecordSinkDelivery(t *testing.T) {
	okBefore := testutil.ToFloat64(DefaultMetrics.SinkDeliveries.WithLabelValues("log", "ok"))
	errBefore := testutil.ToFloat64(DefaultMetrics.SinkDeliveries.WithLabelValues("log", "error"))

	RecordSinkDelivery("log", nil)
	RecordSinkDelivery("log", errors.New("boom"))

	assert.Equal(t, okBefore+1, testutil.ToFloat64(DefaultMetrics.SinkDeliveries.WithLabelValues("log", "ok")))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(DefaultMetrics.SinkDeliveries.WithLabelValues("log", "error")))
}

func TestRecordSolPrice(t *testing.T) {
	RecordSolPrice("stream", 151.25)
	assert.Equal(t, 151.25, testutil.ToFloat64(DefaultMetrics.SolPrice))
}

func TestHandler(t *testing.T) {
	RecordTrigger()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "wallet_monitor_detector_triggers_total"))
}
