package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDumpIncludesCounters(t *testing.T) {
	RecordsEmitted.WithLabelValues("dumptest", "bill").Add(3)

	snap := Dump()
	assert.Contains(t, snap, "us_ingester_records_total{kind=bill,source=dumptest} 3")
}

func TestHandlerServesMetricsAndHealth(t *testing.T) {
	ItemsSkipped.WithLabelValues("handlertest", "lookup").Inc()
	srv := httptest.NewServer(Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `us_ingester_skipped_total{reason="lookup",source="handlertest"} 1`)
}

func TestCounterValues(t *testing.T) {
	SinkPushes.WithLabelValues("countertest", "ok").Inc()
	SinkPushes.WithLabelValues("countertest", "ok").Inc()
	assert.Equal(t, 2.0, testutil.ToFloat64(SinkPushes.WithLabelValues("countertest", "ok")))
}
