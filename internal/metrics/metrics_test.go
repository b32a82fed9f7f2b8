package metrics

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordersUpdateCollectors(t *testing.T) {
	EnableMetrics()
	m := GetMetrics()

	before := testutil.ToFloat64(m.BytesReceivedTotal.WithLabelValues("http"))
	m.RecordRead("http", 100)
	m.RecordRead("http", 0)
	m.RecordRead("http", 28)
	assert.Equal(t, before+128, testutil.ToFloat64(m.BytesReceivedTotal.WithLabelValues("http")))

	okBefore := testutil.ToFloat64(m.NetworkRequestsTotal.WithLabelValues("https", "ok"))
	errBefore := testutil.ToFloat64(m.NetworkRequestsTotal.WithLabelValues("https", "error"))
	m.RecordRequest("https", 20*time.Millisecond, nil)
	m.RecordRequest("https", 5*time.Millisecond, errors.New("refused"))
	assert.Equal(t, okBefore+1, testutil.ToFloat64(m.NetworkRequestsTotal.WithLabelValues("https", "ok")))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(m.NetworkRequestsTotal.WithLabelValues("https", "error")))

	dialBefore := testutil.ToFloat64(m.NetworkErrorsTotal.WithLabelValues("http", "dial"))
	m.RecordError("http", "dial")
	assert.Equal(t, dialBefore+1, testutil.ToFloat64(m.NetworkErrorsTotal.WithLabelValues("http", "dial")))

	m.UpdateReferences("example.com", 2048, 7)
	assert.Equal(t, float64(7), testutil.ToFloat64(m.ReferencesFound.WithLabelValues("example.com")))
	assert.Equal(t, float64(2048), testutil.ToFloat64(m.BodyBytes.WithLabelValues("example.com")))
}

func TestMeasureDurationObserves(t *testing.T) {
	EnableMetrics()
	m := GetMetrics()

	done := MeasureDuration(m.TLSHandshakeDuration, prometheus.Labels{"host": "measure.test"})
	done()
	assert.GreaterOrEqual(t, testutil.CollectAndCount(m.TLSHandshakeDuration, "extref_tls_handshake_duration_seconds"), 1)

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf))
	assert.Contains(t, buf.String(), `extref_tls_handshake_duration_seconds_count{host="measure.test"} 1`)
}

func TestWriteTextContainsFamilies(t *testing.T) {
	EnableMetrics()
	m := GetMetrics()
	m.RecordRead("http", 1)

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf))
	assert.Contains(t, buf.String(), "# TYPE extref_bytes_received_total counter")
	assert.Contains(t, buf.String(), `extref_bytes_received_total{scheme="http"}`)
}
