package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()

	m.RenewalProcessed(ResultInvoiced)
	m.RenewalProcessed(ResultInvoiced)
	m.RenewalProcessed(ResultFailed)
	m.ProrationComputed(true)
	m.ProrationComputed(false)
	m.InvoiceBuilt("subscription")
	m.TaxPreviewFailed()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.renewals.WithLabelValues(ResultInvoiced)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.renewals.WithLabelValues(ResultFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.prorations.WithLabelValues("true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.prorations.WithLabelValues("false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.invoices.WithLabelValues("subscription")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.taxFailures))
}

func TestHandler(t *testing.T) {
	m := New()
	m.RenewalProcessed(ResultAdvanced)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `billingcore_renewals_total{result="advanced"} 1`)
}
