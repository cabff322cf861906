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

func TestMetrics_Counters(t *testing.T) {
	m := New(nil)

	m.OrderCreated()
	m.OrderCreated()
	m.Payment("stripe", "success")
	m.Payment("bitcoin", "failure")
	m.Notification("email", "success")
	m.ObserveRequest("/api/v1/orders", http.StatusCreated, 12)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.OrdersCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Payments.WithLabelValues("stripe", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Payments.WithLabelValues("bitcoin", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues("email", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("/api/v1/orders", "201")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.OrderCreated()
		m.Payment("stripe", "success")
		m.Notification("sms", "failure")
		m.ObserveRequest("/", 200, 1)
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := New(nil)
	m.OrderCreated()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), "shop_orders_created_total 1")
}
