package metrics

import (
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"
    "time"

    "github.com/prometheus/client_golang/prometheus/testutil"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestDomainCounters(t *testing.T) {
    m := New()
    m.BookingCreated()
    m.BookingCreated()
    m.BookingPaid(150)
    m.BookingCanceled()
    m.ReviewSubmitted("5")

    assert.Equal(t, 2.0, testutil.ToFloat64(m.bookingsCreated))
    assert.Equal(t, 1.0, testutil.ToFloat64(m.bookingsPaid))
    assert.Equal(t, 150.0, testutil.ToFloat64(m.paymentAmount))
    assert.Equal(t, 1.0, testutil.ToFloat64(m.bookingsCanceled))
    assert.Equal(t, 1.0, testutil.ToFloat64(m.reviews.WithLabelValues("5")))
}

func TestNilMetricsIsNoop(t *testing.T) {
    var m *Metrics
    assert.NotPanics(t, func() {
        m.BookingCreated()
        m.BookingPaid(1)
        m.BookingCanceled()
        m.ReviewSubmitted("1")
        m.IncInFlight()
        m.DecInFlight()
        m.RecordHTTPRequest("GET", "/", "200", time.Millisecond)
    })
}

func TestHandlerExposesHTTPMetrics(t *testing.T) {
    m := New()
    m.RecordHTTPRequest(http.MethodGet, "/places", "200", 10*time.Millisecond)

    rec := httptest.NewRecorder()
    m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
    require.Equal(t, http.StatusOK, rec.Code)
    body := rec.Body.String()
    assert.True(t, strings.Contains(body, `place_reservation_http_requests_total{method="GET",path="/places",status="200"} 1`))
    assert.Contains(t, body, "place_reservation_http_request_duration_seconds_bucket")
}
