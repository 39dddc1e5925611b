// Package metrics holds the Prometheus collectors exposed at /metrics.
package metrics

import (
    "net/http"
    "time"

    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/collectors"
    "github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "place_reservation"

// Metrics owns a private registry so tests can build as many as they like.
// All methods are safe to call on a nil *Metrics.
type Metrics struct {
    registry *prometheus.Registry

    httpRequests *prometheus.CounterVec
    httpDuration *prometheus.HistogramVec
    inFlight     prometheus.Gauge

    bookingsCreated  prometheus.Counter
    bookingsCanceled prometheus.Counter
    bookingsPaid     prometheus.Counter
    paymentAmount    prometheus.Counter
    reviews          *prometheus.CounterVec
}

// New builds and registers every collector.
func New() *Metrics {
    m := &Metrics{
        registry: prometheus.NewRegistry(),
        httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
            Namespace: namespace,
            Name:      "http_requests_total",
            Help:      "HTTP requests by method, route and status.",
        }, []string{"method", "path", "status"}),
        httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
            Namespace: namespace,
            Name:      "http_request_duration_seconds",
            Help:      "HTTP request latency by method and route.",
            Buckets:   prometheus.DefBuckets,
        }, []string{"method", "path"}),
        inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
            Namespace: namespace,
            Name:      "http_requests_in_flight",
            Help:      "Requests currently being served.",
        }),
        bookingsCreated: prometheus.NewCounter(prometheus.CounterOpts{
            Namespace: namespace,
            Name:      "booking_created_total",
            Help:      "Bookings created.",
        }),
        bookingsCanceled: prometheus.NewCounter(prometheus.CounterOpts{
            Namespace: namespace,
            Name:      "booking_canceled_total",
            Help:      "Bookings canceled by their owners.",
        }),
        bookingsPaid: prometheus.NewCounter(prometheus.CounterOpts{
            Namespace: namespace,
            Name:      "booking_paid_total",
            Help:      "Bookings confirmed by a payment.",
        }),
        paymentAmount: prometheus.NewCounter(prometheus.CounterOpts{
            Namespace: namespace,
            Name:      "payment_amount_total",
            Help:      "Sum of accepted payment amounts.",
        }),
        reviews: prometheus.NewCounterVec(prometheus.CounterOpts{
            Namespace: namespace,
            Name:      "review_submitted_total",
            Help:      "Reviews submitted by rating.",
        }, []string{"rating"}),
    }
    m.registry.MustRegister(
        collectors.NewGoCollector(),
        collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
        m.httpRequests, m.httpDuration, m.inFlight,
        m.bookingsCreated, m.bookingsCanceled, m.bookingsPaid, m.paymentAmount, m.reviews,
    )
    return m
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
    return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) RecordHTTPRequest(method, path, status string, d time.Duration) {
    if m == nil {
        return
    }
    m.httpRequests.WithLabelValues(method, path, status).Inc()
    m.httpDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

func (m *Metrics) IncInFlight() {
    if m != nil {
        m.inFlight.Inc()
    }
}

func (m *Metrics) DecInFlight() {
    if m != nil {
        m.inFlight.Dec()
    }
}

func (m *Metrics) BookingCreated() {
    if m != nil {
        m.bookingsCreated.Inc()
    }
}

func (m *Metrics) BookingCanceled() {
    if m != nil {
        m.bookingsCanceled.Inc()
    }
}

// BookingPaid counts a confirmed booking and adds amount to the payment total.
func (m *Metrics) BookingPaid(amount float64) {
    if m == nil {
        return
    }
    m.bookingsPaid.Inc()
    if amount > 0 {
        m.paymentAmount.Add(amount)
    }
}

func (m *Metrics) ReviewSubmitted(rating string) {
    if m != nil {
        m.reviews.WithLabelValues(rating).Inc()
    }
}
