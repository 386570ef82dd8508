// Package metrics exposes prometheus instruments for the HTTP layer and the
// dispatch/billing domain.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTPMetrics instruments inbound requests.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewHTTPMetrics() *HTTPMetrics {
	return newHTTPMetrics(prometheus.DefaultRegisterer)
}

func newHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	factory := promauto.With(reg)
	return &HTTPMetrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clubops_http_requests_total",
			Help: "Count of HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "clubops_http_request_duration_seconds",
			Help:    "HTTP request latency by route and method.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
}

// GinMiddleware records request counts and latency.
func GinMiddleware(m *HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		m.requests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		m.duration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}

// DispatchMetrics instruments the checkout/checkin state machine and the
// billing aggregator.
type DispatchMetrics struct {
	checkouts     *prometheus.CounterVec
	checkins      prometheus.Counter
	billingRuns   *prometheus.CounterVec
	invoices      *prometheus.CounterVec
	capturedCents prometheus.Counter
	runDuration   prometheus.Histogram
}

func NewDispatchMetrics() *DispatchMetrics {
	return newDispatchMetrics(prometheus.DefaultRegisterer)
}

func newDispatchMetrics(reg prometheus.Registerer) *DispatchMetrics {
	factory := promauto.With(reg)
	return &DispatchMetrics{
		checkouts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clubops_checkouts_total",
			Help: "Aircraft checkout attempts by outcome.",
		}, []string{"outcome"}),
		checkins: factory.NewCounter(prometheus.CounterOpts{
			Name: "clubops_checkins_total",
			Help: "Completed aircraft checkins.",
		}),
		billingRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clubops_billing_runs_total",
			Help: "Billing runs by terminal status.",
		}, []string{"status"}),
		invoices: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clubops_invoices_total",
			Help: "Invoices produced by billing runs, by status.",
		}, []string{"status"}),
		capturedCents: factory.NewCounter(prometheus.CounterOpts{
			Name: "clubops_captured_cents_total",
			Help: "Total amount captured from payment providers, in cents.",
		}),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "clubops_billing_run_duration_seconds",
			Help:    "Wall time of billing runs.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
	}
}

func (m *DispatchMetrics) IncCheckout(outcome string) {
	if m == nil {
		return
	}
	m.checkouts.WithLabelValues(outcome).Inc()
}

func (m *DispatchMetrics) IncCheckin() {
	if m == nil {
		return
	}
	m.checkins.Inc()
}

func (m *DispatchMetrics) IncBillingRun(status string) {
	if m == nil {
		return
	}
	m.billingRuns.WithLabelValues(status).Inc()
}

func (m *DispatchMetrics) IncInvoice(status string) {
	if m == nil {
		return
	}
	m.invoices.WithLabelValues(status).Inc()
}

func (m *DispatchMetrics) AddCapturedCents(cents int64) {
	if m == nil || cents <= 0 {
		return
	}
	m.capturedCents.Add(float64(cents))
}

func (m *DispatchMetrics) ObserveRunDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.runDuration.Observe(d.Seconds())
}
