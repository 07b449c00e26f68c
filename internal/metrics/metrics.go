package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pagecart",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pagecart",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "route"},
	)

	ordersSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pagecart",
			Name:      "orders_submitted_total",
			Help:      "Order submissions by source and result.",
		},
		[]string{"source", "result"},
	)

	draftWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pagecart",
			Name:      "draft_writes_total",
			Help:      "Draft autosave writes by operation and result.",
		},
		[]string{"op", "result"},
	)

	courierLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pagecart",
			Name:      "courier_lookups_total",
			Help:      "Courier history lookups by outcome.",
		},
		[]string{"result"},
	)

	sectionsRendered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pagecart",
			Name:      "sections_rendered_total",
			Help:      "Rendered page sections by type and result.",
		},
		[]string{"type", "result"},
	)
)

func init() {
	Registry.MustRegister(
		httpRequests,
		httpDuration,
		ordersSubmitted,
		draftWrites,
		courierLookups,
		sectionsRendered,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Instrument records request counts and latency per matched gin route.
func Instrument() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		if route == "/metrics" {
			return
		}
		method := c.Request.Method
		httpRequests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// RecordOrderSubmission counts a submission attempt.
func RecordOrderSubmission(source string, success bool) {
	ordersSubmitted.WithLabelValues(source, resultLabel(success)).Inc()
}

// RecordDraftWrite counts a draft create/update/convert write.
func RecordDraftWrite(op string, success bool) {
	draftWrites.WithLabelValues(op, resultLabel(success)).Inc()
}

// RecordCourierLookup counts a courier lookup outcome (hit, miss, shared, absent, error).
func RecordCourierLookup(result string) {
	courierLookups.WithLabelValues(result).Inc()
}

// RecordSectionRender counts a rendered section (ok, unknown, panic).
func RecordSectionRender(sectionType, result string) {
	sectionsRendered.WithLabelValues(sectionType, result).Inc()
}

func resultLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
