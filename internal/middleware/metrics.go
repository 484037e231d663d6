package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics creates a middleware that records per-route request counts and
// latency through the OTel meter, which the Prometheus exporter surfaces
// on /metrics.
func Metrics(meter metric.Meter) gin.HandlerFunc {
	requests, _ := meter.Int64Counter("http_server_requests_total",
		metric.WithDescription("Number of HTTP requests handled"))
	duration, _ := meter.Float64Histogram("http_server_request_duration_seconds",
		metric.WithDescription("HTTP request latency in seconds"),
		metric.WithUnit("s"))

	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		attrs := metric.WithAttributes(
			attribute.String("method", c.Request.Method),
			attribute.String("route", route),
			attribute.String("status", strconv.Itoa(c.Writer.Status())),
		)

		ctx := c.Request.Context()
		requests.Add(ctx, 1, attrs)
		duration.Record(ctx, time.Since(start).Seconds(), attrs)
	}
}
