package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const unmatchedRoute = "unmatched"

type httpMetrics struct {
	requestCounter metric.Int64Counter
	durationHisto  metric.Float64Histogram
	skip           map[string]struct{}
}

// HTTPMetricsMiddleware returns a Gin middleware that records request counts and durations
// labelled by method, route pattern and status code. Routes listed in skipRoutes, such as
// probes, are not recorded.
func HTTPMetricsMiddleware(meterProvider metric.MeterProvider, namespace string, skipRoutes ...string) gin.HandlerFunc {
	meter := meterProvider.Meter(namespace)

	requestCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_http_requests_total", namespace),
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return passthrough
	}

	durationHisto, err := meter.Float64Histogram(
		fmt.Sprintf("%s_http_request_duration_seconds", namespace),
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return passthrough
	}

	m := &httpMetrics{
		requestCounter: requestCounter,
		durationHisto:  durationHisto,
		skip:           make(map[string]struct{}, len(skipRoutes)),
	}
	for _, route := range skipRoutes {
		m.skip[route] = struct{}{}
	}

	return m.handle
}

func (m *httpMetrics) handle(c *gin.Context) {
	start := time.Now()
	c.Next()

	route := routeLabel(c.FullPath())
	if _, ok := m.skip[route]; ok {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("method", c.Request.Method),
		attribute.String("route", route),
		attribute.String("status_code", strconv.Itoa(c.Writer.Status())),
	)
	m.requestCounter.Add(c.Request.Context(), 1, attrs)
	m.durationHisto.Record(c.Request.Context(), time.Since(start).Seconds(), attrs)
}

func passthrough(c *gin.Context) {
	c.Next()
}

// routeLabel keeps pseudonyms and ids out of labels by using the route pattern.
func routeLabel(fullPath string) string {
	if fullPath == "" {
		return unmatchedRoute
	}
	return fullPath
}
