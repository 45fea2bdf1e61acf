// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file exposes Prometheus instrumentation for intake traffic. Labels:
//
//   - channel: "web" for the session API, "whatsapp" for the webhook and
//     "ops" for health, status, metrics and docs
//   - method:  HTTP verb
//   - path:    the registered Gin route (e.g. /api/v1/sessions/:id/messages),
//     or "unmatched"; raw URLs embed session ids and phone numbers
//   - status:  numeric status code as a string
package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	channelWeb      = "web"
	channelWhatsApp = "whatsapp"
	channelOps      = "ops"
)

var (
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_http_requests_total",
			Help: "HTTP requests by channel, method, route and status.",
		},
		[]string{"channel", "method", "path", "status"},
	)

	// Turns that reach the AI backend can take up to the AI timeout plus a
	// scripted fallback, so the upper buckets go past the default 10s.
	httpLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "intake_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2, 4, 8, 15, 30},
		},
		[]string{"channel", "method", "path"},
	)

	httpInflight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "intake_http_requests_inflight",
			Help: "Current number of in-flight HTTP requests.",
		},
		[]string{"channel"},
	)

	// Replies are short chat messages; lead listings are the large end.
	httpRespSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "intake_http_response_size_bytes",
			Help:    "Size of HTTP responses in bytes.",
			Buckets: []float64{100, 250, 500, 1 << 10, 2 << 10, 4 << 10, 16 << 10, 64 << 10, 256 << 10},
		},
		[]string{"channel", "path"},
	)

	// rateLimited counts requests rejected by RateLimiter by bucket namespace
	// (session, sender, ip).
	rateLimited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_http_rate_limited_total",
			Help: "Requests rejected by the rate limiter.",
		},
		[]string{"key_kind"},
	)
)

func init() {
	prometheus.MustRegister(httpReqs, httpLat, httpInflight, httpRespSize, rateLimited)
}

// channelOf maps a request path to its traffic channel.
func channelOf(path string) string {
	switch {
	case strings.Contains(path, "/webhooks/"):
		return channelWhatsApp
	case strings.Contains(path, "/sessions"), strings.Contains(path, "/leads"):
		return channelWeb
	default:
		return channelOps
	}
}

// Metrics returns a Gin middleware that instruments requests with Prometheus.
// The channel is resolved from the raw URL before routing so the in-flight
// gauge can be labelled; the path label uses c.FullPath() after routing.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		channel := channelOf(c.Request.URL.Path)
		inflight := httpInflight.WithLabelValues(channel)
		inflight.Inc()
		defer inflight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method
		status := strconv.Itoa(c.Writer.Status())

		httpReqs.WithLabelValues(channel, method, path, status).Inc()
		httpLat.WithLabelValues(channel, method, path).Observe(time.Since(start).Seconds())
		if size := c.Writer.Size(); size >= 0 {
			httpRespSize.WithLabelValues(channel, path).Observe(float64(size))
		}
	}
}
