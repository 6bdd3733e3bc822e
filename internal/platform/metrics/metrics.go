// Package metrics exposes Prometheus collectors for the HTTP API and the message handlers.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what the HTTP middleware and the message worker report to.
type Recorder interface {
	ObserveHTTP(method, route string, status int, elapsed time.Duration)
	ObserveMessage(pattern, outcome string, elapsed time.Duration)
}

type Collector struct {
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	messages     *prometheus.CounterVec
	msgDuration  *prometheus.HistogramVec
}

// NewCollector registers every collector on reg, plus the Go and process collectors.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rpc_messages_total",
			Help: "Handled messages by pattern and outcome.",
		}, []string{"pattern", "outcome"}),
		msgDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rpc_message_duration_seconds",
			Help:    "Message handling latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"pattern"}),
	}
	reg.MustRegister(
		c.httpRequests, c.httpDuration, c.messages, c.msgDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

func (c *Collector) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (c *Collector) ObserveMessage(pattern, outcome string, elapsed time.Duration) {
	c.messages.WithLabelValues(pattern, outcome).Inc()
	c.msgDuration.WithLabelValues(pattern).Observe(elapsed.Seconds())
}

// Handler serves the exposition format for g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Nop discards observations.
type Nop struct{}

func (Nop) ObserveHTTP(string, string, int, time.Duration) {}

func (Nop) ObserveMessage(string, string, time.Duration) {}
