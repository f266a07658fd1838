package api

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry        *prometheus.Registry
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	feedLoads       *prometheus.CounterVec
	exclusionSaves  prometheus.Counter
	exports         *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "feed_curator",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "feed_curator",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		feedLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "feed_curator",
			Name:      "feed_loads_total",
			Help:      "Feed documents loaded into workspaces by source and result.",
		}, []string{"source", "result"}),
		exclusionSaves: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "feed_curator",
			Name:      "exclusion_saves_total",
			Help:      "Exclusion sets persisted.",
		}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "feed_curator",
			Name:      "exports_total",
			Help:      "Exports rendered by format.",
		}, []string{"format"}),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.requestDuration,
		m.feedLoads,
		m.exclusionSaves,
		m.exports,
	)

	return m
}

func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		m.requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.requestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}

func (m *Metrics) FeedLoaded(source string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.feedLoads.WithLabelValues(source, result).Inc()
}

func (m *Metrics) ExclusionsSaved() {
	m.exclusionSaves.Inc()
}

func (m *Metrics) Exported(format string) {
	m.exports.WithLabelValues(format).Inc()
}
