package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRegistry 创建自定义 Prometheus Registry，并注册常用采集器
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler 返回 Prometheus 指标 HTTP 处理器
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// AppMetrics 网关业务指标
type AppMetrics struct {
	TCPAccepted      prometheus.Counter
	TCPRejected      *prometheus.CounterVec // labels: reason=rate|limit
	SessionsActive   prometheus.Gauge
	CommandTotal     *prometheus.CounterVec // labels: op, result=ok|error
	DeviceTransfer   *prometheus.CounterVec // labels: phase=write|read, result=ok|error
	DeviceRetry      prometheus.Counter
	DeviceLatency    prometheus.Histogram
	DeviceBreakerHit prometheus.Counter
	EventDropped     prometheus.Counter
}

// NewAppMetrics 注册并返回业务指标
func NewAppMetrics(reg prometheus.Registerer) *AppMetrics {
	m := &AppMetrics{
		TCPAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tcp_accept_total",
			Help: "Total accepted command connections.",
		}),
		TCPRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tcp_rejected_total",
			Help: "Command connections rejected by the accept limiters.",
		}, []string{"reason"}),
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "session_active",
			Help: "Current number of open command sessions.",
		}),
		CommandTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "command_total",
			Help: "Executed sub-commands by operation and result.",
		}, []string{"op", "result"}),
		DeviceTransfer: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "device_transfer_total",
			Help: "Device channel transfer attempts by phase and result.",
		}, []string{"phase", "result"}),
		DeviceRetry: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "device_retry_total",
			Help: "Device channel transfer retries after a failed attempt.",
		}),
		DeviceLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "device_transfer_seconds",
			Help:    "Latency of a single device channel transfer attempt.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
		}),
		DeviceBreakerHit: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "device_breaker_rejected_total",
			Help: "Device sends rejected while the circuit breaker was open.",
		}),
		EventDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "event_dropped_total",
			Help: "Command events dropped because the dispatch queue was full.",
		}),
	}
	reg.MustRegister(m.TCPAccepted, m.TCPRejected, m.SessionsActive, m.CommandTotal,
		m.DeviceTransfer, m.DeviceRetry, m.DeviceLatency, m.DeviceBreakerHit, m.EventDropped)
	return m
}
