// Package metrics exposes the Prometheus collectors of the gateway. Every
// method is safe to call on a nil *Metrics so callers never need to guard.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	obserrors "github.com/gelatohub/painel/internal/observability/errors"
)

// Result constants for metric labels.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultMiss    = "miss"
)

// Metrics holds all Prometheus collectors.
type Metrics struct {
	GateDecisionsTotal    *prometheus.CounterVec
	RoleStrategyTotal     *prometheus.CounterVec
	BackendRequestsTotal  *prometheus.CounterVec
	BackendRequestSeconds *prometheus.HistogramVec
	PaymentRequestsTotal  *prometheus.CounterVec
	PixStatusTotal        *prometheus.CounterVec
	ConfigCacheTotal      *prometheus.CounterVec
	OnlineUsers           prometheus.Gauge
	HTTPRequestsTotal     *prometheus.CounterVec
}

// New creates and registers all collectors on registry.
func New(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		GateDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "painel_gate_decisions_total",
				Help: "Access gate decisions by outcome",
			},
			[]string{"outcome"},
		),
		RoleStrategyTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "painel_role_strategy_total",
				Help: "Role resolution attempts by strategy and result",
			},
			[]string{"strategy", "result", "error_class"},
		),
		BackendRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "painel_backend_requests_total",
				Help: "Requests sent to the hosted backend",
			},
			[]string{"operation", "status"},
		),
		BackendRequestSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "painel_backend_request_duration_seconds",
				Help:    "Hosted backend request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		PaymentRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "painel_payment_requests_total",
				Help: "Payment proxy calls by operation and upstream status",
			},
			[]string{"operation", "status"},
		),
		PixStatusTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "painel_pix_status_total",
				Help: "Pix statuses observed on check responses",
			},
			[]string{"status"},
		),
		ConfigCacheTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "painel_config_cache_total",
				Help: "Configuration cache lookups by result",
			},
			[]string{"result"},
		),
		OnlineUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "painel_online_users",
			Help: "Users with a recent presence heartbeat",
		}),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "painel_http_requests_total",
				Help: "HTTP requests served",
			},
			[]string{"method", "status"},
		),
	}

	registry.MustRegister(
		m.GateDecisionsTotal,
		m.RoleStrategyTotal,
		m.BackendRequestsTotal,
		m.BackendRequestSeconds,
		m.PaymentRequestsTotal,
		m.PixStatusTotal,
		m.ConfigCacheTotal,
		m.OnlineUsers,
		m.HTTPRequestsTotal,
	)
	return m
}

// GateDecision counts one access gate outcome.
func (m *Metrics) GateDecision(outcome string) {
	if m == nil {
		return
	}
	m.GateDecisionsTotal.WithLabelValues(outcome).Inc()
}

// RoleStrategy counts one resolver step. err is classified when result is ResultError.
func (m *Metrics) RoleStrategy(strategy, result string, err error) {
	if m == nil {
		return
	}
	class := ""
	if result == ResultError {
		class = obserrors.Classify(err)
	}
	m.RoleStrategyTotal.WithLabelValues(strategy, result, class).Inc()
}

// BackendRequest records one backend round trip. status is 0 on transport errors.
func (m *Metrics) BackendRequest(operation string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.BackendRequestsTotal.WithLabelValues(operation, statusLabel(status)).Inc()
	m.BackendRequestSeconds.WithLabelValues(operation).Observe(d.Seconds())
}

// PaymentRequest records one payment proxy call.
func (m *Metrics) PaymentRequest(operation string, status int) {
	if m == nil {
		return
	}
	m.PaymentRequestsTotal.WithLabelValues(operation, statusLabel(status)).Inc()
}

// PixStatus counts an observed Pix status.
func (m *Metrics) PixStatus(status string) {
	if m == nil || status == "" {
		return
	}
	m.PixStatusTotal.WithLabelValues(status).Inc()
}

// ConfigCache counts a configuration cache lookup.
func (m *Metrics) ConfigCache(hit bool) {
	if m == nil {
		return
	}
	result := ResultMiss
	if hit {
		result = "hit"
	}
	m.ConfigCacheTotal.WithLabelValues(result).Inc()
}

// SetOnlineUsers sets the online users gauge.
func (m *Metrics) SetOnlineUsers(n int) {
	if m == nil {
		return
	}
	m.OnlineUsers.Set(float64(n))
}

// HTTPRequest counts one served request.
func (m *Metrics) HTTPRequest(method string, status int) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, statusLabel(status)).Inc()
}

func statusLabel(status int) string {
	if status == 0 {
		return ResultError
	}
	return strconv.Itoa(status)
}
