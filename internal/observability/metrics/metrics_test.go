package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.GateDecision("allow")
		m.RoleStrategy("direct", ResultError, errors.New("x"))
		m.BackendRequest("rpc", 500, time.Millisecond)
		m.PaymentRequest("create", 200)
		m.PixStatus("PAID")
		m.ConfigCache(true)
		m.SetOnlineUsers(3)
		m.HTTPRequest("GET", 200)
	})
}

func TestMetrics_Counts(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.GateDecision("deny")
	m.GateDecision("deny")
	m.RoleStrategy("metadata", ResultSuccess, nil)
	m.PaymentRequest("check", 0)
	m.SetOnlineUsers(4)

	assert.InDelta(t, 2, testutil.ToFloat64(m.GateDecisionsTotal.WithLabelValues("deny")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.RoleStrategyTotal.WithLabelValues("metadata", ResultSuccess, "")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.PaymentRequestsTotal.WithLabelValues("check", ResultError)), 0)
	assert.InDelta(t, 4, testutil.ToFloat64(m.OnlineUsers), 0)
}
