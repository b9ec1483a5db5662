// Package metrics exposes the engine's Prometheus instruments. A nil
// *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the engine's instruments. A nil *Metrics records nothing.
type Metrics struct {
	actionsDispatched *prometheus.CounterVec
	actionsFinished   *prometheus.CounterVec
	bridgeCalls       *prometheus.CounterVec
	bridgeLatency     *prometheus.HistogramVec
	signPolls         prometheus.Counter
	pendingQueued     prometheus.Counter
	walletConnected   prometheus.Gauge
}

// New registers the instruments with reg. A nil reg leaves them
// unregistered, which tests use to avoid collisions.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		actionsDispatched: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chainplay_actions_dispatched_total",
				Help: "Game actions handed to the dispatcher",
			},
			[]string{"action"},
		),
		actionsFinished: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chainplay_actions_finished_total",
				Help: "Game actions that reached a terminal state",
			},
			[]string{"action", "state"},
		),
		bridgeCalls: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chainplay_bridge_calls_total",
				Help: "Calls made to the wallet bridge",
			},
			[]string{"op", "result"},
		),
		bridgeLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chainplay_bridge_call_duration_seconds",
				Help:    "Wallet bridge call latency",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 5},
			},
			[]string{"op"},
		),
		signPolls: f.NewCounter(
			prometheus.CounterOpts{
				Name: "chainplay_sign_request_polls_total",
				Help: "Status polls issued while awaiting signatures",
			},
		),
		pendingQueued: f.NewCounter(
			prometheus.CounterOpts{
				Name: "chainplay_pending_actions_queued_total",
				Help: "Actions deferred until the wallet connects",
			},
		),
		walletConnected: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "chainplay_wallet_connected",
				Help: "1 once the player's wallet is connected",
			},
		),
	}
}

// ActionDispatched counts a hook that started a run.
func (m *Metrics) ActionDispatched(action string) {
	if m == nil {
		return
	}
	m.actionsDispatched.WithLabelValues(action).Inc()
}

// ActionFinished counts a run reaching state.
func (m *Metrics) ActionFinished(action, state string) {
	if m == nil {
		return
	}
	m.actionsFinished.WithLabelValues(action, state).Inc()
}

// BridgeCall records the outcome and latency of one bridge request.
func (m *Metrics) BridgeCall(op string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.bridgeCalls.WithLabelValues(op, result).Inc()
	m.bridgeLatency.WithLabelValues(op).Observe(elapsed.Seconds())
}

// SignPoll counts one sign request status poll.
func (m *Metrics) SignPoll() {
	if m == nil {
		return
	}
	m.signPolls.Inc()
}

// PendingQueued counts an action queued until the wallet connects.
func (m *Metrics) PendingQueued() {
	if m == nil {
		return
	}
	m.pendingQueued.Inc()
}

// WalletConnected sets the wallet connection gauge.
func (m *Metrics) WalletConnected(connected bool) {
	if m == nil {
		return
	}
	if connected {
		m.walletConnected.Set(1)
		return
	}
	m.walletConnected.Set(0)
}
