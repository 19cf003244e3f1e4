package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors exported by the wallet service. A nil *Metrics is
// valid and records nothing, which keeps unit tests free of registry setup.
type Metrics struct {
	settlements       *prometheus.CounterVec
	transfers         *prometheus.CounterVec
	depositsInitiated *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	gatherer          prometheus.Gatherer
}

// New registers the wallet collectors with reg.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		settlements: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallet_settlements_total",
				Help: "On-ramp settlement attempts by outcome.",
			},
			[]string{"outcome"},
		),
		transfers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallet_transfers_total",
				Help: "P2P transfer attempts by outcome.",
			},
			[]string{"outcome"},
		),
		depositsInitiated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallet_deposits_initiated_total",
				Help: "On-ramp deposits created, by bank provider.",
			},
			[]string{"provider"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wallet_http_request_duration_seconds",
				Help:    "Latency of HTTP requests.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
		gatherer: reg,
	}
	reg.MustRegister(m.settlements, m.transfers, m.depositsInitiated, m.httpDuration)
	return m
}

// Settlement counts one settlement attempt.
func (m *Metrics) Settlement(outcome string) {
	if m == nil {
		return
	}
	m.settlements.WithLabelValues(outcome).Inc()
}

// Transfer counts one transfer attempt.
func (m *Metrics) Transfer(outcome string) {
	if m == nil {
		return
	}
	m.transfers.WithLabelValues(outcome).Inc()
}

// DepositInitiated counts a created on-ramp deposit.
func (m *Metrics) DepositInitiated(provider string) {
	if m == nil {
		return
	}
	m.depositsInitiated.WithLabelValues(provider).Inc()
}

// ObserveHTTP records a request latency in seconds.
func (m *Metrics) ObserveHTTP(method, route, status string, seconds float64) {
	if m == nil {
		return
	}
	m.httpDuration.WithLabelValues(method, route, status).Observe(seconds)
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
