// Package metrics - счётчики prometheus для расчётов и выплат.
// Все методы безопасны для nil, чтобы сервисы можно было собирать без метрик.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ledger"

type Metrics struct {
	settlements      *prometheus.CounterVec
	settlementNoops  prometheus.Counter
	payoutsRequested prometheus.Counter
	payoutsConfirmed prometheus.Counter
	payoutsStale     prometheus.Counter
	rateChanges      *prometheus.CounterVec
}

// New регистрирует счётчики в reg
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		settlements: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settlements_total",
			Help:      "Lessons settled, by resolved payment method.",
		}, []string{"method"}),
		settlementNoops: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settlement_noops_total",
			Help:      "Settlement calls for lessons that were already settled.",
		}),
		payoutsRequested: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payouts_requested_total",
			Help:      "Payout requests created.",
		}),
		payoutsConfirmed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payouts_confirmed_total",
			Help:      "Payout requests confirmed.",
		}),
		payoutsStale: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payouts_stale_total",
			Help:      "Payout confirmations rejected because new lessons settled after the request.",
		}),
		rateChanges: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_changes_total",
			Help:      "Commission rate change attempts, by result.",
		}, []string{"result"}),
	}
}

// Handler отдаёт метрики из gatherer в формате prometheus
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func (m *Metrics) Settled(method string) {
	if m == nil {
		return
	}
	m.settlements.WithLabelValues(method).Inc()
}

func (m *Metrics) SettlementNoop() {
	if m == nil {
		return
	}
	m.settlementNoops.Inc()
}

func (m *Metrics) PayoutRequested() {
	if m == nil {
		return
	}
	m.payoutsRequested.Inc()
}

func (m *Metrics) PayoutConfirmed() {
	if m == nil {
		return
	}
	m.payoutsConfirmed.Inc()
}

func (m *Metrics) PayoutStale() {
	if m == nil {
		return
	}
	m.payoutsStale.Inc()
}

func (m *Metrics) RateChange(result string) {
	if m == nil {
		return
	}
	m.rateChanges.WithLabelValues(result).Inc()
}
