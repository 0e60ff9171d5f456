// Package metrics exposes the host's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors the host and API update.
type Metrics struct {
	InstructionsApplied *prometheus.CounterVec
	InstructionsAborted *prometheus.CounterVec
	EventsEmitted       prometheus.Counter
	TransferVolume      prometheus.Counter
	LedgerAccounts      prometheus.Gauge
	LedgerRecords       prometheus.Gauge
	ApplyDuration       prometheus.Histogram
}

// New registers all collectors on the given registry.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		InstructionsApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chainchat",
			Name:      "instructions_applied_total",
			Help:      "Instructions applied successfully, by kind.",
		}, []string{"kind"}),
		InstructionsAborted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chainchat",
			Name:      "instructions_aborted_total",
			Help:      "Instructions rolled back, by kind and error category.",
		}, []string{"kind", "category"}),
		EventsEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chainchat",
			Name:      "events_emitted_total",
			Help:      "Events persisted by applied instructions.",
		}),
		TransferVolume: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chainchat",
			Name:      "transfer_volume_total",
			Help:      "Cumulative units moved by membership payments and withdrawals.",
		}),
		LedgerAccounts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "chainchat",
			Name:      "ledger_accounts",
			Help:      "Accounts with a balance entry.",
		}),
		LedgerRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "chainchat",
			Name:      "ledger_records",
			Help:      "State records in the ledger.",
		}),
		ApplyDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "chainchat",
			Name:      "apply_duration_seconds",
			Help:      "Time spent applying one instruction.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
		}),
	}
	reg.MustRegister(
		m.InstructionsApplied,
		m.InstructionsAborted,
		m.EventsEmitted,
		m.TransferVolume,
		m.LedgerAccounts,
		m.LedgerRecords,
		m.ApplyDuration,
	)
	return m
}
