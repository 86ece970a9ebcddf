// Package telemetry exposes Prometheus instruments for the attendance rounds.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "attendance"

// Flush triggers.
const (
	TriggerClose    = "close"
	TriggerExpiry   = "expiry"
	TriggerShutdown = "shutdown"
)

// Metrics holds the coordinator instruments. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	roundsOpened   *prometheus.CounterVec
	checkIns       *prometheus.CounterVec
	flushes        *prometheus.CounterVec
	flushedRecords prometheus.Counter
	activeRound    prometheus.Gauge
}

// NewMetrics registers the instruments on reg. If reg is nil, it returns nil.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		return nil, nil
	}

	m := &Metrics{
		roundsOpened: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_opened_total",
			Help:      "Rounds opened, by kind (open, warm_restart, cold_restart).",
		}, []string{"kind"}),
		checkIns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "check_ins_total",
			Help:      "Check-in attempts by result.",
		}, []string{"result"}),
		flushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flushes_total",
			Help:      "Buffer flushes by trigger and result.",
		}, []string{"trigger", "result"}),
		flushedRecords: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flushed_records_total",
			Help:      "Attendance records written back by successful flushes.",
		}),
		activeRound: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_round",
			Help:      "1 while a check-in round is active.",
		}),
	}

	for _, c := range []prometheus.Collector{m.roundsOpened, m.checkIns, m.flushes, m.flushedRecords, m.activeRound} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) RoundOpened(kind string) {
	if m == nil {
		return
	}
	m.roundsOpened.WithLabelValues(kind).Inc()
	m.activeRound.Set(1)
}

func (m *Metrics) CheckIn(result string) {
	if m == nil {
		return
	}
	m.checkIns.WithLabelValues(result).Inc()
}

// Flushed records one flush. The round is idle afterwards regardless of err.
func (m *Metrics) Flushed(trigger string, records int, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	} else {
		m.flushedRecords.Add(float64(records))
	}
	m.flushes.WithLabelValues(trigger, result).Inc()
	m.activeRound.Set(0)
}
