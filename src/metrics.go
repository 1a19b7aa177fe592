package phy

/*------------------------------------------------------------------
 *
 * Purpose:	Prometheus collectors for long soak runs.
 *
 * Description:	The soak harness can run for days against recorded or
 *		synthesized line streams; these counters make lock stability
 *		observable from the usual dashboards instead of only from
 *		the CSV event log.
 *
 *------------------------------------------------------------------*/

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type LineMetrics struct {
	CyclesTotal       prometheus.Counter
	RelocksTotal      prometheus.Counter
	UnlocksTotal      prometheus.Counter
	SignalLossTotal   prometheus.Counter
	SymbolErrorsTotal prometheus.Counter
	Locked            prometheus.Gauge
}

func NewLineMetrics(reg prometheus.Registerer) *LineMetrics {
	var factory = promauto.With(reg)

	return &LineMetrics{
		CyclesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "softphy_cycles_total",
			Help: "Descrambler cycles stepped.",
		}),
		RelocksTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "softphy_relocks_total",
			Help: "Lock acquisitions, including reacquisitions.",
		}),
		UnlocksTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "softphy_unlocks_total",
			Help: "Times the unlock hysteresis timer expired.",
		}),
		SignalLossTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "softphy_signal_loss_total",
			Help: "Cycles spent with signal_status deasserted.",
		}),
		SymbolErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "softphy_symbol_errors_total",
			Help: "Injected or observed bad symbols while locked.",
		}),
		Locked: factory.NewGauge(prometheus.GaugeOpts{
			Name: "softphy_locked",
			Help: "1 while the descrambler reports lock.",
		}),
	}
}
