// Package metrics holds the Prometheus collectors for backtest runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rustyeddy/gridbt/grid"
)

var (
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gridbt_runs_total",
		Help: "Backtest runs finished, by outcome",
	}, []string{"symbol", "outcome"})

	FillsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gridbt_fills_total",
		Help: "Simulated fills, by side",
	}, []string{"symbol", "side"})

	BarsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gridbt_bars_total",
		Help: "Bars fed through the simulator",
	}, []string{"symbol"})

	RunDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gridbt_run_duration_seconds",
		Help:    "Wall time of a single backtest run",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
	}, []string{"symbol"})

	BarsImported = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gridbt_bars_imported_total",
		Help: "Bars upserted into the bar store",
	}, []string{"source"})

	SweepInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gridbt_sweep_runs_in_flight",
		Help: "Sweep runs currently executing",
	})
)

// ObserveRun records the outcome of one run. err may be nil.
func ObserveRun(symbol string, rep grid.Report, took time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	RunsTotal.WithLabelValues(symbol, outcome).Inc()
	RunDuration.WithLabelValues(symbol).Observe(took.Seconds())
	if err != nil {
		return
	}
	BarsTotal.WithLabelValues(symbol).Add(float64(rep.Bars))
	for _, f := range rep.Fills {
		FillsTotal.WithLabelValues(symbol, string(f.Side)).Inc()
	}
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
