package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "leaps_backtest"

// Metrics holds the Prometheus collectors for backtest runs and sweeps.
// Each instance owns its registry so several can live in one process.
type Metrics struct {
	registry *prometheus.Registry

	runsTotal        *prometheus.CounterVec
	runDuration      *prometheus.HistogramVec
	tradesTotal      *prometheus.CounterVec
	tradePnL         *prometheus.HistogramVec
	signalsTotal     *prometheus.CounterVec
	skippedBuysTotal *prometheus.CounterVec
	finalValue       *prometheus.GaugeVec
	totalReturn      *prometheus.GaugeVec
	maxDrawdown      *prometheus.GaugeVec
	sweepJobsTotal   *prometheus.CounterVec
	errorsTotal      *prometheus.CounterVec
}

// NewMetrics creates and registers the collectors on a fresh registry
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Total number of backtest runs by outcome",
			},
			[]string{"symbol", "status"},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Wall time of a single backtest run",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"symbol"},
		),
		tradesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "trades_total",
				Help:      "Total number of closed trades by exit reason",
			},
			[]string{"symbol", "reason"},
		),
		tradePnL: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "trade_pnl_dollars",
				Help:      "Distribution of realised trade PnL",
				Buckets:   []float64{-10000, -5000, -1000, -500, 0, 500, 1000, 5000, 10000},
			},
			[]string{"symbol"},
		),
		signalsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "signals_total",
				Help:      "Total number of emitted signals by type",
			},
			[]string{"symbol", "type"},
		),
		skippedBuysTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "skipped_buys_total",
				Help:      "Scheduled buys that did not open a position",
			},
			[]string{"symbol"},
		),
		finalValue: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_run_final_value",
				Help:      "Final portfolio value of the most recent run",
			},
			[]string{"symbol"},
		),
		totalReturn: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_run_total_return",
				Help:      "Total return fraction of the most recent run",
			},
			[]string{"symbol"},
		),
		maxDrawdown: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_run_max_drawdown",
				Help:      "Max drawdown fraction of the most recent run",
			},
			[]string{"symbol"},
		),
		sweepJobsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sweep_jobs_total",
				Help:      "Parameter sweep jobs by outcome",
			},
			[]string{"status"},
		),
		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total number of errors by category",
			},
			[]string{"category"},
		),
	}

	m.registry.MustRegister(
		m.runsTotal,
		m.runDuration,
		m.tradesTotal,
		m.tradePnL,
		m.signalsTotal,
		m.skippedBuysTotal,
		m.finalValue,
		m.totalReturn,
		m.maxDrawdown,
		m.sweepJobsTotal,
		m.errorsTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry, mostly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RunSummary is what a finished run reports to the collectors
type RunSummary struct {
	Symbol       string
	Duration     time.Duration
	FinalValue   float64
	TotalReturn  float64
	MaxDrawdown  float64
	TradeReasons []string
	TradePnLs    []float64
	SignalTypes  []string
	SkippedBuys  int
}

// RecordRun records a completed run
func (m *Metrics) RecordRun(s RunSummary) {
	m.runsTotal.WithLabelValues(s.Symbol, "success").Inc()
	m.runDuration.WithLabelValues(s.Symbol).Observe(s.Duration.Seconds())

	for _, reason := range s.TradeReasons {
		m.tradesTotal.WithLabelValues(s.Symbol, reason).Inc()
	}
	for _, pnl := range s.TradePnLs {
		m.tradePnL.WithLabelValues(s.Symbol).Observe(pnl)
	}
	for _, t := range s.SignalTypes {
		m.signalsTotal.WithLabelValues(s.Symbol, t).Inc()
	}
	if s.SkippedBuys > 0 {
		m.skippedBuysTotal.WithLabelValues(s.Symbol).Add(float64(s.SkippedBuys))
	}

	m.finalValue.WithLabelValues(s.Symbol).Set(s.FinalValue)
	m.totalReturn.WithLabelValues(s.Symbol).Set(s.TotalReturn)
	m.maxDrawdown.WithLabelValues(s.Symbol).Set(s.MaxDrawdown)
}

// RecordRunFailure records a run that returned an error
func (m *Metrics) RecordRunFailure(symbol, category string) {
	m.runsTotal.WithLabelValues(symbol, "failed").Inc()
	m.RecordError(category)
}

// RecordSweepJob records one finished sweep job
func (m *Metrics) RecordSweepJob(failed bool) {
	status := "success"
	if failed {
		status = "failed"
	}
	m.sweepJobsTotal.WithLabelValues(status).Inc()
}

// RecordError records an error metric
func (m *Metrics) RecordError(category string) {
	if category == "" {
		category = "UNKNOWN"
	}
	m.errorsTotal.WithLabelValues(category).Inc()
}
