package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"twitsent/pkg/collector"
	errs "twitsent/pkg/errors"
	"twitsent/pkg/models"
)

const namespace = "twitsent"

const (
	// OutcomeSuccess labels requests and runs that completed.
	OutcomeSuccess = "success"
	// OutcomeThrottled labels requests rejected with a rate limit signal.
	OutcomeThrottled = "throttled"
	// OutcomeError labels everything else.
	OutcomeError = "error"
)

// Metrics holds the collectors for one process
type Metrics struct {
	requestsTotal     *prometheus.CounterVec
	requestSeconds    prometheus.Histogram
	intervalsTotal    *prometheus.CounterVec
	itemsTotal        *prometheus.CounterVec
	emptyIntervals    *prometheus.CounterVec
	cooldownsTotal    prometheus.Counter
	cooldownSeconds   prometheus.Counter
	warningsTotal     *prometheus.CounterVec
	runsTotal         *prometheus.CounterVec
	runSeconds        prometheus.Histogram
	intervalsExpected *prometheus.GaugeVec
}

// New creates an unregistered set of collectors.
func New() *Metrics {
	return &Metrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "search_requests_total",
				Help:      "Search requests issued, partitioned by outcome.",
			},
			[]string{"outcome"},
		),
		requestSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "search_request_seconds",
				Help:      "Search request latency in seconds.",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16},
			},
		),
		intervalsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "intervals_collected_total",
				Help:      "Intervals collected, partitioned by series.",
			},
			[]string{"series"},
		),
		itemsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "items_collected_total",
				Help:      "Normalized texts collected, partitioned by series.",
			},
			[]string{"series"},
		),
		emptyIntervals: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "empty_intervals_total",
				Help:      "Intervals for which the provider returned no matches.",
			},
			[]string{"series"},
		),
		cooldownsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "throttle_cooldowns_total",
				Help:      "Rate limit cooldowns entered.",
			},
		),
		cooldownSeconds: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "throttle_cooldown_seconds_total",
				Help:      "Time spent waiting out rate limit cooldowns.",
			},
		),
		warningsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "warnings_total",
				Help:      "Collection warnings raised, partitioned by kind.",
			},
			[]string{"kind"},
		),
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Collection runs finished, partitioned by mode and outcome.",
			},
			[]string{"mode", "outcome"},
		),
		runSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_seconds",
				Help:      "Collection run duration in seconds.",
				Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
			},
		),
		intervalsExpected: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "intervals_expected",
				Help:      "Intervals the current run will collect, partitioned by series.",
			},
			[]string{"series"},
		),
	}
}

// Register attaches the collectors to reg. Collectors that are already
// registered are skipped.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.requestsTotal,
		m.requestSeconds,
		m.intervalsTotal,
		m.itemsTotal,
		m.emptyIntervals,
		m.cooldownsTotal,
		m.cooldownSeconds,
		m.warningsTotal,
		m.runsTotal,
		m.runSeconds,
		m.intervalsExpected,
	}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveRun records a finished run.
func (m *Metrics) ObserveRun(mode string, duration time.Duration, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	m.runsTotal.WithLabelValues(mode, outcome).Inc()
	if duration < 0 {
		duration = 0
	}
	m.runSeconds.Observe(duration.Seconds())
}

// Observer returns a collector.Observer that records progress under series.
func (m *Metrics) Observer(series string) collector.Observer {
	return &observer{m: m, series: series}
}

type observer struct {
	m      *Metrics
	series string
}

func (o *observer) IntervalStarted(index, total int, _ models.TimeWindow) {
	if index == 0 {
		o.m.intervalsExpected.WithLabelValues(o.series).Set(float64(total))
	}
}

func (o *observer) IntervalCompleted(interval models.Interval, _ int) {
	o.m.intervalsTotal.WithLabelValues(o.series).Inc()
	o.m.itemsTotal.WithLabelValues(o.series).Add(float64(len(interval.Items)))
	if len(interval.Items) == 0 {
		o.m.emptyIntervals.WithLabelValues(o.series).Inc()
	}
}

func (o *observer) RequestCompleted(duration time.Duration, err error) {
	outcome := OutcomeSuccess
	switch {
	case err == nil:
	case errs.IsType(err, errs.ErrorTypeRateLimit), errs.IsType(err, errs.ErrorTypeRateLimitExhausted):
		outcome = OutcomeThrottled
	default:
		outcome = OutcomeError
	}
	o.m.requestsTotal.WithLabelValues(outcome).Inc()
	if duration < 0 {
		duration = 0
	}
	o.m.requestSeconds.Observe(duration.Seconds())
}

func (o *observer) Throttled(cooldown time.Duration) {
	o.m.cooldownsTotal.Inc()
	o.m.cooldownSeconds.Add(cooldown.Seconds())
}

func (o *observer) Warned(w collector.Warning) {
	o.m.warningsTotal.WithLabelValues(string(w.Kind)).Inc()
}
