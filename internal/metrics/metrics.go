package metrics

import (
	"gopairs/domain/core"
	"gopairs/domain/screen"
	"gopairs/ports"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ScreenObserver records screening activity as Prometheus metrics
type ScreenObserver struct {
	runsTotal      *prometheus.CounterVec
	pairsEvaluated *prometheus.CounterVec
	pairsQualified *prometheus.CounterVec
	pairsSkipped   *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	closestPair    prometheus.Gauge
}

var _ ports.ScreenObserver = (*ScreenObserver)(nil)

// NewScreenObserver registers the screening metrics on reg
func NewScreenObserver(reg prometheus.Registerer) *ScreenObserver {
	factory := promauto.With(reg)
	return &ScreenObserver{
		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gopairs_screen_runs_total",
			Help: "Screening calls by method and outcome",
		}, []string{"method", "status"}),

		pairsEvaluated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gopairs_pairs_evaluated_total",
			Help: "Pairs successfully evaluated",
		}, []string{"method"}),

		pairsQualified: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gopairs_pairs_qualified_total",
			Help: "Pairs returned to the caller",
		}, []string{"method"}),

		pairsSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gopairs_pairs_skipped_total",
			Help: "Pairs dropped because their test failed",
		}, []string{"method", "code"}),

		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gopairs_screen_duration_seconds",
			Help:    "Wall time of a screening call",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"method"}),

		closestPair: factory.NewGauge(prometheus.GaugeOpts{
			Name: "gopairs_closest_pair_distance",
			Help: "Distance of the top-ranked pair in the latest distance screen",
		}),
	}
}

func (o *ScreenObserver) ScreenStarted(core.RunID, screen.Method, int, int) {}

func (o *ScreenObserver) PairSkipped(_ core.RunID, method screen.Method, skipped screen.SkippedPair) {
	o.pairsSkipped.WithLabelValues(string(method), string(skipped.Code)).Inc()
}

func (o *ScreenObserver) TopPairs(_ core.RunID, ranked []screen.DistanceResult) {
	if len(ranked) > 0 {
		o.closestPair.Set(ranked[0].Distance)
	}
}

func (o *ScreenObserver) ScreenFinished(_ core.RunID, method screen.Method, summary ports.ScreenSummary) {
	m := string(method)
	o.duration.WithLabelValues(m).Observe(summary.Duration.Seconds())
	if summary.Err != nil {
		o.runsTotal.WithLabelValues(m, "error").Inc()
		return
	}
	o.runsTotal.WithLabelValues(m, "ok").Inc()
	o.pairsEvaluated.WithLabelValues(m).Add(float64(summary.Evaluated))
	o.pairsQualified.WithLabelValues(m).Add(float64(summary.Qualified))
}
