package slackbot

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records webhook and pipeline activity for Prometheus scraping.
type Metrics struct {
	deliveriesTotal  *prometheus.CounterVec
	outcomesTotal    *prometheus.CounterVec
	pipelineDuration prometheus.Histogram
}

// NewMetrics registers and returns the bot's Prometheus metrics. Call it at
// most once per process; promauto registers on the default registry.
func NewMetrics() *Metrics {
	return &Metrics{
		deliveriesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "takeoff_slack_deliveries_total",
				Help: "Slack event deliveries by disposition",
			},
			[]string{"disposition"},
		),
		outcomesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "takeoff_merge_outcomes_total",
				Help: "Merge pipeline outcomes by kind",
			},
			[]string{"kind"},
		),
		pipelineDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "takeoff_pipeline_duration_seconds",
				Help:    "Duration of message processing from extraction to reply",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
}

func (m *Metrics) delivery(disposition string) {
	if m == nil {
		return
	}
	m.deliveriesTotal.WithLabelValues(disposition).Inc()
}

func (m *Metrics) outcome(kind string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.outcomesTotal.WithLabelValues(kind).Inc()
	m.pipelineDuration.Observe(elapsed.Seconds())
}
