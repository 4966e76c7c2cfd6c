package observability

import (
	"context"
	"net/http"
	"time"

	"github.com/aretw0/switchboard/pkg/node"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics records node outcomes as Prometheus metrics.
type Metrics struct {
	finished *prometheus.CounterVec
	attempts *prometheus.HistogramVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		finished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "switchboard_node_finished_total",
				Help: "Total number of finished node runs by outcome",
			},
			[]string{"node", "state"},
		),
		attempts: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "switchboard_node_attempts",
				Help:    "Failed input attempts per node run",
				Buckets: []float64{0, 1, 2, 3, 5, 8},
			},
			[]string{"node"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "switchboard_node_duration_seconds",
				Help:    "Duration of node runs",
				Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
			},
			[]string{"node"},
		),
	}

	for _, c := range []prometheus.Collector{m.finished, m.attempts, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// NodeFinished implements controller.Observer.
func (m *Metrics) NodeFinished(ctx context.Context, sessionID string, n *node.Node, d time.Duration) {
	m.finished.WithLabelValues(n.Name(), n.State().String()).Inc()
	m.attempts.WithLabelValues(n.Name()).Observe(float64(n.AttemptsUsed()))
	m.duration.WithLabelValues(n.Name()).Observe(d.Seconds())
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
