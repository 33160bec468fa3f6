// Package metrics exports subscription and broadcast activity to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roach88/fragwatch/internal/cache"
	"github.com/roach88/fragwatch/internal/fragment"
)

const namespace = "fragwatch"

// Recorder implements fragment.Recorder and cache.Recorder.
type Recorder struct {
	deliveries    *prometheus.CounterVec
	subscriptions prometheus.Gauge
	broadcasts    *prometheus.CounterVec
	broadcastHits prometheus.Counter
}

var (
	_ fragment.Recorder = (*Recorder)(nil)
	_ cache.Recorder    = (*Recorder)(nil)
)

// New registers the fragwatch collectors on reg.
func New(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		deliveries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Watch deliveries seen by subscriptions, by outcome.",
		}, []string{"outcome"}),
		subscriptions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "subscriptions_active",
			Help:      "Subscriptions currently watching the store.",
		}),
		broadcasts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcasts_total",
			Help:      "Store change events broadcast to watches, by reason.",
		}, []string{"reason"}),
		broadcastHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_deliveries_total",
			Help:      "Diffs handed to watch callbacks by the broadcast loop.",
		}),
	}
}

// Delivery counts one watch delivery.
func (r *Recorder) Delivery(outcome fragment.Outcome) {
	r.deliveries.WithLabelValues(string(outcome)).Inc()
}

// SubscriptionStarted increments the active subscription gauge.
func (r *Recorder) SubscriptionStarted() {
	r.subscriptions.Inc()
}

// SubscriptionStopped decrements the active subscription gauge.
func (r *Recorder) SubscriptionStopped() {
	r.subscriptions.Dec()
}

// BroadcastProcessed counts one broadcast event and its deliveries.
func (r *Recorder) BroadcastProcessed(reason cache.EventReason, delivered int) {
	r.broadcasts.WithLabelValues(string(reason)).Inc()
	r.broadcastHits.Add(float64(delivered))
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
