package brickyard

import (
	"errors"
	"net/http"

	"github.com/gekko3d/brickyard/brickrt/placement"
	"github.com/gekko3d/brickyard/brickrt/registry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "brickyard"

// Result labels.
const (
	ResultOK       = "ok"
	ResultNotFound = "not_found"
	ResultError    = "error"
)

// Metrics exports placement activity to Prometheus. Brick counts and layers
// come from a registry subscription; attempt outcomes come from the session.
type Metrics struct {
	placements *prometheus.CounterVec
	removals   *prometheus.CounterVec
	bricks     prometheus.Gauge
	layers     prometheus.Histogram
}

// NewMetrics registers the collectors on reg. A nil reg leaves them unregistered.
// The layer histogram gets one bucket per layer below maxStackLayers; a
// non-positive ceiling falls back to placement.DefaultMaxStackLayers.
func NewMetrics(reg prometheus.Registerer, maxStackLayers int) (*Metrics, error) {
	if maxStackLayers <= 0 {
		maxStackLayers = placement.DefaultMaxStackLayers
	}
	m := &Metrics{
		placements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "placements_total",
			Help:      "Placement attempts by result.",
		}, []string{"result"}),
		removals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "removals_total",
			Help:      "Removal attempts by result.",
		}, []string{"result"}),
		bricks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "bricks",
			Help:      "Bricks currently placed.",
		}),
		layers: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "placement_layer",
			Help:      "Layer at which bricks were committed.",
			Buckets:   prometheus.LinearBuckets(0, 1, maxStackLayers),
		}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.placements, m.removals, m.bricks, m.layers} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Attach keeps the brick gauge and layer histogram in step with r.
func (m *Metrics) Attach(r *registry.Registry) (cancel func()) {
	m.bricks.Set(float64(r.Len()))
	return r.Subscribe(func(c registry.Change) {
		switch c.Kind {
		case registry.ChangeAdded:
			m.bricks.Inc()
			m.layers.Observe(float64(c.Brick.Layer))
		case registry.ChangeRemoved:
			m.bricks.Dec()
		case registry.ChangeCleared:
			m.bricks.Sub(float64(c.Count))
		}
	})
}

func (m *Metrics) ObservePlacement(err error) {
	m.placements.WithLabelValues(placementResult(err)).Inc()
}

func (m *Metrics) ObserveRemoval(err error) {
	result := ResultOK
	switch {
	case err == nil:
	case errors.Is(err, registry.ErrNotFound):
		result = ResultNotFound
	default:
		result = ResultError
	}
	m.removals.WithLabelValues(result).Inc()
}

func placementResult(err error) string {
	if err == nil {
		return ResultOK
	}
	var rej *placement.Rejection
	if errors.As(err, &rej) {
		return rej.Reason.String()
	}
	return ResultError
}

// MetricsHandler serves the collectors gathered by g.
func MetricsHandler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
