// Package metrics содержит Prometheus-метрики построения сеток.
package metrics

import (
	"time"

	"github.com/annel0/voxel-remesher/internal/mesher"
	"github.com/prometheus/client_golang/prometheus"
)

// RemeshMetrics реализует mesher.Observer и дополнительно считает
// длительности и ошибки перестроений.
//
// Метрики (namespace задаётся при создании):
// * remesh_slices_total{axis}
// * remesh_mask_cells_total{axis} - ячейки маски до слияния
// * remesh_quads_total{axis}
// * remesh_quad_area_total{axis}
// * remesh_rebuild_duration_seconds - histogram
// * remesh_rebuild_failures_total
type RemeshMetrics struct {
	slices    *prometheus.CounterVec
	cells     *prometheus.CounterVec
	quads     *prometheus.CounterVec
	area      *prometheus.CounterVec
	duration  prometheus.Histogram
	failures  prometheus.Counter
	lastQuads prometheus.Gauge
}

var _ mesher.Observer = (*RemeshMetrics)(nil)

// NewRemeshMetrics создаёт метрики и регистрирует их в reg.
// nil означает prometheus.DefaultRegisterer.
func NewRemeshMetrics(namespace string, reg prometheus.Registerer) *RemeshMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &RemeshMetrics{
		slices: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remesh_slices_total",
			Help:      "Обработанные срезы по оси нормали.",
		}, []string{"axis"}),
		cells: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remesh_mask_cells_total",
			Help:      "Открытые грани (ячейки маски) до слияния.",
		}, []string{"axis"}),
		quads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remesh_quads_total",
			Help:      "Выпущенные квады по оси нормали.",
		}, []string{"axis"}),
		area: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remesh_quad_area_total",
			Help:      "Суммарная площадь выпущенных квадов.",
		}, []string{"axis"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "remesh_rebuild_duration_seconds",
			Help:      "Длительность перестроения сетки чанка.",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
		}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remesh_rebuild_failures_total",
			Help:      "Перестроения, завершившиеся ошибкой.",
		}),
		lastQuads: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "remesh_last_mesh_quads",
			Help:      "Число квадов в последней построенной сетке.",
		}),
	}

	reg.MustRegister(m.slices, m.cells, m.quads, m.area, m.duration, m.failures, m.lastQuads)
	return m
}

// ObserveSlice вызывается ремешером для каждого среза
func (m *RemeshMetrics) ObserveSlice(s mesher.SliceStats) {
	axis := s.Axis.String()
	m.slices.WithLabelValues(axis).Inc()
	if s.Cells == 0 {
		return
	}
	m.cells.WithLabelValues(axis).Add(float64(s.Cells))
	m.quads.WithLabelValues(axis).Add(float64(s.Quads))
	m.area.WithLabelValues(axis).Add(float64(s.Area))
}

// ObserveRebuild фиксирует завершённое перестроение
func (m *RemeshMetrics) ObserveRebuild(d time.Duration, quads int, err error) {
	if err != nil {
		m.failures.Inc()
		return
	}
	m.duration.Observe(d.Seconds())
	m.lastQuads.Set(float64(quads))
}
