package eventbus

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsExporter периодически переносит Stats шины в Prometheus.
// Эндпоинт /metrics отдаёт REST сервер.
type MetricsExporter struct {
	bus      EventBus
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	started  atomic.Bool

	published prometheus.Counter
	consumed  prometheus.Counter
	dropped   prometheus.Counter
	inflight  prometheus.Gauge

	prev Stats
}

// NewMetricsExporter создаёт экспортер и регистрирует метрики в reg
// (nil - prometheus.DefaultRegisterer). Обновление не запускается.
func NewMetricsExporter(bus EventBus, reg prometheus.Registerer) *MetricsExporter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	me := &MetricsExporter{
		bus:  bus,
		quit: make(chan struct{}),
		done: make(chan struct{}),
		published: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "eventbus",
			Name:      "messages_published_total",
			Help:      "Общее число опубликованных сообщений.",
		}),
		consumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "eventbus",
			Name:      "messages_consumed_total",
			Help:      "Общее число доставленных сообщений подписчикам.",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "eventbus",
			Name:      "messages_dropped_total",
			Help:      "Сообщений, отброшенных из-за ошибок или ограничения back-pressure.",
		}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "eventbus",
			Name:      "messages_inflight",
			Help:      "Количество сообщений, находящихся в очереди (не доставленных).",
		}),
	}

	reg.MustRegister(me.published, me.consumed, me.dropped, me.inflight)
	return me
}

// Start запускает обновление метрик с периодом every. Неблокирующий.
func (m *MetricsExporter) Start(every time.Duration) {
	if m.started.CompareAndSwap(false, true) {
		go m.loop(every)
	}
}

// Stop останавливает обновление метрик
func (m *MetricsExporter) Stop() {
	m.stopOnce.Do(func() {
		close(m.quit)
		if m.started.Load() {
			<-m.done
		}
	})
}

func (m *MetricsExporter) loop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	defer close(m.done)

	for {
		select {
		case <-ticker.C:
			m.collect()
		case <-m.quit:
			return
		}
	}
}

// collect добавляет к счётчикам приращение с прошлого вызова
func (m *MetricsExporter) collect() {
	stats := m.bus.Metrics()

	if d := stats.Published - m.prev.Published; d > 0 {
		m.published.Add(float64(d))
	}
	if d := stats.Consumed - m.prev.Consumed; d > 0 {
		m.consumed.Add(float64(d))
	}
	if d := stats.Dropped - m.prev.Dropped; d > 0 {
		m.dropped.Add(float64(d))
	}
	m.inflight.Set(float64(stats.InFlight))

	m.prev = stats
}
