package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusMiddleware регистрирует базовые HTTP-метрики для Gin.
// Маршрут /metrics добавляется отдельно с помощью метода RegisterMetricsEndpoint.
// Использование:
//
//	mw := middleware.NewPrometheusMiddleware("remesher", reg)
//	r.Use(mw.Handler())
//	mw.RegisterMetricsEndpoint(r, reg)
//
// Метрики:
// * http_request_duration_seconds{method,path,status} - histogram
// * http_requests_inflight - gauge
// * http_request_errors_total{method,path,status} - counter (4xx/5xx)
// * http_response_size_bytes{method,path} - histogram (сетки бывают большими)
type PrometheusMiddleware struct {
	reqDuration *prometheus.HistogramVec
	reqInflight prometheus.Gauge
	reqErrors   *prometheus.CounterVec
	respSize    *prometheus.HistogramVec
}

// NewPrometheusMiddleware создаёт middleware и регистрирует метрики в reg
// (nil - prometheus.DefaultRegisterer).
func NewPrometheusMiddleware(service string, reg prometheus.Registerer) *PrometheusMiddleware {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	pm := &PrometheusMiddleware{
		reqDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: service,
			Name:      "http_request_duration_seconds",
			Help:      "Длительность HTTP-запросов.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"method", "path", "status"}),
		reqInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: service,
			Name:      "http_requests_inflight",
			Help:      "Текущее количество обрабатываемых HTTP-запросов.",
		}),
		reqErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: service,
			Name:      "http_request_errors_total",
			Help:      "Общее число запросов, завершившихся ошибкой (4xx/5xx).",
		}, []string{"method", "path", "status"}),
		respSize: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: service,
			Name:      "http_response_size_bytes",
			Help:      "Размер тела ответа.",
			Buckets:   prometheus.ExponentialBuckets(256, 4, 8), // 256B .. 4MB
		}, []string{"method", "path"}),
	}

	reg.MustRegister(pm.reqDuration, pm.reqInflight, pm.reqErrors, pm.respSize)
	return pm
}

// Handler возвращает gin.HandlerFunc, которую нужно добавить через router.Use().
func (pm *PrometheusMiddleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		pm.reqInflight.Inc()
		defer pm.reqInflight.Dec()

		c.Next()

		code := c.Writer.Status()
		status := strconv.Itoa(code)
		path := c.FullPath()
		if path == "" {
			path = "unmatched" // произвольные URL не попадают в метки
		}
		method := c.Request.Method

		pm.reqDuration.WithLabelValues(method, path, status).Observe(time.Since(start).Seconds())
		if size := c.Writer.Size(); size > 0 {
			pm.respSize.WithLabelValues(method, path).Observe(float64(size))
		}
		if code >= 400 {
			pm.reqErrors.WithLabelValues(method, path, status).Inc()
		}
	}
}

// RegisterMetricsEndpoint добавляет GET /metrics, отдающий метрики g
// (nil - prometheus.DefaultGatherer).
func (pm *PrometheusMiddleware) RegisterMetricsEndpoint(r gin.IRoutes, g prometheus.Gatherer) {
	var h http.Handler
	if g == nil {
		h = promhttp.Handler()
	} else {
		h = promhttp.HandlerFor(g, promhttp.HandlerOpts{})
	}
	r.GET("/metrics", gin.WrapH(h))
}
