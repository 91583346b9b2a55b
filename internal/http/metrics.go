package http

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	metricsOnce sync.Once

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpInflight        *prometheus.GaugeVec

	// Auth flow metrics
	loginAttemptsTotal       *prometheus.CounterVec
	providerExchangeDuration *prometheus.HistogramVec
)

// RegisterMetrics inicializa las métricas y devuelve el handler para /metrics.
func RegisterMetrics(reg prometheus.Registerer) http.Handler {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	metricsOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Número total de requests procesadas",
		}, []string{"method", "path", "status"})

		httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Latencia de los requests HTTP",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"})

		httpInflight = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Requests en vuelo por método y ruta",
		}, []string{"method", "path"})

		loginAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "login_attempts_total",
			Help: "Callbacks de login por provider y resultado",
		}, []string{"provider", "result"}) // result: success|exchange_failed|bad_state|missing_email

		providerExchangeDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "provider_exchange_duration_seconds",
			Help:    "Duración del canje code→token por provider",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"})

		reg.MustRegister(
			httpRequestsTotal,
			httpRequestDuration,
			httpInflight,
			loginAttemptsTotal,
			providerExchangeDuration,
		)
	})

	return promhttp.Handler()
}

// WithHTTPMetrics instrumenta la cadena con counters/histogramas por ruta.
// path se pasa fijo por grupo de rutas para no explotar la cardinalidad.
func WithHTTPMetrics(next http.Handler, path string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if httpRequestsTotal == nil {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		g := httpInflight.WithLabelValues(r.Method, path)
		g.Inc()
		defer g.Dec()

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		httpRequestsTotal.WithLabelValues(r.Method, path, statusLabel(sw.status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// ObserveLoginAttempt registra el resultado de un callback de login.
func ObserveLoginAttempt(provider, result string) {
	if loginAttemptsTotal != nil {
		loginAttemptsTotal.WithLabelValues(provider, result).Inc()
	}
}

// ObserveExchange registra la duración de un canje.
func ObserveExchange(provider string, d time.Duration) {
	if providerExchangeDuration != nil {
		providerExchangeDuration.WithLabelValues(provider).Observe(d.Seconds())
	}
}

func statusLabel(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
