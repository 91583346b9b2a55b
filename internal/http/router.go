package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/loginbox/internal/rate"
)

// RouterConfig junta los handlers ya construidos; el router solo los cablea
// con la cadena de middlewares. Limiters en nil = rate limiting apagado.
type RouterConfig struct {
	Login    http.HandlerFunc
	Callback http.HandlerFunc
	Logout   http.HandlerFunc
	Index    http.Handler
	Health   http.Handler
	Metrics  http.Handler

	CORSOrigins     []string
	LoginLimiter    rate.Limiter
	CallbackLimiter rate.Limiter
}

func NewRouter(rc RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Get("/", wrap(rc.Index, "/").ServeHTTP)
	r.Get("/healthz", wrap(rc.Health, "/healthz").ServeHTTP)
	if rc.Metrics != nil {
		r.Get("/metrics", rc.Metrics.ServeHTTP)
	}

	r.Get("/login/{provider}", wrap(
		WithRateLimit(rc.Login, rc.LoginLimiter, "login"),
		"/login/{provider}",
	).ServeHTTP)

	r.Get("/auth/{provider}", wrap(
		WithRateLimit(rc.Callback, rc.CallbackLimiter, "auth"),
		"/auth/{provider}",
	).ServeHTTP)

	r.Get("/logout", wrap(rc.Logout, "/logout").ServeHTTP)

	var h http.Handler = r
	h = WithSecurityHeaders(h)
	h = WithCORS(h, rc.CORSOrigins)
	h = WithAccessLog(h)
	h = WithRequestID(h)
	return h
}

// wrap instrumenta un handler con métricas usando el patrón de ruta fijo.
func wrap(h http.Handler, path string) http.Handler {
	return WithHTTPMetrics(h, path)
}
