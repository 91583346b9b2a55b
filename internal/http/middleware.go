package http

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/loginbox/internal/observability/logger"
	"github.com/dropDatabas3/loginbox/internal/rate"
)

// ─────────────── Request ID ───────────────

// WithRequestID genera (o propaga) X-Request-ID y deja un logger scoped en el
// contexto para el resto de la cadena.
func WithRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if rid == "" {
			rid = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", rid)

		l := logger.With(logger.RequestID(rid))
		ctx := logger.ToContext(r.Context(), l)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ─────────────── Access log ───────────────

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

// WithAccessLog loguea método/path/status/duración de cada request.
func WithAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		logger.From(r.Context()).Info("http request",
			logger.Method(r.Method),
			logger.Path(r.URL.Path),
			logger.Status(sw.status),
			logger.Duration(time.Since(start)),
			logger.ClientIP(clientIP(r)),
		)
	})
}

// ─────────────── Security Headers ───────────────

// WithSecurityHeaders inyecta cabeceras de defensa por defecto.
func WithSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

// ─────────────── CORS ───────────────

func WithCORS(next http.Handler, allowed []string) http.Handler {
	if len(allowed) == 0 {
		return next
	}
	trim := func(s string) string { return strings.TrimRight(strings.TrimSpace(s), "/") }

	alist := make([]string, len(allowed))
	for i, v := range allowed {
		alist[i] = trim(v)
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := trim(r.Header.Get("Origin"))
		allowedOrigin := ""

		for _, a := range alist {
			if a == "*" || (origin != "" && strings.EqualFold(origin, a)) {
				allowedOrigin = origin
				break
			}
		}

		// Ayuda a caches/proxies
		w.Header().Add("Vary", "Origin")

		if allowedOrigin != "" {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", allowedOrigin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Allow-Methods", "GET,HEAD,OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
			h.Set("Access-Control-Expose-Headers", "X-Request-ID, Retry-After, Location")
		}

		// Solo el preflight de un origin permitido se corta acá; un OPTIONS
		// cualquiera sigue al router.
		if r.Method == http.MethodOptions && allowedOrigin != "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ─────────────── Rate limiting ───────────────

// WithRateLimit aplica un limiter de ventana fija keyed por IP de cliente.
// limiter nil = deshabilitado.
func WithRateLimit(next http.Handler, limiter rate.Limiter, scope string) http.Handler {
	if limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res, err := limiter.Allow(r.Context(), scope+":"+clientIP(r))
		if err != nil {
			// Limiter caído no debe tirar el login; seguimos y lo logueamos.
			logger.From(r.Context()).Warn("rate limiter error", logger.Err(err))
			next.ServeHTTP(w, r)
			return
		}
		if !res.Allowed {
			w.Header().Set("Retry-After", strconv.Itoa(int(res.RetryAfter.Seconds())))
			WriteError(w, http.StatusTooManyRequests, "rate_limited", "demasiados intentos, probá más tarde", CodeRateLimited)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
		parts := strings.Split(xf, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
