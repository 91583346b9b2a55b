package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/loginbox/internal/rate"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestWithRequestID(t *testing.T) {
	h := WithRequestID(okHandler())

	t.Run("genera uno nuevo", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	})

	t.Run("propaga el entrante", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "rid-123")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, "rid-123", rec.Header().Get("X-Request-ID"))
	})
}

func TestWithSecurityHeaders(t *testing.T) {
	h := WithSecurityHeaders(okHandler())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestWithCORS(t *testing.T) {
	newHandler := func(called *bool) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			*called = true
			w.WriteHeader(http.StatusOK)
		})
	}

	t.Run("preflight de origin permitido responde 204", func(t *testing.T) {
		var called bool
		h := WithCORS(newHandler(&called), []string{"https://app.example.com"})

		req := httptest.NewRequest(http.MethodOptions, "/login/google", nil)
		req.Header.Set("Origin", "https://app.example.com")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.False(t, called, "el preflight no llega al router")
	})

	t.Run("preflight de origin no permitido sigue al router", func(t *testing.T) {
		var called bool
		h := WithCORS(newHandler(&called), []string{"https://app.example.com"})

		req := httptest.NewRequest(http.MethodOptions, "/login/google", nil)
		req.Header.Set("Origin", "https://otro.example.com")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.True(t, called)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("GET permitido lleva headers CORS", func(t *testing.T) {
		var called bool
		h := WithCORS(newHandler(&called), []string{"https://app.example.com"})

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://app.example.com")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.True(t, called)
		assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	})
}

func TestWithRateLimit(t *testing.T) {
	lim := rate.NewMemoryLimiter(2, time.Minute)
	h := WithRateLimit(okHandler(), lim, "login")

	req := func() *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/login/google", nil)
		r.RemoteAddr = "9.9.9.9:5555"
		return r
	}

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req())
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req())
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "rate_limited", body["error"])
	assert.Equal(t, float64(CodeRateLimited), body["error_code"])
}

func TestWithRateLimit_Disabled(t *testing.T) {
	h := WithRateLimit(okHandler(), nil, "login")
	for i := 0; i < 50; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}
}

type brokenLimiter struct{}

func (brokenLimiter) Allow(context.Context, string) (rate.Result, error) {
	return rate.Result{}, assert.AnError
}

// Limiter roto = fail-open: el login sigue funcionando.
func TestWithRateLimit_FailOpen(t *testing.T) {
	h := WithRateLimit(okHandler(), brokenLimiter{}, "login")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestClientIP(t *testing.T) {
	cases := []struct {
		name   string
		remote string
		xff    string
		want   string
	}{
		{name: "remote addr", remote: "10.0.0.7:1234", want: "10.0.0.7"},
		{name: "xff gana", remote: "10.0.0.7:1234", xff: "203.0.113.9", want: "203.0.113.9"},
		{name: "xff multivalor usa el primero", remote: "10.0.0.7:1234", xff: "203.0.113.9, 10.0.0.1", want: "203.0.113.9"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tc.remote
			if tc.xff != "" {
				r.Header.Set("X-Forwarded-For", tc.xff)
			}
			assert.Equal(t, tc.want, clientIP(r))
		})
	}
}
