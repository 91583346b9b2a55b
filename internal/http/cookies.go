package http

import (
	"net/http"
	"time"
)

// Nombres de cookies del flujo. El state es HttpOnly; las de identidad las
// lee el frontend, así que van sin HttpOnly a propósito.
const (
	StateCookieName = "oauth_state"
	EmailCookieName = "user_email"
	NameCookieName  = "user_name"
)

// BuildStateCookie arma la cookie del nonce anti-replay: HttpOnly,
// SameSite=Lax, Secure según entorno, TTL corto (default 300s).
func BuildStateCookie(name, value string, secure bool, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  time.Now().UTC().Add(ttl),
		MaxAge:   int(ttl.Seconds()),
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// BuildIdentityCookie arma las cookies user_email/user_name. Sin HttpOnly
// (las lee JS) y sin expiración explícita: son cookies de sesión de browser.
func BuildIdentityCookie(name, value string) *http.Cookie {
	return &http.Cookie{
		Name:  name,
		Value: value,
		Path:  "/",
	}
}

// BuildDeletionCookie devuelve una cookie que "borra" la homónima del
// browser. Tiene que matchear Path/HttpOnly para que el user-agent la pise.
func BuildDeletionCookie(name string, httpOnly bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0).UTC(), // pasado
		MaxAge:   -1,                    // eliminar
		HttpOnly: httpOnly,
	}
}
