package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	httpx "github.com/dropDatabas3/loginbox/internal/http"
	"github.com/dropDatabas3/loginbox/internal/oauth"
	"github.com/dropDatabas3/loginbox/internal/observability/logger"
	"github.com/dropDatabas3/loginbox/internal/provision"
	"github.com/dropDatabas3/loginbox/internal/util"
)

// AuthHandler concentra el flujo completo: /login/{provider} arranca el
// authorization-code flow y /auth/{provider} lo cierra.
type AuthHandler struct {
	Providers     *oauth.Registry
	Provisioner   *provision.Provisioner
	StateCookie   string
	StateTTL      time.Duration
	SecureCookies bool
}

func NewAuthHandler(reg *oauth.Registry, prov *provision.Provisioner, stateCookie string, stateTTL time.Duration, secure bool) *AuthHandler {
	if stateCookie == "" {
		stateCookie = httpx.StateCookieName
	}
	if stateTTL <= 0 {
		stateTTL = 5 * time.Minute
	}
	return &AuthHandler{
		Providers:     reg,
		Provisioner:   prov,
		StateCookie:   stateCookie,
		StateTTL:      stateTTL,
		SecureCookies: secure,
	}
}

// Login — GET /login/{provider}
// Genera el nonce, lo deja en cookie y redirige al authorize del provider.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "provider")

	p, err := h.Providers.Get(name)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "unknown_provider", "provider no soportado: "+name, httpx.CodeUnknownProvider)
		return
	}

	state, err := newState()
	if err != nil {
		logger.From(r.Context()).Error("state generation failed", logger.Err(err))
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "no se pudo iniciar el login", 0)
		return
	}

	http.SetCookie(w, httpx.BuildStateCookie(h.StateCookie, state, h.SecureCookies, h.StateTTL))
	http.Redirect(w, r, p.AuthURL(state), http.StatusFound)
}

// Callback — GET /auth/{provider}
// Valida state, canjea el code, provisiona al usuario y setea las cookies de
// identidad. El orden de validación es: state → provider → code.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "provider")
	log := logger.From(r.Context()).With(logger.Provider(name))

	// 1. state: query y cookie tienen que existir y coincidir
	qState := r.URL.Query().Get("state")
	cState := ""
	if c, err := r.Cookie(h.StateCookie); err == nil {
		cState = c.Value
	}
	if qState == "" || cState == "" || qState != cState {
		httpx.ObserveLoginAttempt(name, "bad_state")
		log.Warn("state mismatch on callback")
		httpx.WriteError(w, http.StatusBadRequest, "invalid_state", "state ausente o no coincide", httpx.CodeBadState)
		return
	}

	// 2. provider
	p, err := h.Providers.Get(name)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "unknown_provider", "provider no soportado: "+name, httpx.CodeUnknownProvider)
		return
	}

	// 3. code
	code := r.URL.Query().Get("code")
	if code == "" {
		httpx.WriteError(w, http.StatusBadRequest, "missing_code", "falta el authorization code", httpx.CodeMissingCode)
		return
	}

	// Canje code → token → userinfo. Cualquier falla del provider es un 401
	// uniforme hacia afuera; la causa real va al log.
	start := time.Now()
	res, err := p.ProcessCallback(r.Context(), code)
	httpx.ObserveExchange(name, time.Since(start))
	if err != nil {
		httpx.ObserveLoginAttempt(name, "exchange_failed")
		log.Warn("code exchange failed", logger.Err(err))
		httpx.WriteError(w, http.StatusUnauthorized, "exchange_failed", "no se pudo completar el login", httpx.CodeExchangeFailed)
		return
	}

	if res.User.Email == "" {
		httpx.ObserveLoginAttempt(name, "missing_email")
		log.Warn("provider returned no email")
		httpx.WriteError(w, http.StatusBadRequest, "missing_email", "el provider no devolvió email", httpx.CodeMissingEmail)
		return
	}

	if err := h.Provisioner.ProvisionUser(r.Context(), res.User.Email, res.User.Name); err != nil {
		log.Error("provisioning failed", logger.Err(err), logger.Email(util.MaskEmail(res.User.Email)))
		httpx.WriteError(w, http.StatusInternalServerError, "provision_failed", "no se pudo registrar al usuario", httpx.CodeProvisionFailed)
		return
	}

	// Identidad para el frontend. Los valores van query-escaped porque los
	// nombres suelen traer espacios y SetCookie los rechaza crudos.
	http.SetCookie(w, httpx.BuildIdentityCookie(httpx.EmailCookieName, url.QueryEscape(res.User.Email)))
	http.SetCookie(w, httpx.BuildIdentityCookie(httpx.NameCookieName, url.QueryEscape(res.User.Name)))

	// El nonce ya cumplió su ciclo
	http.SetCookie(w, httpx.BuildDeletionCookie(h.StateCookie, true))

	httpx.ObserveLoginAttempt(name, "success")
	log.Info("login completed", logger.Email(util.MaskEmail(res.User.Email)))
	http.Redirect(w, r, "/", http.StatusFound)
}

// Logout — GET /logout
// Borra las cookies de identidad y vuelve al home. No hay sesión server-side
// que invalidar.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, httpx.BuildDeletionCookie(httpx.EmailCookieName, false))
	http.SetCookie(w, httpx.BuildDeletionCookie(httpx.NameCookieName, false))
	http.Redirect(w, r, "/", http.StatusFound)
}

// newState: 16 bytes de crypto/rand en hex.
func newState() (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}
