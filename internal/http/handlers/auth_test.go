package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpx "github.com/dropDatabas3/loginbox/internal/http"
	"github.com/dropDatabas3/loginbox/internal/oauth"
	"github.com/dropDatabas3/loginbox/internal/provision"
	"github.com/dropDatabas3/loginbox/internal/store/memory"
)

// stubProvider permite guionar el resultado del callback.
type stubProvider struct {
	name   string
	result *oauth.Result
	err    error
	calls  int
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) AuthURL(state string) string {
	return "https://idp.test/authorize?state=" + url.QueryEscape(state)
}

func (s *stubProvider) ProcessCallback(context.Context, string) (*oauth.Result, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type fixture struct {
	router http.Handler
	store  *memory.Store
	stub   *stubProvider
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	stub := &stubProvider{
		name: "google",
		result: &oauth.Result{
			Token: map[string]any{"access_token": "at-1"},
			User:  oauth.UserInfo{Email: "ana@example.com", Name: "Ana García"},
		},
	}

	reg := oauth.NewRegistry()
	reg.Register(stub)

	st := memory.New()
	h := NewAuthHandler(reg, provision.New(st), "oauth_state", 5*time.Minute, false)

	r := chi.NewRouter()
	r.Get("/login/{provider}", h.Login)
	r.Get("/auth/{provider}", h.Callback)
	r.Get("/logout", h.Logout)

	return &fixture{router: r, store: st, stub: stub}
}

func cookieByName(res *http.Response, name string) *http.Cookie {
	for _, c := range res.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestLogin_UnknownProvider(t *testing.T) {
	f := newFixture(t)

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login/facebook", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown_provider")
}

func TestLogin_RedirectsWithState(t *testing.T) {
	f := newFixture(t)

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login/google", nil))

	require.Equal(t, http.StatusFound, rec.Code)

	sc := cookieByName(rec.Result(), "oauth_state")
	require.NotNil(t, sc, "debe setear la cookie de state")
	assert.NotEmpty(t, sc.Value)
	assert.True(t, sc.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, sc.SameSite)
	assert.Equal(t, 300, sc.MaxAge)
	assert.False(t, sc.Secure, "en dev la cookie no es Secure")

	// el state de la URL de redirect es el mismo que el de la cookie
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "idp.test", loc.Host)
	assert.Equal(t, sc.Value, loc.Query().Get("state"))
}

func TestCallback_StateValidation(t *testing.T) {
	cases := []struct {
		name   string
		target string
		cookie *http.Cookie
	}{
		{
			name:   "sin query state",
			target: "/auth/google?code=c1",
			cookie: &http.Cookie{Name: "oauth_state", Value: "s1"},
		},
		{
			name:   "sin cookie",
			target: "/auth/google?code=c1&state=s1",
			cookie: nil,
		},
		{
			name:   "mismatch",
			target: "/auth/google?code=c1&state=otro",
			cookie: &http.Cookie{Name: "oauth_state", Value: "s1"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)

			req := httptest.NewRequest(http.MethodGet, tc.target, nil)
			if tc.cookie != nil {
				req.AddCookie(tc.cookie)
			}
			rec := httptest.NewRecorder()
			f.router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), "invalid_state")
			assert.Equal(t, 0, f.stub.calls, "no debe canjear nada con state inválido")
			assert.Equal(t, 0, f.store.Len())
		})
	}
}

func TestCallback_MissingCode(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/auth/google?state=s1", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "s1"})
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing_code")
}

func TestCallback_ExchangeFailure(t *testing.T) {
	f := newFixture(t)
	f.stub.err = errors.New("invalid_grant")

	req := httptest.NewRequest(http.MethodGet, "/auth/google?state=s1&code=c1", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "s1"})
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	// 401 uniforme, sin filtrar la causa, y sin provisionar
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "exchange_failed")
	assert.NotContains(t, rec.Body.String(), "invalid_grant")
	assert.Equal(t, 0, f.store.Len())
}

func TestCallback_MissingEmail(t *testing.T) {
	f := newFixture(t)
	f.stub.result = &oauth.Result{
		Token: map[string]any{"access_token": "at-1"},
		User:  oauth.UserInfo{Email: "", Name: "Sin Email"},
	}

	req := httptest.NewRequest(http.MethodGet, "/auth/google?state=s1&code=c1", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "s1"})
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing_email")
	assert.Equal(t, 0, f.store.Len())
}

func TestCallback_Success(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/auth/google?state=s1&code=c1", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "s1"})
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	res := rec.Result()

	email := cookieByName(res, httpx.EmailCookieName)
	require.NotNil(t, email)
	assert.Equal(t, url.QueryEscape("ana@example.com"), email.Value)
	assert.False(t, email.HttpOnly, "la cookie de identidad la lee el frontend")
	assert.Equal(t, "/", email.Path)

	name := cookieByName(res, httpx.NameCookieName)
	require.NotNil(t, name)
	assert.Equal(t, url.QueryEscape("Ana García"), name.Value)

	// el nonce se borra después del canje
	state := cookieByName(res, "oauth_state")
	require.NotNil(t, state)
	assert.Equal(t, -1, state.MaxAge)

	// usuario provisionado
	u, err := f.store.GetByEmail(context.Background(), "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Ana García", u.Name)
}

func TestCallback_SecondLoginKeepsOriginalName(t *testing.T) {
	f := newFixture(t)

	do := func() {
		req := httptest.NewRequest(http.MethodGet, "/auth/google?state=s1&code=c1", nil)
		req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "s1"})
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusFound, rec.Code)
	}

	do()
	f.stub.result.User.Name = "Ana Cambiada"
	do()

	u, err := f.store.GetByEmail(context.Background(), "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Ana García", u.Name, "el name se fija en el primer login")
	assert.Equal(t, 1, f.store.Len())
}

func TestLogout_ClearsIdentityCookies(t *testing.T) {
	f := newFixture(t)

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/logout", nil))

	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	res := rec.Result()
	for _, cn := range []string{httpx.EmailCookieName, httpx.NameCookieName} {
		c := cookieByName(res, cn)
		require.NotNil(t, c, cn)
		assert.Equal(t, -1, c.MaxAge)
		assert.Empty(t, c.Value)
	}
}
