// Package google implementa el flujo OIDC authorization-code de Google con
// llamadas HTTP directas (sin SDK): POST al token endpoint y GET al userinfo.
package google

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dropDatabas3/loginbox/internal/oauth"
)

const ProviderName = "google"

const (
	defaultAuthEndpoint     = "https://accounts.google.com/o/oauth2/v2/auth"
	defaultTokenEndpoint    = "https://oauth2.googleapis.com/token"
	defaultUserinfoEndpoint = "https://www.googleapis.com/oauth2/v1/userinfo"
)

// Auth es el provider de Google.
type Auth struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scopes       []string

	// endpoints separados para poder apuntarlos a un fake en tests
	authEndpoint     string
	tokenEndpoint    string
	userinfoEndpoint string

	http *http.Client
}

// New crea el provider. Scopes vacío usa el default openid/email/profile.
// timeout acota ambos round-trips salientes (dos llamadas secuenciales).
func New(clientID, clientSecret, redirectURI string, scopes []string, timeout time.Duration) *Auth {
	if len(scopes) == 0 {
		scopes = []string{"openid", "email", "profile"}
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Auth{
		ClientID:         clientID,
		ClientSecret:     clientSecret,
		RedirectURI:      redirectURI,
		Scopes:           scopes,
		authEndpoint:     defaultAuthEndpoint,
		tokenEndpoint:    defaultTokenEndpoint,
		userinfoEndpoint: defaultUserinfoEndpoint,
		http:             &http.Client{Timeout: timeout},
	}
}

func (g *Auth) Name() string { return ProviderName }

// AuthURL arma la URL de consentimiento. Siempre lleva access_type=offline y
// el scope como lista separada por espacios.
func (g *Auth) AuthURL(state string) string {
	u, _ := url.Parse(g.authEndpoint)
	q := u.Query()
	q.Set("client_id", g.ClientID)
	q.Set("response_type", "code")
	q.Set("scope", strings.Join(g.Scopes, " "))
	q.Set("redirect_uri", g.RedirectURI)
	q.Set("state", state)
	q.Set("access_type", "offline")
	u.RawQuery = q.Encode()
	return u.String()
}

type userinfoResponse struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// ProcessCallback hace dos round-trips secuenciales: canje del code y fetch
// del userinfo. Sin retries; cualquier status no-2xx corta acá.
func (g *Auth) ProcessCallback(ctx context.Context, code string) (*oauth.Result, error) {
	form := url.Values{}
	form.Set("code", code)
	form.Set("client_id", g.ClientID)
	form.Set("client_secret", g.ClientSecret)
	form.Set("redirect_uri", g.RedirectURI)
	form.Set("grant_type", "authorization_code")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.tokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("google: token exchange: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("google: token endpoint status %d", resp.StatusCode)
	}

	var tokens map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&tokens); err != nil {
		return nil, fmt.Errorf("google: decode token response: %w", err)
	}

	accessToken, _ := tokens["access_token"].(string)
	if accessToken == "" {
		return nil, fmt.Errorf("google: no access_token in response")
	}

	ureq, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userinfoEndpoint, nil)
	if err != nil {
		return nil, err
	}
	ureq.Header.Set("Authorization", "Bearer "+accessToken)

	uresp, err := g.http.Do(ureq)
	if err != nil {
		return nil, fmt.Errorf("google: userinfo: %w", err)
	}
	defer uresp.Body.Close()

	if uresp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("google: userinfo status %d", uresp.StatusCode)
	}

	var info userinfoResponse
	if err := json.NewDecoder(uresp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("google: decode userinfo: %w", err)
	}

	return &oauth.Result{
		Token: tokens,
		User:  oauth.UserInfo{Email: info.Email, Name: info.Name},
	}, nil
}
