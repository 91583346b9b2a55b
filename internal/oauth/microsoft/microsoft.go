// Package microsoft implementa el sign-in con Microsoft (Entra ID) delegando
// en la librería OAuth2 (golang.org/x/oauth2) para el canje del code y en
// go-oidc para la verificación del id_token. A diferencia del provider de
// Google, acá no armamos los requests a mano.
package microsoft

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/dropDatabas3/loginbox/internal/oauth"
)

const ProviderName = "microsoft"

// Auth es el provider de Microsoft como confidential client.
type Auth struct {
	clientID    string
	authority   string // p.ej. https://login.microsoftonline.com/common
	redirectURI string
	scopes      []string

	cfg oauth2.Config

	// verifier se inicializa lazy: el discovery OIDC hace red y no queremos
	// eso ni en el constructor ni en AuthURL (que debe ser cómputo local).
	mu       sync.Mutex
	verifier *oidc.IDTokenVerifier
}

// New crea el provider. authority es la URL completa del tenant
// (https://login.microsoftonline.com/{tenant}); scopes vacío usa User.Read.
// clientSecret puede venir vacío (public client en dev).
func New(clientID, authority, redirectURI, clientSecret string, scopes []string) *Auth {
	if len(scopes) == 0 {
		scopes = []string{"User.Read"}
	}
	authority = strings.TrimRight(authority, "/")
	return &Auth{
		clientID:    clientID,
		authority:   authority,
		redirectURI: redirectURI,
		scopes:      scopes,
		cfg: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Scopes:       scopes,
			// Endpoints v2.0 del authority; deterministas, sin discovery.
			Endpoint: oauth2.Endpoint{
				AuthURL:  authority + "/oauth2/v2.0/authorize",
				TokenURL: authority + "/oauth2/v2.0/token",
			},
		},
	}
}

func (m *Auth) Name() string { return ProviderName }

// AuthURL delega en la librería; es construcción local de URL, sin I/O.
func (m *Auth) AuthURL(state string) string {
	return m.cfg.AuthCodeURL(state)
}

// issuer es el issuer OIDC v2.0 del authority configurado.
func (m *Auth) issuer() string { return m.authority + "/v2.0" }

// isMultiTenant reporta si el authority es un pseudo-tenant ("common",
// "organizations", "consumers"). En esos casos el issuer del id_token trae el
// tenant real, así que el check estricto de issuer no puede aplicarse.
func (m *Auth) isMultiTenant() bool {
	seg := m.authority[strings.LastIndex(m.authority, "/")+1:]
	switch seg {
	case "common", "organizations", "consumers":
		return true
	}
	return false
}

func (m *Auth) idTokenVerifier(ctx context.Context) (*oidc.IDTokenVerifier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.verifier != nil {
		return m.verifier, nil
	}
	provider, err := oidc.NewProvider(ctx, m.issuer())
	if err != nil {
		return nil, fmt.Errorf("microsoft: oidc discovery: %w", err)
	}
	vcfg := &oidc.Config{ClientID: m.clientID}
	if m.isMultiTenant() {
		vcfg.SkipIssuerCheck = true
	}
	m.verifier = provider.Verifier(vcfg)
	return m.verifier, nil
}

type idClaims struct {
	PreferredUsername string `json:"preferred_username"`
	Name              string `json:"name"`
}

// ProcessCallback canjea el code con la librería OAuth2 y saca la identidad
// de los claims del id_token (preferred_username → email, name → name).
func (m *Auth) ProcessCallback(ctx context.Context, code string) (*oauth.Result, error) {
	tok, err := m.cfg.Exchange(ctx, code)
	if err != nil {
		// Errores reportados por el IdP (invalid_grant, etc.) llegan acá
		// como *oauth2.RetrieveError; no distinguimos hacia afuera.
		return nil, fmt.Errorf("microsoft: code exchange: %w", err)
	}

	rawIDToken, ok := tok.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, fmt.Errorf("microsoft: no id_token in token response")
	}

	verifier, err := m.idTokenVerifier(ctx)
	if err != nil {
		return nil, err
	}
	idToken, err := verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("microsoft: verify id_token: %w", err)
	}

	var claims idClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("microsoft: parse claims: %w", err)
	}

	token := map[string]any{
		"access_token": tok.AccessToken,
		"token_type":   tok.TokenType,
		"expires_at":   tok.Expiry,
		"id_token":     rawIDToken,
	}
	if tok.RefreshToken != "" {
		token["refresh_token"] = tok.RefreshToken
	}

	return &oauth.Result{
		Token: token,
		User:  oauth.UserInfo{Email: claims.PreferredUsername, Name: claims.Name},
	}, nil
}
