// Package oauth define la capability de sign-in con terceros.
//
// Cada provider implementa exactamente dos operaciones: construir la URL de
// autorización y canjear el authorization code por identidad. Cualquier falla
// del canje (red, status no-2xx, error reportado por el provider, claims
// ausentes) colapsa a un resultado ausente en este borde; el handler HTTP
// solo ve "falló" y responde 401. La causa se loguea acá adentro.
package oauth

import "context"

// UserInfo es la identidad normalizada que devuelve un provider.
type UserInfo struct {
	// Email es requerido para que la sesión avance; si el provider no lo
	// entrega, el callback se trata como falla (400 en el handler).
	Email string
	// Name es opcional, default vacío.
	Name string
}

// Result combina el payload crudo de tokens del provider con la identidad
// normalizada. Es efímero: se construye por callback y se descarta después de
// que el handler extrae email/name. El token no se persiste.
type Result struct {
	Token map[string]any
	User  UserInfo
}

// Provider es la capability de un identity provider.
type Provider interface {
	// Name devuelve el nombre del provider ("google", "microsoft").
	Name() string

	// AuthURL construye la URL de consentimiento embebiendo client identity,
	// scopes, redirect y el state anti-replay. No hace I/O.
	AuthURL(state string) string

	// ProcessCallback canjea el code por tokens e identidad.
	// Ante cualquier falla del canje devuelve (nil, error); el error lleva la
	// causa para el log pero el caller responde siempre el mismo 401, sin
	// distinguir "red caída" de "code inválido".
	ProcessCallback(ctx context.Context, code string) (*Result, error)
}
