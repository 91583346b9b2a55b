// Package provision crea el usuario local la primera vez que una identidad
// externa se loguea con éxito.
package provision

import (
	"context"
	"errors"
	"fmt"

	"github.com/dropDatabas3/loginbox/internal/observability/logger"
	"github.com/dropDatabas3/loginbox/internal/store"
	"github.com/dropDatabas3/loginbox/internal/util"
)

// Provisioner hace el create-if-absent contra el repositorio de usuarios.
// El store se inyecta por constructor, nada de estado global.
type Provisioner struct {
	users store.Users
}

func New(users store.Users) *Provisioner {
	return &Provisioner{users: users}
}

// ProvisionUser asegura que exista una fila para el email. Si ya existe es un
// no-op: el name NO se actualiza en logins posteriores aunque haya cambiado
// en el provider (first write wins; decisión heredada, no "arreglar" sin
// confirmación de producto).
func (p *Provisioner) ProvisionUser(ctx context.Context, email, name string) error {
	if email == "" {
		return fmt.Errorf("provision: email vacío")
	}

	// Short-circuit de lectura, igual que el flujo original. La atomicidad
	// real la garantiza CreateIfAbsent.
	if _, err := p.users.GetByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("provision: lookup %s: %w", email, err)
	}

	created, err := p.users.CreateIfAbsent(ctx, store.User{Email: email, Name: name})
	if err != nil {
		return fmt.Errorf("provision: create %s: %w", email, err)
	}
	if created {
		logger.From(ctx).Info("user provisioned", logger.Email(util.MaskEmail(email)))
	}
	return nil
}
