// Package store define el repositorio de usuarios y sus errores.
package store

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// User es la entidad persistida. Email es la primary key; Name se escribe
// una sola vez en el primer login y no se refresca después.
type User struct {
	Email string
	Name  string
}

// Users es el repositorio de usuarios. Las implementaciones deben garantizar
// que CreateIfAbsent sea atómico frente a primeros logins concurrentes con el
// mismo email (insert-if-absent, no read-then-write).
type Users interface {
	// GetByEmail devuelve el usuario o ErrNotFound.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// CreateIfAbsent inserta el usuario si no existe. Devuelve true si insertó,
	// false si ya existía (sin tocar el registro existente).
	CreateIfAbsent(ctx context.Context, u User) (bool, error)

	// Ping verifica la conexión al backend.
	Ping(ctx context.Context) error

	// Close libera recursos (idempotente).
	Close()
}
