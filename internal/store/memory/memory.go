// Package memory implementa store.Users en memoria (dev/tests).
package memory

import (
	"context"
	"sync"

	"github.com/dropDatabas3/loginbox/internal/store"
)

type Store struct {
	mu    sync.Mutex
	users map[string]store.User
}

func New() *Store {
	return &Store{users: make(map[string]store.User)}
}

func (s *Store) GetByEmail(_ context.Context, email string) (*store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[email]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := u
	return &cp, nil
}

func (s *Store) CreateIfAbsent(_ context.Context, u store.User) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.Email]; ok {
		return false, nil
	}
	s.users[u.Email] = u
	return true, nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() {}

// Len es un helper para tests.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}
