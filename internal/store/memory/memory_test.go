package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/loginbox/internal/store"
)

func TestGetByEmail_NotFound(t *testing.T) {
	s := New()
	_, err := s.GetByEmail(context.Background(), "nadie@example.com")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCreateIfAbsent(t *testing.T) {
	s := New()

	created, err := s.CreateIfAbsent(context.Background(), store.User{Email: "ana@example.com", Name: "Ana"})
	require.NoError(t, err)
	assert.True(t, created)

	// segundo intento: no-op
	created, err = s.CreateIfAbsent(context.Background(), store.User{Email: "ana@example.com", Name: "Otra"})
	require.NoError(t, err)
	assert.False(t, created)

	u, err := s.GetByEmail(context.Background(), "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Ana", u.Name)
	assert.Equal(t, 1, s.Len())
}

// Dos "primeros logins" simultáneos con el mismo email: exactamente uno crea.
func TestCreateIfAbsent_Concurrent(t *testing.T) {
	s := New()

	const n = 32
	var wins int64
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			created, err := s.CreateIfAbsent(context.Background(), store.User{Email: "carrera@example.com", Name: "X"})
			assert.NoError(t, err)
			if created {
				atomic.AddInt64(&wins, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), wins)
	assert.Equal(t, 1, s.Len())
}
