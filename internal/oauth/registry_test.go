package oauth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct{ name string }

func (f *fakeProvider) Name() string               { return f.name }
func (f *fakeProvider) AuthURL(state string) string { return "https://idp.test/auth?state=" + state }
func (f *fakeProvider) ProcessCallback(context.Context, string) (*Result, error) {
	return &Result{}, nil
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&fakeProvider{name: "microsoft"})
	reg.Register(&fakeProvider{name: "google"})

	t.Run("get registered", func(t *testing.T) {
		p, err := reg.Get("google")
		require.NoError(t, err)
		assert.Equal(t, "google", p.Name())
	})

	t.Run("get unknown", func(t *testing.T) {
		_, err := reg.Get("facebook")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "facebook")
	})

	t.Run("available sorted", func(t *testing.T) {
		assert.Equal(t, []string{"google", "microsoft"}, reg.Available())
	})
}
