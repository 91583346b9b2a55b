package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	c := LoadFromEnv()

	assert.Equal(t, "development", c.App.Env)
	assert.False(t, c.IsProduction())
	assert.Equal(t, ":8000", c.Server.Addr)
	assert.Equal(t, "memory", c.Storage.Driver)
	assert.Equal(t, 10*time.Second, c.Providers.Timeout)
	assert.Equal(t, "common", c.Providers.Microsoft.Authority)
	assert.Equal(t, "oauth_state", c.Auth.StateCookieName)
	assert.Equal(t, 5*time.Minute, c.Auth.StateTTL)
	assert.True(t, c.Rate.Enabled)
	assert.Equal(t, "memory", c.Rate.Kind)
	assert.Equal(t, 30, c.Rate.Login.Limit)
	assert.True(t, c.Flags.Migrate)

	require.NoError(t, c.Validate())
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("SERVER_ADDR", ":9100")
	t.Setenv("STORAGE_DRIVER", "postgres")
	t.Setenv("STORAGE_DSN", "postgres://u:p@localhost/loginbox")
	t.Setenv("GOOGLE_SCOPES", "openid, email")
	t.Setenv("AUTH_STATE_TTL", "90s")
	t.Setenv("RATE_ENABLED", "false")

	c := LoadFromEnv()

	assert.True(t, c.IsProduction())
	assert.Equal(t, ":9100", c.Server.Addr)
	assert.Equal(t, "postgres", c.Storage.Driver)
	assert.Equal(t, []string{"openid", "email"}, c.Providers.Google.Scopes)
	assert.Equal(t, 90*time.Second, c.Auth.StateTTL)
	assert.False(t, c.Rate.Enabled)

	require.NoError(t, c.Validate())
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:   "memory sin dsn ok",
			mutate: func(c *Config) {},
		},
		{
			name: "postgres sin dsn falla",
			mutate: func(c *Config) {
				c.Storage.Driver = "postgres"
				c.Storage.DSN = ""
			},
			wantErr: true,
		},
		{
			name: "driver desconocido falla",
			mutate: func(c *Config) {
				c.Storage.Driver = "mongo"
			},
			wantErr: true,
		},
		{
			name: "addr vacío falla",
			mutate: func(c *Config) {
				c.Server.Addr = ""
			},
			wantErr: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := LoadFromEnv()
			tc.mutate(c)
			err := c.Validate()
			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}
