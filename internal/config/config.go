package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Bloque app (opcional en YAML). Si no está, queda "development".
	App struct {
		// development | production
		Env string `yaml:"env"`
	} `yaml:"app"`

	Server struct {
		Addr               string   `yaml:"addr"`
		CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	} `yaml:"server"`

	Storage struct {
		// driver: "postgres" | "memory"
		Driver   string `yaml:"driver"`
		DSN      string `yaml:"dsn"`
		Postgres struct {
			MaxOpenConns    int    `yaml:"max_open_conns"`
			MaxIdleConns    int    `yaml:"max_idle_conns"`
			ConnMaxLifetime string `yaml:"conn_max_lifetime"`
		} `yaml:"postgres"`
	} `yaml:"storage"`

	Providers struct {
		// Timeout para llamadas HTTP salientes a los providers.
		Timeout time.Duration `yaml:"timeout"`

		Google struct {
			ClientID     string   `yaml:"client_id"`
			ClientSecret string   `yaml:"client_secret"`
			RedirectURI  string   `yaml:"redirect_uri"`
			Scopes       []string `yaml:"scopes"`
		} `yaml:"google"`

		Microsoft struct {
			ClientID     string   `yaml:"client_id"`
			ClientSecret string   `yaml:"client_secret"`
			Authority    string   `yaml:"authority"` // tenant segment, e.g. "common" o un tenant ID
			RedirectURI  string   `yaml:"redirect_uri"`
			Scopes       []string `yaml:"scopes"`
		} `yaml:"microsoft"`
	} `yaml:"providers"`

	Auth struct {
		StateCookieName string        `yaml:"state_cookie_name"`
		StateTTL        time.Duration `yaml:"state_ttl"`
	} `yaml:"auth"`

	Rate struct {
		Enabled bool   `yaml:"enabled"`
		Kind    string `yaml:"kind"` // "memory" | "redis"
		Redis   struct {
			Addr   string `yaml:"addr"`
			DB     int    `yaml:"db"`
			Prefix string `yaml:"prefix"`
		} `yaml:"redis"`
		Login struct {
			Limit  int    `yaml:"limit"`
			Window string `yaml:"window"`
		} `yaml:"login"`
		Callback struct {
			Limit  int    `yaml:"limit"`
			Window string `yaml:"window"`
		} `yaml:"callback"`
	} `yaml:"rate"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Flags struct {
		Migrate bool `yaml:"migrate"`
	} `yaml:"flags"`
}

// IsProduction reporta si corremos en producción (gobierna el flag Secure de cookies).
func (c *Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.App.Env), "production")
}

// LoadFile carga configuración desde un YAML opcional. No es requerido:
// todo se puede setear por ENV (LoadFromEnv pisa lo que venga del archivo).
func LoadFile(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return &c, nil
}

// LoadFromEnv arma la configuración desde variables de entorno,
// aplicando defaults razonables para dev.
func LoadFromEnv() *Config {
	c := &Config{}

	// --- App ---
	c.App.Env = getenv("ENVIRONMENT", "development")

	// --- Server ---
	c.Server.Addr = getenv("SERVER_ADDR", ":8000")
	c.Server.CORSAllowedOrigins = splitCSVEnv(getenv("SERVER_CORS_ALLOWED_ORIGINS", ""))

	// --- Storage ---
	c.Storage.Driver = getenv("STORAGE_DRIVER", "memory")
	c.Storage.DSN = getenv("STORAGE_DSN", "")
	c.Storage.Postgres.MaxOpenConns = getenvInt("POSTGRES_MAX_OPEN_CONNS", 5)
	c.Storage.Postgres.MaxIdleConns = getenvInt("POSTGRES_MAX_IDLE_CONNS", 2)
	c.Storage.Postgres.ConnMaxLifetime = getenv("POSTGRES_CONN_MAX_LIFETIME", "30m")

	// --- Providers ---
	c.Providers.Timeout = getenvDuration("PROVIDER_HTTP_TIMEOUT", 10*time.Second)

	c.Providers.Google.ClientID = getenv("GOOGLE_CLIENT_ID", "")
	c.Providers.Google.ClientSecret = getenv("GOOGLE_CLIENT_SECRET", "")
	c.Providers.Google.RedirectURI = getenv("GOOGLE_REDIRECT_URI", "")
	c.Providers.Google.Scopes = splitCSVEnv(getenv("GOOGLE_SCOPES", ""))

	c.Providers.Microsoft.ClientID = getenv("MICROSOFT_CLIENT_ID", "")
	c.Providers.Microsoft.ClientSecret = getenv("MICROSOFT_CLIENT_SECRET", "")
	c.Providers.Microsoft.Authority = getenv("MICROSOFT_AUTHORITY", "common")
	c.Providers.Microsoft.RedirectURI = getenv("MICROSOFT_REDIRECT_URI", "")
	c.Providers.Microsoft.Scopes = splitCSVEnv(getenv("MICROSOFT_SCOPES", ""))

	// --- Auth ---
	c.Auth.StateCookieName = getenv("AUTH_STATE_COOKIE_NAME", "oauth_state")
	c.Auth.StateTTL = getenvDuration("AUTH_STATE_TTL", 5*time.Minute)

	// --- Rate ---
	c.Rate.Enabled = getenvBool("RATE_ENABLED", true)
	c.Rate.Kind = getenv("RATE_KIND", "memory")
	c.Rate.Redis.Addr = getenv("REDIS_ADDR", "localhost:6379")
	c.Rate.Redis.DB = getenvInt("REDIS_DB", 0)
	c.Rate.Redis.Prefix = getenv("REDIS_PREFIX", "loginbox:")
	c.Rate.Login.Limit = getenvInt("RATE_LOGIN_LIMIT", 30)
	c.Rate.Login.Window = getenv("RATE_LOGIN_WINDOW", "1m")
	c.Rate.Callback.Limit = getenvInt("RATE_CALLBACK_LIMIT", 30)
	c.Rate.Callback.Window = getenv("RATE_CALLBACK_WINDOW", "1m")

	// --- Log ---
	c.Log.Level = getenv("LOG_LEVEL", "info")

	// --- Flags ---
	c.Flags.Migrate = getenvBool("FLAGS_MIGRATE", true)

	return c
}

// Validate chequea lo mínimo para poder levantar el server.
// Providers sin credenciales quedan deshabilitados, no es error fatal.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("config: server addr vacío")
	}
	switch c.Storage.Driver {
	case "memory":
	case "postgres":
		if c.Storage.DSN == "" {
			return fmt.Errorf("config: STORAGE_DSN requerido con driver postgres")
		}
	default:
		return fmt.Errorf("config: storage driver desconocido %q", c.Storage.Driver)
	}
	return nil
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getenvDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func splitCSVEnv(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
