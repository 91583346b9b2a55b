package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	rdb "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/loginbox/internal/config"
	httpx "github.com/dropDatabas3/loginbox/internal/http"
	"github.com/dropDatabas3/loginbox/internal/http/handlers"
	"github.com/dropDatabas3/loginbox/internal/oauth"
	"github.com/dropDatabas3/loginbox/internal/oauth/google"
	"github.com/dropDatabas3/loginbox/internal/oauth/microsoft"
	"github.com/dropDatabas3/loginbox/internal/observability/logger"
	"github.com/dropDatabas3/loginbox/internal/provision"
	"github.com/dropDatabas3/loginbox/internal/rate"
	"github.com/dropDatabas3/loginbox/internal/security/secretbox"
	"github.com/dropDatabas3/loginbox/internal/store"
	"github.com/dropDatabas3/loginbox/internal/store/memory"
	"github.com/dropDatabas3/loginbox/internal/store/pg"
	"github.com/dropDatabas3/loginbox/internal/util"
)

var cfgFile string

func main() {
	root := &cobra.Command{
		Use:   "loginbox",
		Short: "Login social con provisioning idempotente de usuarios",
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "ruta a config YAML (opcional)")

	root.AddCommand(serveCmd(), migrateCmd(), encCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig: .env → YAML opcional → ENV pisa todo.
func loadConfig() (*config.Config, error) {
	_ = godotenv.Load()

	var cfg *config.Config
	if cfgFile != "" {
		fileCfg, err := config.LoadFile(cfgFile)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg
		env := config.LoadFromEnv()
		// ENV manda sobre el archivo para credenciales y direcciones
		mergeEnvOverrides(cfg, env)
	} else {
		cfg = config.LoadFromEnv()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// mergeEnvOverrides pisa los campos sensibles del YAML con lo que haya en ENV.
func mergeEnvOverrides(dst, env *config.Config) {
	if os.Getenv("ENVIRONMENT") != "" {
		dst.App.Env = env.App.Env
	}
	if os.Getenv("SERVER_ADDR") != "" {
		dst.Server.Addr = env.Server.Addr
	}
	if os.Getenv("STORAGE_DRIVER") != "" {
		dst.Storage.Driver = env.Storage.Driver
	}
	if os.Getenv("STORAGE_DSN") != "" {
		dst.Storage.DSN = env.Storage.DSN
	}
	if os.Getenv("GOOGLE_CLIENT_ID") != "" {
		dst.Providers.Google.ClientID = env.Providers.Google.ClientID
	}
	if os.Getenv("GOOGLE_CLIENT_SECRET") != "" {
		dst.Providers.Google.ClientSecret = env.Providers.Google.ClientSecret
	}
	if os.Getenv("GOOGLE_REDIRECT_URI") != "" {
		dst.Providers.Google.RedirectURI = env.Providers.Google.RedirectURI
	}
	if os.Getenv("MICROSOFT_CLIENT_ID") != "" {
		dst.Providers.Microsoft.ClientID = env.Providers.Microsoft.ClientID
	}
	if os.Getenv("MICROSOFT_CLIENT_SECRET") != "" {
		dst.Providers.Microsoft.ClientSecret = env.Providers.Microsoft.ClientSecret
	}
	if os.Getenv("MICROSOFT_AUTHORITY") != "" {
		dst.Providers.Microsoft.Authority = env.Providers.Microsoft.Authority
	}
	if os.Getenv("MICROSOFT_REDIRECT_URI") != "" {
		dst.Providers.Microsoft.RedirectURI = env.Providers.Microsoft.RedirectURI
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Levanta el servidor HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			logger.Init(logger.Config{
				Env:         cfg.App.Env,
				Level:       cfg.Log.Level,
				ServiceName: "loginbox",
			})
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			users, err := buildStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer users.Close()

			if cfg.Flags.Migrate && cfg.Storage.Driver == "postgres" {
				if pgStore, ok := users.(*pg.Store); ok {
					if err := pg.Migrate(ctx, pgStore.Pool()); err != nil {
						return fmt.Errorf("migraciones: %w", err)
					}
				}
			}

			registry, err := buildProviders(cfg)
			if err != nil {
				return err
			}
			if len(registry.Available()) == 0 {
				logger.S().Warnw("ningún provider configurado; /login va a responder 400")
			} else {
				logger.S().Infow("providers registrados", "providers", registry.Available())
			}

			prov := provision.New(users)
			authH := handlers.NewAuthHandler(registry, prov,
				cfg.Auth.StateCookieName, cfg.Auth.StateTTL, cfg.IsProduction())

			loginLim, callbackLim := buildLimiters(cfg)

			router := httpx.NewRouter(httpx.RouterConfig{
				Login:           authH.Login,
				Callback:        authH.Callback,
				Logout:          authH.Logout,
				Index:           &handlers.IndexHandler{Providers: registry},
				Health:          &handlers.HealthHandler{Users: users},
				Metrics:         httpx.RegisterMetrics(nil),
				CORSOrigins:     cfg.Server.CORSAllowedOrigins,
				LoginLimiter:    loginLim,
				CallbackLimiter: callbackLim,
			})

			srv := httpx.NewServer(cfg.Server.Addr, router)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return srv.Run(gctx) })
			return g.Wait()
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Aplica las migraciones de esquema y sale",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Storage.Driver != "postgres" {
				return fmt.Errorf("migrate requiere STORAGE_DRIVER=postgres")
			}

			logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level, ServiceName: "loginbox"})
			defer func() { _ = logger.Sync() }()

			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			defer cancel()

			dsn, err := resolveDSN(cfg)
			if err != nil {
				return err
			}

			st, err := pg.New(ctx, dsn, pg.Config{
				MaxOpenConns:    cfg.Storage.Postgres.MaxOpenConns,
				MaxIdleConns:    cfg.Storage.Postgres.MaxIdleConns,
				ConnMaxLifetime: cfg.Storage.Postgres.ConnMaxLifetime,
			})
			if err != nil {
				return err
			}
			defer st.Close()

			return pg.Migrate(ctx, st.Pool())
		},
	}
}

// encCmd cifra un secreto con la clave maestra de secretbox. Sirve para
// dejar client secrets cifrados en el YAML o en el entorno.
func encCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enc <plaintext>",
		Short: "Cifra un secreto con SECRETBOX_MASTER_KEY",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()
			ct, err := secretbox.Encrypt(args[0])
			if err != nil {
				return err
			}
			fmt.Println(ct)
			return nil
		},
	}
}

// resolveDSN descifra el DSN si vino en formato secretbox.
func resolveDSN(cfg *config.Config) (string, error) {
	dsn, err := secretbox.MaybeDecrypt(cfg.Storage.DSN)
	if err != nil {
		return "", fmt.Errorf("storage dsn: %w", err)
	}
	return dsn, nil
}

func buildStore(ctx context.Context, cfg *config.Config) (store.Users, error) {
	switch cfg.Storage.Driver {
	case "postgres":
		dsn, err := resolveDSN(cfg)
		if err != nil {
			return nil, err
		}
		logger.S().Infow("conectando a postgres", "dsn", util.MaskDSN(dsn))
		return pg.New(ctx, dsn, pg.Config{
			MaxOpenConns:    cfg.Storage.Postgres.MaxOpenConns,
			MaxIdleConns:    cfg.Storage.Postgres.MaxIdleConns,
			ConnMaxLifetime: cfg.Storage.Postgres.ConnMaxLifetime,
		})
	case "memory":
		logger.S().Warnw("store en memoria: los usuarios no sobreviven al restart")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("storage driver desconocido %q", cfg.Storage.Driver)
	}
}

// buildLimiters arma los limiters de /login y /auth según config.
// Deshabilitado devuelve nils y el router saltea el middleware.
func buildLimiters(cfg *config.Config) (rate.Limiter, rate.Limiter) {
	if !cfg.Rate.Enabled {
		return nil, nil
	}

	loginWin := parseWindow(cfg.Rate.Login.Window, time.Minute)
	callbackWin := parseWindow(cfg.Rate.Callback.Window, time.Minute)

	if cfg.Rate.Kind == "redis" {
		client := rdb.NewClient(&rdb.Options{
			Addr: cfg.Rate.Redis.Addr,
			DB:   cfg.Rate.Redis.DB,
		})
		prefix := cfg.Rate.Redis.Prefix
		return rate.NewRedisLimiter(client, prefix+"rl:login", cfg.Rate.Login.Limit, loginWin),
			rate.NewRedisLimiter(client, prefix+"rl:auth", cfg.Rate.Callback.Limit, callbackWin)
	}

	return rate.NewMemoryLimiter(cfg.Rate.Login.Limit, loginWin),
		rate.NewMemoryLimiter(cfg.Rate.Callback.Limit, callbackWin)
}

func parseWindow(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// buildProviders registra los providers con credenciales presentes. Los
// secrets pueden venir cifrados con secretbox (formato nonce|ct).
func buildProviders(cfg *config.Config) (*oauth.Registry, error) {
	reg := oauth.NewRegistry()

	if cfg.Providers.Google.ClientID != "" {
		secret, err := secretbox.MaybeDecrypt(cfg.Providers.Google.ClientSecret)
		if err != nil {
			return nil, fmt.Errorf("google client secret: %w", err)
		}
		reg.Register(google.New(
			cfg.Providers.Google.ClientID,
			secret,
			cfg.Providers.Google.RedirectURI,
			cfg.Providers.Google.Scopes,
			cfg.Providers.Timeout,
		))
	}

	if cfg.Providers.Microsoft.ClientID != "" {
		secret, err := secretbox.MaybeDecrypt(cfg.Providers.Microsoft.ClientSecret)
		if err != nil {
			return nil, fmt.Errorf("microsoft client secret: %w", err)
		}
		reg.Register(microsoft.New(
			cfg.Providers.Microsoft.ClientID,
			microsoftAuthority(cfg.Providers.Microsoft.Authority),
			cfg.Providers.Microsoft.RedirectURI,
			secret,
			cfg.Providers.Microsoft.Scopes,
		))
	}

	return reg, nil
}

// microsoftAuthority acepta el segmento de tenant ("common", un tenant ID) o
// la URL completa del authority.
func microsoftAuthority(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		v = "common"
	}
	if strings.HasPrefix(v, "http://") || strings.HasPrefix(v, "https://") {
		return v
	}
	return "https://login.microsoftonline.com/" + v
}
