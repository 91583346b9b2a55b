// Package pg implementa store.Users sobre Postgres (pgxpool).
package pg

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/loginbox/internal/observability/logger"
	"github.com/dropDatabas3/loginbox/internal/store"
)

type Store struct{ pool *pgxpool.Pool }

// Config es el tuning opcional del pool.
type Config struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime string
}

func New(ctx context.Context, dsn string, cfg Config) (*Store, error) {
	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		pcfg.MaxConns = int32(cfg.MaxOpenConns)
	}
	// Mapear MaxIdleConns → MinConns (pgxpool)
	if cfg.MaxIdleConns > 0 {
		pcfg.MinConns = int32(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime != "" {
		if d, err := time.ParseDuration(cfg.ConnMaxLifetime); err == nil {
			pcfg.MaxConnLifetime = d
			pcfg.MaxConnIdleTime = d
		}
	}
	if pcfg.MaxConns == 0 {
		pcfg.MaxConns = 5
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, err
	}

	// Arranque no bloqueante: si la DB está caída igual levantamos,
	// el healthcheck lo va a reportar.
	if err := pool.Ping(ctx); err != nil {
		logger.Named("pg").Warn("startup ping failed", logger.Err(err))
	} else {
		logger.Named("pg").Info("pool ready", logger.Int("max_conns", int(pcfg.MaxConns)))
	}

	return &Store{pool: pool}, nil
}

// Pool expone el pool interno para usos avanzados (migraciones).
func (s *Store) Pool() *pgxpool.Pool {
	if s == nil {
		return nil
	}
	return s.pool
}

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) GetByEmail(ctx context.Context, email string) (*store.User, error) {
	var u store.User
	err := s.pool.QueryRow(ctx,
		`SELECT email, name FROM app_user WHERE email = $1`, email,
	).Scan(&u.Email, &u.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// CreateIfAbsent usa ON CONFLICT DO NOTHING: el insert-if-absent es atómico,
// dos primeros logins simultáneos con el mismo email no pueden duplicar fila.
func (s *Store) CreateIfAbsent(ctx context.Context, u store.User) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO app_user (email, name) VALUES ($1, $2)
		 ON CONFLICT (email) DO NOTHING`,
		u.Email, u.Name,
	)
	if err != nil {
		// Por si el esquema viejo no tiene el conflict target: tragamos el
		// unique violation igual que haría un upsert.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return false, nil
		}
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
