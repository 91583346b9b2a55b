package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dropDatabas3/loginbox/internal/observability/logger"
)

// Server envuelve http.Server con apagado ordenado.
type Server struct {
	srv *http.Server
}

func NewServer(addr string, h http.Handler) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           h,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}
}

// Run levanta el listener y bloquea hasta que ctx se cancele o el server
// falle. Al cancelar, drena conexiones con un grace period de 10s.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logger.S().Infow("http server listening", "addr", s.srv.Addr)
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.S().Infow("http server draining")
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
