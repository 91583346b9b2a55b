package handlers

import (
	"context"
	"net/http"
	"time"

	httpx "github.com/dropDatabas3/loginbox/internal/http"
	"github.com/dropDatabas3/loginbox/internal/store"
)

// HealthHandler responde /healthz chequeando el store con timeout corto.
type HealthHandler struct {
	Users store.Users
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.Users.Ping(ctx); err != nil {
		httpx.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "degraded",
			"store":  err.Error(),
		})
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
