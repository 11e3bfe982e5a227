package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/cloo-solutions/docrag/internal/api"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	db Pinger
}

// NewHealthHandler creates a health handler. db may be nil, in which case only liveness is reported.
func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			api.JSON(w, http.StatusServiceUnavailable, map[string]any{
				"data": map[string]string{"status": "degraded", "database": "unreachable"},
			})
			return
		}
	}
	api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
}
