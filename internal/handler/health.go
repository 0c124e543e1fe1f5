package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"codebench/internal/httputil"
)

// HealthHandler reports liveness and readiness
type HealthHandler struct {
	pool *pgxpool.Pool
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(pool *pgxpool.Pool) *HealthHandler {
	return &HealthHandler{pool: pool}
}

// Health reports liveness
// GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready reports readiness: the database must answer a ping
// GET /health/ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.pool.Ping(ctx); err != nil {
		httputil.RespondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "fail",
			"detail": "database unreachable",
		})
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
