package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/iudanet/gophcollab/pkg/api"
)

// healthTimeout сколько ждем ответа хранилища
const healthTimeout = 2 * time.Second

// Pinger проверяет доступность хранилища
type Pinger interface {
	Ping(ctx context.Context) error
}

// Counter сообщает число активных документов
type Counter interface {
	Len() int
}

// HealthHandler обрабатывает health check запросы
type HealthHandler struct {
	logger  *slog.Logger
	store   Pinger
	actors  Counter
	version string
}

// NewHealthHandler создает новый handler для health check
func NewHealthHandler(logger *slog.Logger, store Pinger, actors Counter, version string) *HealthHandler {
	return &HealthHandler{
		logger:  logger,
		store:   store,
		actors:  actors,
		version: version,
	}
}

// Health обрабатывает GET /api/v1/health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	resp := api.HealthResponse{
		Status:    "ok",
		Version:   h.version,
		Documents: h.actors.Len(),
	}

	status := http.StatusOK
	if err := h.store.Ping(ctx); err != nil {
		h.logger.Error("Storage health check failed", slog.Any("error", err))
		resp.Status = "unavailable"
		status = http.StatusServiceUnavailable
	}

	sendJSON(h.logger, w, resp, status)
}
