package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/iudanet/gophcollab/internal/models"
	"github.com/iudanet/gophcollab/internal/server/storage"
	"github.com/iudanet/gophcollab/internal/session"
	"github.com/iudanet/gophcollab/internal/validation"
	"github.com/iudanet/gophcollab/pkg/api"
)

// Inspector отдает состояние документа
type Inspector interface {
	Inspect(ctx context.Context, key models.DocumentKey) (session.Info, error)
}

// DocumentHandler serves read-only document inspection
type DocumentHandler struct {
	logger    *slog.Logger
	inspector Inspector
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(logger *slog.Logger, inspector Inspector) *DocumentHandler {
	return &DocumentHandler{
		logger:    logger,
		inspector: inspector,
	}
}

// Get обрабатывает GET /api/v1/documents/{key}
func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	key, err := documentKey(r)
	if err != nil {
		SendError(h.logger, w, err.Error(), http.StatusBadRequest)
		return
	}

	info, err := h.inspector.Inspect(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrDocumentNotFound) {
			SendError(h.logger, w, "document not found", http.StatusNotFound)
			return
		}
		h.logger.ErrorContext(ctx, "failed to inspect document", slog.String("doc", key.String()), slog.Any("error", err))
		SendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	resp := api.DocumentResponse{
		Key:          info.Key.String(),
		Mode:         string(info.Mode),
		Text:         info.Text,
		State:        info.State,
		Connections:  info.Connections,
		LastActivity: info.LastActivity,
	}

	sendJSON(h.logger, w, resp, http.StatusOK)
}

// documentKey берет ключ из grant, из пути или из заголовка, в этом порядке
func documentKey(r *http.Request) (models.DocumentKey, error) {
	if key, ok := GetDocumentKey(r.Context()); ok {
		return key, nil
	}

	raw := mux.Vars(r)["key"]
	if raw == "" {
		raw = r.Header.Get(api.HeaderDocumentKey)
	}

	if err := validation.ValidateDocumentKey(raw); err != nil {
		return "", err
	}
	return models.DocumentKey(raw), nil
}
