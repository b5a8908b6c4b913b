// Package server assembles the HTTP surface of the collaboration server.
package server

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/iudanet/gophcollab/internal/server/handlers"
	"github.com/iudanet/gophcollab/internal/server/middleware"
	"github.com/iudanet/gophcollab/internal/server/storage"
	"github.com/iudanet/gophcollab/internal/session"
)

// HealthPath путь health check, не попадает в access log
const HealthPath = "/api/v1/health"

// RouterConfig собирает зависимости HTTP слоя
type RouterConfig struct {
	Logger   *slog.Logger
	Registry *session.Registry
	Store    storage.DocumentStorage
	// Limiter ограничивает websocket upgrade; nil отключает ограничение
	Limiter *middleware.RateLimiter
	Grant   handlers.GrantConfig
	WS      handlers.WSConfig
	Version string
}

// NewRouter создает router со всеми маршрутами сервера:
//
//	GET /ws, /ws/{key}              websocket upgrade
//	GET /api/v1/documents/{key}     снимок документа
//	GET /api/v1/health              health check
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger

	ws := handlers.NewWSHandler(logger, cfg.Registry, cfg.WS)
	docs := handlers.NewDocumentHandler(logger, cfg.Registry)
	health := handlers.NewHealthHandler(logger, cfg.Store, cfg.Registry, cfg.Version)

	r := mux.NewRouter()
	r.Use(middleware.RecoveryMiddleware(logger))
	r.Use(middleware.LoggingWithSkip(logger, []string{HealthPath}))

	r.HandleFunc(HealthPath, health.Health).Methods(http.MethodGet)

	// grant проверяется после сопоставления маршрута: ему нужен {key}
	grant := middleware.GrantMiddleware(logger, cfg.Grant)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(grant)
	api.HandleFunc("/documents/{key:.+}", docs.Get).Methods(http.MethodGet)

	upgrades := r.PathPrefix("/ws").Subrouter()
	upgrades.Use(grant)
	if cfg.Limiter != nil {
		upgrades.Use(middleware.RateLimitMiddleware(cfg.Limiter, logger))
	}
	upgrades.HandleFunc("", ws.Serve).Methods(http.MethodGet)
	upgrades.HandleFunc("/{key:.+}", ws.Serve).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlers.SendError(logger, w, "not found", http.StatusNotFound)
	})

	return r
}
