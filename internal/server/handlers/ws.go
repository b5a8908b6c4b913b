package handlers

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/iudanet/gophcollab/internal/models"
	"github.com/iudanet/gophcollab/internal/session"
	"github.com/iudanet/gophcollab/internal/wire"
	"github.com/iudanet/gophcollab/pkg/api"
)

// DefaultSendBuffer сколько исходящих frames ждут записи в сокет
const DefaultSendBuffer = 256

// WSConfig настройки websocket транспорта
type WSConfig struct {
	SendBuffer int
}

// WSHandler upgrades authorized requests and attaches them to the actor of
// their document.
type WSHandler struct {
	logger   *slog.Logger
	registry *session.Registry
	upgrader websocket.Upgrader
	cfg      WSConfig
}

// NewWSHandler creates a new websocket handler
func NewWSHandler(logger *slog.Logger, registry *session.Registry, cfg WSConfig) *WSHandler {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = DefaultSendBuffer
	}
	return &WSHandler{
		logger:   logger,
		registry: registry,
		cfg:      cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// права проверяет gatekeeper до нас
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Serve обрабатывает GET /ws/{key}
func (h *WSHandler) Serve(w http.ResponseWriter, r *http.Request) {
	key, err := documentKey(r)
	if err != nil {
		SendError(h.logger, w, err.Error(), http.StatusBadRequest)
		return
	}

	identity := requestIdentity(r)
	logger := h.logger.With("doc", key.String())

	join, err := initialContent(r)
	if err != nil {
		// испорченный bootstrap не мешает подключению
		logger.Warn("Ignoring initial content", "error", err)
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("Failed to upgrade connection", "error", err)
		return
	}

	cfg := h.registry.Config()
	msgType := websocket.BinaryMessage
	if cfg.Mode == models.ModePlain {
		msgType = websocket.TextMessage
	}

	id := uuid.NewString()
	conn := newWSConn(ws, id, identity, msgType, h.cfg.SendBuffer, logger.With("conn", id))
	go conn.writePump()
	defer conn.wait()

	ctx := r.Context()
	actor, err := h.registry.Connect(ctx, key, conn, join)
	if err != nil {
		code := wire.CloseInternalError
		if errors.Is(err, session.ErrRegistryClosed) {
			code = wire.CloseGoingAway
		}
		logger.Error("Failed to attach connection", "conn", id, "error", err)
		conn.Close(code, "document unavailable")
		return
	}

	defer func() {
		if err := actor.Disconnect(context.Background(), id); err != nil && !errors.Is(err, session.ErrActorStopped) {
			logger.Error("Failed to detach connection", "conn", id, "error", err)
		}
	}()

	conn.readPump(cfg.FrameLimit(), func(frame []byte) error {
		return actor.Receive(ctx, id, frame)
	})
}

// requestIdentity берет identity из grant, иначе из заголовков gatekeeper
func requestIdentity(r *http.Request) models.Identity {
	if identity, ok := GetIdentity(r.Context()); ok {
		return identity
	}
	return models.Identity{
		UserID:    r.Header.Get(api.HeaderUserID),
		UserName:  models.DecodeUserNameOrRaw(r.Header.Get(api.HeaderUserName)),
		UserImage: models.DecodeUserImage(r.Header.Get(api.HeaderUserImage)),
	}
}

func initialContent(r *http.Request) (session.Join, error) {
	raw := r.Header.Get(api.HeaderInitialContent)
	if raw == "" {
		return session.Join{}, nil
	}

	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return session.Join{}, fmt.Errorf("failed to decode initial content: %w", err)
	}
	if !utf8.Valid(data) {
		return session.Join{}, fmt.Errorf("initial content is not valid UTF-8")
	}

	return session.Join{InitialContent: string(data), HasInitialContent: true}, nil
}
