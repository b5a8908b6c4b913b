package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/gophcollab/internal/models"
	"github.com/iudanet/gophcollab/internal/server/handlers"
	"github.com/iudanet/gophcollab/internal/server/middleware"
	"github.com/iudanet/gophcollab/internal/server/storage/memory"
	"github.com/iudanet/gophcollab/internal/session"
	"github.com/iudanet/gophcollab/pkg/api"
)

var testGrant = handlers.GrantConfig{Secret: []byte("router-secret"), TTL: time.Hour}

func setupRouter(t *testing.T, grant handlers.GrantConfig, limiter *middleware.RateLimiter) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.New()

	cfg := session.DefaultConfig()
	cfg.Mode = models.ModePlain
	registry := session.NewRegistry(store, cfg, logger)

	srv := httptest.NewServer(NewRouter(RouterConfig{
		Logger:   logger,
		Registry: registry,
		Store:    store,
		Limiter:  limiter,
		Grant:    grant,
		Version:  "test",
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = registry.Shutdown(ctx)
	})
	return srv
}

func wsURL(srv *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + path
}

func TestRouter_Health(t *testing.T) {
	srv := setupRouter(t, testGrant, nil)

	resp, err := http.Get(srv.URL + HealthPath)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var health api.HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "test", health.Version)
}

func TestRouter_UnknownPath(t *testing.T) {
	srv := setupRouter(t, handlers.GrantConfig{}, nil)

	resp, err := http.Get(srv.URL + "/nope")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func TestRouter_GrantProtectsUpgrade(t *testing.T) {
	srv := setupRouter(t, testGrant, nil)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/notes"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	token, err := handlers.GenerateGrant(testGrant, "notes", models.Identity{UserID: "u-1", UserName: "Ann"})
	require.NoError(t, err)

	// ключ берется из grant, путь без ключа
	ws, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws?token="+token), nil)
	require.NoError(t, err)
	defer ws.Close()

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"init","content":"hi"}`)))
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := ws.ReadMessage()
	require.NoError(t, err)

	var msg api.Message
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, api.TypeInit, msg.Type)
	require.NotNil(t, msg.Content)
	assert.Equal(t, "hi", *msg.Content)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/documents/notes", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	docResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer docResp.Body.Close()
	require.Equal(t, http.StatusOK, docResp.StatusCode)

	var doc api.DocumentResponse
	require.NoError(t, json.NewDecoder(docResp.Body).Decode(&doc))
	assert.Equal(t, "notes", doc.Key)
	assert.Equal(t, "hi", doc.Text)
	assert.Equal(t, 1, doc.Connections)
}

func TestRouter_GrantForAnotherDocumentIsForbidden(t *testing.T) {
	srv := setupRouter(t, testGrant, nil)

	token, err := handlers.GenerateGrant(testGrant, "notes", models.Identity{UserID: "u-1"})
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/documents/secret", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestRouter_UpgradeRateLimit(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	limiter := middleware.NewRateLimiter(1, time.Minute, logger)
	t.Cleanup(limiter.Stop)
	srv := setupRouter(t, handlers.GrantConfig{}, limiter)

	header := http.Header{}
	header.Set(api.HeaderUserID, "u-1")

	ws, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/notes"), header)
	require.NoError(t, err)
	defer ws.Close()

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/notes"), header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	// документный API не ограничивается
	docResp, err := http.Get(srv.URL + "/api/v1/documents/notes")
	require.NoError(t, err)
	defer docResp.Body.Close()
	assert.NotEqual(t, http.StatusTooManyRequests, docResp.StatusCode)
}
