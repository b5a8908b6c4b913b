package handlers

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

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/gophcollab/internal/models"
	"github.com/iudanet/gophcollab/internal/server/storage/memory"
	"github.com/iudanet/gophcollab/internal/session"
	"github.com/iudanet/gophcollab/pkg/api"
)

// setupTestLogger creates a logger for testing
func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testServer struct {
	*httptest.Server
	registry *session.Registry
	store    *memory.Storage
}

func setupTestServer(t *testing.T, mode models.Mode) *testServer {
	t.Helper()
	logger := setupTestLogger()
	store := memory.New()

	cfg := session.DefaultConfig()
	cfg.Mode = mode
	registry := session.NewRegistry(store, cfg, logger)

	ws := NewWSHandler(logger, registry, WSConfig{})
	docs := NewDocumentHandler(logger, registry)

	r := mux.NewRouter()
	r.HandleFunc("/ws", ws.Serve).Methods(http.MethodGet)
	r.HandleFunc("/ws/{key:.+}", ws.Serve).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/documents/{key:.+}", docs.Get).Methods(http.MethodGet)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = registry.Shutdown(ctx)
	})

	return &testServer{Server: srv, registry: registry, store: store}
}

func (s *testServer) dial(t *testing.T, path string, header http.Header) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(s.URL, "http") + path
	ws, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func readMessage(t *testing.T, ws *websocket.Conn) []byte {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := ws.ReadMessage()
	require.NoError(t, err)
	return data
}

func readJSON(t *testing.T, ws *websocket.Conn) api.Message {
	t.Helper()
	var msg api.Message
	require.NoError(t, json.Unmarshal(readMessage(t, ws), &msg))
	return msg
}

func writeJSON(t *testing.T, ws *websocket.Conn, frame string) {
	t.Helper()
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(frame)))
}

// readCloseCode читает до close frame и возвращает его код
func readCloseCode(t *testing.T, ws *websocket.Conn) int {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		_, _, err := ws.ReadMessage()
		if err == nil {
			continue
		}
		var closeErr *websocket.CloseError
		require.ErrorAs(t, err, &closeErr)
		return closeErr.Code
	}
}
