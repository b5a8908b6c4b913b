package session

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iudanet/gophcollab/internal/models"
	"github.com/iudanet/gophcollab/internal/server/storage"
	"github.com/iudanet/gophcollab/internal/server/storage/memory"
	"github.com/iudanet/gophcollab/pkg/api"
)

var (
	t0            = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	errConnClosed = errors.New("connection closed")
)

// testConn записывает все отправленные frames; безопасен для конкурентного доступа
type testConn struct {
	id        string
	identity  models.Identity
	frames    [][]byte
	mu        sync.Mutex
	closeCode int
	closed    bool
}

func newTestConn(id string) *testConn {
	return &testConn{id: id}
}

func (c *testConn) ID() string                { return c.id }
func (c *testConn) Identity() models.Identity { return c.identity }

func (c *testConn) Send(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errConnClosed
	}
	c.frames = append(c.frames, frame)
	return nil
}

func (c *testConn) Close(code int, _ string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		c.closeCode = code
	}
}

func (c *testConn) Frames() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.frames...)
}

func (c *testConn) CloseCode() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeCode
}

// Messages декодирует JSON frames plain-text протокола
func (c *testConn) Messages(t *testing.T) []api.Message {
	t.Helper()
	var msgs []api.Message
	for _, f := range c.Frames() {
		var msg api.Message
		require.NoError(t, json.Unmarshal(f, &msg))
		msgs = append(msgs, msg)
	}
	return msgs
}

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func plainConfig() Config {
	cfg := DefaultConfig()
	cfg.Mode = models.ModePlain
	return cfg
}

func crdtConfig() Config {
	return DefaultConfig()
}

func setupTestRegistry(t *testing.T, cfg Config, store storage.DocumentStorage) (*Registry, *ManualClock) {
	t.Helper()
	clock := NewManualClock(t0)
	r := NewRegistry(store, cfg, setupTestLogger(), WithClock(clock))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = r.Shutdown(ctx)
	})
	return r, clock
}

// countingStore делегирует в memory и позволяет подменять отдельные методы
func countingStore() (*storage.DocumentStorageMock, *memory.Storage) {
	mem := memory.New()
	return &storage.DocumentStorageMock{
		EnsureDocumentFunc: mem.EnsureDocument,
		GetDocumentFunc:    mem.GetDocument,
		SaveDocumentFunc:   mem.SaveDocument,
		TouchDocumentFunc:  mem.TouchDocument,
		DeleteDocumentFunc: mem.DeleteDocument,
		ListDocumentsFunc:  mem.ListDocuments,
		PingFunc:           mem.Ping,
		CloseFunc:          mem.Close,
	}, mem
}

func connect(t *testing.T, r *Registry, key models.DocumentKey, conn *testConn) *Actor {
	t.Helper()
	a, err := r.Connect(context.Background(), key, conn, Join{})
	require.NoError(t, err)
	return a
}

func send(t *testing.T, a *Actor, conn *testConn, frame string) {
	t.Helper()
	require.NoError(t, a.Receive(context.Background(), conn.id, []byte(frame)))
}

// barrier дожидается обработки всех ранее поставленных событий
func barrier(t *testing.T, a *Actor) Info {
	t.Helper()
	info, err := a.Inspect(context.Background())
	require.NoError(t, err)
	return info
}

func storedRecord(t *testing.T, s storage.DocumentStorage, key models.DocumentKey) *models.DocumentRecord {
	t.Helper()
	rec, err := s.GetDocument(context.Background(), key)
	require.NoError(t, err)
	return rec
}

func waitStopped(t *testing.T, a *Actor) {
	t.Helper()
	select {
	case <-a.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("actor did not stop")
	}
}
