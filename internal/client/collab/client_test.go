package collab

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/gophcollab/internal/models"
	"github.com/iudanet/gophcollab/internal/server"
	"github.com/iudanet/gophcollab/internal/server/handlers"
	"github.com/iudanet/gophcollab/internal/server/storage/memory"
	"github.com/iudanet/gophcollab/internal/session"
	"github.com/iudanet/gophcollab/pkg/api"
)

func setupServer(t *testing.T, mode models.Mode, grant handlers.GrantConfig) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.New()

	cfg := session.DefaultConfig()
	cfg.Mode = mode
	registry := session.NewRegistry(store, cfg, logger)

	srv := httptest.NewServer(server.NewRouter(server.RouterConfig{
		Logger:   logger,
		Registry: registry,
		Store:    store,
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

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func nextEvent(t *testing.T, s *PlainSession) api.Message {
	t.Helper()
	select {
	case msg, ok := <-s.Events():
		require.True(t, ok, "session ended")
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("no event")
		return api.Message{}
	}
}

func ptr(s string) *string { return &s }

func TestPlainSession(t *testing.T) {
	srv := setupServer(t, models.ModePlain, handlers.GrantConfig{})
	ctx := testContext(t)

	ann := NewClient(srv.URL, WithIdentity(models.Identity{UserID: "u-1", UserName: "Анна"}))
	bob := NewClient(srv.URL, WithIdentity(models.Identity{UserID: "u-2", UserName: "Bob"}))

	s1, err := ann.OpenPlain(ctx, "notes")
	require.NoError(t, err)
	defer s1.Close()

	content, err := s1.Init(ctx, ptr("hello"))
	require.NoError(t, err)
	assert.Equal(t, "hello", content)
	assert.NotEmpty(t, s1.ConnectionID())

	s2, err := bob.OpenPlain(ctx, "notes")
	require.NoError(t, err)
	defer s2.Close()

	content, err = s2.Init(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, "hello", content)

	require.NoError(t, s1.Change(5, 5, " world"))
	change := nextEvent(t, s2)
	assert.Equal(t, api.TypeChange, change.Type)
	assert.Equal(t, &api.Change{From: 5, To: 5, Insert: " world"}, change.Changes)

	require.NoError(t, s1.Cursor(3, nil))
	cursor := nextEvent(t, s2)
	assert.Equal(t, api.TypeCursor, cursor.Type)
	assert.Equal(t, "Анна", cursor.UserName)

	require.NoError(t, s1.Close())
	leave := nextEvent(t, s2)
	assert.Equal(t, api.TypeCursorLeave, leave.Type)

	// после закрытия запись невозможна
	assert.ErrorIs(t, s1.Change(0, 0, "x"), ErrSessionClosed)

	doc, err := bob.GetDocument(ctx, "notes")
	require.NoError(t, err)
	assert.Equal(t, "hello world", doc.Text)
	assert.Equal(t, 1, doc.Connections)
}

func TestCRDTSession(t *testing.T) {
	srv := setupServer(t, models.ModeCRDT, handlers.GrantConfig{})
	ctx := testContext(t)
	client := NewClient(srv.URL)

	r1, err := client.OpenCRDT(ctx, "notes", CRDTOptions{InitialContent: ptr("seed")})
	require.NoError(t, err)
	defer r1.Close()
	require.NoError(t, r1.WaitSynced(ctx))
	assert.Equal(t, "seed", r1.Text())

	r2, err := client.OpenCRDT(ctx, "notes", CRDTOptions{})
	require.NoError(t, err)
	defer r2.Close()
	require.NoError(t, r2.WaitSynced(ctx))
	assert.Equal(t, "seed", r2.Text())

	require.NoError(t, r1.Insert(r1.Len(), "!"))
	require.Eventually(t, func() bool { return r2.Text() == "seed!" }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, r2.Delete(0, 1))
	require.Eventually(t, func() bool { return r1.Text() == "eed!" }, 5*time.Second, 10*time.Millisecond)

	// уведомления вытесняют друг друга, последнее должно дойти
	require.Eventually(t, func() bool {
		select {
		case text := <-r1.Changes():
			return text == "eed!"
		default:
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, r1.SetAwareness(1, []byte(`{"user":{"name":"Ann"}}`)))
	require.Eventually(t, func() bool { return r2.AwarenessEntries() > 0 }, 5*time.Second, 10*time.Millisecond)

	doc, err := client.GetDocument(ctx, "notes")
	require.NoError(t, err)
	assert.Equal(t, "eed!", doc.Text)
	assert.Equal(t, string(models.ModeCRDT), doc.Mode)
}

func TestClient_Grant(t *testing.T) {
	grant := handlers.GrantConfig{Secret: []byte("client-secret"), TTL: time.Hour}
	srv := setupServer(t, models.ModePlain, grant)
	ctx := testContext(t)

	_, err := NewClient(srv.URL).OpenPlain(ctx, "notes")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")

	token, err := handlers.GenerateGrant(grant, "notes", models.Identity{UserID: "u-1"})
	require.NoError(t, err)

	s, err := NewClient(srv.URL, WithToken(token)).OpenPlain(ctx, "notes")
	require.NoError(t, err)
	defer s.Close()

	content, err := s.Init(ctx, ptr("granted"))
	require.NoError(t, err)
	assert.Equal(t, "granted", content)

	_, err = NewClient(srv.URL, WithToken(token)).GetDocument(ctx, "other")
	assert.ErrorContains(t, err, "403")
}

func TestClient_GetDocumentNotFound(t *testing.T) {
	srv := setupServer(t, models.ModePlain, handlers.GrantConfig{})

	_, err := NewClient(srv.URL).GetDocument(testContext(t), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClient_Health(t *testing.T) {
	srv := setupServer(t, models.ModePlain, handlers.GrantConfig{})

	health, err := NewClient(srv.URL + "/").Health(testContext(t))
	require.NoError(t, err)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "test", health.Version)
}

func TestCloseError(t *testing.T) {
	_, ok := CloseError(assert.AnError)
	assert.False(t, ok)
}
