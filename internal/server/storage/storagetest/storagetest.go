// Package storagetest holds the behaviour every storage.DocumentStorage
// backend must share.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/gophcollab/internal/models"
	"github.com/iudanet/gophcollab/internal/server/storage"
)

// Factory returns a fresh empty storage. The caller closes it.
type Factory func(t *testing.T) storage.DocumentStorage

// base время с точностью до миллисекунд, как хранится в БД
var base = time.UnixMilli(1_700_000_000_000).UTC()

// Run executes the shared contract against storages produced by newStorage.
func Run(t *testing.T, newStorage Factory) {
	t.Helper()

	t.Run("ensure creates empty record", func(t *testing.T) {
		ctx := context.Background()
		s := newStorage(t)
		defer s.Close()

		rec, err := s.EnsureDocument(ctx, "org/repo/main/README.md", models.ModeCRDT, base)
		require.NoError(t, err)

		assert.Equal(t, models.DocumentKey("org/repo/main/README.md"), rec.Key)
		assert.Equal(t, models.ModeCRDT, rec.Mode)
		assert.Empty(t, rec.Content)
		assert.True(t, base.Equal(rec.LastActivity), "got %v", rec.LastActivity)
	})

	t.Run("ensure keeps existing record", func(t *testing.T) {
		ctx := context.Background()
		s := newStorage(t)
		defer s.Close()

		require.NoError(t, s.SaveDocument(ctx, &models.DocumentRecord{
			Key:          "doc",
			Mode:         models.ModePlain,
			Content:      []byte("hello"),
			LastActivity: base,
		}))

		rec, err := s.EnsureDocument(ctx, "doc", models.ModeCRDT, base.Add(time.Hour))
		require.NoError(t, err)

		assert.Equal(t, models.ModePlain, rec.Mode)
		assert.Equal(t, []byte("hello"), rec.Content)
		assert.True(t, base.Equal(rec.LastActivity))
	})

	t.Run("get missing", func(t *testing.T) {
		s := newStorage(t)
		defer s.Close()

		_, err := s.GetDocument(context.Background(), "missing")
		assert.ErrorIs(t, err, storage.ErrDocumentNotFound)
	})

	t.Run("save overwrites content", func(t *testing.T) {
		ctx := context.Background()
		s := newStorage(t)
		defer s.Close()

		rec := &models.DocumentRecord{Key: "doc", Mode: models.ModeCRDT, Content: []byte{0, 1, 2, 0xff}, LastActivity: base}
		require.NoError(t, s.SaveDocument(ctx, rec))

		rec.Content = []byte{9}
		rec.LastActivity = base.Add(time.Minute)
		require.NoError(t, s.SaveDocument(ctx, rec))

		got, err := s.GetDocument(ctx, "doc")
		require.NoError(t, err)
		assert.Equal(t, []byte{9}, got.Content)
		assert.True(t, base.Add(time.Minute).Equal(got.LastActivity))
	})

	t.Run("last activity never decreases", func(t *testing.T) {
		ctx := context.Background()
		s := newStorage(t)
		defer s.Close()

		require.NoError(t, s.SaveDocument(ctx, &models.DocumentRecord{Key: "doc", Mode: models.ModePlain, LastActivity: base}))
		require.NoError(t, s.SaveDocument(ctx, &models.DocumentRecord{
			Key:          "doc",
			Mode:         models.ModePlain,
			Content:      []byte("new"),
			LastActivity: base.Add(-time.Hour),
		}))
		require.NoError(t, s.TouchDocument(ctx, "doc", base.Add(-2*time.Hour)))

		got, err := s.GetDocument(ctx, "doc")
		require.NoError(t, err)
		assert.Equal(t, []byte("new"), got.Content)
		assert.True(t, base.Equal(got.LastActivity), "got %v", got.LastActivity)
	})

	t.Run("touch", func(t *testing.T) {
		ctx := context.Background()
		s := newStorage(t)
		defer s.Close()

		_, err := s.EnsureDocument(ctx, "doc", models.ModePlain, base)
		require.NoError(t, err)

		require.NoError(t, s.TouchDocument(ctx, "doc", base.Add(time.Hour)))

		got, err := s.GetDocument(ctx, "doc")
		require.NoError(t, err)
		assert.True(t, base.Add(time.Hour).Equal(got.LastActivity))

		assert.ErrorIs(t, s.TouchDocument(ctx, "missing", base), storage.ErrDocumentNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		ctx := context.Background()
		s := newStorage(t)
		defer s.Close()

		_, err := s.EnsureDocument(ctx, "doc", models.ModePlain, base)
		require.NoError(t, err)

		require.NoError(t, s.DeleteDocument(ctx, "doc"))
		_, err = s.GetDocument(ctx, "doc")
		assert.ErrorIs(t, err, storage.ErrDocumentNotFound)

		assert.ErrorIs(t, s.DeleteDocument(ctx, "doc"), storage.ErrDocumentNotFound)

		keys, err := s.ListDocuments(ctx)
		require.NoError(t, err)
		assert.Empty(t, keys)
	})

	t.Run("list", func(t *testing.T) {
		ctx := context.Background()
		s := newStorage(t)
		defer s.Close()

		keys, err := s.ListDocuments(ctx)
		require.NoError(t, err)
		assert.NotNil(t, keys)
		assert.Empty(t, keys)

		for _, key := range []models.DocumentKey{"b", "c", "a"} {
			_, err := s.EnsureDocument(ctx, key, models.ModePlain, base)
			require.NoError(t, err)
		}

		keys, err = s.ListDocuments(ctx)
		require.NoError(t, err)
		assert.Equal(t, []models.DocumentKey{"a", "b", "c"}, keys)
	})

	t.Run("ping and close", func(t *testing.T) {
		ctx := context.Background()
		s := newStorage(t)

		require.NoError(t, s.Ping(ctx))
		require.NoError(t, s.Close())

		assert.ErrorIs(t, s.Ping(ctx), storage.ErrStorageClosed)
		_, err := s.GetDocument(ctx, "doc")
		assert.ErrorIs(t, err, storage.ErrStorageClosed)
		assert.NoError(t, s.Close(), "second close is a no-op")
	})
}
