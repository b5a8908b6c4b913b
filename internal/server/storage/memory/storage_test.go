package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/gophcollab/internal/models"
	"github.com/iudanet/gophcollab/internal/server/storage"
	"github.com/iudanet/gophcollab/internal/server/storage/storagetest"
)

func TestStorage_Contract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.DocumentStorage {
		return New()
	})
}

func TestStorage_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := New()

	rec := &models.DocumentRecord{Key: "doc", Mode: models.ModePlain, Content: []byte("abc")}
	require.NoError(t, s.SaveDocument(ctx, rec))
	rec.Content[0] = 'X'

	got, err := s.GetDocument(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got.Content)

	got.Content[0] = 'Y'
	again, err := s.GetDocument(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), again.Content)
}
