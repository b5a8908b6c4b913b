package storage

import (
	"context"
	"time"

	"github.com/iudanet/gophcollab/internal/models"
)

//go:generate moq -out document_mock.go . DocumentStorage

// DocumentStorage defines interface for document record persistence.
// Each record is written only by the actor owning its key.
type DocumentStorage interface {
	// EnsureDocument returns the record for key, creating an empty one in mode
	// with LastActivity = now if it doesn't exist yet
	EnsureDocument(ctx context.Context, key models.DocumentKey, mode models.Mode, now time.Time) (*models.DocumentRecord, error)

	// GetDocument retrieves the record for key
	// Returns ErrDocumentNotFound if record doesn't exist
	GetDocument(ctx context.Context, key models.DocumentKey) (*models.DocumentRecord, error)

	// SaveDocument upserts content and mode. LastActivity never decreases:
	// the stored value becomes max(stored, record.LastActivity)
	SaveDocument(ctx context.Context, record *models.DocumentRecord) error

	// TouchDocument advances LastActivity without touching content
	// Returns ErrDocumentNotFound if record doesn't exist
	TouchDocument(ctx context.Context, key models.DocumentKey, at time.Time) error

	// DeleteDocument irreversibly removes the record
	// Returns ErrDocumentNotFound if record doesn't exist
	DeleteDocument(ctx context.Context, key models.DocumentKey) error

	// ListDocuments returns keys of all stored records
	// Returns empty slice if no records found
	ListDocuments(ctx context.Context) ([]models.DocumentKey, error)

	// Ping checks that the storage is reachable
	Ping(ctx context.Context) error

	// Close releases the storage
	Close() error
}

// ToMillis converts a timestamp to the stored representation.
func ToMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

// FromMillis converts a stored timestamp back.
func FromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
