// Package sealed wraps a storage.DocumentStorage so that document content
// is encrypted at rest. Keys, modes and timestamps stay readable for the
// backend, only Content is sealed.
package sealed

import (
	"context"
	"fmt"
	"time"

	"github.com/iudanet/gophcollab/internal/crypto"
	"github.com/iudanet/gophcollab/internal/models"
	"github.com/iudanet/gophcollab/internal/server/storage"
)

// Storage seals Content before it reaches next and opens it on the way back
type Storage struct {
	next   storage.DocumentStorage
	cipher *crypto.Cipher
}

var _ storage.DocumentStorage = (*Storage)(nil)

// New wraps next with a key derived from secret
func New(next storage.DocumentStorage, secret string) (*Storage, error) {
	key, err := crypto.DeriveStorageKey(secret)
	if err != nil {
		return nil, fmt.Errorf("failed to derive storage key: %w", err)
	}

	c, err := crypto.NewCipher(key)
	if err != nil {
		return nil, err
	}

	return &Storage{next: next, cipher: c}, nil
}

// EnsureDocument returns the opened record for key
func (s *Storage) EnsureDocument(ctx context.Context, key models.DocumentKey, mode models.Mode, now time.Time) (*models.DocumentRecord, error) {
	rec, err := s.next.EnsureDocument(ctx, key, mode, now)
	if err != nil {
		return nil, err
	}
	return s.open(rec)
}

// GetDocument returns the opened record for key
func (s *Storage) GetDocument(ctx context.Context, key models.DocumentKey) (*models.DocumentRecord, error) {
	rec, err := s.next.GetDocument(ctx, key)
	if err != nil {
		return nil, err
	}
	return s.open(rec)
}

// SaveDocument seals the content and saves the record
func (s *Storage) SaveDocument(ctx context.Context, record *models.DocumentRecord) error {
	sealed := record.Clone()
	// пустое содержимое хранится как есть: запись "без содержимого"
	// должна оставаться такой же для правила смены режима
	if len(record.Content) > 0 {
		content, err := s.cipher.Seal(record.Content, []byte(record.Key.ID()))
		if err != nil {
			return fmt.Errorf("failed to seal document: %w", err)
		}
		sealed.Content = content
	}
	return s.next.SaveDocument(ctx, sealed)
}

// TouchDocument advances LastActivity
func (s *Storage) TouchDocument(ctx context.Context, key models.DocumentKey, at time.Time) error {
	return s.next.TouchDocument(ctx, key, at)
}

// DeleteDocument removes the record for key
func (s *Storage) DeleteDocument(ctx context.Context, key models.DocumentKey) error {
	return s.next.DeleteDocument(ctx, key)
}

// ListDocuments returns keys of all stored records
func (s *Storage) ListDocuments(ctx context.Context) ([]models.DocumentKey, error) {
	return s.next.ListDocuments(ctx)
}

// Ping checks the wrapped storage
func (s *Storage) Ping(ctx context.Context) error {
	return s.next.Ping(ctx)
}

// Close closes the wrapped storage
func (s *Storage) Close() error {
	return s.next.Close()
}

func (s *Storage) open(rec *models.DocumentRecord) (*models.DocumentRecord, error) {
	if len(rec.Content) == 0 {
		return rec, nil
	}

	content, err := s.cipher.Open(rec.Content, []byte(rec.Key.ID()))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", storage.ErrCorruptRecord, rec.Key, err)
	}
	rec.Content = content
	return rec, nil
}
