// Package memory implements storage.DocumentStorage in process memory.
// Records do not survive a restart.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iudanet/gophcollab/internal/models"
	"github.com/iudanet/gophcollab/internal/server/storage"
)

// Storage keeps records in a map guarded by a mutex
type Storage struct {
	records map[models.DocumentKey]*models.DocumentRecord
	mu      sync.RWMutex
	closed  bool
}

var _ storage.DocumentStorage = (*Storage)(nil)

// New creates an empty in-memory storage
func New() *Storage {
	return &Storage{records: make(map[models.DocumentKey]*models.DocumentRecord)}
}

// EnsureDocument returns the record for key, creating an empty one if needed
func (s *Storage) EnsureDocument(_ context.Context, key models.DocumentKey, mode models.Mode, now time.Time) (*models.DocumentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, storage.ErrStorageClosed
	}

	rec, ok := s.records[key]
	if !ok {
		rec = &models.DocumentRecord{Key: key, Mode: mode, Content: []byte{}, LastActivity: truncate(now)}
		s.records[key] = rec
	}
	return rec.Clone(), nil
}

// GetDocument retrieves the record for key
func (s *Storage) GetDocument(_ context.Context, key models.DocumentKey) (*models.DocumentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, storage.ErrStorageClosed
	}

	rec, ok := s.records[key]
	if !ok {
		return nil, storage.ErrDocumentNotFound
	}
	return rec.Clone(), nil
}

// SaveDocument upserts the record keeping the larger LastActivity
func (s *Storage) SaveDocument(_ context.Context, record *models.DocumentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return storage.ErrStorageClosed
	}

	next := record.Clone()
	next.LastActivity = truncate(next.LastActivity)
	if prev, ok := s.records[record.Key]; ok && prev.LastActivity.After(next.LastActivity) {
		next.LastActivity = prev.LastActivity
	}
	s.records[record.Key] = next
	return nil
}

// TouchDocument advances LastActivity
func (s *Storage) TouchDocument(_ context.Context, key models.DocumentKey, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return storage.ErrStorageClosed
	}

	rec, ok := s.records[key]
	if !ok {
		return storage.ErrDocumentNotFound
	}
	if at = truncate(at); at.After(rec.LastActivity) {
		rec.LastActivity = at
	}
	return nil
}

// DeleteDocument removes the record for key
func (s *Storage) DeleteDocument(_ context.Context, key models.DocumentKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return storage.ErrStorageClosed
	}

	if _, ok := s.records[key]; !ok {
		return storage.ErrDocumentNotFound
	}
	delete(s.records, key)
	return nil
}

// ListDocuments returns all keys in ascending order
func (s *Storage) ListDocuments(_ context.Context) ([]models.DocumentKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, storage.ErrStorageClosed
	}

	keys := make([]models.DocumentKey, 0, len(s.records))
	for key := range s.records {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys, nil
}

// Ping reports ErrStorageClosed after Close
func (s *Storage) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return storage.ErrStorageClosed
	}
	return nil
}

// Close drops all records
func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.records = nil
	return nil
}

// truncate приводит время к точности остальных бэкендов
func truncate(t time.Time) time.Time {
	return storage.FromMillis(storage.ToMillis(t))
}
