// Package boltdb implements storage.DocumentStorage on an embedded bbolt
// file: one bucket, one JSON value per document.
package boltdb

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"go.etcd.io/bbolt"

	"github.com/iudanet/gophcollab/internal/models"
	"github.com/iudanet/gophcollab/internal/server/storage"
)

var bucketDocuments = []byte("documents")

// Storage represents BoltDB storage implementation
type Storage struct {
	db     *bbolt.DB
	closed atomic.Bool
}

var _ storage.DocumentStorage = (*Storage)(nil)

// storedRecord формат значения в bucket documents
type storedRecord struct {
	Key          string `json:"key"`
	Mode         string `json:"mode"`
	Content      []byte `json:"content"`
	LastActivity int64  `json:"last_activity"`
}

// New creates a new BoltDB storage instance
// dbPath is the path to the BoltDB database file
func New(ctx context.Context, dbPath string) (*Storage, error) {
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open boltdb: %w", err)
	}

	s := &Storage{db: db}

	if err := s.initBuckets(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	return s, nil
}

// Close closes the database file
func (s *Storage) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

// Ping reports whether the file is still open
func (s *Storage) Ping(_ context.Context) error {
	if s.closed.Load() {
		return storage.ErrStorageClosed
	}
	return nil
}

// initBuckets создает bucket, если его нет
func (s *Storage) initBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketDocuments); err != nil {
			return fmt.Errorf("failed to create documents bucket: %w", err)
		}
		return nil
	})
}

// EnsureDocument returns the record for key, creating an empty one if needed
func (s *Storage) EnsureDocument(_ context.Context, key models.DocumentKey, mode models.Mode, now time.Time) (*models.DocumentRecord, error) {
	if s.closed.Load() {
		return nil, storage.ErrStorageClosed
	}

	var rec *models.DocumentRecord
	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketDocuments)

		if data := bucket.Get([]byte(key.ID())); data != nil {
			var err error
			rec, err = decodeRecord(data)
			return err
		}

		rec = &models.DocumentRecord{Key: key, Mode: mode, Content: []byte{}, LastActivity: storage.FromMillis(storage.ToMillis(now))}
		return putRecord(bucket, rec)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to ensure document: %w", err)
	}

	return rec, nil
}

// GetDocument retrieves the record for key
func (s *Storage) GetDocument(_ context.Context, key models.DocumentKey) (*models.DocumentRecord, error) {
	if s.closed.Load() {
		return nil, storage.ErrStorageClosed
	}

	var rec *models.DocumentRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketDocuments).Get([]byte(key.ID()))
		if data == nil {
			return storage.ErrDocumentNotFound
		}
		var err error
		rec, err = decodeRecord(data)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	return rec, nil
}

// SaveDocument upserts the record keeping the larger LastActivity
func (s *Storage) SaveDocument(_ context.Context, record *models.DocumentRecord) error {
	if s.closed.Load() {
		return storage.ErrStorageClosed
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketDocuments)

		next := record.Clone()
		if data := bucket.Get([]byte(record.Key.ID())); data != nil {
			prev, err := decodeRecord(data)
			if err != nil {
				return err
			}
			if storage.ToMillis(prev.LastActivity) > storage.ToMillis(next.LastActivity) {
				next.LastActivity = prev.LastActivity
			}
		}
		return putRecord(bucket, next)
	})
	if err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}

	return nil
}

// TouchDocument advances LastActivity without touching content
func (s *Storage) TouchDocument(_ context.Context, key models.DocumentKey, at time.Time) error {
	if s.closed.Load() {
		return storage.ErrStorageClosed
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketDocuments)

		data := bucket.Get([]byte(key.ID()))
		if data == nil {
			return storage.ErrDocumentNotFound
		}
		rec, err := decodeRecord(data)
		if err != nil {
			return err
		}
		if storage.ToMillis(at) <= storage.ToMillis(rec.LastActivity) {
			return nil
		}
		rec.LastActivity = at
		return putRecord(bucket, rec)
	})
	if err != nil {
		return fmt.Errorf("failed to touch document: %w", err)
	}

	return nil
}

// DeleteDocument removes the record for key
func (s *Storage) DeleteDocument(_ context.Context, key models.DocumentKey) error {
	if s.closed.Load() {
		return storage.ErrStorageClosed
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketDocuments)
		if bucket.Get([]byte(key.ID())) == nil {
			return storage.ErrDocumentNotFound
		}
		return bucket.Delete([]byte(key.ID()))
	})
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	return nil
}

// ListDocuments returns all keys in ascending order
func (s *Storage) ListDocuments(_ context.Context) ([]models.DocumentKey, error) {
	if s.closed.Load() {
		return nil, storage.ErrStorageClosed
	}

	keys := []models.DocumentKey{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketDocuments).ForEach(func(_, v []byte) error {
			rec, err := decodeRecord(v)
			if err != nil {
				return err
			}
			keys = append(keys, rec.Key)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	// bucket упорядочен по хэшу, а не по ключу
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys, nil
}

func putRecord(bucket *bbolt.Bucket, rec *models.DocumentRecord) error {
	data, err := json.Marshal(storedRecord{
		Key:          rec.Key.String(),
		Mode:         string(rec.Mode),
		Content:      rec.Content,
		LastActivity: storage.ToMillis(rec.LastActivity),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	return bucket.Put([]byte(rec.Key.ID()), data)
}

func decodeRecord(data []byte) (*models.DocumentRecord, error) {
	var stored storedRecord
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}

	content := stored.Content
	if content == nil {
		content = []byte{}
	}

	return &models.DocumentRecord{
		Key:          models.DocumentKey(stored.Key),
		Mode:         models.Mode(stored.Mode),
		Content:      content,
		LastActivity: storage.FromMillis(stored.LastActivity),
	}, nil
}
