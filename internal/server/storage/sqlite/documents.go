package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/gophcollab/internal/models"
	"github.com/iudanet/gophcollab/internal/server/storage"
)

// EnsureDocument returns the record for key, inserting an empty one first
// if none exists
func (s *Storage) EnsureDocument(ctx context.Context, key models.DocumentKey, mode models.Mode, now time.Time) (*models.DocumentRecord, error) {
	if s.closed.Load() {
		return nil, storage.ErrStorageClosed
	}

	query := `
		INSERT INTO documents (id, doc_key, mode, content, last_activity)
		VALUES (?, ?, ?, x'', ?)
		ON CONFLICT(id) DO NOTHING
	`

	if _, err := s.db.ExecContext(ctx, query, key.ID(), key.String(), string(mode), storage.ToMillis(now)); err != nil {
		return nil, fmt.Errorf("failed to insert document: %w", err)
	}

	return s.GetDocument(ctx, key)
}

// GetDocument retrieves the record for key
// Returns ErrDocumentNotFound if record doesn't exist
func (s *Storage) GetDocument(ctx context.Context, key models.DocumentKey) (*models.DocumentRecord, error) {
	if s.closed.Load() {
		return nil, storage.ErrStorageClosed
	}

	query := `
		SELECT doc_key, mode, content, last_activity
		FROM documents
		WHERE id = ?
	`

	var (
		docKey, mode string
		content      []byte
		lastActivity int64
	)

	err := s.db.QueryRowContext(ctx, query, key.ID()).Scan(&docKey, &mode, &content, &lastActivity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	return &models.DocumentRecord{
		Key:          models.DocumentKey(docKey),
		Mode:         models.Mode(mode),
		Content:      content,
		LastActivity: storage.FromMillis(lastActivity),
	}, nil
}

// SaveDocument upserts the record keeping the larger last_activity
func (s *Storage) SaveDocument(ctx context.Context, record *models.DocumentRecord) error {
	if s.closed.Load() {
		return storage.ErrStorageClosed
	}

	query := `
		INSERT INTO documents (id, doc_key, mode, content, last_activity)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			mode = excluded.mode,
			content = excluded.content,
			last_activity = MAX(documents.last_activity, excluded.last_activity)
	`

	content := record.Content
	if content == nil {
		content = []byte{}
	}

	_, err := s.db.ExecContext(ctx, query,
		record.Key.ID(),
		record.Key.String(),
		string(record.Mode),
		content,
		storage.ToMillis(record.LastActivity),
	)
	if err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}

	return nil
}

// TouchDocument advances last_activity without touching content
func (s *Storage) TouchDocument(ctx context.Context, key models.DocumentKey, at time.Time) error {
	if s.closed.Load() {
		return storage.ErrStorageClosed
	}

	query := `UPDATE documents SET last_activity = MAX(last_activity, ?) WHERE id = ?`

	result, err := s.db.ExecContext(ctx, query, storage.ToMillis(at), key.ID())
	if err != nil {
		return fmt.Errorf("failed to touch document: %w", err)
	}

	return requireRow(result)
}

// DeleteDocument removes the record for key
func (s *Storage) DeleteDocument(ctx context.Context, key models.DocumentKey) error {
	if s.closed.Load() {
		return storage.ErrStorageClosed
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, key.ID())
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	return requireRow(result)
}

// ListDocuments returns keys of all stored records ordered by key
func (s *Storage) ListDocuments(ctx context.Context) ([]models.DocumentKey, error) {
	if s.closed.Load() {
		return nil, storage.ErrStorageClosed
	}

	rows, err := s.db.QueryContext(ctx, `SELECT doc_key FROM documents ORDER BY doc_key`)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	keys := []models.DocumentKey{}
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan document key: %w", err)
		}
		keys = append(keys, models.DocumentKey(key))
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating documents: %w", err)
	}

	return keys, nil
}

func requireRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return storage.ErrDocumentNotFound
	}
	return nil
}
