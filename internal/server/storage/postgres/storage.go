// Package postgres implements storage.DocumentStorage on PostgreSQL through
// a pgx connection pool.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/iudanet/gophcollab/internal/models"
	"github.com/iudanet/gophcollab/internal/server/storage"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// Storage represents PostgreSQL storage implementation
type Storage struct {
	pool   *pgxpool.Pool
	closed atomic.Bool
}

var _ storage.DocumentStorage = (*Storage)(nil)

// New connects to dsn and applies pending migrations
func New(ctx context.Context, dsn string) (*Storage, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Storage{pool: pool}

	if err := s.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return s, nil
}

// runMigrations прогоняет goose поверх того же пула через database/sql
func (s *Storage) runMigrations(ctx context.Context) error {
	migrations, err := fs.Sub(embedMigrations, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open migrations: %w", err)
	}

	db := stdlib.OpenDBFromPool(s.pool)
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations)
	if err != nil {
		return fmt.Errorf("failed to create goose provider: %w", err)
	}

	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("goose up failed: %w", err)
	}

	return nil
}

// Close closes the pool
func (s *Storage) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.pool.Close()
	return nil
}

// Ping checks the database connection
func (s *Storage) Ping(ctx context.Context) error {
	if s.closed.Load() {
		return storage.ErrStorageClosed
	}
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}

// EnsureDocument returns the record for key, inserting an empty one first
// if none exists
func (s *Storage) EnsureDocument(ctx context.Context, key models.DocumentKey, mode models.Mode, now time.Time) (*models.DocumentRecord, error) {
	if s.closed.Load() {
		return nil, storage.ErrStorageClosed
	}

	query := `
		INSERT INTO documents (id, doc_key, mode, content, last_activity)
		VALUES ($1, $2, $3, ''::bytea, $4)
		ON CONFLICT (id) DO NOTHING
	`

	if _, err := s.pool.Exec(ctx, query, key.ID(), key.String(), string(mode), storage.ToMillis(now)); err != nil {
		return nil, fmt.Errorf("failed to insert document: %w", err)
	}

	return s.GetDocument(ctx, key)
}

// GetDocument retrieves the record for key
func (s *Storage) GetDocument(ctx context.Context, key models.DocumentKey) (*models.DocumentRecord, error) {
	if s.closed.Load() {
		return nil, storage.ErrStorageClosed
	}

	query := `
		SELECT doc_key, mode, content, last_activity
		FROM documents
		WHERE id = $1
	`

	var (
		docKey, mode string
		content      []byte
		lastActivity int64
	)

	err := s.pool.QueryRow(ctx, query, key.ID()).Scan(&docKey, &mode, &content, &lastActivity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	if content == nil {
		content = []byte{}
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
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			mode = EXCLUDED.mode,
			content = EXCLUDED.content,
			last_activity = GREATEST(documents.last_activity, EXCLUDED.last_activity)
	`

	content := record.Content
	if content == nil {
		content = []byte{}
	}

	_, err := s.pool.Exec(ctx, query,
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

	tag, err := s.pool.Exec(ctx,
		`UPDATE documents SET last_activity = GREATEST(last_activity, $1) WHERE id = $2`,
		storage.ToMillis(at), key.ID())
	if err != nil {
		return fmt.Errorf("failed to touch document: %w", err)
	}

	return requireRow(tag)
}

// DeleteDocument removes the record for key
func (s *Storage) DeleteDocument(ctx context.Context, key models.DocumentKey) error {
	if s.closed.Load() {
		return storage.ErrStorageClosed
	}

	tag, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE id = $1`, key.ID())
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	return requireRow(tag)
}

// ListDocuments returns keys of all stored records ordered by key
func (s *Storage) ListDocuments(ctx context.Context) ([]models.DocumentKey, error) {
	if s.closed.Load() {
		return nil, storage.ErrStorageClosed
	}

	rows, err := s.pool.Query(ctx, `SELECT doc_key FROM documents ORDER BY doc_key COLLATE "C"`)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	keys, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.DocumentKey, error) {
		var key string
		err := row.Scan(&key)
		return models.DocumentKey(key), err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan document keys: %w", err)
	}

	if keys == nil {
		keys = []models.DocumentKey{}
	}
	return keys, nil
}

func requireRow(tag pgconn.CommandTag) error {
	if tag.RowsAffected() == 0 {
		return storage.ErrDocumentNotFound
	}
	return nil
}
