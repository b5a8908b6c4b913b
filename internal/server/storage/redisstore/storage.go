// Package redisstore implements storage.DocumentStorage on Redis: one hash per
// document plus a set indexing the stored keys.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iudanet/gophcollab/internal/models"
	"github.com/iudanet/gophcollab/internal/server/storage"
)

// DefaultPrefix префикс ключей Redis по умолчанию
const DefaultPrefix = "gophcollab"

const (
	fieldKey          = "key"
	fieldMode         = "mode"
	fieldContent      = "content"
	fieldLastActivity = "last_activity"
)

// KEYS[1] hash документа, KEYS[2] индекс; ARGV key, mode, last_activity
var ensureScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	redis.call('HSET', KEYS[1], 'key', ARGV[1], 'mode', ARGV[2], 'content', '', 'last_activity', ARGV[3])
	redis.call('SADD', KEYS[2], ARGV[1])
end
return 1
`)

// ARGV key, mode, content, last_activity
var saveScript = redis.NewScript(`
local prev = redis.call('HGET', KEYS[1], 'last_activity')
local at = ARGV[4]
if prev and tonumber(prev) > tonumber(at) then
	at = prev
end
redis.call('HSET', KEYS[1], 'key', ARGV[1], 'mode', ARGV[2], 'content', ARGV[3], 'last_activity', at)
redis.call('SADD', KEYS[2], ARGV[1])
return 1
`)

// ARGV last_activity; 0 если документа нет
var touchScript = redis.NewScript(`
local prev = redis.call('HGET', KEYS[1], 'last_activity')
if not prev then
	return 0
end
if tonumber(ARGV[1]) > tonumber(prev) then
	redis.call('HSET', KEYS[1], 'last_activity', ARGV[1])
end
return 1
`)

// Storage represents Redis storage implementation
type Storage struct {
	client *redis.Client
	prefix string
	closed atomic.Bool
}

var _ storage.DocumentStorage = (*Storage)(nil)

// Option configures Storage
type Option func(*Storage)

// WithPrefix namespaces every Redis key
func WithPrefix(prefix string) Option {
	return func(s *Storage) {
		s.prefix = prefix
	}
}

// New connects to dsn, either a redis:// URL or a bare host:port
func New(ctx context.Context, dsn string, opts ...Option) (*Storage, error) {
	options, err := parseDSN(dsn)
	if err != nil {
		return nil, err
	}

	s := &Storage{client: redis.NewClient(options), prefix: DefaultPrefix}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.client.Ping(ctx).Err(); err != nil {
		s.client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return s, nil
}

func parseDSN(dsn string) (*redis.Options, error) {
	if strings.Contains(dsn, "://") {
		options, err := redis.ParseURL(dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis url: %w", err)
		}
		return options, nil
	}
	return &redis.Options{Addr: dsn}, nil
}

func (s *Storage) docKey(key models.DocumentKey) string {
	return s.prefix + ":doc:" + key.ID()
}

func (s *Storage) indexKey() string {
	return s.prefix + ":docs"
}

// Close closes the client
func (s *Storage) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.client.Close()
}

// Ping checks the connection
func (s *Storage) Ping(ctx context.Context) error {
	if s.closed.Load() {
		return storage.ErrStorageClosed
	}
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}
	return nil
}

// EnsureDocument returns the record for key, creating an empty one if needed
func (s *Storage) EnsureDocument(ctx context.Context, key models.DocumentKey, mode models.Mode, now time.Time) (*models.DocumentRecord, error) {
	if s.closed.Load() {
		return nil, storage.ErrStorageClosed
	}

	err := ensureScript.Run(ctx, s.client,
		[]string{s.docKey(key), s.indexKey()},
		key.String(), string(mode), storage.ToMillis(now),
	).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to ensure document: %w", err)
	}

	return s.GetDocument(ctx, key)
}

// GetDocument retrieves the record for key
func (s *Storage) GetDocument(ctx context.Context, key models.DocumentKey) (*models.DocumentRecord, error) {
	if s.closed.Load() {
		return nil, storage.ErrStorageClosed
	}

	fields, err := s.client.HGetAll(ctx, s.docKey(key)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	if len(fields) == 0 {
		return nil, storage.ErrDocumentNotFound
	}

	lastActivity, err := strconv.ParseInt(fields[fieldLastActivity], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse last_activity: %w", err)
	}

	return &models.DocumentRecord{
		Key:          models.DocumentKey(fields[fieldKey]),
		Mode:         models.Mode(fields[fieldMode]),
		Content:      []byte(fields[fieldContent]),
		LastActivity: storage.FromMillis(lastActivity),
	}, nil
}

// SaveDocument upserts the record keeping the larger last_activity
func (s *Storage) SaveDocument(ctx context.Context, record *models.DocumentRecord) error {
	if s.closed.Load() {
		return storage.ErrStorageClosed
	}

	err := saveScript.Run(ctx, s.client,
		[]string{s.docKey(record.Key), s.indexKey()},
		record.Key.String(), string(record.Mode), record.Content, storage.ToMillis(record.LastActivity),
	).Err()
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

	found, err := touchScript.Run(ctx, s.client, []string{s.docKey(key)}, storage.ToMillis(at)).Int()
	if err != nil {
		return fmt.Errorf("failed to touch document: %w", err)
	}
	if found == 0 {
		return storage.ErrDocumentNotFound
	}

	return nil
}

// DeleteDocument removes the record and its index entry atomically
func (s *Storage) DeleteDocument(ctx context.Context, key models.DocumentKey) error {
	if s.closed.Load() {
		return storage.ErrStorageClosed
	}

	var deleted *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		deleted = pipe.Del(ctx, s.docKey(key))
		pipe.SRem(ctx, s.indexKey(), key.String())
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if deleted.Val() == 0 {
		return storage.ErrDocumentNotFound
	}

	return nil
}

// ListDocuments returns all keys in ascending order
func (s *Storage) ListDocuments(ctx context.Context) ([]models.DocumentKey, error) {
	if s.closed.Load() {
		return nil, storage.ErrStorageClosed
	}

	members, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	sort.Strings(members)
	keys := make([]models.DocumentKey, 0, len(members))
	for _, m := range members {
		keys = append(keys, models.DocumentKey(m))
	}
	return keys, nil
}
