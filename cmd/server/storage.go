package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/iudanet/gophcollab/internal/config"
	"github.com/iudanet/gophcollab/internal/server/storage"
	"github.com/iudanet/gophcollab/internal/server/storage/boltdb"
	"github.com/iudanet/gophcollab/internal/server/storage/memory"
	"github.com/iudanet/gophcollab/internal/server/storage/postgres"
	"github.com/iudanet/gophcollab/internal/server/storage/redisstore"
	"github.com/iudanet/gophcollab/internal/server/storage/sealed"
	"github.com/iudanet/gophcollab/internal/server/storage/sqlite"
)

// storageConnectTimeout сколько ждать сетевое хранилище при старте
const storageConnectTimeout = 30 * time.Second

// openStorage открывает хранилище выбранного драйвера и, если задан
// storage.secret, оборачивает его шифрованием содержимого.
func openStorage(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (storage.DocumentStorage, error) {
	store, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if cfg.Secret == "" {
		return store, nil
	}

	s, err := sealed.New(store, cfg.Secret)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to enable content encryption: %w", err)
	}
	logger.Info("Document content is encrypted at rest")
	return s, nil
}

// openBackend сетевые драйверы переподключаются с экспоненциальной
// задержкой: база может подниматься одновременно с сервером.
func openBackend(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (storage.DocumentStorage, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		logger.Warn("Using in-memory storage, documents are lost on restart")
		return memory.New(), nil
	case config.DriverSQLite:
		s, err := sqlite.New(ctx, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite storage: %w", err)
		}
		return s, nil
	case config.DriverBoltDB:
		s, err := boltdb.New(ctx, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open boltdb storage: %w", err)
		}
		return s, nil
	case config.DriverPostgres:
		return connectWithRetry(ctx, logger, cfg.Driver, func(ctx context.Context) (storage.DocumentStorage, error) {
			s, err := postgres.New(ctx, cfg.DSN)
			if err != nil {
				return nil, err
			}
			return s, nil
		})
	case config.DriverRedis:
		return connectWithRetry(ctx, logger, cfg.Driver, func(ctx context.Context) (storage.DocumentStorage, error) {
			s, err := redisstore.New(ctx, cfg.DSN)
			if err != nil {
				return nil, err
			}
			return s, nil
		})
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func connectWithRetry(
	ctx context.Context,
	logger *slog.Logger,
	driver string,
	connect func(context.Context) (storage.DocumentStorage, error),
) (storage.DocumentStorage, error) {
	var store storage.DocumentStorage
	operation := func() error {
		s, err := connect(ctx)
		if err != nil {
			logger.Warn("Storage is not ready, retrying", "driver", driver, "error", err)
			return err
		}
		store = s
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = storageConnectTimeout
	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return nil, fmt.Errorf("failed to connect to %s storage: %w", driver, err)
	}

	logger.Info("Storage connected", "driver", driver)
	return store, nil
}
