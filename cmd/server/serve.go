package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/iudanet/gophcollab/internal/config"
	"github.com/iudanet/gophcollab/internal/server"
	"github.com/iudanet/gophcollab/internal/server/handlers"
	"github.com/iudanet/gophcollab/internal/server/middleware"
	"github.com/iudanet/gophcollab/internal/session"
)

const readHeaderTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	v := config.New()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the collaboration server",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return config.BindFlags(v, cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := cmd.Flags().GetString("config")
			if err != nil {
				return fmt.Errorf("failed to read config flag: %w", err)
			}
			cfg, err := config.Load(v, file)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runServer(ctx, cfg)
		},
	}

	flags := cmd.Flags()
	flags.String("server.addr", ":8080", "listen address")
	flags.String("collab.mode", "crdt", "document protocol: crdt or plain")
	flags.String("storage.driver", config.DriverSQLite, "storage driver: sqlite, postgres, boltdb, redis, memory")
	flags.String("storage.dsn", "gophcollab.db", "storage file path or connection string")
	flags.String("log.level", "info", "log level: debug, info, warn, error")
	flags.String("log.format", "text", "log format: text or json")

	return cmd
}

func runServer(ctx context.Context, cfg *config.Config) error {
	logger := newLogger(os.Stderr, cfg.Log)
	logger.Info("Starting GophCollab server",
		"version", Version,
		"addr", cfg.Server.Addr,
		"mode", string(cfg.Collab.Mode),
		"storage", cfg.Storage.Driver)

	store, err := openStorage(ctx, cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close storage", "error", err)
		}
	}()

	registry := session.NewRegistry(store, cfg.Collab.Session(), logger)
	if _, err := registry.Resume(ctx); err != nil {
		// без sweep сервер работает, теряется только reaper для простаивающих
		logger.Error("Failed to resume stored documents", "error", err)
	}

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Upgrades > 0 {
		limiter = middleware.NewRateLimiter(cfg.RateLimit.Upgrades, cfg.RateLimit.Window, logger)
		defer limiter.Stop()
	}

	grant := handlers.GrantConfig{Secret: []byte(cfg.Gatekeeper.Secret), TTL: cfg.Gatekeeper.GrantTTL}
	if !grant.Enabled() {
		logger.Warn("Gatekeeper secret is not set, identity headers are trusted")
	}

	srv := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: server.NewRouter(server.RouterConfig{
			Logger:   logger,
			Registry: registry,
			Store:    store,
			Limiter:  limiter,
			Grant:    grant,
			WS:       handlers.WSConfig{SendBuffer: cfg.Collab.SendBuffer},
			Version:  Version,
		}),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// акторы закрывают websocket соединения сами (1001), http.Server
		// hijacked соединения не отслеживает
		registryErr := registry.Shutdown(shutdownCtx)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shutdown http server: %w", err)
		}
		if registryErr != nil {
			return fmt.Errorf("failed to shutdown registry: %w", registryErr)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("Server stopped")
	return nil
}
