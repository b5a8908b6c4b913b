package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/iudanet/gophcollab/internal/crdt"
	"github.com/iudanet/gophcollab/internal/document"
	"github.com/iudanet/gophcollab/internal/models"
	"github.com/iudanet/gophcollab/internal/presence"
	"github.com/iudanet/gophcollab/internal/server/storage"
)

// ErrRegistryClosed indicates that the registry is shutting down
var ErrRegistryClosed = errors.New("registry closed")

// connectAttempts сколько раз Connect пересоздает актор, остановившийся
// между поиском и подключением
const connectAttempts = 3

// Registry resolves document keys to live actors, starting them on demand.
type Registry struct {
	ctx    context.Context
	cancel context.CancelFunc
	store  storage.DocumentStorage
	clock  Clock
	logger *slog.Logger
	actors map[models.DocumentKey]*Actor
	cfg    Config
	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
}

// RegistryOption configures a Registry
type RegistryOption func(*Registry)

// WithClock replaces the real clock, for tests.
func WithClock(clock Clock) RegistryOption {
	return func(r *Registry) {
		r.clock = clock
	}
}

// NewRegistry creates an empty registry over store.
func NewRegistry(store storage.DocumentStorage, cfg Config, logger *slog.Logger, opts ...RegistryOption) *Registry {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Registry{
		ctx:    ctx,
		cancel: cancel,
		store:  store,
		cfg:    cfg.withDefaults(),
		clock:  RealClock{},
		logger: logger,
		actors: make(map[models.DocumentKey]*Actor),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Config returns the effective actor configuration
func (r *Registry) Config() Config {
	return r.cfg
}

// Actor returns the live actor for key, starting one if needed.
func (r *Registry) Actor(key models.DocumentKey) (*Actor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrRegistryClosed
	}
	if a, ok := r.actors[key]; ok {
		return a, nil
	}

	a := newActor(r.ctx, key, r.cfg, r.store, r.clock, r.logger)
	a.onExit = r.remove
	r.actors[key] = a
	r.wg.Add(1)
	go a.run()

	return a, nil
}

func (r *Registry) remove(a *Actor) {
	r.mu.Lock()
	if cur, ok := r.actors[a.key]; ok && cur == a {
		delete(r.actors, a.key)
	}
	r.mu.Unlock()
	r.wg.Done()
}

// Connect attaches conn to the actor of key and returns that actor.
func (r *Registry) Connect(ctx context.Context, key models.DocumentKey, conn presence.Conn, join Join) (*Actor, error) {
	for attempt := 0; attempt < connectAttempts; attempt++ {
		a, err := r.Actor(key)
		if err != nil {
			return nil, err
		}

		err = a.Connect(ctx, conn, join)
		if errors.Is(err, ErrActorStopped) {
			// актор удален reaper'ом или не загрузился, пробуем новый
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to connect to document: %w", err)
		}
		return a, nil
	}
	return nil, ErrActorStopped
}

// Inspect returns the state of key. A live actor answers from its loop;
// otherwise the stored record is decoded without starting an actor.
func (r *Registry) Inspect(ctx context.Context, key models.DocumentKey) (Info, error) {
	r.mu.Lock()
	a, ok := r.actors[key]
	r.mu.Unlock()

	if ok {
		info, err := a.Inspect(ctx)
		if !errors.Is(err, ErrActorStopped) {
			return info, err
		}
	}

	rec, err := r.store.GetDocument(ctx, key)
	if err != nil {
		return Info{}, fmt.Errorf("failed to get document: %w", err)
	}
	return infoFromRecord(rec, r.cfg.TextName), nil
}

func infoFromRecord(rec *models.DocumentRecord, textName string) Info {
	info := Info{
		Key:          rec.Key,
		Mode:         rec.Mode,
		LastActivity: rec.LastActivity,
	}

	switch rec.Mode {
	case models.ModePlain:
		e := document.NewPlainEngine()
		e.Load(rec.Content)
		info.Text = e.Text()
	case models.ModeCRDT:
		e := document.NewCRDTEngine(crdt.WithTextName(textName))
		if err := e.Load(rec.Content); err == nil {
			info.Text = e.Text()
		}
		info.State = rec.Content
	}
	return info
}

// Resume starts an actor for every stored record so that idle documents
// get their reaper deadline again after a restart.
func (r *Registry) Resume(ctx context.Context) (int, error) {
	keys, err := r.store.ListDocuments(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list documents: %w", err)
	}

	for _, key := range keys {
		if _, err := r.Actor(key); err != nil {
			return 0, err
		}
	}

	r.logger.Info("Resumed stored documents", "count", len(keys))
	return len(keys), nil
}

// Len returns the number of live actors
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.actors)
}

// Shutdown stops accepting keys, flushes every actor and waits for them.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	actors := make([]*Actor, 0, len(r.actors))
	for _, a := range r.actors {
		actors = append(actors, a)
	}
	r.mu.Unlock()

	defer r.cancel()

	g, gctx := errgroup.WithContext(ctx)
	for _, a := range actors {
		g.Go(func() error {
			return a.Stop(gctx)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to stop actors: %w", err)
	}

	waited := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(waited)
	}()

	select {
	case <-waited:
		r.logger.Info("All document actors stopped", "count", len(actors))
		return nil
	case <-ctx.Done():
		return fmt.Errorf("failed to wait for actors: %w", ctx.Err())
	}
}
