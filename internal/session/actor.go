// Package session hosts one actor per document: a single goroutine that
// owns the document state and its connections and processes connects,
// frames, disconnects and timer fires strictly one at a time.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/iudanet/gophcollab/internal/crdt"
	"github.com/iudanet/gophcollab/internal/document"
	"github.com/iudanet/gophcollab/internal/models"
	"github.com/iudanet/gophcollab/internal/presence"
	"github.com/iudanet/gophcollab/internal/server/storage"
	"github.com/iudanet/gophcollab/internal/wire"
)

// ErrActorStopped indicates that the actor exited before handling the
// request. The caller should resolve the key again.
var ErrActorStopped = errors.New("actor stopped")

// Info is a read-only view of an actor's state.
type Info struct {
	LastActivity time.Time
	AlarmAt      time.Time
	Key          models.DocumentKey
	Mode         models.Mode
	Text         string
	State        []byte
	Connections  int
	Scheduled    bool
	Dirty        bool
}

// Actor owns one document. All fields below mailbox are touched only by
// the actor goroutine.
type Actor struct {
	ctx     context.Context
	store   storage.DocumentStorage
	clock   Clock
	logger  *slog.Logger
	onExit  func(*Actor)
	mailbox chan event
	done    chan struct{}
	key     models.DocumentKey
	cfg     Config

	lastActivity time.Time
	plain        *document.PlainEngine
	text         *document.CRDTEngine
	conns        *presence.Set
	awareness    *presence.Awareness
	alarm        alarm
	scheduled    bool // checkpoint уже запланирован
	dirty        bool // есть несохраненные правки
	foreign      bool // запись другого режима, содержимое не наше
}

func newActor(ctx context.Context, key models.DocumentKey, cfg Config, store storage.DocumentStorage, clock Clock, logger *slog.Logger) *Actor {
	cfg = cfg.withDefaults()
	logger = logger.With("doc", key.String(), "mode", string(cfg.Mode))

	return &Actor{
		ctx:       ctx,
		key:       key,
		cfg:       cfg,
		store:     store,
		clock:     clock,
		logger:    logger,
		mailbox:   make(chan event, cfg.MailboxSize),
		done:      make(chan struct{}),
		conns:     presence.NewSet(logger),
		awareness: presence.NewAwareness(cfg.AwarenessTimeout),
	}
}

// Key returns the document key
func (a *Actor) Key() models.DocumentKey {
	return a.key
}

// Done is closed once the actor goroutine has exited.
func (a *Actor) Done() <-chan struct{} {
	return a.done
}

// Connect registers conn and returns once the actor has processed it.
func (a *Actor) Connect(ctx context.Context, conn presence.Conn, join Join) error {
	reply := make(chan error, 1)
	if err := a.post(ctx, connectEvent{conn: conn, join: join, reply: reply}); err != nil {
		return err
	}

	select {
	case err := <-reply:
		return err
	case <-a.done:
		// актор мог успеть обработать событие перед выходом
		select {
		case err := <-reply:
			return err
		default:
			return ErrActorStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive queues an inbound frame of connection connID.
func (a *Actor) Receive(ctx context.Context, connID string, frame []byte) error {
	return a.post(ctx, frameEvent{connID: connID, frame: frame})
}

// Disconnect queues the removal of connection connID.
func (a *Actor) Disconnect(ctx context.Context, connID string) error {
	return a.post(ctx, disconnectEvent{connID: connID})
}

// Inspect returns a snapshot taken inside the actor loop.
func (a *Actor) Inspect(ctx context.Context) (Info, error) {
	reply := make(chan Info, 1)
	if err := a.post(ctx, inspectEvent{reply: reply}); err != nil {
		return Info{}, err
	}

	select {
	case info, ok := <-reply:
		if !ok {
			return Info{}, ErrActorStopped
		}
		return info, nil
	case <-a.done:
		return Info{}, ErrActorStopped
	case <-ctx.Done():
		return Info{}, ctx.Err()
	}
}

// Stop flushes the document, closes every connection with 1001 and waits
// for the actor to exit.
func (a *Actor) Stop(ctx context.Context) error {
	if err := a.post(ctx, stopEvent{}); err != nil && !errors.Is(err, ErrActorStopped) {
		return err
	}

	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Actor) post(ctx context.Context, ev event) error {
	select {
	case <-a.done:
		return ErrActorStopped
	default:
	}

	select {
	case a.mailbox <- ev:
		return nil
	case <-a.done:
		return ErrActorStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Actor) run() {
	defer func() {
		if a.onExit != nil {
			a.onExit(a)
		}
		close(a.done)
	}()

	if err := a.init(); err != nil {
		a.logger.Error("Failed to initialize document", "error", err)
		return
	}

	for ev := range a.mailbox {
		if stop := a.dispatch(ev); stop {
			return
		}
	}
}

// init блокирующая загрузка записи: Uninitialized -> Ready
func (a *Actor) init() error {
	now := a.clock.Now()

	var (
		rec       *models.DocumentRecord
		permanent error
	)
	operation := func() error {
		ctx, cancel := context.WithTimeout(a.ctx, a.cfg.StoreTimeout)
		defer cancel()

		var err error
		rec, err = a.store.EnsureDocument(ctx, a.key, a.cfg.Mode, now)
		if errors.Is(err, storage.ErrStorageClosed) || errors.Is(err, storage.ErrCorruptRecord) {
			permanent = err
			return nil
		}
		if err != nil {
			a.logger.Warn("Failed to load document, retrying", "error", err)
		}
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxElapsedTime = a.cfg.LoadTimeout
	if err := backoff.Retry(operation, backoff.WithContext(b, a.ctx)); err != nil {
		return fmt.Errorf("failed to ensure document: %w", err)
	}
	if permanent != nil {
		return fmt.Errorf("failed to ensure document: %w", permanent)
	}

	a.plain = document.NewPlainEngine()
	a.text = document.NewCRDTEngine(crdt.WithTextName(a.cfg.TextName))
	a.lastActivity = rec.LastActivity
	a.load(rec)

	a.logger.Debug("Document ready",
		"bytes", len(rec.Content),
		"last_activity", rec.LastActivity)

	// без подключений единственный таймер сразу работает на reaper
	a.armAlarm(a.lastActivity.Add(a.cfg.Retention))
	return nil
}

func (a *Actor) load(rec *models.DocumentRecord) {
	if len(rec.Content) > 0 && rec.Mode != a.cfg.Mode {
		a.logger.Warn("Stored content belongs to another mode, starting empty",
			"stored_mode", string(rec.Mode),
			"error", storage.ErrModeMismatch)
		a.foreign = true
		return
	}

	switch a.cfg.Mode {
	case models.ModePlain:
		a.plain.Load(rec.Content)
	default:
		if err := a.text.Load(rec.Content); err != nil {
			a.logger.Error("Failed to load stored state, starting empty", "error", err)
			a.text = document.NewCRDTEngine(crdt.WithTextName(a.cfg.TextName))
			a.foreign = true
		}
	}
}

// dispatch обрабатывает одно событие; паника не останавливает актор
func (a *Actor) dispatch(ev event) (stop bool) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("Recovered from panic in document handler",
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()

	if a.cfg.Mode == models.ModeCRDT {
		a.expireAwareness()
	}

	switch ev := ev.(type) {
	case connectEvent:
		defer close(ev.reply)
		a.handleConnect(ev.conn, ev.join)
	case frameEvent:
		a.handleFrame(ev.connID, ev.frame)
	case disconnectEvent:
		a.handleDisconnect(ev.connID)
	case alarmEvent:
		return a.handleAlarm(ev.gen)
	case inspectEvent:
		defer close(ev.reply)
		ev.reply <- a.info()
	case stopEvent:
		a.shutdown()
		return true
	default:
		a.logger.Error("Unknown actor event", "event", fmt.Sprintf("%T", ev))
	}
	return false
}

func (a *Actor) handleConnect(conn presence.Conn, join Join) {
	a.conns.Add(conn)
	a.logger.Info("Client connected",
		"conn", conn.ID(),
		"connections", a.conns.Len())

	if a.cfg.Mode == models.ModeCRDT {
		a.crdtConnect(conn.ID(), join)
	}
}

func (a *Actor) handleDisconnect(connID string) {
	if _, ok := a.conns.Remove(connID); !ok {
		return
	}
	a.logger.Info("Client disconnected",
		"conn", connID,
		"connections", a.conns.Len())

	if a.cfg.Mode == models.ModePlain {
		a.plainLeave(connID)
	}

	if a.conns.Len() > 0 {
		return
	}

	// последний клиент ушел: flush и передача таймера reaper
	now := a.clock.Now()
	a.checkpoint(now)
	a.scheduled = false
	a.armAlarm(now.Add(a.cfg.Retention))
}

func (a *Actor) snapshot() []byte {
	if a.cfg.Mode == models.ModePlain {
		return a.plain.Snapshot()
	}
	return a.text.Snapshot()
}

func (a *Actor) currentText() string {
	if a.cfg.Mode == models.ModePlain {
		return a.plain.Text()
	}
	return a.text.Text()
}

func (a *Actor) info() Info {
	info := Info{
		Key:          a.key,
		Mode:         a.cfg.Mode,
		Text:         a.currentText(),
		Connections:  a.conns.Len(),
		LastActivity: a.lastActivity,
		AlarmAt:      a.alarm.at,
		Scheduled:    a.scheduled,
		Dirty:        a.dirty,
	}
	if a.cfg.Mode == models.ModeCRDT {
		info.State = a.text.Snapshot()
	}
	return info
}

func (a *Actor) shutdown() {
	if a.dirty || a.conns.Len() > 0 {
		a.checkpoint(a.clock.Now())
	}
	a.conns.CloseAll(wire.CloseGoingAway, "server shutting down")
	a.alarm.stop()
	a.logger.Debug("Document actor stopped")
}
