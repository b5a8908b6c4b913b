package session

import (
	"context"
	"errors"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/iudanet/gophcollab/internal/models"
	"github.com/iudanet/gophcollab/internal/server/storage"
)

// alarm единственный слот таймера актора. Что делать при срабатывании,
// решается по числу подключений в момент срабатывания.
type alarm struct {
	at    time.Time
	timer Timer
	gen   uint64
}

func (al *alarm) stop() {
	if al.timer != nil {
		al.timer.Stop()
		al.timer = nil
	}
	al.gen++
	al.at = time.Time{}
}

// armAlarm replaces the pending deadline with at.
func (a *Actor) armAlarm(at time.Time) {
	a.alarm.stop()
	gen := a.alarm.gen
	a.alarm.at = at
	a.alarm.timer = a.clock.AfterFunc(at.Sub(a.clock.Now()), func() {
		_ = a.post(context.Background(), alarmEvent{gen: gen})
	})
}

// markEdited records a mutation. The first one starts the debounce window;
// later ones inside the window do not move it.
func (a *Actor) markEdited() {
	a.dirty = true
	a.foreign = false
	a.startTicking()
}

// startTicking запускает цикл checkpoint, если он еще не идет. Пока есть
// подключения, каждый тик также снимает протухшие presence состояния.
func (a *Actor) startTicking() {
	if a.scheduled {
		return
	}
	a.scheduled = true
	a.armAlarm(a.clock.Now().Add(a.cfg.CheckpointInterval))
}

// checkpoint writes the current state with LastActivity = now. A failure
// is logged and leaves the in-memory state authoritative.
func (a *Actor) checkpoint(now time.Time) bool {
	ctx, cancel := context.WithTimeout(a.ctx, a.cfg.StoreTimeout)
	defer cancel()

	var err error
	if a.foreign {
		// содержимое чужого режима не перезаписываем пустым состоянием
		err = a.store.TouchDocument(ctx, a.key, now)
	} else {
		err = a.store.SaveDocument(ctx, &models.DocumentRecord{
			Key:          a.key,
			Mode:         a.cfg.Mode,
			Content:      a.snapshot(),
			LastActivity: now,
		})
	}
	if err != nil {
		a.logger.Error("Checkpoint failed", "error", err)
		return false
	}

	a.dirty = false
	if now.After(a.lastActivity) {
		a.lastActivity = now
	}
	a.logger.Debug("Checkpoint written", "connections", a.conns.Len())
	return true
}

func (a *Actor) handleAlarm(gen uint64) (stop bool) {
	if gen != a.alarm.gen {
		return false
	}
	a.alarm.timer = nil
	now := a.clock.Now()

	if a.conns.Len() > 0 {
		a.checkpoint(now)
		a.scheduled = true
		a.armAlarm(now.Add(a.cfg.CheckpointInterval))
		return false
	}

	return a.reap(now)
}

// reap удаляет документ, если он простоял RETENTION с момента последней
// активности, иначе переносит будильник на оставшееся время
func (a *Actor) reap(now time.Time) (stop bool) {
	if a.dirty && !a.checkpoint(now) {
		a.armAlarm(now.Add(a.cfg.CheckpointInterval))
		return false
	}

	ctx, cancel := context.WithTimeout(a.ctx, a.cfg.StoreTimeout)
	defer cancel()

	rec, err := a.store.GetDocument(ctx, a.key)
	if errors.Is(err, storage.ErrDocumentNotFound) {
		a.logger.Info("Document record is gone, stopping actor")
		return true
	}
	if err != nil {
		a.logger.Error("Failed to read last activity", "error", err)
		a.armAlarm(now.Add(a.cfg.CheckpointInterval))
		return false
	}

	idle := now.Sub(rec.LastActivity)
	if idle < a.cfg.Retention {
		a.armAlarm(rec.LastActivity.Add(a.cfg.Retention))
		a.logger.Debug("Reaper rescheduled", "remaining", a.cfg.Retention-idle)
		return false
	}

	if err := a.store.DeleteDocument(ctx, a.key); err != nil && !errors.Is(err, storage.ErrDocumentNotFound) {
		a.logger.Error("Failed to delete idle document", "error", err)
		a.armAlarm(now.Add(a.cfg.CheckpointInterval))
		return false
	}

	a.logger.Info("Idle document deleted",
		"idle", humanize.RelTime(rec.LastActivity, now, "", ""),
		"bytes", humanize.Bytes(uint64(len(rec.Content))))
	return true
}

// expireAwareness лениво удаляет протухшие presence состояния
func (a *Actor) expireAwareness() {
	removal := a.awareness.Expire(a.clock.Now())
	if removal == nil {
		return
	}
	a.conns.Broadcast(encodeAwareness(removal), "")
}
