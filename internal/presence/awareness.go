package presence

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/iudanet/gophcollab/internal/crdt"
	"github.com/iudanet/gophcollab/internal/wire"
)

// DefaultAwarenessTimeout время, после которого не обновлявшееся
// состояние считается ушедшим
const DefaultAwarenessTimeout = 30 * time.Second

// Awareness хранит presence состояния CRDT клиентов, по одному на
// replica id протокола. Связи с серверными connection id нет.
type Awareness struct {
	states  *crdt.LWWSet[json.RawMessage]
	timeout time.Duration
}

// NewAwareness создает пустое хранилище. timeout <= 0 отключает истечение.
func NewAwareness(timeout time.Duration) *Awareness {
	return &Awareness{
		states: crdt.NewLWWSet[json.RawMessage](func(a, b json.RawMessage) bool {
			return bytes.Equal(a, b)
		}),
		timeout: timeout,
	}
}

// Apply применяет закодированное awareness обновление. changed сообщает,
// изменило ли оно что-либо (тогда обновление нужно разослать как есть).
func (a *Awareness) Apply(update []byte, now time.Time) (bool, error) {
	entries, err := wire.DecodeAwarenessUpdate(update)
	if err != nil {
		return false, fmt.Errorf("failed to decode awareness update: %w", err)
	}

	changed := false
	for _, e := range entries {
		var outcome crdt.Outcome
		if e.Removed() {
			outcome = a.states.Remove(e.ClientID, e.Clock, now)
		} else {
			outcome = a.states.Set(e.ClientID, e.Clock, e.State, now)
		}
		if outcome != crdt.Unchanged {
			changed = true
		}
	}
	return changed, nil
}

// Encode кодирует все присутствующие состояния. ok == false, если их нет.
func (a *Awareness) Encode() ([]byte, bool) {
	all := a.states.GetAll()
	if len(all) == 0 {
		return nil, false
	}
	entries := make([]wire.AwarenessEntry, 0, len(all))
	for _, r := range all {
		entries = append(entries, wire.AwarenessEntry{ClientID: r.Client, Clock: r.Clock, State: r.Value})
	}
	return wire.EncodeAwarenessUpdate(entries), true
}

// Expire удаляет устаревшие состояния и возвращает закодированное
// обновление об их удалении (nil, если удалять нечего).
func (a *Awareness) Expire(now time.Time) []byte {
	if a.timeout <= 0 {
		return nil
	}
	expired := a.states.Expire(now.Add(-a.timeout), now)
	if len(expired) == 0 {
		return nil
	}
	entries := make([]wire.AwarenessEntry, 0, len(expired))
	for _, r := range expired {
		entries = append(entries, wire.AwarenessEntry{ClientID: r.Client, Clock: r.Clock})
	}
	return wire.EncodeAwarenessUpdate(entries)
}

// Len возвращает количество присутствующих клиентов.
func (a *Awareness) Len() int {
	return a.states.Size()
}
