package session

import (
	"github.com/iudanet/gophcollab/internal/presence"
	"github.com/iudanet/gophcollab/internal/wire"
)

func encodeAwareness(update []byte) []byte {
	return wire.EncodeAwarenessFrame(update)
}

// crdtConnect открывает sync: step 1 с вектором состояния сервера и,
// если есть, все известные presence состояния
func (a *Actor) crdtConnect(connID string, join Join) {
	if join.HasInitialContent {
		if update, ok := a.text.Bootstrap(join.InitialContent); ok {
			a.logger.Info("Document bootstrapped", "conn", connID, "units", len(join.InitialContent))
			a.markEdited()
			a.checkpoint(a.clock.Now())
			a.conns.Broadcast(wire.EncodeSyncUpdate(update), connID)
		}
	}

	if err := a.conns.Send(connID, wire.EncodeSyncStep1(a.text.StateVector())); err != nil {
		return
	}
	if states, ok := a.awareness.Encode(); ok {
		_ = a.conns.Send(connID, encodeAwareness(states))
	}
}

func (a *Actor) handleCRDT(m *presence.Member, frame []byte) {
	f, err := wire.DecodeFrame(frame, a.cfg.MaxCRDTFrame)
	if err != nil {
		a.dropFrame(m, err)
		return
	}

	switch f.Kind {
	case wire.FrameSync:
		a.crdtSync(m, f.Body)
	case wire.FrameAwareness:
		a.crdtAwareness(m, f.Body, frame)
	}
}

func (a *Actor) crdtSync(m *presence.Member, body []byte) {
	id := m.Conn.ID()

	msg, err := wire.DecodeSyncMessage(body)
	if err != nil {
		a.dropFrame(m, err)
		return
	}

	switch msg.Type {
	case wire.SyncStep1:
		diff, err := a.text.DiffSince(msg.Payload)
		if err != nil {
			a.dropFrame(m, err)
			return
		}
		_ = a.conns.Send(id, wire.EncodeSyncStep2(diff))

	case wire.SyncStep2, wire.SyncUpdate:
		change, err := a.text.Apply(msg.Payload)
		if err != nil {
			a.dropFrame(m, err)
			return
		}
		if !change.Changed {
			return
		}
		a.markEdited()
		// исходное обновление отправителю не возвращаем
		a.conns.Broadcast(wire.EncodeSyncUpdate(change.Update), id)
	}
}

// crdtAwareness применяет presence delta и пересылает frame как есть
func (a *Actor) crdtAwareness(m *presence.Member, body, frame []byte) {
	update, err := wire.DecodeAwarenessFrame(body)
	if err != nil {
		a.dropFrame(m, err)
		return
	}

	changed, err := a.awareness.Apply(update, a.clock.Now())
	if err != nil {
		a.dropFrame(m, err)
		return
	}
	if changed {
		a.conns.Broadcast(frame, m.Conn.ID())
	}
	if a.awareness.Len() > 0 {
		// молчащие клиенты должны протухнуть и без нового трафика
		a.startTicking()
	}
}
