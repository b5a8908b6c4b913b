package session

import (
	"github.com/iudanet/gophcollab/internal/presence"
	"github.com/iudanet/gophcollab/internal/wire"
)

func (a *Actor) handlePlain(m *presence.Member, frame []byte) {
	msg, err := wire.DecodeClientMessage(frame, a.cfg.MaxPlainFrame)
	if err != nil {
		a.dropFrame(m, err)
		return
	}

	switch msg := msg.(type) {
	case wire.InitRequest:
		a.plainInit(m, msg)
	case wire.ChangeRequest:
		a.plainChange(m, msg)
	case wire.CursorRequest:
		a.plainCursor(m, msg)
	}
}

// plainInit отвечает полным текстом; первый init с содержимым на пустом
// документе задает начальный текст и сразу сохраняется
func (a *Actor) plainInit(m *presence.Member, msg wire.InitRequest) {
	id := m.Conn.ID()

	if msg.HasContent && a.plain.Bootstrap(msg.Content) {
		a.logger.Info("Document bootstrapped", "conn", id, "units", a.plain.Len())
		a.markEdited()
		a.checkpoint(a.clock.Now())
	}

	reply, err := wire.EncodeInit(a.plain.Text(), id)
	if err != nil {
		a.logger.Error("Failed to encode init reply", "conn", id, "error", err)
		return
	}
	_ = a.conns.Send(id, reply)
}

func (a *Actor) plainChange(m *presence.Member, msg wire.ChangeRequest) {
	id := m.Conn.ID()

	a.plain.Apply(msg.Change)
	a.markEdited()

	frame, err := wire.EncodeChange(msg.Change, id)
	if err != nil {
		a.logger.Error("Failed to encode change", "conn", id, "error", err)
		return
	}
	a.conns.Broadcast(frame, id)
}

func (a *Actor) plainCursor(m *presence.Member, msg wire.CursorRequest) {
	cursor := m.UpdateCursor(msg)

	frame, err := cursor.Encode()
	if err != nil {
		a.logger.Error("Failed to encode cursor", "conn", m.Conn.ID(), "error", err)
		return
	}
	a.conns.Broadcast(frame, m.Conn.ID())
}

func (a *Actor) plainLeave(connID string) {
	frame, err := wire.EncodeCursorLeave(connID)
	if err != nil {
		a.logger.Error("Failed to encode cursor-leave", "conn", connID, "error", err)
		return
	}
	a.conns.Broadcast(frame, "")
}
