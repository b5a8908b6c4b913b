package session

import (
	"errors"

	"github.com/dustin/go-humanize"

	"github.com/iudanet/gophcollab/internal/models"
	"github.com/iudanet/gophcollab/internal/presence"
	"github.com/iudanet/gophcollab/internal/wire"
)

func (a *Actor) handleFrame(connID string, frame []byte) {
	m, ok := a.conns.Get(connID)
	if !ok {
		return
	}

	limit := a.cfg.FrameLimit()
	if err := wire.CheckFrameSize(len(frame), limit); err != nil {
		a.logger.Warn("Frame too large, closing connection",
			"conn", connID,
			"size", humanize.IBytes(uint64(len(frame))),
			"limit", humanize.IBytes(uint64(limit)))
		m.Conn.Close(wire.CloseMessageTooBig, "message too big")
		return
	}

	if a.cfg.Mode == models.ModePlain {
		a.handlePlain(m, frame)
		return
	}
	a.handleCRDT(m, frame)
}

// dropFrame логирует и отбрасывает frame, соединение остается открытым
func (a *Actor) dropFrame(m *presence.Member, err error) {
	kind := "malformed"
	if errors.Is(err, wire.ErrUnknownMessageType) {
		kind = "unknown"
	}
	a.logger.Warn("Dropping frame",
		"conn", m.Conn.ID(),
		"kind", kind,
		"error", err)
}
