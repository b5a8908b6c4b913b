package presence

import (
	"github.com/iudanet/gophcollab/internal/wire"
	"github.com/iudanet/gophcollab/pkg/api"
)

// Cursor is an enriched cursor event ready for broadcast.
type Cursor struct {
	Selection    *api.Selection
	ConnectionID string
	UserName     string
	UserImage    string
	Position     int
}

// UpdateCursor records the sender's last position and fills identity
// fields the client omitted from its connection identity.
func (m *Member) UpdateCursor(req wire.CursorRequest) Cursor {
	m.Position = req.Position
	m.Selection = req.Selection
	m.HasCursor = true

	c := Cursor{
		ConnectionID: m.Conn.ID(),
		Position:     req.Position,
		Selection:    req.Selection,
		UserName:     req.UserName,
		UserImage:    req.UserImage,
	}
	if c.UserName == "" {
		c.UserName = m.Identity.UserName
	}
	if c.UserImage == "" {
		c.UserImage = m.Identity.UserImage
	}
	return c
}

// Encode builds the plain-text cursor frame.
func (c Cursor) Encode() ([]byte, error) {
	return wire.EncodeCursor(c.Position, c.Selection, c.ConnectionID, c.UserName, c.UserImage)
}
