// Package presence tracks the live connections of one document and fans
// messages out to them. It is owned by the document actor and is not safe
// for concurrent use.
package presence

import (
	"errors"
	"log/slog"

	"github.com/iudanet/gophcollab/internal/models"
	"github.com/iudanet/gophcollab/internal/wire"
	"github.com/iudanet/gophcollab/pkg/api"
)

// ErrSendFailed indicates that a frame could not be queued for a connection
var ErrSendFailed = errors.New("send failed")

// Conn is one live client socket as seen by the actor. Send must not block:
// it queues the frame or fails.
type Conn interface {
	ID() string
	Identity() models.Identity
	Send(frame []byte) error
	Close(code int, reason string)
}

// Member is a connection plus its ephemeral presence state.
type Member struct {
	Conn      Conn
	Selection *api.Selection
	Identity  models.Identity
	Position  int
	HasCursor bool
}

// Set is the live connection set of one document. Iteration follows
// connect order.
type Set struct {
	logger  *slog.Logger
	members map[string]*Member
	order   []string
}

// NewSet creates an empty connection set.
func NewSet(logger *slog.Logger) *Set {
	return &Set{
		logger:  logger,
		members: make(map[string]*Member),
	}
}

// Add registers a connection and returns its member record.
func (s *Set) Add(conn Conn) *Member {
	if m, ok := s.members[conn.ID()]; ok {
		return m
	}
	m := &Member{Conn: conn, Identity: conn.Identity()}
	s.members[conn.ID()] = m
	s.order = append(s.order, conn.ID())
	return m
}

// Remove drops a connection. It reports false if it was not registered.
func (s *Set) Remove(id string) (*Member, bool) {
	m, ok := s.members[id]
	if !ok {
		return nil, false
	}
	delete(s.members, id)
	for i, cur := range s.order {
		if cur == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return m, true
}

// Get returns the member for id.
func (s *Set) Get(id string) (*Member, bool) {
	m, ok := s.members[id]
	return m, ok
}

// Len returns the number of live connections.
func (s *Set) Len() int {
	return len(s.order)
}

// Send queues a frame for one connection. A failed send closes that
// connection only.
func (s *Set) Send(id string, frame []byte) error {
	m, ok := s.members[id]
	if !ok {
		return ErrSendFailed
	}
	return s.send(m, frame)
}

// Broadcast queues frame for every connection except exclude (empty means
// nobody is excluded). Failures are isolated per connection; the number of
// failed deliveries is returned.
func (s *Set) Broadcast(frame []byte, exclude string) int {
	failed := 0
	for _, id := range s.order {
		if id == exclude {
			continue
		}
		if err := s.send(s.members[id], frame); err != nil {
			failed++
		}
	}
	return failed
}

func (s *Set) send(m *Member, frame []byte) error {
	if err := m.Conn.Send(frame); err != nil {
		s.logger.Warn("Failed to send frame, closing connection",
			slog.String("conn", m.Conn.ID()),
			slog.Any("error", err))
		m.Conn.Close(wire.CloseInternalError, "send failed")
		return errors.Join(ErrSendFailed, err)
	}
	return nil
}

// CloseAll closes every connection with code.
func (s *Set) CloseAll(code int, reason string) {
	for _, id := range s.order {
		s.members[id].Conn.Close(code, reason)
	}
}
