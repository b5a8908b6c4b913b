package collab

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"

	"github.com/iudanet/gophcollab/internal/models"
	"github.com/iudanet/gophcollab/pkg/api"
)

// eventBuffer сколько входящих сообщений ждут читателя
const eventBuffer = 64

// PlainSession сессия plain-text протокола: JSON объект на frame
type PlainSession struct {
	*conn
	events chan api.Message
	inits  chan api.Message
	id     string
}

// OpenPlain подключается к документу key в plain-text режиме
func (c *Client) OpenPlain(ctx context.Context, key models.DocumentKey) (*PlainSession, error) {
	ws, err := c.dial(ctx, key, nil)
	if err != nil {
		return nil, err
	}

	s := &PlainSession{
		conn:   newConn(ws),
		events: make(chan api.Message, eventBuffer),
		inits:  make(chan api.Message, 1),
	}
	go func() {
		defer close(s.events)
		s.readLoop(s.dispatch)
	}()
	return s, nil
}

func (s *PlainSession) dispatch(data []byte) bool {
	var msg api.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		// сервер шлет только JSON; мусор пропускаем
		return true
	}

	ch := s.events
	if msg.Type == api.TypeInit {
		ch = s.inits
	}
	select {
	case ch <- msg:
		return true
	case <-s.closing:
		return false
	}
}

// Init запрашивает документ. content != nil предлагает начальное
// содержимое, сервер примет его только для пустого документа.
func (s *PlainSession) Init(ctx context.Context, content *string) (string, error) {
	data, err := json.Marshal(api.Message{Type: api.TypeInit, Content: content})
	if err != nil {
		return "", fmt.Errorf("failed to encode init: %w", err)
	}
	if err := s.write(websocket.TextMessage, data); err != nil {
		return "", err
	}

	select {
	case msg := <-s.inits:
		s.id = msg.ConnectionID
		if msg.Content == nil {
			return "", nil
		}
		return *msg.Content, nil
	case <-s.done:
		if s.err != nil {
			return "", fmt.Errorf("session ended before init: %w", s.err)
		}
		return "", ErrSessionClosed
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// ConnectionID возвращает id, присвоенный сервером (после Init)
func (s *PlainSession) ConnectionID() string {
	return s.id
}

// Change отправляет замену диапазона [from, to) на insert (UTF-16 единицы)
func (s *PlainSession) Change(from, to int, insert string) error {
	data, err := json.Marshal(api.Message{
		Type:    api.TypeChange,
		Changes: &api.Change{From: from, To: to, Insert: insert},
	})
	if err != nil {
		return fmt.Errorf("failed to encode change: %w", err)
	}
	return s.write(websocket.TextMessage, data)
}

// Cursor отправляет позицию курсора и, если есть, выделение
func (s *PlainSession) Cursor(position int, selection *api.Selection) error {
	data, err := json.Marshal(api.Message{
		Type:      api.TypeCursor,
		Position:  &position,
		Selection: selection,
	})
	if err != nil {
		return fmt.Errorf("failed to encode cursor: %w", err)
	}
	return s.write(websocket.TextMessage, data)
}

// Events возвращает рассылки других клиентов: change, cursor,
// cursor-leave. Канал закрывается вместе с сессией.
func (s *PlainSession) Events() <-chan api.Message {
	return s.events
}

// Close закрывает сессию с кодом 1000
func (s *PlainSession) Close() error {
	return s.close()
}
