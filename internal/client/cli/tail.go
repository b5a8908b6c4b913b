package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/iudanet/gophcollab/internal/client/collab"
	"github.com/iudanet/gophcollab/pkg/api"
)

// RunTail печатает документ и затем изменения других клиентов, пока
// не отменен ctx или сервер не закрыл сессию
func (c *Cli) RunTail(ctx context.Context, rawKey string) error {
	key, err := parseKey(rawKey)
	if err != nil {
		return err
	}

	s, err := c.openDocument(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to open document: %w", err)
	}
	defer s.Close()

	c.io.Println(s.text)

	if s.plain != nil {
		return c.tailPlain(ctx, s.plain)
	}
	return c.tailCRDT(ctx, s.replica)
}

func (c *Cli) tailPlain(ctx context.Context, s *collab.PlainSession) error {
	for {
		select {
		case msg, ok := <-s.Events():
			if !ok {
				return sessionEnded(s.Err())
			}
			c.printEvent(msg)
		case <-ctx.Done():
			return nil
		}
	}
}

func (c *Cli) printEvent(msg api.Message) {
	switch msg.Type {
	case api.TypeChange:
		if msg.Changes == nil {
			return
		}
		c.io.Printf("[%s] change %d..%d %q\n", msg.ConnectionID, msg.Changes.From, msg.Changes.To, msg.Changes.Insert)
	case api.TypeCursor:
		name := msg.UserName
		if name == "" {
			name = msg.ConnectionID
		}
		if msg.Position != nil {
			c.io.Printf("[%s] cursor %d\n", name, *msg.Position)
		}
	case api.TypeCursorLeave:
		c.io.Printf("[%s] left\n", msg.ConnectionID)
	}
}

func (c *Cli) tailCRDT(ctx context.Context, s *collab.CRDTSession) error {
	for {
		select {
		case text := <-s.Changes():
			c.io.Println("---")
			c.io.Println(text)
		case <-s.Done():
			return sessionEnded(s.Err())
		case <-ctx.Done():
			return nil
		}
	}
}

// sessionEnded превращает закрытие сервером в ошибку команды
func sessionEnded(err error) error {
	if err == nil {
		return nil
	}
	if code, ok := collab.CloseError(err); ok {
		if code == 1000 {
			return nil
		}
		return fmt.Errorf("server closed the session with code %d", code)
	}
	if errors.Is(err, collab.ErrSessionClosed) {
		return nil
	}
	return fmt.Errorf("session failed: %w", err)
}
