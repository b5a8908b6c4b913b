package collab

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// conn websocket с сериализованной записью и однократным закрытием
type conn struct {
	ws        *websocket.Conn
	closing   chan struct{}
	done      chan struct{}
	err       error // причина завершения чтения, валидна после done
	writeMu   sync.Mutex
	closeOnce sync.Once
}

func newConn(ws *websocket.Conn) *conn {
	return &conn{
		ws:      ws,
		closing: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

func (c *conn) write(messageType int, data []byte) error {
	select {
	case <-c.closing:
		return ErrSessionClosed
	case <-c.done:
		return ErrSessionClosed
	default:
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}
	if err := c.ws.WriteMessage(messageType, data); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}

// readLoop читает frames до ошибки и передает их в handle
func (c *conn) readLoop(handle func(data []byte) bool) {
	defer close(c.done)
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			c.err = err
			return
		}
		if !handle(data) {
			return
		}
	}
}

// close отправляет 1000 и ждет, пока сервер закроет соединение
func (c *conn) close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closing)

		select {
		case <-c.done:
			// сервер уже закрыл сессию
		default:
			c.writeMu.Lock()
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			err = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
			c.writeMu.Unlock()

			select {
			case <-c.done:
			case <-time.After(writeWait):
			}
		}
		_ = c.ws.Close()
	})
	if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		return fmt.Errorf("failed to close session: %w", err)
	}
	return nil
}

// Err возвращает причину завершения сессии сервером
func (c *conn) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

// Done закрывается, когда сессия завершена
func (c *conn) Done() <-chan struct{} {
	return c.done
}
