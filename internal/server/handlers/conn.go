package handlers

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/websocket"

	"github.com/iudanet/gophcollab/internal/models"
	"github.com/iudanet/gophcollab/internal/wire"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var (
	// ErrSendBufferFull indicates a client that does not drain its socket
	ErrSendBufferFull = errors.New("send buffer full")
	errConnClosed     = errors.New("connection closed")
)

// wsConn связывает gorilla websocket с актором документа. Send не
// блокирует актор: frame попадает в буфер, который разбирает writePump.
type wsConn struct {
	ws       *websocket.Conn
	logger   *slog.Logger
	send     chan []byte
	closing  chan struct{}
	finished chan struct{}
	identity models.Identity
	id       string
	reason   string
	code     int
	msgType  int
	once     sync.Once
}

func newWSConn(ws *websocket.Conn, id string, identity models.Identity, msgType, buffer int, logger *slog.Logger) *wsConn {
	return &wsConn{
		ws:       ws,
		id:       id,
		identity: identity,
		msgType:  msgType,
		logger:   logger,
		send:     make(chan []byte, buffer),
		closing:  make(chan struct{}),
		finished: make(chan struct{}),
	}
}

func (c *wsConn) ID() string                { return c.id }
func (c *wsConn) Identity() models.Identity { return c.identity }

// Send ставит frame в очередь на отправку
func (c *wsConn) Send(frame []byte) error {
	select {
	case <-c.closing:
		return errConnClosed
	default:
	}

	select {
	case c.send <- frame:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Close запрашивает закрытие с кодом code; срабатывает только первый вызов
func (c *wsConn) Close(code int, reason string) {
	c.once.Do(func() {
		c.code = code
		c.reason = reason
		close(c.closing)
	})
}

func (c *wsConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
		close(c.finished)
	}()

	for {
		select {
		case frame := <-c.send:
			if err := c.write(frame); err != nil {
				c.logger.Warn("Failed to write frame", "error", err)
				c.Close(wire.CloseInternalError, "write failed")
				c.writeClose()
				return
			}
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.logger.Warn("Failed to ping client", "error", err)
				c.Close(wire.CloseInternalError, "ping failed")
				c.writeClose()
				return
			}
		case <-c.closing:
			// то, что актор успел поставить в очередь, уходит до close frame
			c.flush()
			c.writeClose()
			return
		}
	}
}

func (c *wsConn) write(frame []byte) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(c.msgType, frame)
}

func (c *wsConn) flush() {
	for {
		select {
		case frame := <-c.send:
			if err := c.write(frame); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *wsConn) writeClose() {
	msg := websocket.FormatCloseMessage(c.code, c.reason)
	_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}

// readPump читает frames до ошибки или закрытия. deliver возвращает
// ошибку, если актор больше не принимает frames.
//
// Потолок протокола проверяет актор (1009 для frame > limit). Транспорт
// обрывает чтение только после 2*limit, так что frame чуть больше потолка
// дочитывается и close frame доходит до клиента.
func (c *wsConn) readPump(limit int, deliver func([]byte) error) {
	c.ws.SetReadLimit(int64(2 * limit))
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := c.ws.ReadMessage()
		if err != nil {
			c.readFailed(err, limit)
			return
		}
		if err := deliver(frame); err != nil {
			c.logger.Info("Document no longer accepts frames", "error", err)
			c.Close(wire.CloseGoingAway, "document closed")
			return
		}
	}
}

func (c *wsConn) readFailed(err error, limit int) {
	select {
	case <-c.closing:
		// закрытие начали мы
		return
	default:
	}

	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.logger.Warn("Frame exceeds transport limit, closing connection", "limit", humanize.IBytes(uint64(2*limit)))
		c.Close(wire.CloseMessageTooBig, "message too big")
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived):
		c.Close(websocket.CloseNormalClosure, "")
	default:
		c.logger.Warn("Connection read failed", "error", err)
		c.Close(wire.CloseInternalError, "read failed")
	}
}

func (c *wsConn) wait() {
	<-c.finished
}
