package server

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"deskrelay/internal/clients"
	"deskrelay/internal/types"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 50 * time.Second
	maxMessageSize = 8 << 20
	sendBuffer     = 64
)

// sendWait bounds how long Send waits for a slow reader.
var sendWait = writeWait

var (
	ErrConnClosed     = errors.New("connection closed")
	ErrSendBufferFull = errors.New("send buffer full")
	ErrSendTimeout    = errors.New("send timed out")
)

// wsConn is one WebSocket connection. Reads happen on the caller's
// goroutine; all writes go through writePump.
type wsConn struct {
	id       string
	clientID string
	role     clients.Role
	ws       *websocket.Conn
	log      *zap.Logger

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newWSConn(ws *websocket.Conn, id, clientID string, role clients.Role, log *zap.Logger) *wsConn {
	return &wsConn{
		id:       id,
		clientID: clientID,
		role:     role,
		ws:       ws,
		log:      log,
		send:     make(chan []byte, sendBuffer),
		done:     make(chan struct{}),
	}
}

func (c *wsConn) ID() string { return c.id }

// Send queues msg for the write pump, waiting up to sendWait for room in
// the buffer. Replies and stream chunks go through here so a slow reader
// slows the sender down instead of losing messages.
func (c *wsConn) Send(msg types.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}
	timer := time.NewTimer(sendWait)
	defer timer.Stop()
	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return ErrConnClosed
	case <-timer.C:
		return ErrSendTimeout
	}
}

// TrySend queues msg only when the buffer has room.
func (c *wsConn) TrySend(msg types.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}
	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return ErrConnClosed
	default:
		return ErrSendBufferFull
	}
}

func (c *wsConn) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}

// readPump delivers text messages to handle in arrival order until the
// connection fails or ctx ends.
func (c *wsConn) readPump(ctx context.Context, handle func(ctx context.Context, msg []byte)) {
	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		kind, msg, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Info("websocket read error", zap.String("conn", c.id), zap.Error(err))
			}
			return
		}
		if ctx.Err() != nil {
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		handle(ctx, msg)
	}
}

func (c *wsConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case data := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.log.Debug("websocket write failed", zap.String("conn", c.id), zap.Error(err))
				c.Close()
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		case <-c.done:
			c.flush()
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}

// flush writes whatever is still queued when the connection is closing.
func (c *wsConn) flush() {
	for {
		select {
		case data := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		default:
			return
		}
	}
}
