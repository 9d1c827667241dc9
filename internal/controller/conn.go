package controller

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sharetube/watchparty/internal/repository/connection"
	"github.com/sharetube/watchparty/internal/service/room"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8 << 10
	sendQueueSize  = 64
	closeGrace     = time.Second
)

type closeFrame struct {
	code   int
	reason string
}

// wsConn serializes every write to a websocket through a single pump.
type wsConn struct {
	id string
	ws *websocket.Conn

	send      chan []byte
	closing   chan closeFrame
	closed    chan struct{}
	closeOnce sync.Once
	done      chan struct{}
	readDone  chan struct{}
}

func newWSConn(id string, ws *websocket.Conn) *wsConn {
	ws.SetReadLimit(maxMessageSize)
	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	return &wsConn{
		id:       id,
		ws:       ws,
		send:     make(chan []byte, sendQueueSize),
		closing:  make(chan closeFrame, 1),
		closed:   make(chan struct{}),
		done:     make(chan struct{}),
		readDone: make(chan struct{}),
	}
}

func (c *wsConn) Id() string {
	return c.id
}

// Send queues msg. A full queue is reported as backpressure and the caller
// is expected to close the connection.
func (c *wsConn) Send(msg []byte) error {
	select {
	case <-c.closed:
		return connection.ErrClosed
	default:
	}

	select {
	case c.send <- msg:
		return nil
	default:
		return connection.ErrBackpressure
	}
}

// Close flushes queued messages and then sends a close frame. Only the first
// call has an effect.
func (c *wsConn) Close(code int, reason string) {
	c.closeOnce.Do(func() {
		c.closing <- closeFrame{code: code, reason: reason}
		close(c.closed)
	})
}

func (c *wsConn) ReadMessage() (int, []byte, error) {
	messageType, data, err := c.ws.ReadMessage()
	if err != nil {
		return messageType, data, err
	}

	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	return messageType, data, nil
}

func (c *wsConn) write(messageType int, data []byte) error {
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(messageType, data)
}

func (c *wsConn) flush() error {
	for {
		select {
		case msg := <-c.send:
			if err := c.write(websocket.TextMessage, msg); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

func (c *wsConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
		close(c.done)
	}()

	for {
		select {
		case msg := <-c.send:
			if err := c.write(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}
		case frame := <-c.closing:
			if err := c.flush(); err != nil {
				return
			}

			err := c.write(websocket.CloseMessage, websocket.FormatCloseMessage(frame.code, frame.reason))
			if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
				return
			}

			// let the peer answer the close frame before the socket goes away
			select {
			case <-c.readDone:
			case <-time.After(closeGrace):
			}
			return
		}
	}
}

// readStopped tells the pump that nobody reads from the socket anymore.
func (c *wsConn) readStopped() {
	close(c.readDone)
}

// wait blocks until the write pump has released the socket.
func (c *wsConn) wait() {
	<-c.done
}

// client is an authenticated connection as seen by the ws router.
type client struct {
	*wsConn
	identity     room.Identity
	sessionToken string
}
