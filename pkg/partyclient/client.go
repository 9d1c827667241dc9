// Package partyclient is a websocket client for the watch party server. It
// keeps the session alive across network drops and re-enters the room it was
// in after every reconnect.
package partyclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
)

const eventsBuffer = 64

// close codes used by the server
const (
	closeKicked           = 4001
	closeReplaced         = 4002
	closeNotAuthenticated = 4003
)

var (
	ErrReconnectFailed  = errors.New("reconnect failed")
	ErrKicked           = errors.New("kicked from room")
	ErrReplaced         = errors.New("session opened elsewhere")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrNotConnected     = errors.New("not connected")
)

// Event is the envelope exchanged with the server.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type outgoing struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type Config struct {
	// URL of the websocket endpoint, e.g. ws://host/api/v1/ws.
	URL string
	// Credential is a signed token from the identity provider. Without it the
	// client connects as a guest named Username.
	Credential string
	Username   string
	AvatarUrl  string

	Policy Policy
	Dialer *websocket.Dialer
	Logger *slog.Logger
}

type Client struct {
	cfg    Config
	events chan Event

	mu            sync.Mutex
	conn          *websocket.Conn
	sessionToken  string
	participantId string
	roomId        string

	writeMu sync.Mutex
}

func New(cfg Config) *Client {
	if cfg.Policy == (Policy{}) {
		cfg.Policy = DefaultPolicy
	}
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Client{
		cfg:    cfg,
		events: make(chan Event, eventsBuffer),
	}
}

// Events delivers every event received from the server. The channel is
// closed when Run returns.
func (c *Client) Events() <-chan Event {
	return c.events
}

func (c *Client) ParticipantId() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.participantId
}

func (c *Client) RoomId() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomId
}

func (c *Client) SessionToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionToken
}

// Send writes a single event to the current connection.
func (c *Client) Send(eventType string, payload any) error {
	c.mu.Lock()
	conn := c.conn
	if eventType == "leave-room" {
		c.roomId = ""
	}
	c.mu.Unlock()

	if conn == nil {
		return ErrNotConnected
	}

	return c.write(conn, eventType, payload)
}

func (c *Client) write(conn *websocket.Conn, eventType string, payload any) error {
	if payload == nil {
		payload = struct{}{}
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := conn.WriteJSON(outgoing{Type: eventType, Payload: payload}); err != nil {
		return fmt.Errorf("failed to write %s: %w", eventType, err)
	}

	return nil
}

// Drop closes the current connection without ending Run, as a network
// failure would.
func (c *Client) Drop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close()
	}
}

// Run connects and keeps reconnecting until ctx is done, the retry policy is
// exhausted or the server ends the session for good.
func (c *Client) Run(ctx context.Context) error {
	defer close(c.events)

	for {
		conn, err := c.connect(ctx)
		if err != nil {
			return err
		}

		err = c.serve(ctx, conn)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		switch {
		case websocket.IsCloseError(err, closeKicked):
			return ErrKicked
		case websocket.IsCloseError(err, closeReplaced):
			return ErrReplaced
		case websocket.IsCloseError(err, closeNotAuthenticated):
			return ErrNotAuthenticated
		}

		c.cfg.Logger.InfoContext(ctx, "connection lost, reconnecting", "error", err)
	}
}

func (c *Client) connect(ctx context.Context) (*websocket.Conn, error) {
	var conn *websocket.Conn
	op := func() error {
		endpoint, err := c.endpoint()
		if err != nil {
			return backoff.Permanent(err)
		}

		ws, _, err := c.cfg.Dialer.DialContext(ctx, endpoint, nil)
		if err != nil {
			c.cfg.Logger.DebugContext(ctx, "dial failed", "error", err)
			return err
		}

		conn = ws
		return nil
	}

	if err := backoff.Retry(op, c.cfg.Policy.backOff(ctx)); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %w", ErrReconnectFailed, err)
	}

	return conn, nil
}

// endpoint carries the handshake: the session token once the server issued
// one, otherwise the credential or the guest profile.
func (c *Client) endpoint() (string, error) {
	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}

	query := u.Query()
	if token := c.SessionToken(); token != "" {
		query.Set("session", token)
	} else if c.cfg.Credential != "" {
		query.Set("token", c.cfg.Credential)
	} else {
		query.Set("username", c.cfg.Username)
		if c.cfg.AvatarUrl != "" {
			query.Set("avatar_url", c.cfg.AvatarUrl)
		}
	}
	u.RawQuery = query.Encode()

	return u.String(), nil
}

func (c *Client) serve(ctx context.Context, conn *websocket.Conn) error {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	stop := context.AfterFunc(ctx, func() {
		conn.Close()
	})
	defer func() {
		stop()
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			c.cfg.Logger.InfoContext(ctx, "invalid event from server", "error", err)
			continue
		}

		c.observe(ctx, conn, ev)

		select {
		case c.events <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// observe tracks the session and room from the event stream.
func (c *Client) observe(ctx context.Context, conn *websocket.Conn, ev Event) {
	switch ev.Type {
	case "session-established":
		var payload struct {
			ParticipantId string `json:"participantId"`
			SessionToken  string `json:"sessionToken"`
		}
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			return
		}

		c.mu.Lock()
		c.participantId = payload.ParticipantId
		c.sessionToken = payload.SessionToken
		roomId := c.roomId
		c.mu.Unlock()

		if roomId != "" {
			if err := c.write(conn, "rejoin-room", map[string]string{"roomId": roomId}); err != nil {
				c.cfg.Logger.InfoContext(ctx, "failed to rejoin room", "room_id", roomId, "error", err)
			}
		}
	case "room-joined":
		var snapshot Snapshot
		if err := json.Unmarshal(ev.Payload, &snapshot); err != nil {
			return
		}

		c.mu.Lock()
		c.roomId = snapshot.RoomId
		c.mu.Unlock()
	case "kicked":
		c.mu.Lock()
		c.roomId = ""
		c.mu.Unlock()
	case "error":
		var payload struct {
			Code string `json:"code"`
		}
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			return
		}

		// the room is gone, there is nothing to rejoin
		if payload.Code == "ROOM_NOT_FOUND" {
			c.mu.Lock()
			c.roomId = ""
			c.mu.Unlock()
		}
	}
}
