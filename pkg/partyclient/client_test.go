package partyclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastPolicy = Policy{
	MaxAttempts:     3,
	InitialInterval: time.Millisecond,
	MaxInterval:     5 * time.Millisecond,
	Multiplier:      2,
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func drain(c *Client) {
	go func() {
		for range c.Events() {
		}
	}()
}

func TestClientRejoinsAfterDrop(t *testing.T) {
	upgrader := websocket.Upgrader{}
	queries := make(chan url.Values, 2)
	rejoin := make(chan Event, 1)
	var connections atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		queries <- r.URL.Query()

		ws.WriteJSON(outgoing{Type: "session-established", Payload: map[string]string{
			"participantId": "guest-1",
			"sessionToken":  "tok",
		}})

		if connections.Add(1) == 1 {
			ws.WriteJSON(outgoing{Type: "room-joined", Payload: Snapshot{RoomId: "ABC123"}})
			// give the client time to read before the socket dies
			time.Sleep(50 * time.Millisecond)
			return
		}

		var ev Event
		if err := ws.ReadJSON(&ev); err == nil {
			rejoin <- ev
		}

		ws.WriteJSON(outgoing{Type: "kicked", Payload: map[string]string{"reason": "bye"}})
		ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(closeKicked, "kicked"))
		time.Sleep(50 * time.Millisecond)
	}))
	defer srv.Close()

	c := New(Config{URL: wsURL(srv), Username: "alice", Policy: fastPolicy})
	drain(c)

	err := c.Run(context.Background())
	require.ErrorIs(t, err, ErrKicked)

	first := <-queries
	assert.Equal(t, "alice", first.Get("username"))
	assert.Empty(t, first.Get("session"))

	second := <-queries
	assert.Equal(t, "tok", second.Get("session"))

	ev := <-rejoin
	assert.Equal(t, "rejoin-room", ev.Type)
	assert.JSONEq(t, `{"roomId":"ABC123"}`, string(ev.Payload))

	assert.Equal(t, "guest-1", c.ParticipantId())
	assert.Empty(t, c.RoomId())
}

func TestClientNotAuthenticated(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()

		ws.WriteJSON(outgoing{Type: "error", Payload: map[string]string{"code": "NOT_AUTHENTICATED"}})
		ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(closeNotAuthenticated, "not authenticated"))
		time.Sleep(50 * time.Millisecond)
	}))
	defer srv.Close()

	c := New(Config{URL: wsURL(srv), Credential: "bad", Policy: fastPolicy})

	var events []Event
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range c.Events() {
			events = append(events, ev)
		}
	}()

	err := c.Run(context.Background())
	require.ErrorIs(t, err, ErrNotAuthenticated)

	<-done
	require.Len(t, events, 1)
	assert.Equal(t, "error", events[0].Type)
}

func TestClientGivesUp(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := wsURL(srv)
	srv.Close()

	c := New(Config{URL: endpoint, Username: "alice", Policy: fastPolicy})
	drain(c)

	err := c.Run(context.Background())
	assert.ErrorIs(t, err, ErrReconnectFailed)
}

func TestClientStopsOnContext(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()

		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	c := New(Config{URL: wsURL(srv), Username: "alice", Policy: fastPolicy})
	drain(c)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- c.Run(ctx) }()

	require.Eventually(t, func() bool {
		return c.Send("alive", nil) == nil
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
}

func TestSendWithoutConnection(t *testing.T) {
	c := New(Config{URL: "ws://localhost:1"})
	assert.ErrorIs(t, c.Send("alive", nil), ErrNotConnected)
}
