package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/sharetube/watchparty/pkg/partyclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func testAppConfig() *AppConfig {
	return &AppConfig{
		Secret:        "test-secret",
		LogLevel:      "debug",
		MembersLimit:  10,
		GraceWindow:   30 * time.Second,
		ChatPageSize:  50,
		ChatRetention: 200,
	}
}

func startServer(t *testing.T) *httptest.Server {
	t.Helper()
	s := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{
		Addr: s.Addr(),
	})
	t.Cleanup(func() { rc.Close() })

	service, handler := build(rc, testAppConfig(), slog.Default())
	srv := httptest.NewServer(handler)
	t.Cleanup(func() {
		service.Close(context.Background())
		srv.Close()
	})

	return srv
}

func wsEndpoint(srv *httptest.Server, query url.Values) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws?" + query.Encode()
}

func dial(t *testing.T, srv *httptest.Server, query url.Values) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsEndpoint(srv, query), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func guest(t *testing.T, srv *httptest.Server, name string) *websocket.Conn {
	t.Helper()
	conn := dial(t, srv, url.Values{"username": {name}})
	expect(t, conn, "session-established")
	return conn
}

func send(t *testing.T, conn *websocket.Conn, eventType string, payload any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]any{"type": eventType, "payload": payload}))
}

// expect reads until an event of the given type arrives.
func expect(t *testing.T, conn *websocket.Conn, eventType string) event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	for {
		var ev event
		require.NoError(t, conn.ReadJSON(&ev), "waiting for %s", eventType)
		if ev.Type == eventType {
			return ev
		}
	}
}

func payloadOf[T any](t *testing.T, ev event) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(ev.Payload, &v))
	return v
}

type snapshot struct {
	RoomId        string `json:"roomId"`
	HostId        string `json:"hostId"`
	IsHost        bool   `json:"isHost"`
	PlaybackState struct {
		IsPlaying   bool    `json:"isPlaying"`
		CurrentTime float64 `json:"currentTime"`
	} `json:"playbackState"`
}

type errorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

func TestHealthz(t *testing.T) {
	srv := startServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestWatchParty(t *testing.T) {
	srv := startServer(t)

	host := guest(t, srv, "H")
	send(t, host, "join-room", map[string]any{"contentId": "show", "episodeId": "show-5", "episodeNumber": 5})
	hostSnap := payloadOf[snapshot](t, expect(t, host, "room-joined"))
	require.Len(t, hostSnap.RoomId, 6)
	assert.True(t, hostSnap.IsHost)

	f1 := guest(t, srv, "F1")
	send(t, f1, "join-room", map[string]any{"roomId": strings.ToLower(hostSnap.RoomId)})
	f1Snap := payloadOf[snapshot](t, expect(t, f1, "room-joined"))
	assert.False(t, f1Snap.PlaybackState.IsPlaying)
	assert.Zero(t, f1Snap.PlaybackState.CurrentTime)

	f2 := guest(t, srv, "F2")
	send(t, f2, "join-room", map[string]any{"roomId": hostSnap.RoomId})
	expect(t, f2, "room-joined")

	send(t, host, "video-state-change", map[string]any{"isPlaying": true, "currentTime": 12.4})
	expect(t, f1, "video-state-update")
	expect(t, f2, "video-state-update")

	// a follower cannot drive playback and is not told off for trying
	send(t, f2, "video-seek", map[string]any{"currentTime": 99})
	send(t, f2, "alive", nil)

	host.Close()

	expect(t, f1, "became-host")
	transferred := payloadOf[struct {
		NewHostId string `json:"newHostId"`
	}](t, expect(t, f2, "host-transferred"))
	assert.NotEmpty(t, transferred.NewHostId)

	type roomInfo struct {
		HostId        string `json:"hostId"`
		Participants  int    `json:"participants"`
		EpisodeNumber int    `json:"episodeNumber"`
	}

	// the directory is written after the events go out
	var info roomInfo
	require.Eventually(t, func() bool {
		var ok bool
		info, ok = lookup[roomInfo](srv, hostSnap.RoomId)
		return ok && info.HostId == transferred.NewHostId
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 3, info.Participants)
	assert.Equal(t, 5, info.EpisodeNumber)
}

// lookup is safe to call from Eventually: it reports failure instead of
// failing the test.
func lookup[T any](srv *httptest.Server, roomId string) (T, bool) {
	var v T
	resp, err := http.Get(srv.URL + "/api/v1/rooms/" + roomId)
	if err != nil {
		return v, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return v, false
	}

	return v, json.NewDecoder(resp.Body).Decode(&v) == nil
}

func TestVideoStateUpdatePayload(t *testing.T) {
	srv := startServer(t)

	host := guest(t, srv, "H")
	send(t, host, "join-room", map[string]any{"contentId": "show"})
	roomId := payloadOf[snapshot](t, expect(t, host, "room-joined")).RoomId

	f := guest(t, srv, "F")
	send(t, f, "join-room", map[string]any{"roomId": roomId})
	expect(t, f, "room-joined")

	send(t, host, "video-state-change", map[string]any{"isPlaying": true, "currentTime": 12.4})
	state := payloadOf[struct {
		IsPlaying   bool    `json:"isPlaying"`
		CurrentTime float64 `json:"currentTime"`
	}](t, expect(t, f, "video-state-update"))
	assert.True(t, state.IsPlaying)
	assert.Equal(t, 12.4, state.CurrentTime)
}

func TestErrors(t *testing.T) {
	srv := startServer(t)
	conn := guest(t, srv, "X")

	cases := []struct {
		name    string
		typ     string
		payload any
		code    string
	}{
		{"unknown room", "join-room", map[string]any{"roomId": "ZZZZZZ"}, "ROOM_NOT_FOUND"},
		{"malformed room", "join-room", map[string]any{"roomId": "abc"}, "INVALID_PAYLOAD"},
		{"missing fields", "video-state-change", map[string]any{"isPlaying": true}, "INVALID_PAYLOAD"},
		{"unknown type", "dance", nil, "INVALID_PAYLOAD"},
		{"not in a room", "toggle-ready", nil, "ROOM_NOT_FOUND"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			send(t, conn, tc.typ, tc.payload)
			payload := payloadOf[errorPayload](t, expect(t, conn, "error"))
			assert.Equal(t, tc.code, payload.Code)
			assert.NotEmpty(t, payload.Message)
		})
	}
}

func TestHandshakeRejected(t *testing.T) {
	srv := startServer(t)

	for name, query := range map[string]url.Values{
		"bad credential":  {"token": {"not-a-jwt"}},
		"unknown session": {"session": {"nope"}},
		"guest no name":   {},
	} {
		t.Run(name, func(t *testing.T) {
			conn := dial(t, srv, query)

			payload := payloadOf[errorPayload](t, expect(t, conn, "error"))
			assert.Equal(t, "NOT_AUTHENTICATED", payload.Code)

			_, _, err := conn.ReadMessage()
			assert.True(t, websocket.IsCloseError(err, 4003), "got %v", err)
		})
	}
}

func TestLookupUnknownRoom(t *testing.T) {
	srv := startServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/rooms/QQQQQQ")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var payload errorPayload
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, "ROOM_NOT_FOUND", payload.Code)

	resp2, err := http.Get(srv.URL + "/api/v1/rooms/no")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp2.StatusCode)
}

func TestKick(t *testing.T) {
	srv := startServer(t)

	host := guest(t, srv, "H")
	send(t, host, "join-room", map[string]any{"contentId": "show"})
	roomId := payloadOf[snapshot](t, expect(t, host, "room-joined")).RoomId

	f := dial(t, srv, url.Values{"username": {"F"}})
	fId := payloadOf[struct {
		ParticipantId string `json:"participantId"`
	}](t, expect(t, f, "session-established")).ParticipantId
	send(t, f, "join-room", map[string]any{"roomId": roomId})
	expect(t, f, "room-joined")

	send(t, host, "kick-participant", map[string]any{"userId": fId, "reason": "spoilers"})

	kicked := payloadOf[struct {
		Reason string `json:"reason"`
	}](t, expect(t, f, "kicked"))
	assert.Equal(t, "spoilers", kicked.Reason)

	_, _, err := f.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, 4001), "got %v", err)

	expect(t, host, "participant-kicked")
}

func TestClientReconnectsIntoRoom(t *testing.T) {
	srv := startServer(t)

	host := guest(t, srv, "H")
	send(t, host, "join-room", map[string]any{"contentId": "show"})
	roomId := payloadOf[snapshot](t, expect(t, host, "room-joined")).RoomId

	c := partyclient.New(partyclient.Config{
		URL:      "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws",
		Username: "F",
		Policy: partyclient.Policy{
			MaxAttempts:     3,
			InitialInterval: 10 * time.Millisecond,
			MaxInterval:     50 * time.Millisecond,
			Multiplier:      2,
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	joined := 0
	follower := partyclient.NewFollower()
	timeout := time.After(3 * time.Second)
	for joined < 2 {
		select {
		case ev := <-c.Events():
			switch ev.Type {
			case "session-established":
				if joined == 0 {
					require.NoError(t, c.Send("join-room", map[string]any{"roomId": roomId}))
				}
			case "room-joined":
				joined++
				_, err := follower.ApplyEvent(ev, time.Now())
				require.NoError(t, err)
				if joined == 1 {
					c.Drop()
				}
			}
		case <-timeout:
			t.Fatalf("rejoin did not happen, joined %d times", joined)
		}
	}

	assert.Equal(t, roomId, c.RoomId())
	assert.False(t, follower.State().IsPlaying)

	type roomInfo struct {
		Participants int `json:"participants"`
	}
	require.Eventually(t, func() bool {
		info, ok := lookup[roomInfo](srv, roomId)
		return ok && info.Participants == 2
	}, 2*time.Second, 10*time.Millisecond)
}
