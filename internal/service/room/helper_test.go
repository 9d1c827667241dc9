package room

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sharetube/watchparty/internal/repository/connection"
	"github.com/sharetube/watchparty/internal/repository/connection/inmemory"
	roomRedis "github.com/sharetube/watchparty/internal/repository/room/redis"
	"github.com/stretchr/testify/require"
)

type received struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// recorder is a connection that keeps everything sent to it.
type recorder struct {
	id string

	mu        sync.Mutex
	events    []received
	closeCode int
}

func newRecorder() *recorder {
	return &recorder{id: uuid.NewString()}
}

func (r *recorder) Id() string { return r.id }

func (r *recorder) Send(msg []byte) error {
	var ev received
	if err := json.Unmarshal(msg, &ev); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closeCode != 0 {
		return connection.ErrClosed
	}
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) Close(code int, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closeCode == 0 {
		r.closeCode = code
	}
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	types := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		types = append(types, ev.Type)
	}
	return types
}

func (r *recorder) last() received {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.events) == 0 {
		return received{}
	}
	return r.events[len(r.events)-1]
}

func (r *recorder) code() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closeCode
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

// sequenceGenerator hands out codes in order and then repeats the last one.
type sequenceGenerator struct {
	mu    sync.Mutex
	codes []string
}

func (g *sequenceGenerator) GenerateRandomString(int) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	code := g.codes[0]
	if len(g.codes) > 1 {
		g.codes = g.codes[1:]
	}
	return code
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testConfig() *Config {
	return &Config{
		MembersLimit:  10,
		GraceWindow:   30 * time.Second,
		ChatPageSize:  50,
		ChatRetention: 200,
		ChatRateLimit: 5,
		ChatRateBurst: 10,
		Secret:        "test-secret",
		SessionExp:    time.Hour,
	}
}

func newTestService(t *testing.T, cfg *Config) (*service, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{
		Addr: s.Addr(),
	})
	t.Cleanup(func() { rc.Close() })

	roomRepo := roomRedis.NewRepo(rc, time.Hour, slog.Default())
	connRepo := inmemory.NewRepo(slog.Default())
	svc := NewService(roomRepo, connRepo, cfg, slog.Default())
	t.Cleanup(func() { svc.Close(context.Background()) })

	return svc, s
}

type testClient struct {
	identity Identity
	token    string
	conn     *recorder
}

// connectGuest authenticates a guest and binds a fresh connection to it.
func connectGuest(t *testing.T, svc *service, name string) *testClient {
	t.Helper()
	ctx := context.Background()

	authResp, err := svc.Authenticate(ctx, &AuthenticateParams{Username: name})
	require.NoError(t, err)

	conn := newRecorder()
	require.NoError(t, svc.ConnectMember(ctx, &ConnectMemberParams{
		Identity:     authResp.Identity,
		SessionToken: authResp.SessionToken,
		Conn:         conn,
	}))

	return &testClient{
		identity: authResp.Identity,
		token:    authResp.SessionToken,
		conn:     conn,
	}
}

func (c *testClient) id() string {
	return c.identity.Id
}
