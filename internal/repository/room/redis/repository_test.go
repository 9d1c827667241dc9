package redis

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sharetube/watchparty/internal/repository/room"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) (*repo, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{
		Addr: s.Addr(),
	})
	t.Cleanup(func() { rc.Close() })

	return NewRepo(rc, time.Hour, slog.Default()), s
}

func TestCreateRoom(t *testing.T) {
	r, s := newTestRepo(t)
	ctx := context.Background()

	params := room.CreateRoomParams{
		RoomId: "ABC123",
		Room: room.Room{
			ContentId:       "one-piece",
			EpisodeId:       "op-5",
			EpisodeNumber:   5,
			CreatedAt:       1700000000000,
			HostId:          "u1",
			Participants:    0,
			MaxParticipants: 10,
		},
	}
	require.NoError(t, r.CreateRoom(ctx, &params))
	assert.ErrorIs(t, r.CreateRoom(ctx, &params), room.ErrCodeTaken)
	assert.Equal(t, time.Hour, s.TTL("room:ABC123"))

	got, err := r.GetRoom(ctx, "ABC123")
	require.NoError(t, err)
	assert.Equal(t, params.Room, got)

	_, err = r.GetRoom(ctx, "ZZZ999")
	assert.ErrorIs(t, err, room.ErrRoomNotFound)
}

func TestUpdateRoom(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()

	err := r.UpdateRoom(ctx, &room.UpdateRoomParams{RoomId: "ABC123", HostId: "u2", Participants: 3})
	assert.ErrorIs(t, err, room.ErrRoomNotFound)
	assert.ErrorIs(t, r.RefreshRoom(ctx, "ABC123"), room.ErrRoomNotFound)

	require.NoError(t, r.CreateRoom(ctx, &room.CreateRoomParams{
		RoomId: "ABC123",
		Room:   room.Room{ContentId: "c", HostId: "u1", MaxParticipants: 10},
	}))
	require.NoError(t, r.UpdateRoom(ctx, &room.UpdateRoomParams{RoomId: "ABC123", HostId: "u2", Participants: 3}))
	require.NoError(t, r.RefreshRoom(ctx, "ABC123"))

	got, err := r.GetRoom(ctx, "ABC123")
	require.NoError(t, err)
	assert.Equal(t, "u2", got.HostId)
	assert.Equal(t, 3, got.Participants)
	assert.Equal(t, "c", got.ContentId)

	require.NoError(t, r.RemoveRoom(ctx, "ABC123"))
	_, err = r.GetRoom(ctx, "ABC123")
	assert.ErrorIs(t, err, room.ErrRoomNotFound)
}

func TestSession(t *testing.T) {
	r, s := newTestRepo(t)
	ctx := context.Background()

	session := room.Session{
		ParticipantId: "guest-1",
		Name:          "Mika",
		IsGuest:       true,
	}
	require.NoError(t, r.SetSession(ctx, &room.SetSessionParams{
		Token:   "tok",
		Session: session,
		Exp:     time.Minute,
	}))

	got, err := r.GetSession(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, session, got)

	require.NoError(t, r.ExpireSession(ctx, "tok", 30*time.Second))
	assert.Equal(t, 30*time.Second, s.TTL("session:tok"))

	s.FastForward(31 * time.Second)
	_, err = r.GetSession(ctx, "tok")
	assert.ErrorIs(t, err, room.ErrSessionNotFound)
	assert.ErrorIs(t, r.ExpireSession(ctx, "tok", time.Minute), room.ErrSessionNotFound)
}

func TestSetSessionKeepsTokenOutOfLogs(t *testing.T) {
	s := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{
		Addr: s.Addr(),
	})
	t.Cleanup(func() { rc.Close() })

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	r := NewRepo(rc, time.Hour, logger)

	require.NoError(t, r.SetSession(context.Background(), &room.SetSessionParams{
		Token:   "secret-token-value",
		Session: room.Session{ParticipantId: "guest-7", Name: "Mika", IsGuest: true},
		Exp:     time.Minute,
	}))

	assert.Contains(t, buf.String(), "participant_id=guest-7")
	assert.NotContains(t, buf.String(), "secret-token-value")
}
