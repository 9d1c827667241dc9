package redis

import (
	"context"
	"time"

	"github.com/sharetube/watchparty/internal/repository/room"
)

func (r repo) getSessionKey(token string) string {
	return "session:" + token
}

func (r repo) SetSession(ctx context.Context, params *room.SetSessionParams) error {
	// the token is a bearer credential and stays out of logs
	r.logger.DebugContext(ctx, "called",
		"participant_id", params.Session.ParticipantId,
		"exp", params.Exp,
	)
	pipe := r.rc.TxPipeline()

	key := r.getSessionKey(params.Token)
	if err := r.HSetStruct(ctx, pipe, key, params.Session); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}
	pipe.PExpire(ctx, key, params.Exp)

	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}

func (r repo) GetSession(ctx context.Context, token string) (room.Session, error) {
	r.logger.DebugContext(ctx, "called")
	res := r.rc.HGetAll(ctx, r.getSessionKey(token))
	if err := res.Err(); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return room.Session{}, err
	}

	if len(res.Val()) == 0 {
		r.logger.DebugContext(ctx, "returned", "error", room.ErrSessionNotFound)
		return room.Session{}, room.ErrSessionNotFound
	}

	var session room.Session
	if err := res.Scan(&session); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return room.Session{}, err
	}

	return session, nil
}

// ExpireSession resets the session ttl.
func (r repo) ExpireSession(ctx context.Context, token string, exp time.Duration) error {
	r.logger.DebugContext(ctx, "called", "exp", exp)
	ok, err := r.rc.PExpire(ctx, r.getSessionKey(token), exp).Result()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	if !ok {
		r.logger.DebugContext(ctx, "returned", "error", room.ErrSessionNotFound)
		return room.ErrSessionNotFound
	}

	return nil
}
