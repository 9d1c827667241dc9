package inmemory

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/sharetube/watchparty/internal/repository/connection"
)

type repo struct {
	conns  map[string]connection.Conn
	mu     sync.RWMutex
	logger *slog.Logger
}

func NewRepo(logger *slog.Logger) *repo {
	return &repo{
		conns:  make(map[string]connection.Conn),
		logger: logger,
	}
}

// Add binds conn to memberId and returns the connection it replaced, if any.
func (r *repo) Add(ctx context.Context, memberId string, conn connection.Conn) connection.Conn {
	r.logger.DebugContext(ctx, "called", "member_id", memberId, "conn_id", conn.Id())
	r.mu.Lock()
	defer r.mu.Unlock()

	replaced := r.conns[memberId]
	r.conns[memberId] = conn

	return replaced
}

// Remove unbinds memberId only if connId is still the bound connection.
func (r *repo) Remove(ctx context.Context, memberId, connId string) error {
	r.logger.DebugContext(ctx, "called", "member_id", memberId, "conn_id", connId)
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[memberId]
	if !ok || conn.Id() != connId {
		r.logger.DebugContext(ctx, "returned", "error", connection.ErrNotFound)
		return connection.ErrNotFound
	}

	delete(r.conns, memberId)
	return nil
}

func (r *repo) Get(ctx context.Context, memberId string) (connection.Conn, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.conns[memberId]
	if !ok {
		r.logger.DebugContext(ctx, "returned", "member_id", memberId, "error", connection.ErrNotFound)
		return nil, connection.ErrNotFound
	}

	return conn, nil
}

// Send queues msg for every listed member that has a live connection.
// Members without one are skipped. A connection whose queue is full is
// closed and its error reported.
func (r *repo) Send(ctx context.Context, memberIds []string, msg []byte) error {
	r.mu.RLock()
	conns := make([]connection.Conn, 0, len(memberIds))
	for _, memberId := range memberIds {
		if conn, ok := r.conns[memberId]; ok {
			conns = append(conns, conn)
		}
	}
	r.mu.RUnlock()

	var errs []error
	for _, conn := range conns {
		err := conn.Send(msg)
		if err == nil {
			continue
		}

		if errors.Is(err, connection.ErrBackpressure) {
			r.logger.WarnContext(ctx, "closing slow connection", "conn_id", conn.Id())
			conn.Close(connection.CloseBackpressure, "backpressure")
		}

		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func (r *repo) Close(ctx context.Context, memberId string, code int, reason string) error {
	r.logger.DebugContext(ctx, "called", "member_id", memberId, "code", code, "reason", reason)
	conn, err := r.Get(ctx, memberId)
	if err != nil {
		return err
	}

	conn.Close(code, reason)
	return nil
}

func (r *repo) CloseAll(ctx context.Context, code int, reason string) {
	r.mu.RLock()
	conns := make([]connection.Conn, 0, len(r.conns))
	for _, conn := range r.conns {
		conns = append(conns, conn)
	}
	r.mu.RUnlock()

	r.logger.InfoContext(ctx, "closing connections", "count", len(conns))
	for _, conn := range conns {
		conn.Close(code, reason)
	}
}
