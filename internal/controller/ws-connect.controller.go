package controller

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sharetube/watchparty/internal/repository/connection"
	"github.com/sharetube/watchparty/internal/service/room"
	"github.com/sharetube/watchparty/pkg/ctxlogger"
)

// connect upgrades the request, authenticates the handshake carried in the
// query string and serves the connection until it drops.
func (c controller) connect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ws, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.InfoContext(ctx, "failed to upgrade connection", "error", err)
		return
	}

	conn := newWSConn(uuid.NewString(), ws)
	go conn.writePump()
	defer conn.wait()

	ctx = ctxlogger.AppendCtx(ctx, slog.String("conn_id", conn.Id()))

	query := r.URL.Query()
	authResp, err := c.roomService.Authenticate(ctx, &room.AuthenticateParams{
		SessionToken: query.Get("session"),
		Credential:   query.Get("token"),
		Username:     query.Get("username"),
		AvatarUrl:    query.Get("avatar_url"),
	})
	if err != nil {
		c.logger.InfoContext(ctx, "handshake rejected", "error", err)
		c.writeError(ctx, conn, err)
		conn.Close(connection.CloseNotAuthenticated, "not authenticated")
		conn.readStopped()
		return
	}

	ctx = ctxlogger.AppendCtx(ctx, slog.String("participant_id", authResp.Identity.Id))

	cl := &client{
		wsConn:       conn,
		identity:     authResp.Identity,
		sessionToken: authResp.SessionToken,
	}

	if err := c.roomService.ConnectMember(ctx, &room.ConnectMemberParams{
		Identity:     cl.identity,
		SessionToken: cl.sessionToken,
		Conn:         conn,
	}); err != nil {
		c.logger.ErrorContext(ctx, "failed to connect member", "error", err)
		c.writeError(ctx, conn, err)
		conn.Close(websocket.CloseInternalServerErr, "internal error")
		conn.readStopped()
		return
	}
	c.logger.InfoContext(ctx, "member connected")

	err = c.wsRouter.ServeConn(ctx, cl)
	conn.readStopped()
	conn.Close(websocket.CloseNormalClosure, "")
	c.logger.InfoContext(ctx, "member disconnected", "reason", err)

	if err := c.roomService.DisconnectMember(context.WithoutCancel(ctx), &room.DisconnectMemberParams{
		MemberId:     cl.identity.Id,
		ConnId:       conn.Id(),
		SessionToken: cl.sessionToken,
	}); err != nil {
		c.logger.ErrorContext(ctx, "failed to disconnect member", "error", err)
	}
}
