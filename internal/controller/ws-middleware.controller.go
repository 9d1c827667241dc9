package controller

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/sharetube/watchparty/pkg/ctxlogger"
	"github.com/sharetube/watchparty/pkg/wsrouter"
)

func (c controller) wsRequestIdMw() wsrouter.Middleware[*client] {
	return func(next wsrouter.HandlerFunc[*client, json.RawMessage]) wsrouter.HandlerFunc[*client, json.RawMessage] {
		return func(ctx context.Context, conn *client, payload json.RawMessage) error {
			ctx = ctxlogger.AppendCtx(ctx, slog.String("ws_request_id", c.generateTimeBasedId()))
			return next(ctx, conn, payload)
		}
	}
}

func (c controller) wsLoggerMw() wsrouter.Middleware[*client] {
	return func(next wsrouter.HandlerFunc[*client, json.RawMessage]) wsrouter.HandlerFunc[*client, json.RawMessage] {
		return func(ctx context.Context, conn *client, payload json.RawMessage) error {
			ctx = ctxlogger.AppendCtx(ctx, slog.String("message_type", wsrouter.GetMessageTypeFromCtx(ctx)))
			c.logger.DebugContext(ctx, "websocket message received", "payload", payload)

			start := time.Now()
			err := next(ctx, conn, payload)

			c.logger.InfoContext(ctx, "websocket message handled",
				"processing_time_us", time.Since(start).Microseconds(),
				"error", err,
			)

			return err
		}
	}
}
