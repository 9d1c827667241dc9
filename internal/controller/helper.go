package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/sharetube/watchparty/internal/repository/connection"
	"github.com/sharetube/watchparty/internal/service/room"
)

// generateTimeBasedId returns a uuid v7, so ids sort by creation time.
func (c controller) generateTimeBasedId() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}

	return id.String()
}

func (c controller) writeJSON(ctx context.Context, w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		c.logger.InfoContext(ctx, "failed to write response", "error", err)
	}
}

func (c controller) writeToConn(ctx context.Context, conn connection.Conn, event *room.Event) error {
	msg, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := conn.Send(msg); err != nil {
		c.logger.DebugContext(ctx, "failed to write to conn", "conn_id", conn.Id(), "error", err)
		return fmt.Errorf("failed to send event: %w", err)
	}

	return nil
}

func (c controller) writeError(ctx context.Context, conn connection.Conn, err error) {
	if err := c.writeToConn(ctx, conn, &room.Event{
		Type:    room.EventError,
		Payload: toErrorPayload(err),
	}); err != nil {
		c.logger.InfoContext(ctx, "failed to write error", "error", err)
	}
}
