package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (c controller) getRoom(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	roomId := chi.URLParam(r, "room-id")

	info, err := c.roomService.LookupRoom(ctx, roomId)
	if err != nil {
		payload := toErrorPayload(err)
		if payload.Code == codeInternal {
			c.logger.ErrorContext(ctx, "failed to look up room", "room_id", roomId, "error", err)
		}

		c.writeJSON(ctx, w, httpStatus(payload.Code), payload)
		return
	}

	c.writeJSON(ctx, w, http.StatusOK, info)
}
