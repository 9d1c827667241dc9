package controller

import (
	"errors"
	"net/http"

	"github.com/sharetube/watchparty/internal/service/room"
	"github.com/sharetube/watchparty/pkg/wsrouter"
)

const (
	codeRoomNotFound     = "ROOM_NOT_FOUND"
	codeRoomFull         = "ROOM_FULL"
	codeForbidden        = "FORBIDDEN"
	codeNotAuthenticated = "NOT_AUTHENTICATED"
	codeInvalidPayload   = "INVALID_PAYLOAD"
	codeInternal         = "INTERNAL"
)

type ErrorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, room.ErrRoomNotFound):
		return codeRoomNotFound
	case errors.Is(err, room.ErrRoomFull):
		return codeRoomFull
	case errors.Is(err, room.ErrForbidden):
		return codeForbidden
	case errors.Is(err, room.ErrNotAuthenticated):
		return codeNotAuthenticated
	case errors.Is(err, room.ErrInvalidPayload),
		errors.Is(err, wsrouter.ErrInvalidMessage),
		errors.Is(err, wsrouter.ErrInvalidPayload),
		errors.Is(err, wsrouter.ErrUnknownMessageType):
		return codeInvalidPayload
	default:
		return codeInternal
	}
}

// toErrorPayload hides the details of internal failures from clients.
func toErrorPayload(err error) ErrorPayload {
	code := errorCode(err)
	if code == codeInternal {
		return ErrorPayload{Message: "internal error", Code: code}
	}

	return ErrorPayload{Message: err.Error(), Code: code}
}

func httpStatus(code string) int {
	switch code {
	case codeRoomNotFound:
		return http.StatusNotFound
	case codeInvalidPayload:
		return http.StatusBadRequest
	case codeForbidden:
		return http.StatusForbidden
	case codeNotAuthenticated:
		return http.StatusUnauthorized
	case codeRoomFull:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
