package room

import (
	"errors"
	"fmt"
)

var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrRoomFull         = errors.New("room is full")
	ErrForbidden        = errors.New("forbidden")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrInvalidPayload   = errors.New("invalid payload")
	ErrInternal         = errors.New("internal error")

	ErrRateLimited = fmt.Errorf("%w: rate limited", ErrInvalidPayload)
	ErrNotInRoom   = fmt.Errorf("%w: not in a room", ErrRoomNotFound)
)
