package room

import "errors"

var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrCodeTaken       = errors.New("room code already taken")
	ErrSessionNotFound = errors.New("session not found")
)
