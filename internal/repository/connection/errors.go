package connection

import "errors"

var (
	ErrNotFound     = errors.New("connection not found")
	ErrBackpressure = errors.New("connection send queue is full")
	ErrClosed       = errors.New("connection closed")
)
