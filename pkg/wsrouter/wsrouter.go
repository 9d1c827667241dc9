package wsrouter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrInvalidMessage     = errors.New("invalid message")
	ErrInvalidPayload     = errors.New("invalid payload")
	ErrUnknownMessageType = errors.New("unknown message type")
)

// Conn is anything a message can be read from.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
}

type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type HandlerFunc[C Conn, T any] func(ctx context.Context, conn C, payload T) error

type Middleware[C Conn] func(next HandlerFunc[C, json.RawMessage]) HandlerFunc[C, json.RawMessage]

type ErrorHandler[C Conn] func(ctx context.Context, conn C, err error)

type WSRouter[C Conn] struct {
	routes       map[string]HandlerFunc[C, json.RawMessage]
	middlewares  []Middleware[C]
	errorHandler ErrorHandler[C]
	validate     func(any) error
}

func New[C Conn]() *WSRouter[C] {
	return &WSRouter[C]{
		routes:       make(map[string]HandlerFunc[C, json.RawMessage]),
		errorHandler: func(context.Context, C, error) {},
	}
}

func (r *WSRouter[C]) Use(middlewares ...Middleware[C]) {
	r.middlewares = append(r.middlewares, middlewares...)
}

func (r *WSRouter[C]) OnError(handler ErrorHandler[C]) {
	r.errorHandler = handler
}

// SetValidator registers a check that runs on every decoded payload.
func (r *WSRouter[C]) SetValidator(validate func(any) error) {
	r.validate = validate
}

// Handle registers a typed handler. The payload is decoded into T before the
// handler runs; an absent or null payload leaves T at its zero value.
func Handle[C Conn, T any](r *WSRouter[C], messageType string, handler HandlerFunc[C, T]) {
	r.routes[messageType] = func(ctx context.Context, conn C, payload json.RawMessage) error {
		var input T
		if len(payload) > 0 && string(payload) != "null" {
			if err := json.Unmarshal(payload, &input); err != nil {
				return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
			}
		}

		if r.validate != nil {
			if err := r.validate(input); err != nil {
				return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
			}
		}

		return handler(ctx, conn, input)
	}
}

// Dispatch routes a single raw message. Errors go to the error handler.
func (r *WSRouter[C]) Dispatch(ctx context.Context, conn C, data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		r.errorHandler(ctx, conn, fmt.Errorf("%w: %w", ErrInvalidMessage, err))
		return
	}

	ctx = context.WithValue(ctx, messageTypeKey, msg.Type)

	handler, ok := r.routes[msg.Type]
	if !ok {
		r.errorHandler(ctx, conn, fmt.Errorf("%w: %q", ErrUnknownMessageType, msg.Type))
		return
	}

	for i := len(r.middlewares) - 1; i >= 0; i-- {
		handler = r.middlewares[i](handler)
	}

	if err := handler(ctx, conn, msg.Payload); err != nil {
		r.errorHandler(ctx, conn, err)
	}
}

// ServeConn reads messages until the connection fails and returns that error.
func (r *WSRouter[C]) ServeConn(ctx context.Context, conn C) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		r.Dispatch(ctx, conn, data)
	}
}
