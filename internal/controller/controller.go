package controller

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/sharetube/watchparty/internal/service/room"
	"github.com/sharetube/watchparty/pkg/validator"
	"github.com/sharetube/watchparty/pkg/wsrouter"
)

type iRoomService interface {
	Authenticate(context.Context, *room.AuthenticateParams) (room.AuthenticateResponse, error)
	ConnectMember(context.Context, *room.ConnectMemberParams) error
	DisconnectMember(context.Context, *room.DisconnectMemberParams) error
	JoinRoom(context.Context, *room.JoinRoomParams) (room.JoinRoomResponse, error)
	RejoinRoom(context.Context, *room.RejoinRoomParams) (room.JoinRoomResponse, error)
	LeaveRoom(context.Context, *room.LeaveRoomParams) error
	ToggleReady(context.Context, *room.ToggleReadyParams) (room.ToggleReadyResponse, error)
	TransferHost(context.Context, *room.TransferHostParams) error
	KickParticipant(context.Context, *room.KickParticipantParams) error
	UpdatePlayerState(context.Context, *room.UpdatePlayerStateParams) (room.UpdatePlayerResponse, error)
	SeekPlayer(context.Context, *room.SeekPlayerParams) (room.UpdatePlayerResponse, error)
	SendMessage(context.Context, *room.SendMessageParams) (room.SendMessageResponse, error)
	DeleteMessage(context.Context, *room.DeleteMessageParams) error
	LoadMoreMessages(context.Context, *room.LoadMoreMessagesParams) (room.LoadMoreMessagesResponse, error)
	SendReaction(context.Context, *room.SendReactionParams) error
	LookupRoom(context.Context, string) (room.RoomInfo, error)
}

type controller struct {
	roomService iRoomService
	upgrader    websocket.Upgrader
	validate    *validator.Validator
	wsRouter    *wsrouter.WSRouter[*client]
	logger      *slog.Logger
}

func NewController(roomService iRoomService, logger *slog.Logger) *controller {
	c := &controller{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		roomService: roomService,
		validate:    validator.NewValidator(),
		logger:      logger,
	}
	c.wsRouter = c.getWSRouter()

	return c
}

// validateInput adapts the struct validator to the router.
func (c controller) validateInput(input any) error {
	validationErrors, ok := c.validate.Validate(input)
	if ok {
		return nil
	}

	errs := make([]error, 0, len(validationErrors))
	for _, ve := range validationErrors {
		errs = append(errs, ve)
	}

	return errors.Join(errs...)
}
