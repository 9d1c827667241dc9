package controller

import (
	"context"

	"github.com/sharetube/watchparty/pkg/wsrouter"
)

func (c controller) getWSRouter() *wsrouter.WSRouter[*client] {
	mux := wsrouter.New[*client]()
	mux.Use(c.wsRequestIdMw(), c.wsLoggerMw())
	mux.SetValidator(c.validateInput)
	mux.OnError(func(ctx context.Context, conn *client, err error) {
		c.writeError(ctx, conn, err)
	})

	wsrouter.Handle(mux, "alive", c.handleAlive)

	// membership
	wsrouter.Handle(mux, "join-room", c.handleJoinRoom)
	wsrouter.Handle(mux, "rejoin-room", c.handleRejoinRoom)
	wsrouter.Handle(mux, "leave-room", c.handleLeaveRoom)
	wsrouter.Handle(mux, "toggle-ready", c.handleToggleReady)
	wsrouter.Handle(mux, "transfer-host", c.handleTransferHost)
	wsrouter.Handle(mux, "kick-participant", c.handleKickParticipant)

	// player
	wsrouter.Handle(mux, "video-state-change", c.handleVideoStateChange)
	wsrouter.Handle(mux, "video-seek", c.handleVideoSeek)

	// chat
	wsrouter.Handle(mux, "send-message", c.handleSendMessage)
	wsrouter.Handle(mux, "delete-message", c.handleDeleteMessage)
	wsrouter.Handle(mux, "load-more-messages", c.handleLoadMoreMessages)
	wsrouter.Handle(mux, "send-reaction", c.handleSendReaction)

	return mux
}
