package controller

import (
	"context"
	"fmt"

	"github.com/sharetube/watchparty/internal/service/room"
)

type EmptyInput struct{}

func (c controller) handleAlive(_ context.Context, _ *client, _ EmptyInput) error {
	return nil
}

type JoinRoomInput struct {
	RoomId        string `json:"roomId" validate:"omitempty,len=6,alphanum"`
	ContentId     string `json:"contentId" validate:"required_without=RoomId,max=64"`
	EpisodeId     string `json:"episodeId" validate:"max=64"`
	EpisodeNumber int    `json:"episodeNumber" validate:"gte=0"`
	AsHost        bool   `json:"asHost"`
}

func (c controller) handleJoinRoom(ctx context.Context, conn *client, input JoinRoomInput) error {
	if _, err := c.roomService.JoinRoom(ctx, &room.JoinRoomParams{
		Identity:      conn.identity,
		ConnId:        conn.Id(),
		RoomId:        input.RoomId,
		ContentId:     input.ContentId,
		EpisodeId:     input.EpisodeId,
		EpisodeNumber: input.EpisodeNumber,
		AsHost:        input.AsHost,
	}); err != nil {
		return fmt.Errorf("failed to join room: %w", err)
	}

	return nil
}

type RejoinRoomInput struct {
	RoomId string `json:"roomId" validate:"required,len=6,alphanum"`
}

func (c controller) handleRejoinRoom(ctx context.Context, conn *client, input RejoinRoomInput) error {
	if _, err := c.roomService.RejoinRoom(ctx, &room.RejoinRoomParams{
		MemberId: conn.identity.Id,
		ConnId:   conn.Id(),
		RoomId:   input.RoomId,
	}); err != nil {
		return fmt.Errorf("failed to rejoin room: %w", err)
	}

	return nil
}

func (c controller) handleLeaveRoom(ctx context.Context, conn *client, _ EmptyInput) error {
	if err := c.roomService.LeaveRoom(ctx, &room.LeaveRoomParams{
		SenderId: conn.identity.Id,
	}); err != nil {
		return fmt.Errorf("failed to leave room: %w", err)
	}

	return nil
}

func (c controller) handleToggleReady(ctx context.Context, conn *client, _ EmptyInput) error {
	if _, err := c.roomService.ToggleReady(ctx, &room.ToggleReadyParams{
		SenderId: conn.identity.Id,
	}); err != nil {
		return fmt.Errorf("failed to toggle ready: %w", err)
	}

	return nil
}

type TransferHostInput struct {
	NewHostId string `json:"newHostId" validate:"required,max=128"`
}

func (c controller) handleTransferHost(ctx context.Context, conn *client, input TransferHostInput) error {
	if err := c.roomService.TransferHost(ctx, &room.TransferHostParams{
		SenderId:  conn.identity.Id,
		NewHostId: input.NewHostId,
	}); err != nil {
		return fmt.Errorf("failed to transfer host: %w", err)
	}

	return nil
}

type KickParticipantInput struct {
	UserId string `json:"userId" validate:"required,max=128"`
	Reason string `json:"reason" validate:"max=200"`
}

func (c controller) handleKickParticipant(ctx context.Context, conn *client, input KickParticipantInput) error {
	if err := c.roomService.KickParticipant(ctx, &room.KickParticipantParams{
		SenderId: conn.identity.Id,
		TargetId: input.UserId,
		Reason:   input.Reason,
	}); err != nil {
		return fmt.Errorf("failed to kick participant: %w", err)
	}

	return nil
}

type VideoStateChangeInput struct {
	IsPlaying   *bool    `json:"isPlaying" validate:"required"`
	CurrentTime *float64 `json:"currentTime" validate:"required,gte=0"`
}

func (c controller) handleVideoStateChange(ctx context.Context, conn *client, input VideoStateChangeInput) error {
	if _, err := c.roomService.UpdatePlayerState(ctx, &room.UpdatePlayerStateParams{
		SenderId:    conn.identity.Id,
		IsPlaying:   *input.IsPlaying,
		CurrentTime: *input.CurrentTime,
	}); err != nil {
		return fmt.Errorf("failed to update player state: %w", err)
	}

	return nil
}

type VideoSeekInput struct {
	CurrentTime *float64 `json:"currentTime" validate:"required,gte=0"`
}

func (c controller) handleVideoSeek(ctx context.Context, conn *client, input VideoSeekInput) error {
	if _, err := c.roomService.SeekPlayer(ctx, &room.SeekPlayerParams{
		SenderId:    conn.identity.Id,
		CurrentTime: *input.CurrentTime,
	}); err != nil {
		return fmt.Errorf("failed to seek player: %w", err)
	}

	return nil
}

type SendMessageInput struct {
	Message string `json:"message" validate:"required"`
}

func (c controller) handleSendMessage(ctx context.Context, conn *client, input SendMessageInput) error {
	if _, err := c.roomService.SendMessage(ctx, &room.SendMessageParams{
		SenderId: conn.identity.Id,
		Message:  input.Message,
	}); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	return nil
}

type DeleteMessageInput struct {
	MessageId int64 `json:"messageId" validate:"required,gte=1"`
}

func (c controller) handleDeleteMessage(ctx context.Context, conn *client, input DeleteMessageInput) error {
	if err := c.roomService.DeleteMessage(ctx, &room.DeleteMessageParams{
		SenderId:  conn.identity.Id,
		MessageId: input.MessageId,
	}); err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}

	return nil
}

type LoadMoreMessagesInput struct {
	BeforeId int64 `json:"beforeId" validate:"gte=0"`
	Before   int64 `json:"before" validate:"gte=0"`
}

func (c controller) handleLoadMoreMessages(ctx context.Context, conn *client, input LoadMoreMessagesInput) error {
	if _, err := c.roomService.LoadMoreMessages(ctx, &room.LoadMoreMessagesParams{
		SenderId: conn.identity.Id,
		BeforeId: input.BeforeId,
		Before:   input.Before,
	}); err != nil {
		return fmt.Errorf("failed to load messages: %w", err)
	}

	return nil
}

type SendReactionInput struct {
	Emoji string `json:"emoji" validate:"required"`
}

func (c controller) handleSendReaction(ctx context.Context, conn *client, input SendReactionInput) error {
	if err := c.roomService.SendReaction(ctx, &room.SendReactionParams{
		SenderId: conn.identity.Id,
		Emoji:    input.Emoji,
	}); err != nil {
		return fmt.Errorf("failed to send reaction: %w", err)
	}

	return nil
}
