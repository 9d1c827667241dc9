package room

import (
	"context"
	"fmt"
)

type SendMessageParams struct {
	SenderId string
	Message  string
}

type SendMessageResponse struct {
	Message ChatMessage
}

func (s *service) SendMessage(ctx context.Context, params *SendMessageParams) (SendMessageResponse, error) {
	a, err := s.roomFor(params.SenderId)
	if err != nil {
		return SendMessageResponse{}, err
	}

	res, err := a.submit(ctx, sendMessageInput{
		participantId: params.SenderId,
		text:          params.Message,
	})
	if err != nil {
		return SendMessageResponse{}, fmt.Errorf("failed to send message: %w", err)
	}

	return SendMessageResponse{Message: res.(ChatMessage)}, nil
}

type DeleteMessageParams struct {
	SenderId  string
	MessageId int64
}

func (s *service) DeleteMessage(ctx context.Context, params *DeleteMessageParams) error {
	a, err := s.roomFor(params.SenderId)
	if err != nil {
		return err
	}

	if _, err := a.submit(ctx, deleteMessageInput{
		participantId: params.SenderId,
		messageId:     params.MessageId,
	}); err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}

	return nil
}

type LoadMoreMessagesParams struct {
	SenderId string
	// BeforeId pages strictly below a message id and wins over Before.
	BeforeId int64
	// Before is a unix ms timestamp; zero means now.
	Before int64
}

type LoadMoreMessagesResponse struct {
	Messages []ChatMessage
	HasMore  bool
}

func (s *service) LoadMoreMessages(ctx context.Context, params *LoadMoreMessagesParams) (LoadMoreMessagesResponse, error) {
	a, err := s.roomFor(params.SenderId)
	if err != nil {
		return LoadMoreMessagesResponse{}, err
	}

	res, err := a.submit(ctx, loadMoreInput{
		participantId: params.SenderId,
		before:        params.Before,
		beforeId:      params.BeforeId,
	})
	if err != nil {
		return LoadMoreMessagesResponse{}, fmt.Errorf("failed to load messages: %w", err)
	}

	page := res.(MessagesPagePayload)
	return LoadMoreMessagesResponse{
		Messages: page.Messages,
		HasMore:  page.HasMore,
	}, nil
}

type SendReactionParams struct {
	SenderId string
	Emoji    string
}

func (s *service) SendReaction(ctx context.Context, params *SendReactionParams) error {
	a, err := s.roomFor(params.SenderId)
	if err != nil {
		return err
	}

	if _, err := a.submit(ctx, sendReactionInput{
		participantId: params.SenderId,
		emoji:         params.Emoji,
	}); err != nil {
		return fmt.Errorf("failed to send reaction: %w", err)
	}

	return nil
}
