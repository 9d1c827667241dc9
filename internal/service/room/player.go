package room

import (
	"context"
	"fmt"
)

type UpdatePlayerStateParams struct {
	SenderId    string
	IsPlaying   bool
	CurrentTime float64
}

type UpdatePlayerResponse struct {
	// Applied is false when the sender is not the host.
	Applied bool
}

func (s *service) UpdatePlayerState(ctx context.Context, params *UpdatePlayerStateParams) (UpdatePlayerResponse, error) {
	a, err := s.roomFor(params.SenderId)
	if err != nil {
		return UpdatePlayerResponse{}, err
	}

	res, err := a.submit(ctx, playStateInput{
		participantId: params.SenderId,
		isPlaying:     params.IsPlaying,
		currentTime:   params.CurrentTime,
	})
	if err != nil {
		return UpdatePlayerResponse{}, fmt.Errorf("failed to update player state: %w", err)
	}

	applied := res.(bool)
	if !applied {
		s.logger.DebugContext(ctx, "ignoring player state from non-host", "room_id", a.roomId)
	}

	return UpdatePlayerResponse{Applied: applied}, nil
}

type SeekPlayerParams struct {
	SenderId    string
	CurrentTime float64
}

func (s *service) SeekPlayer(ctx context.Context, params *SeekPlayerParams) (UpdatePlayerResponse, error) {
	a, err := s.roomFor(params.SenderId)
	if err != nil {
		return UpdatePlayerResponse{}, err
	}

	res, err := a.submit(ctx, seekInput{
		participantId: params.SenderId,
		currentTime:   params.CurrentTime,
	})
	if err != nil {
		return UpdatePlayerResponse{}, fmt.Errorf("failed to seek player: %w", err)
	}

	applied := res.(bool)
	if !applied {
		s.logger.DebugContext(ctx, "ignoring seek from non-host", "room_id", a.roomId)
	}

	return UpdatePlayerResponse{Applied: applied}, nil
}
