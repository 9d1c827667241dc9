package room

import (
	"context"
	"errors"
	"fmt"

	"github.com/sharetube/watchparty/internal/repository/room"
)

func mapRepoError(err error) error {
	if errors.Is(err, room.ErrRoomNotFound) {
		return ErrRoomNotFound
	}

	return err
}

func (s *service) LookupRoom(ctx context.Context, roomId string) (RoomInfo, error) {
	roomId = normalizeRoomId(roomId)
	if err := validateRoomId(roomId); err != nil {
		return RoomInfo{}, err
	}

	rm, err := s.roomRepo.GetRoom(ctx, roomId)
	if err != nil {
		return RoomInfo{}, fmt.Errorf("failed to get room %s: %w", roomId, mapRepoError(err))
	}

	return RoomInfo{
		RoomId:          roomId,
		ContentId:       rm.ContentId,
		EpisodeId:       rm.EpisodeId,
		EpisodeNumber:   rm.EpisodeNumber,
		CreatedAt:       rm.CreatedAt,
		HostId:          rm.HostId,
		Participants:    rm.Participants,
		MaxParticipants: rm.MaxParticipants,
	}, nil
}
