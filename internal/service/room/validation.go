package room

import (
	"fmt"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var roomIdRegexp = regexp.MustCompile(`^[A-Z0-9]{6}$`)

func normalizeRoomId(roomId string) string {
	return strings.ToUpper(strings.TrimSpace(roomId))
}

func validateRoomId(roomId string) error {
	if err := validation.Validate(roomId,
		validation.Required,
		validation.Match(roomIdRegexp).Error("must be 6 letters or digits"),
	); err != nil {
		return fmt.Errorf("%w: roomId: %w", ErrInvalidPayload, err)
	}

	return nil
}

func validateParticipantId(participantId string) error {
	if err := validation.Validate(participantId,
		validation.Required,
		validation.RuneLength(1, 128),
	); err != nil {
		return fmt.Errorf("%w: participant id: %w", ErrInvalidPayload, err)
	}

	return nil
}

func validateUsername(username string) error {
	return validation.Validate(strings.TrimSpace(username),
		validation.Required,
		validation.RuneLength(1, 32),
	)
}

func validateJoinRoomParams(params *JoinRoomParams) error {
	if err := validation.ValidateStruct(params,
		validation.Field(&params.RoomId, validation.When(params.RoomId != "", validation.Match(roomIdRegexp))),
		validation.Field(&params.ContentId, validation.When(params.RoomId == "", validation.Required), validation.RuneLength(0, 64)),
		validation.Field(&params.EpisodeId, validation.RuneLength(0, 64)),
		validation.Field(&params.EpisodeNumber, validation.Min(0)),
	); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}

	return nil
}
