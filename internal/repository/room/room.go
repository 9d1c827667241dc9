package room

import "time"

type Room struct {
	ContentId       string `redis:"content_id" json:"content_id"`
	EpisodeId       string `redis:"episode_id" json:"episode_id"`
	EpisodeNumber   int    `redis:"episode_number" json:"episode_number"`
	CreatedAt       int64  `redis:"created_at" json:"created_at"`
	HostId          string `redis:"host_id" json:"host_id"`
	Participants    int    `redis:"participants" json:"participants"`
	MaxParticipants int    `redis:"max_participants" json:"max_participants"`
}

type CreateRoomParams struct {
	RoomId string `json:"room_id"`
	Room   Room   `json:"room"`
}

type UpdateRoomParams struct {
	RoomId       string `json:"room_id"`
	HostId       string `json:"host_id"`
	Participants int    `json:"participants"`
}

type Session struct {
	ParticipantId string `redis:"participant_id" json:"participant_id"`
	Name          string `redis:"name" json:"name"`
	AvatarUrl     string `redis:"avatar_url" json:"avatar_url"`
	IsGuest       bool   `redis:"is_guest" json:"is_guest"`
}

type SetSessionParams struct {
	Token   string        `json:"-"`
	Session Session       `json:"session"`
	Exp     time.Duration `json:"exp"`
}
