package room

const (
	StatusActive       = "active"
	StatusDisconnected = "disconnected"
)

type Identity struct {
	Id        string `json:"id"`
	Name      string `json:"name"`
	AvatarUrl string `json:"avatarUrl,omitempty"`
	IsGuest   bool   `json:"isGuest"`
}

type Participant struct {
	Id        string `json:"id"`
	Name      string `json:"name"`
	AvatarUrl string `json:"avatarUrl,omitempty"`
	IsHost    bool   `json:"isHost"`
	IsReady   bool   `json:"isReady"`
	Status    string `json:"status"`
}

type PlaybackState struct {
	IsPlaying   bool    `json:"isPlaying"`
	CurrentTime float64 `json:"currentTime"`
	LastUpdate  int64   `json:"lastUpdate"`
}

type ChatMessage struct {
	Id         int64  `json:"id"`
	AuthorId   string `json:"userId"`
	AuthorName string `json:"name"`
	Text       string `json:"message"`
	Timestamp  int64  `json:"timestamp"`
}

type Snapshot struct {
	RoomId          string        `json:"roomId"`
	ContentId       string        `json:"contentId"`
	EpisodeId       string        `json:"episodeId"`
	EpisodeNumber   int           `json:"episodeNumber"`
	MaxParticipants int           `json:"maxParticipants"`
	HostId          string        `json:"hostId"`
	Participants    []Participant `json:"participants"`
	Messages        []ChatMessage `json:"messages"`
	HasMoreMessages bool          `json:"hasMoreMessages"`
	PlaybackState   PlaybackState `json:"playbackState"`
	IsHost          bool          `json:"isHost"`
	ServerTime      int64         `json:"serverTime"`
}

// RoomInfo is the browseable part of a room, served from the directory.
type RoomInfo struct {
	RoomId          string `json:"roomId"`
	ContentId       string `json:"contentId"`
	EpisodeId       string `json:"episodeId"`
	EpisodeNumber   int    `json:"episodeNumber"`
	CreatedAt       int64  `json:"createdAt"`
	HostId          string `json:"hostId"`
	Participants    int    `json:"participants"`
	MaxParticipants int    `json:"maxParticipants"`
}
