package room

const (
	EventSessionEstablished      = "session-established"
	EventRoomJoined              = "room-joined"
	EventParticipantJoined       = "participant-joined"
	EventParticipantRejoined     = "participant-rejoined"
	EventParticipantDisconnected = "participant-disconnected"
	EventParticipantLeft         = "participant-left"
	EventParticipantKicked       = "participant-kicked"
	EventUserReady               = "user-ready"
	EventNewMessage              = "new-message"
	EventMessageDeleted          = "message-deleted"
	EventMessagesPage            = "messages-page"
	EventNewReaction             = "new-reaction"
	EventVideoStateUpdate        = "video-state-update"
	EventVideoSeek               = "video-seek"
	EventHostTransferred         = "host-transferred"
	EventBecameHost              = "became-host"
	EventKicked                  = "kicked"
	EventError                   = "error"
)

// Event is the outbound envelope.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type SessionEstablishedPayload struct {
	ParticipantId string `json:"participantId"`
	SessionToken  string `json:"sessionToken"`
	Name          string `json:"name"`
}

type ParticipantPayload struct {
	UserId      string       `json:"userId"`
	Name        string       `json:"name"`
	Participant *Participant `json:"participant,omitempty"`
}

type UserReadyPayload struct {
	UserId  string `json:"userId"`
	IsReady bool   `json:"isReady"`
}

type MessageDeletedPayload struct {
	MessageId int64 `json:"messageId"`
}

type MessagesPagePayload struct {
	Messages []ChatMessage `json:"messages"`
	HasMore  bool          `json:"hasMore"`
}

type ReactionPayload struct {
	UserId    string `json:"userId"`
	Name      string `json:"name"`
	Emoji     string `json:"emoji"`
	Timestamp int64  `json:"timestamp"`
}

type HostTransferredPayload struct {
	NewHostId      string `json:"newHostId"`
	PreviousHostId string `json:"previousHostId,omitempty"`
}

type KickedPayload struct {
	Reason string `json:"reason,omitempty"`
}
