package room

import (
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

type machineConfig struct {
	maxParticipants int
	graceWindow     time.Duration
	chatPageSize    int
	chatRetention   int
	chatRateLimit   rate.Limit
	chatRateBurst   int
}

type roomDetails struct {
	roomId        string
	contentId     string
	episodeId     string
	episodeNumber int
	createdAt     time.Time
}

type member struct {
	identity       Identity
	isReady        bool
	joinedSeq      int64
	online         bool
	connId         string
	epoch          int64
	disconnectedAt time.Time
	limiter        *rate.Limiter
}

// machine is the authoritative state of one room. It is not safe for
// concurrent use; the owning actor serialises every call to apply.
type machine struct {
	cfg      machineConfig
	details  roomDetails
	members  []*member
	hostId   string
	playback PlaybackState
	chat     *chatLog
	seq      int64
	epoch    int64
	// set while the room has no attached connection
	idleSince time.Time
}

func newMachine(cfg machineConfig, details roomDetails) *machine {
	return &machine{
		cfg:       cfg,
		details:   details,
		chat:      newChatLog(cfg.chatRetention),
		idleSince: details.createdAt,
	}
}

type input interface {
	isInput()
}

type joinInput struct {
	identity Identity
	connId   string
	asHost   bool
}

type rejoinInput struct {
	participantId string
	connId        string
}

type toggleReadyInput struct {
	participantId string
}

type playStateInput struct {
	participantId string
	isPlaying     bool
	currentTime   float64
}

type seekInput struct {
	participantId string
	currentTime   float64
}

type sendMessageInput struct {
	participantId string
	text          string
}

type deleteMessageInput struct {
	participantId string
	messageId     int64
}

type loadMoreInput struct {
	participantId string
	before        int64
	beforeId      int64
}

type sendReactionInput struct {
	participantId string
	emoji         string
}

type transferHostInput struct {
	participantId string
	newHostId     string
}

type kickInput struct {
	participantId string
	targetId      string
	reason        string
}

type leaveInput struct {
	participantId string
}

type detachInput struct {
	participantId string
	connId        string
}

type graceExpiredInput struct {
	participantId string
	epoch         int64
}

type statsInput struct{}

type destroyInput struct{}

func (joinInput) isInput()          {}
func (rejoinInput) isInput()        {}
func (toggleReadyInput) isInput()   {}
func (playStateInput) isInput()     {}
func (seekInput) isInput()          {}
func (sendMessageInput) isInput()   {}
func (deleteMessageInput) isInput() {}
func (loadMoreInput) isInput()      {}
func (sendReactionInput) isInput()  {}
func (transferHostInput) isInput()  {}
func (kickInput) isInput()          {}
func (leaveInput) isInput()         {}
func (detachInput) isInput()        {}
func (graceExpiredInput) isInput()  {}
func (statsInput) isInput()         {}
func (destroyInput) isInput()       {}

type outbound struct {
	to    []string
	event Event
}

type closeDirective struct {
	participantId string
	code          int
	reason        string
}

type graceDirective struct {
	participantId string
	epoch         int64
	after         time.Duration
}

type roomStats struct {
	participants int
	online       int
	messages     int
	idleSince    time.Time
}

// effects is everything a transition asks the outside world to do.
type effects struct {
	outbound    []outbound
	closes      []closeDirective
	graceStart  []graceDirective
	graceCancel []string
	added       []string
	removed     []string
	changed     bool
	emptied     bool
	result      any
}

func (e *effects) send(to []string, eventType string, payload any) {
	if len(to) == 0 {
		return
	}

	e.outbound = append(e.outbound, outbound{
		to:    to,
		event: Event{Type: eventType, Payload: payload},
	})
}

// apply runs one transition. On error the machine is left untouched and
// no effects are produced.
func (m *machine) apply(now time.Time, in input) (*effects, error) {
	e := &effects{}

	var err error
	switch in := in.(type) {
	case joinInput:
		err = m.join(now, e, in)
	case rejoinInput:
		err = m.rejoin(now, e, in)
	case toggleReadyInput:
		err = m.toggleReady(e, in)
	case playStateInput:
		err = m.updatePlayState(now, e, in)
	case seekInput:
		err = m.seek(now, e, in)
	case sendMessageInput:
		err = m.sendMessage(now, e, in)
	case deleteMessageInput:
		err = m.deleteMessage(e, in)
	case loadMoreInput:
		err = m.loadMore(e, in)
	case sendReactionInput:
		err = m.sendReaction(now, e, in)
	case transferHostInput:
		err = m.transferHost(e, in)
	case kickInput:
		err = m.kick(now, e, in)
	case leaveInput:
		err = m.leave(now, e, in)
	case detachInput:
		m.detach(now, e, in)
	case graceExpiredInput:
		m.graceExpired(now, e, in)
	case statsInput:
		e.result = m.stats()
	case destroyInput:
		m.destroy(e)
	default:
		err = fmt.Errorf("%w: unknown input %T", ErrInvalidPayload, in)
	}

	if err != nil {
		return nil, err
	}

	return e, nil
}

func (m *machine) find(id string) (int, *member) {
	for i, mem := range m.members {
		if mem.identity.Id == id {
			return i, mem
		}
	}

	return -1, nil
}

func (m *machine) participant(id string) (*member, error) {
	_, mem := m.find(id)
	if mem == nil {
		return nil, fmt.Errorf("%w: not a participant of room %s", ErrForbidden, m.details.roomId)
	}

	return mem, nil
}

func (m *machine) isHost(id string) bool {
	return m.hostId != "" && m.hostId == id
}

// recipients returns attached participants in join order, minus except.
func (m *machine) recipients(except string) []string {
	ids := make([]string, 0, len(m.members))
	for _, mem := range m.members {
		if mem.online && mem.identity.Id != except {
			ids = append(ids, mem.identity.Id)
		}
	}

	return ids
}

func (m *machine) toParticipant(mem *member) Participant {
	status := StatusActive
	if !mem.online {
		status = StatusDisconnected
	}

	return Participant{
		Id:        mem.identity.Id,
		Name:      mem.identity.Name,
		AvatarUrl: mem.identity.AvatarUrl,
		IsHost:    m.isHost(mem.identity.Id),
		IsReady:   mem.isReady,
		Status:    status,
	}
}

func (m *machine) participants() []Participant {
	participants := make([]Participant, 0, len(m.members))
	for _, mem := range m.members {
		participants = append(participants, m.toParticipant(mem))
	}

	return participants
}

func (m *machine) snapshot(now time.Time, forId string) Snapshot {
	messages, hasMore := m.chat.latest(m.cfg.chatPageSize)

	return Snapshot{
		RoomId:          m.details.roomId,
		ContentId:       m.details.contentId,
		EpisodeId:       m.details.episodeId,
		EpisodeNumber:   m.details.episodeNumber,
		MaxParticipants: m.cfg.maxParticipants,
		HostId:          m.hostId,
		Participants:    m.participants(),
		Messages:        messages,
		HasMoreMessages: hasMore,
		PlaybackState:   m.playback,
		IsHost:          m.isHost(forId),
		ServerTime:      now.UnixMilli(),
	}
}

func (m *machine) info() RoomInfo {
	return RoomInfo{
		RoomId:          m.details.roomId,
		ContentId:       m.details.contentId,
		EpisodeId:       m.details.episodeId,
		EpisodeNumber:   m.details.episodeNumber,
		CreatedAt:       m.details.createdAt.UnixMilli(),
		HostId:          m.hostId,
		Participants:    len(m.members),
		MaxParticipants: m.cfg.maxParticipants,
	}
}

func (m *machine) stats() roomStats {
	stats := roomStats{
		participants: len(m.members),
		messages:     m.chat.len(),
		idleSince:    m.idleSince,
	}

	for _, mem := range m.members {
		if mem.online {
			stats.online++
		}
	}

	return stats
}

func (m *machine) updateIdle(now time.Time) {
	for _, mem := range m.members {
		if mem.online {
			m.idleSince = time.Time{}
			return
		}
	}

	if m.idleSince.IsZero() {
		m.idleSince = now
	}
}

func (m *machine) destroy(e *effects) {
	for _, mem := range m.members {
		e.removed = append(e.removed, mem.identity.Id)
		e.graceCancel = append(e.graceCancel, mem.identity.Id)
	}

	m.members = nil
	m.hostId = ""
	e.emptied = true
}
