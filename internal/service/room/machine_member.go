package room

import (
	"fmt"
	"slices"
	"time"

	"github.com/sharetube/watchparty/internal/repository/connection"
	"golang.org/x/time/rate"
)

func (m *machine) hostVacant() bool {
	if m.hostId == "" {
		return true
	}

	_, host := m.find(m.hostId)
	return host == nil || !host.online
}

func (m *machine) join(now time.Time, e *effects, in joinInput) error {
	if _, mem := m.find(in.identity.Id); mem != nil {
		m.attach(now, e, mem, in.connId)
		return nil
	}

	if len(m.members) >= m.cfg.maxParticipants {
		return fmt.Errorf("%w: %d of %d", ErrRoomFull, len(m.members), m.cfg.maxParticipants)
	}

	m.seq++
	mem := &member{
		identity:  in.identity,
		joinedSeq: m.seq,
		online:    true,
		connId:    in.connId,
		limiter:   rate.NewLimiter(m.cfg.chatRateLimit, m.cfg.chatRateBurst),
	}
	m.members = append(m.members, mem)
	m.idleSince = time.Time{}
	e.added = append(e.added, mem.identity.Id)
	e.changed = true

	// asHost only matters when nobody online holds authority
	previousHost := m.hostId
	promoted := m.hostVacant()
	if promoted {
		m.hostId = mem.identity.Id
	}

	e.send([]string{mem.identity.Id}, EventRoomJoined, m.snapshot(now, mem.identity.Id))

	participant := m.toParticipant(mem)
	e.send(m.recipients(mem.identity.Id), EventParticipantJoined, ParticipantPayload{
		UserId:      mem.identity.Id,
		Name:        mem.identity.Name,
		Participant: &participant,
	})

	if promoted && previousHost != "" {
		e.send(m.recipients(mem.identity.Id), EventHostTransferred, HostTransferredPayload{
			NewHostId:      mem.identity.Id,
			PreviousHostId: previousHost,
		})
	}

	e.result = m.snapshot(now, mem.identity.Id)
	return nil
}

func (m *machine) rejoin(now time.Time, e *effects, in rejoinInput) error {
	mem, err := m.participant(in.participantId)
	if err != nil {
		return err
	}

	m.attach(now, e, mem, in.connId)
	return nil
}

// attach binds an existing member to a connection. Join order and
// readiness are preserved.
func (m *machine) attach(now time.Time, e *effects, mem *member, connId string) {
	id := mem.identity.Id
	wasOnline := mem.online

	mem.online = true
	mem.connId = connId
	mem.disconnectedAt = time.Time{}
	m.idleSince = time.Time{}

	previousHost := m.hostId
	promoted := !m.isHost(id) && m.hostVacant()
	if promoted {
		m.hostId = id
		e.changed = true
	}

	if !wasOnline {
		e.graceCancel = append(e.graceCancel, id)
	}

	e.send([]string{id}, EventRoomJoined, m.snapshot(now, id))

	if !wasOnline {
		participant := m.toParticipant(mem)
		e.send(m.recipients(id), EventParticipantRejoined, ParticipantPayload{
			UserId:      id,
			Name:        mem.identity.Name,
			Participant: &participant,
		})
	}

	if promoted && previousHost != "" {
		e.send(m.recipients(id), EventHostTransferred, HostTransferredPayload{
			NewHostId:      id,
			PreviousHostId: previousHost,
		})
	}

	e.result = m.snapshot(now, id)
}

func (m *machine) toggleReady(e *effects, in toggleReadyInput) error {
	mem, err := m.participant(in.participantId)
	if err != nil {
		return err
	}

	mem.isReady = !mem.isReady
	e.send(m.recipients(""), EventUserReady, UserReadyPayload{
		UserId:  mem.identity.Id,
		IsReady: mem.isReady,
	})
	e.result = mem.isReady

	return nil
}

func (m *machine) transferHost(e *effects, in transferHostInput) error {
	if _, err := m.participant(in.participantId); err != nil {
		return err
	}

	if !m.isHost(in.participantId) {
		return fmt.Errorf("%w: only the host can transfer host", ErrForbidden)
	}

	if in.newHostId == in.participantId {
		return fmt.Errorf("%w: already the host", ErrForbidden)
	}

	_, target := m.find(in.newHostId)
	if target == nil || !target.online {
		return fmt.Errorf("%w: %s is not an active participant", ErrForbidden, in.newHostId)
	}

	m.promote(e, target, in.participantId)
	return nil
}

// promote moves authority in a single step: the new host gets became-host
// and every other attached participant gets host-transferred.
func (m *machine) promote(e *effects, newHost *member, previousHostId string) {
	id := newHost.identity.Id
	m.hostId = id
	e.changed = true

	payload := HostTransferredPayload{
		NewHostId:      id,
		PreviousHostId: previousHostId,
	}

	if newHost.online {
		e.send([]string{id}, EventBecameHost, payload)
	}
	e.send(m.recipients(id), EventHostTransferred, payload)
}

// successor returns the earliest-joined attached participant. Unless
// activeOnly is set, a detached one is returned when nobody is attached.
func (m *machine) successor(except string, activeOnly bool) *member {
	var fallback *member
	for _, mem := range m.members {
		if mem.identity.Id == except {
			continue
		}

		if mem.online {
			return mem
		}

		if fallback == nil {
			fallback = mem
		}
	}

	if activeOnly {
		return nil
	}

	return fallback
}

func (m *machine) kick(now time.Time, e *effects, in kickInput) error {
	if _, err := m.participant(in.participantId); err != nil {
		return err
	}

	if !m.isHost(in.participantId) {
		return fmt.Errorf("%w: only the host can kick", ErrForbidden)
	}

	if in.targetId == in.participantId {
		return fmt.Errorf("%w: cannot kick yourself", ErrInvalidPayload)
	}

	_, target := m.find(in.targetId)
	if target == nil {
		return fmt.Errorf("%w: %s is not a participant", ErrInvalidPayload, in.targetId)
	}

	if target.online {
		e.send([]string{target.identity.Id}, EventKicked, KickedPayload{Reason: in.reason})
		e.closes = append(e.closes, closeDirective{
			participantId: target.identity.Id,
			code:          connection.CloseKicked,
			reason:        "kicked",
		})
	}

	m.remove(now, e, target, EventParticipantKicked)
	return nil
}

func (m *machine) leave(now time.Time, e *effects, in leaveInput) error {
	mem, err := m.participant(in.participantId)
	if err != nil {
		return err
	}

	m.remove(now, e, mem, EventParticipantLeft)
	return nil
}

// remove drops a member for good and promotes a successor if it held
// authority. An empty room is reported as emptied.
func (m *machine) remove(now time.Time, e *effects, mem *member, eventType string) {
	id := mem.identity.Id
	i, _ := m.find(id)
	m.members = slices.Delete(m.members, i, i+1)

	e.removed = append(e.removed, id)
	e.graceCancel = append(e.graceCancel, id)
	e.changed = true

	if len(m.members) == 0 {
		m.hostId = ""
		e.emptied = true
		return
	}

	e.send(m.recipients(""), eventType, ParticipantPayload{
		UserId: id,
		Name:   mem.identity.Name,
	})

	if m.hostId == id {
		m.promote(e, m.successor(id, false), id)
	}

	m.updateIdle(now)
}

func (m *machine) detach(now time.Time, e *effects, in detachInput) {
	_, mem := m.find(in.participantId)
	if mem == nil || !mem.online {
		return
	}

	// a close from a replaced connection
	if in.connId != "" && in.connId != mem.connId {
		return
	}

	m.epoch++
	mem.online = false
	mem.connId = ""
	mem.epoch = m.epoch
	mem.disconnectedAt = now

	e.graceStart = append(e.graceStart, graceDirective{
		participantId: mem.identity.Id,
		epoch:         mem.epoch,
		after:         m.cfg.graceWindow,
	})

	e.send(m.recipients(""), EventParticipantDisconnected, ParticipantPayload{
		UserId: mem.identity.Id,
		Name:   mem.identity.Name,
	})

	if m.isHost(mem.identity.Id) {
		if next := m.successor(mem.identity.Id, true); next != nil {
			m.promote(e, next, mem.identity.Id)
		}
	}

	m.updateIdle(now)
	e.result = true
}

func (m *machine) graceExpired(now time.Time, e *effects, in graceExpiredInput) {
	_, mem := m.find(in.participantId)
	if mem == nil || mem.online || mem.epoch != in.epoch {
		return
	}

	m.remove(now, e, mem, EventParticipantLeft)
}
