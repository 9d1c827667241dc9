package room

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sharetube/watchparty/internal/repository/connection"
)

type ConnectMemberParams struct {
	Identity     Identity
	SessionToken string
	Conn         connection.Conn
}

// ConnectMember binds conn to the identity, closing any connection it
// replaces, and greets it with session-established.
func (s *service) ConnectMember(ctx context.Context, params *ConnectMemberParams) error {
	if replaced := s.connRepo.Add(ctx, params.Identity.Id, params.Conn); replaced != nil {
		s.logger.InfoContext(ctx, "replacing connection", "old_conn_id", replaced.Id(), "conn_id", params.Conn.Id())
		replaced.Close(connection.CloseReplaced, "replaced")
	}

	msg, err := json.Marshal(Event{
		Type: EventSessionEstablished,
		Payload: SessionEstablishedPayload{
			ParticipantId: params.Identity.Id,
			SessionToken:  params.SessionToken,
			Name:          params.Identity.Name,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := params.Conn.Send(msg); err != nil {
		return fmt.Errorf("failed to send session: %w", err)
	}

	return nil
}

type DisconnectMemberParams struct {
	MemberId     string
	ConnId       string
	SessionToken string
}

// DisconnectMember handles a dropped connection. Room membership survives
// for the grace window.
func (s *service) DisconnectMember(ctx context.Context, params *DisconnectMemberParams) error {
	// a replaced connection keeps the session alive for its successor
	if err := s.connRepo.Remove(ctx, params.MemberId, params.ConnId); err != nil {
		s.logger.DebugContext(ctx, "connection already replaced", "conn_id", params.ConnId)
	} else if params.SessionToken != "" {
		if err := s.roomRepo.ExpireSession(ctx, params.SessionToken, s.cfg.GraceWindow); err != nil {
			s.logger.InfoContext(ctx, "failed to shorten session", "error", err)
		}
	}

	a, err := s.roomFor(params.MemberId)
	if err != nil {
		return nil
	}

	if _, err := a.submit(ctx, detachInput{
		participantId: params.MemberId,
		connId:        params.ConnId,
	}); err != nil && !errors.Is(err, ErrRoomNotFound) {
		return fmt.Errorf("failed to detach member: %w", err)
	}

	return nil
}

type JoinRoomParams struct {
	Identity      Identity
	ConnId        string
	RoomId        string
	ContentId     string
	EpisodeId     string
	EpisodeNumber int
	AsHost        bool
}

type JoinRoomResponse struct {
	Snapshot Snapshot
}

// JoinRoom attaches the sender to an existing room, or creates one when no
// room id is given. Membership of any other room is given up once the join
// succeeds.
func (s *service) JoinRoom(ctx context.Context, params *JoinRoomParams) (JoinRoomResponse, error) {
	params.RoomId = normalizeRoomId(params.RoomId)
	if err := validateJoinRoomParams(params); err != nil {
		return JoinRoomResponse{}, err
	}

	var (
		a   *actor
		err error
	)
	if params.RoomId != "" {
		a, err = s.getRoom(params.RoomId)
	} else {
		a, err = s.createRoom(ctx, &createRoomParams{
			ContentId:     params.ContentId,
			EpisodeId:     params.EpisodeId,
			EpisodeNumber: params.EpisodeNumber,
		})
	}
	if err != nil {
		return JoinRoomResponse{}, err
	}

	var previous *actor
	if current, ok := s.rooms.roomOf(params.Identity.Id); ok && current != a.roomId {
		previous, _ = s.rooms.get(current)
	}

	res, err := a.submit(ctx, joinInput{
		identity: params.Identity,
		connId:   params.ConnId,
		asHost:   params.AsHost,
	})
	if err != nil {
		return JoinRoomResponse{}, fmt.Errorf("failed to join room: %w", err)
	}

	// The previous room is only left once the new one has accepted the member.
	if previous != nil {
		s.leaveRoom(ctx, previous, params.Identity.Id)
	}

	return JoinRoomResponse{Snapshot: res.(Snapshot)}, nil
}

type RejoinRoomParams struct {
	MemberId string
	ConnId   string
	RoomId   string
}

func (s *service) RejoinRoom(ctx context.Context, params *RejoinRoomParams) (JoinRoomResponse, error) {
	params.RoomId = normalizeRoomId(params.RoomId)
	if err := validateRoomId(params.RoomId); err != nil {
		return JoinRoomResponse{}, err
	}

	a, err := s.getRoom(params.RoomId)
	if err != nil {
		return JoinRoomResponse{}, err
	}

	res, err := a.submit(ctx, rejoinInput{
		participantId: params.MemberId,
		connId:        params.ConnId,
	})
	if err != nil {
		return JoinRoomResponse{}, fmt.Errorf("failed to rejoin room: %w", err)
	}

	return JoinRoomResponse{Snapshot: res.(Snapshot)}, nil
}

type LeaveRoomParams struct {
	SenderId string
}

func (s *service) LeaveRoom(ctx context.Context, params *LeaveRoomParams) error {
	a, err := s.roomFor(params.SenderId)
	if err != nil {
		return err
	}

	if _, err := a.submit(ctx, leaveInput{participantId: params.SenderId}); err != nil {
		return fmt.Errorf("failed to leave room: %w", err)
	}

	return nil
}

func (s *service) leaveRoom(ctx context.Context, a *actor, memberId string) {
	if _, err := a.submit(ctx, leaveInput{participantId: memberId}); err != nil {
		s.logger.InfoContext(ctx, "failed to leave previous room",
			"room_id", a.roomId,
			"error", err,
		)
	}
}

type ToggleReadyParams struct {
	SenderId string
}

type ToggleReadyResponse struct {
	IsReady bool
}

func (s *service) ToggleReady(ctx context.Context, params *ToggleReadyParams) (ToggleReadyResponse, error) {
	a, err := s.roomFor(params.SenderId)
	if err != nil {
		return ToggleReadyResponse{}, err
	}

	res, err := a.submit(ctx, toggleReadyInput{participantId: params.SenderId})
	if err != nil {
		return ToggleReadyResponse{}, fmt.Errorf("failed to toggle ready: %w", err)
	}

	return ToggleReadyResponse{IsReady: res.(bool)}, nil
}

type TransferHostParams struct {
	SenderId  string
	NewHostId string
}

func (s *service) TransferHost(ctx context.Context, params *TransferHostParams) error {
	if err := validateParticipantId(params.NewHostId); err != nil {
		return err
	}

	a, err := s.roomFor(params.SenderId)
	if err != nil {
		return err
	}

	if _, err := a.submit(ctx, transferHostInput{
		participantId: params.SenderId,
		newHostId:     params.NewHostId,
	}); err != nil {
		return fmt.Errorf("failed to transfer host: %w", err)
	}

	return nil
}

type KickParticipantParams struct {
	SenderId string
	TargetId string
	Reason   string
}

func (s *service) KickParticipant(ctx context.Context, params *KickParticipantParams) error {
	if err := validateParticipantId(params.TargetId); err != nil {
		return err
	}

	a, err := s.roomFor(params.SenderId)
	if err != nil {
		return err
	}

	if _, err := a.submit(ctx, kickInput{
		participantId: params.SenderId,
		targetId:      params.TargetId,
		reason:        params.Reason,
	}); err != nil {
		return fmt.Errorf("failed to kick participant: %w", err)
	}

	return nil
}
