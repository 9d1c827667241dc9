package room

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sharetube/watchparty/internal/repository/connection"
	"github.com/sharetube/watchparty/internal/repository/room"
	"github.com/sharetube/watchparty/pkg/randstr"
	"github.com/sourcegraph/conc"
	"golang.org/x/time/rate"
)

const (
	roomIdLength     = 6
	roomCodeAttempts = 8
	roomIdLetters    = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

type iRoomRepo interface {
	// room directory
	CreateRoom(context.Context, *room.CreateRoomParams) error
	GetRoom(context.Context, string) (room.Room, error)
	UpdateRoom(context.Context, *room.UpdateRoomParams) error
	RefreshRoom(context.Context, string) error
	RemoveRoom(context.Context, string) error
	// sessions
	SetSession(context.Context, *room.SetSessionParams) error
	GetSession(context.Context, string) (room.Session, error)
	ExpireSession(context.Context, string, time.Duration) error
}

type iConnRepo interface {
	Add(ctx context.Context, memberId string, conn connection.Conn) connection.Conn
	Remove(ctx context.Context, memberId, connId string) error
	Send(ctx context.Context, memberIds []string, msg []byte) error
	Close(ctx context.Context, memberId string, code int, reason string) error
	CloseAll(ctx context.Context, code int, reason string)
}

type iGenerator interface {
	GenerateRandomString(length int) string
}

type Config struct {
	MembersLimit  int
	GraceWindow   time.Duration
	ChatPageSize  int
	ChatRetention int
	ChatRateLimit float64
	ChatRateBurst int
	Secret        string
	SessionExp    time.Duration
}

type service struct {
	roomRepo  iRoomRepo
	connRepo  iConnRepo
	generator iGenerator
	rooms     *registry
	clock     func() time.Time
	cfg       Config
	logger    *slog.Logger
}

func NewService(roomRepo iRoomRepo, connRepo iConnRepo, cfg *Config, logger *slog.Logger) *service {
	return &service{
		roomRepo:  roomRepo,
		connRepo:  connRepo,
		generator: randstr.New([]byte(roomIdLetters)),
		rooms:     newRegistry(),
		clock:     time.Now,
		cfg:       *cfg,
		logger:    logger,
	}
}

func (s *service) machineConfig() machineConfig {
	return machineConfig{
		maxParticipants: s.cfg.MembersLimit,
		graceWindow:     s.cfg.GraceWindow,
		chatPageSize:    s.cfg.ChatPageSize,
		chatRetention:   s.cfg.ChatRetention,
		chatRateLimit:   rate.Limit(s.cfg.ChatRateLimit),
		chatRateBurst:   s.cfg.ChatRateBurst,
	}
}

type createRoomParams struct {
	ContentId     string
	EpisodeId     string
	EpisodeNumber int
}

// createRoom reserves a fresh code in the directory and starts its actor.
// A code taken in the directory or locally is regenerated.
func (s *service) createRoom(ctx context.Context, params *createRoomParams) (*actor, error) {
	now := s.clock()

	for range roomCodeAttempts {
		roomId := s.generator.GenerateRandomString(roomIdLength)

		if _, ok := s.rooms.get(roomId); ok {
			s.logger.DebugContext(ctx, "room code collision", "room_id", roomId)
			continue
		}

		err := s.roomRepo.CreateRoom(ctx, &room.CreateRoomParams{
			RoomId: roomId,
			Room: room.Room{
				ContentId:       params.ContentId,
				EpisodeId:       params.EpisodeId,
				EpisodeNumber:   params.EpisodeNumber,
				CreatedAt:       now.UnixMilli(),
				MaxParticipants: s.cfg.MembersLimit,
			},
		})
		if errors.Is(err, room.ErrCodeTaken) {
			s.logger.DebugContext(ctx, "room code collision", "room_id", roomId)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to reserve room code: %w", err)
		}

		m := newMachine(s.machineConfig(), roomDetails{
			roomId:        roomId,
			contentId:     params.ContentId,
			episodeId:     params.EpisodeId,
			episodeNumber: params.EpisodeNumber,
			createdAt:     now,
		})
		a := newActor(m, s, s.clock, s.logger)

		if !s.rooms.add(roomId, a) {
			continue
		}

		go a.run()

		s.logger.InfoContext(ctx, "room created", "room_id", roomId)
		return a, nil
	}

	return nil, fmt.Errorf("%w: no free room code after %d attempts", ErrInternal, roomCodeAttempts)
}

func (s *service) getRoom(roomId string) (*actor, error) {
	a, ok := s.rooms.get(roomId)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRoomNotFound, roomId)
	}

	return a, nil
}

// roomFor returns the room memberId currently belongs to.
func (s *service) roomFor(memberId string) (*actor, error) {
	roomId, ok := s.rooms.roomOf(memberId)
	if !ok {
		return nil, ErrNotInRoom
	}

	a, ok := s.rooms.get(roomId)
	if !ok {
		return nil, ErrNotInRoom
	}

	return a, nil
}

func (s *service) dispatch(ctx context.Context, roomId string, out []outbound, closes []closeDirective) {
	for _, o := range out {
		msg, err := json.Marshal(o.event)
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to marshal event", "room_id", roomId, "type", o.event.Type, "error", err)
			continue
		}

		if err := s.connRepo.Send(ctx, o.to, msg); err != nil {
			s.logger.InfoContext(ctx, "failed to deliver event", "room_id", roomId, "type", o.event.Type, "error", err)
		}
	}

	for _, c := range closes {
		if err := s.connRepo.Close(ctx, c.participantId, c.code, c.reason); err != nil {
			s.logger.DebugContext(ctx, "failed to close conn", "participant_id", c.participantId, "error", err)
		}
	}
}

func (s *service) membershipChanged(roomId string, added, removed []string) {
	s.rooms.updateMemberships(roomId, added, removed)
}

func (s *service) roomChanged(ctx context.Context, info RoomInfo) {
	if err := s.roomRepo.UpdateRoom(ctx, &room.UpdateRoomParams{
		RoomId:       info.RoomId,
		HostId:       info.HostId,
		Participants: info.Participants,
	}); err != nil {
		s.logger.InfoContext(ctx, "failed to update room directory", "room_id", info.RoomId, "error", err)
	}
}

func (s *service) roomEmptied(ctx context.Context, roomId string) {
	s.rooms.remove(roomId)

	if err := s.roomRepo.RemoveRoom(ctx, roomId); err != nil {
		s.logger.InfoContext(ctx, "failed to remove room from directory", "room_id", roomId, "error", err)
	}

	s.logger.InfoContext(ctx, "room destroyed", "room_id", roomId)
}

// Close stops every room and drops every connection.
func (s *service) Close(ctx context.Context) {
	actors := s.rooms.all()

	var wg conc.WaitGroup
	for _, a := range actors {
		wg.Go(func() {
			s.rooms.remove(a.roomId)
			a.stop()
			a.wait()

			if err := s.roomRepo.RemoveRoom(ctx, a.roomId); err != nil {
				s.logger.InfoContext(ctx, "failed to remove room from directory", "room_id", a.roomId, "error", err)
			}
		})
	}
	wg.Wait()

	s.connRepo.CloseAll(ctx, connection.CloseShutdown, "server shutting down")
	s.logger.InfoContext(ctx, "rooms closed", "count", len(actors))
}
