package room

import (
	"context"
	"errors"
	"time"
)

// SweepRooms destroys rooms that have had no attached connection for longer
// than the grace window and refreshes the directory entry of the rest.
// It returns the number of destroyed rooms.
func (s *service) SweepRooms(ctx context.Context) int {
	now := s.clock()
	destroyed := 0

	for _, a := range s.rooms.all() {
		res, err := a.submit(ctx, statsInput{})
		if err != nil {
			continue
		}

		stats := res.(roomStats)
		if stats.online == 0 && !stats.idleSince.IsZero() && now.Sub(stats.idleSince) > s.cfg.GraceWindow {
			if _, err := a.submit(ctx, destroyInput{}); err != nil && !errors.Is(err, ErrRoomNotFound) {
				s.logger.InfoContext(ctx, "failed to destroy idle room", "room_id", a.roomId, "error", err)
				continue
			}

			s.logger.InfoContext(ctx, "idle room swept",
				"room_id", a.roomId,
				"participants", stats.participants,
				"messages", stats.messages,
			)
			destroyed++
			continue
		}

		if err := s.roomRepo.RefreshRoom(ctx, a.roomId); err != nil {
			s.logger.InfoContext(ctx, "failed to refresh room", "room_id", a.roomId, "error", err)
		}
	}

	return destroyed
}

// RunSweeper sweeps every interval until ctx is done.
func (s *service) RunSweeper(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := s.SweepRooms(ctx); n > 0 {
				s.logger.InfoContext(ctx, "sweep finished", "destroyed", n, "live", s.rooms.len())
			}
		}
	}
}
