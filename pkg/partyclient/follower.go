package partyclient

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

type PlaybackState struct {
	IsPlaying   bool    `json:"isPlaying"`
	CurrentTime float64 `json:"currentTime"`
	LastUpdate  int64   `json:"lastUpdate"`
}

// Snapshot is the part of room-joined the client cares about.
type Snapshot struct {
	RoomId        string        `json:"roomId"`
	HostId        string        `json:"hostId"`
	IsHost        bool          `json:"isHost"`
	PlaybackState PlaybackState `json:"playbackState"`
	ServerTime    int64         `json:"serverTime"`
}

// Follower tracks the host's playback and tells where the local player
// should be.
type Follower struct {
	mu    sync.Mutex
	state PlaybackState
	// local time at which state.CurrentTime was true
	anchor time.Time
	// server clock minus local clock, in ms
	offset int64
}

func NewFollower() *Follower {
	return &Follower{}
}

func (f *Follower) ApplySnapshot(s Snapshot, receivedAt time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.offset = s.ServerTime - receivedAt.UnixMilli()
	f.apply(s.PlaybackState, receivedAt)
}

func (f *Follower) ApplyState(s PlaybackState, receivedAt time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.apply(s, receivedAt)
}

func (f *Follower) apply(s PlaybackState, receivedAt time.Time) {
	f.state = s

	elapsed := receivedAt.UnixMilli() + f.offset - s.LastUpdate
	if s.LastUpdate == 0 || elapsed < 0 {
		elapsed = 0
	}
	f.anchor = receivedAt.Add(-time.Duration(elapsed) * time.Millisecond)
}

// ApplyEvent feeds a server event to the follower. It reports whether the
// event carried playback state.
func (f *Follower) ApplyEvent(ev Event, receivedAt time.Time) (bool, error) {
	switch ev.Type {
	case "room-joined":
		var s Snapshot
		if err := json.Unmarshal(ev.Payload, &s); err != nil {
			return false, fmt.Errorf("invalid snapshot: %w", err)
		}
		f.ApplySnapshot(s, receivedAt)
		return true, nil
	case "video-state-update", "video-seek":
		var s PlaybackState
		if err := json.Unmarshal(ev.Payload, &s); err != nil {
			return false, fmt.Errorf("invalid playback state: %w", err)
		}
		f.ApplyState(s, receivedAt)
		return true, nil
	default:
		return false, nil
	}
}

func (f *Follower) State() PlaybackState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Position extrapolates the playback position at now.
func (f *Follower) Position(now time.Time) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.state.IsPlaying {
		return f.state.CurrentTime
	}

	elapsed := now.Sub(f.anchor).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}

	return f.state.CurrentTime + elapsed
}
