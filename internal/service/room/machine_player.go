package room

import (
	"fmt"
	"math"
	"time"
)

func validateCurrentTime(currentTime float64) error {
	if math.IsNaN(currentTime) || math.IsInf(currentTime, 0) || currentTime < 0 {
		return fmt.Errorf("%w: currentTime must be a finite non-negative number", ErrInvalidPayload)
	}

	return nil
}

// updatePlayState applies a host play/pause. Events from anyone else are
// accepted and ignored; result reports whether the state changed.
func (m *machine) updatePlayState(now time.Time, e *effects, in playStateInput) error {
	if err := validateCurrentTime(in.currentTime); err != nil {
		return err
	}

	if _, err := m.participant(in.participantId); err != nil {
		return err
	}

	if !m.isHost(in.participantId) {
		e.result = false
		return nil
	}

	m.playback = PlaybackState{
		IsPlaying:   in.isPlaying,
		CurrentTime: in.currentTime,
		LastUpdate:  now.UnixMilli(),
	}
	e.send(m.recipients(in.participantId), EventVideoStateUpdate, m.playback)
	e.result = true

	return nil
}

func (m *machine) seek(now time.Time, e *effects, in seekInput) error {
	if err := validateCurrentTime(in.currentTime); err != nil {
		return err
	}

	if _, err := m.participant(in.participantId); err != nil {
		return err
	}

	if !m.isHost(in.participantId) {
		e.result = false
		return nil
	}

	m.playback.CurrentTime = in.currentTime
	m.playback.LastUpdate = now.UnixMilli()
	e.send(m.recipients(in.participantId), EventVideoSeek, m.playback)
	e.result = true

	return nil
}
