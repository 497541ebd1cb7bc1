package services

import (
	"time"

	"github.com/morezero/desktop-shell/pkg/catalog"
)

// Playback statuses.
const (
	StatusIdle    = "idle"
	StatusPlaying = "playing"
	StatusPaused  = "paused"
)

// PlaybackState is the current state of the player.
type PlaybackState struct {
	Status    string             `json:"status"`
	Item      *catalog.MediaItem `json:"item,omitempty"`
	StartedAt string             `json:"startedAt,omitempty"`
	PausedAt  string             `json:"pausedAt,omitempty"`
}

// PlaybackService tracks what is playing.
type PlaybackService struct {
	state PlaybackState
	clock func() time.Time
}

// NewPlaybackService creates an idle PlaybackService. A nil clock uses time.Now.
func NewPlaybackService(clock func() time.Time) PlaybackService {
	if clock == nil {
		clock = time.Now
	}
	return PlaybackService{state: PlaybackState{Status: StatusIdle}, clock: clock}
}

func (s *PlaybackService) stamp() string {
	return s.clock().UTC().Format(time.RFC3339)
}

// Play starts item, replacing whatever was playing.
func (s *PlaybackService) Play(item catalog.MediaItem) PlaybackState {
	s.state = PlaybackState{Status: StatusPlaying, Item: &item, StartedAt: s.stamp()}
	return s.State()
}

// Pause pauses the current item.
func (s *PlaybackService) Pause() (PlaybackState, error) {
	if s.state.Status != StatusPlaying {
		return s.State(), NewServiceError(CodeInvalidState, "Nothing is playing")
	}
	s.state.Status = StatusPaused
	s.state.PausedAt = s.stamp()
	return s.State(), nil
}

// Resume resumes a paused item.
func (s *PlaybackService) Resume() (PlaybackState, error) {
	if s.state.Status != StatusPaused {
		return s.State(), NewServiceError(CodeInvalidState, "Playback is not paused")
	}
	s.state.Status = StatusPlaying
	s.state.PausedAt = ""
	return s.State(), nil
}

// Stop returns the player to idle. Stopping an idle player is not an error.
func (s *PlaybackService) Stop() PlaybackState {
	s.state = PlaybackState{Status: StatusIdle}
	return s.State()
}

// State returns a copy of the current state.
func (s *PlaybackService) State() PlaybackState {
	st := s.state
	if st.Item != nil {
		item := *st.Item
		st.Item = &item
	}
	return st
}
