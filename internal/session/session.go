// Package session implements the per-guild playback session: the mode state
// machine, manual queue, play history, radio tuning and track selection.
package session

import (
	"errors"
	"time"
)

// Mode is the playback mode of a session. At most one non-idle mode is
// active at a time.
type Mode int

const (
	ModeIdle Mode = iota
	ModeManual
	ModeAutoplay
	ModeRadio
)

func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeManual:
		return "manual"
	case ModeAutoplay:
		return "autoplay"
	case ModeRadio:
		return "radio"
	default:
		return "unknown"
	}
}

var (
	// ErrModeConflict means the requested operation is incompatible with
	// the session's current mode. No state is changed.
	ErrModeConflict = errors.New("another playback mode is active")
	// ErrEmptyQueue means the manual queue has no tracks left.
	ErrEmptyQueue = errors.New("queue is empty")
	// ErrNotPlaying means there is no current track to act on.
	ErrNotPlaying = errors.New("nothing is playing")
	// ErrNotInRadio means a radio-only operation was called outside radio mode.
	ErrNotInRadio = errors.New("radio is not running")
	// ErrNoNewCandidates means every recommendation candidate was already
	// played this session, even after widening the request.
	ErrNoNewCandidates = errors.New("no new candidates")
	// ErrPlaybackFailed means the driver kept failing and the session
	// gave up after the retry cap.
	ErrPlaybackFailed = errors.New("playback failed")
	// ErrClosed means the session controller has shut down.
	ErrClosed = errors.New("session closed")
)

// autoplayWindow is how long an autoplay session runs before idling out.
const autoplayWindow = 2 * time.Hour

// maxStartFailures caps consecutive playback failures before the session
// gives up and goes idle.
const maxStartFailures = 3

// autoplayState is the autoplay-only portion of session state.
type autoplayState struct {
	artist    string
	startedAt time.Time
	deadline  time.Time
	played    int
}
