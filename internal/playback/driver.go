package playback

import (
	"context"
	"errors"

	"moodwave/internal/catalog"
)

var ErrNoTrackPlaying = errors.New("no track is currently playing")

// EventType classifies driver events delivered back to the controller.
type EventType int

const (
	// EventFinished means the track played to its natural end.
	EventFinished EventType = iota
	// EventError means playback failed before the track could finish.
	EventError
)

// Event is emitted by a Driver when a started track ends on its own.
// Tracks stopped through Halt or a subsequent Start do not emit events.
type Event struct {
	Type  EventType
	Track catalog.Track
	Err   error
}

// Driver plays one track at a time into some audio sink.
type Driver interface {
	// Start begins playback of the track, stopping any current one first.
	// It returns once playback is underway; completion arrives on Events.
	Start(ctx context.Context, track catalog.Track) error

	// Pause and Resume control the current track. Both return
	// ErrNoTrackPlaying when nothing has been started.
	Pause() error
	Resume() error

	// Halt stops playback without emitting a finish event.
	Halt() error

	// Events delivers track-finished and track-error notifications.
	Events() <-chan Event

	// Close releases the audio sink.
	Close() error
}
