package catalog

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound means a search produced no playable track.
	ErrNotFound = errors.New("no track found")
	// ErrUnavailable means the catalog backend could not be reached.
	ErrUnavailable = errors.New("catalog unavailable")
)

// Track is an immutable description of a playable track. Identity is ID.
type Track struct {
	ID       string        `json:"id"`
	Title    string        `json:"title"`
	Artist   string        `json:"artist"`
	Duration time.Duration `json:"duration"`
	URL      string        `json:"url"`
}

// Steering is the request payload for a recommendation round-trip.
type Steering struct {
	Description string
	Energy      int
	Seed        *Track              // last played track; seeds similar-to recommendations
	Avoid       map[string]struct{} // track IDs to steer away from
}

// Client is the track catalog contract consumed by the session controller.
type Client interface {
	// Search resolves free text (or a URL) to a single track.
	// Returns ErrNotFound when nothing playable matches.
	Search(ctx context.Context, text string) (Track, error)

	// Recommend returns candidate tracks for the given steering, best
	// matches first. The returned slice may be empty.
	Recommend(ctx context.Context, s Steering) ([]Track, error)
}
