package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kkdai/youtube/v2"
	"github.com/ppalone/ytsearch"
	"github.com/raitonoberu/ytmusic"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Energy level modifiers appended to recommendation queries. Keyed by the
// clamped energy value carried in the steering.
var energyModifiers = map[int]string{
	-2: "slow ambient calm relaxing",
	-1: "chill mellow laid back",
	0:  "",
	1:  "upbeat energetic",
	2:  "hype intense bangers high energy",
}

// YouTube is a catalog client backed by YouTube Music search with a plain
// YouTube search fallback.
type YouTube struct {
	limiter    *rate.Limiter
	search     *ytsearch.Client
	maxResults int
}

// NewYouTube creates a YouTube catalog client. rps bounds outbound search
// requests per second; maxResults caps candidates per recommendation.
func NewYouTube(rps float64, maxResults int) *YouTube {
	if rps <= 0 {
		rps = 2
	}
	if maxResults <= 0 {
		maxResults = 30
	}
	return &YouTube{
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		search:     ytsearch.NewClient(nil),
		maxResults: maxResults,
	}
}

func watchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

// Search resolves free text to a single playable track.
func (y *YouTube) Search(ctx context.Context, text string) (Track, error) {
	tracks, err := y.query(ctx, text)
	if err != nil {
		return Track{}, err
	}
	for _, t := range tracks {
		if likelySong(t.Title, t.Duration) {
			return t, nil
		}
	}
	if len(tracks) > 0 {
		// Nothing passed the song filter; a direct search still honors
		// the user's literal request.
		return tracks[0], nil
	}
	return Track{}, ErrNotFound
}

// Recommend returns candidates for the steering, filtered down to likely
// songs outside the avoid set. When a seed track is present its related
// tracks come first, ahead of the description search results.
func (y *YouTube) Recommend(ctx context.Context, s Steering) ([]Track, error) {
	var related []Track
	if s.Seed != nil {
		related = y.related(ctx, *s.Seed)
	}

	query := buildQuery(s.Description, s.Energy)
	searched, err := y.query(ctx, query)
	if err != nil {
		if len(related) == 0 {
			return nil, err
		}
		searched = nil
	}

	seen := make(map[string]struct{}, len(related)+len(searched))
	tracks := make([]Track, 0, len(related)+len(searched))
	for _, t := range append(related, searched...) {
		if _, dup := seen[t.ID]; dup {
			continue
		}
		seen[t.ID] = struct{}{}
		tracks = append(tracks, t)
	}

	out := make([]Track, 0, len(tracks))
	seenTitles := make(map[string]struct{}, len(tracks))
	for _, t := range tracks {
		if _, avoided := s.Avoid[t.ID]; avoided {
			continue
		}
		if !likelySong(t.Title, t.Duration) {
			log.Debug().Str("title", t.Title).Msg("Filtered out non-song candidate")
			continue
		}
		// Same song reuploaded under a slightly different name still
		// counts as a duplicate within one response.
		norm := normalizeTitle(t.Title)
		if _, dup := seenTitles[norm]; dup {
			continue
		}
		seenTitles[norm] = struct{}{}
		out = append(out, t)
	}
	return out, nil
}

// related collects tracks similar to the seed from its autogenerated mix
// playlist. When the mix is not available it falls back to a search seeded
// by the track's own title and artist. The seed itself is never returned.
func (y *YouTube) related(ctx context.Context, seed Track) []Track {
	if err := y.limiter.Wait(ctx); err != nil {
		return nil
	}

	client := &youtube.Client{}
	playlist, err := client.GetPlaylistContext(ctx, "RD"+seed.ID)
	if err == nil {
		tracks := make([]Track, 0, len(playlist.Videos))
		for _, v := range playlist.Videos {
			if v.ID == "" || v.ID == seed.ID {
				continue
			}
			tracks = append(tracks, Track{
				ID:       v.ID,
				Title:    v.Title,
				Artist:   v.Author,
				Duration: v.Duration,
				URL:      watchURL(v.ID),
			})
		}
		if len(tracks) > 0 {
			return tracks
		}
	} else {
		log.Debug().Err(err).Str("seed", seed.ID).Msg("Mix playlist unavailable, falling back to seeded search")
	}

	found, err := y.query(ctx, strings.TrimSpace(seed.Title+" "+seed.Artist))
	if err != nil {
		return nil
	}
	tracks := make([]Track, 0, len(found))
	for _, t := range found {
		if t.ID == seed.ID {
			continue
		}
		tracks = append(tracks, t)
	}
	return tracks
}

// buildQuery combines the tuned description with the energy vocabulary.
func buildQuery(description string, energy int) string {
	return strings.TrimSpace(description + " " + energyModifiers[energy])
}

// query runs YouTube Music and plain YouTube search concurrently and merges
// the results, music hits first, deduplicated by video ID.
func (y *YouTube) query(ctx context.Context, text string) ([]Track, error) {
	if err := y.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	type result struct {
		tracks []Track
		err    error
	}
	ytmCh := make(chan result, 1)
	ytCh := make(chan result, 1)

	go func() {
		r, err := ytmusic.TrackSearch(text).Next()
		if err != nil {
			ytmCh <- result{err: err}
			return
		}
		tracks := make([]Track, 0, len(r.Tracks))
		for _, v := range r.Tracks {
			if v.VideoID == "" {
				continue
			}
			artist := ""
			if len(v.Artists) > 0 {
				artist = v.Artists[0].Name
			}
			tracks = append(tracks, Track{
				ID:       v.VideoID,
				Title:    v.Title,
				Artist:   artist,
				Duration: time.Duration(v.Duration) * time.Second,
				URL:      watchURL(v.VideoID),
			})
		}
		ytmCh <- result{tracks: tracks}
	}()

	go func() {
		r, err := y.search.Search(ctx, text)
		if err != nil {
			ytCh <- result{err: err}
			return
		}
		tracks := make([]Track, 0, len(r.Results))
		for _, v := range r.Results {
			if v.VideoID == "" {
				continue
			}
			tracks = append(tracks, Track{
				ID:     v.VideoID,
				Title:  v.Title,
				Artist: v.Channel,
				URL:    watchURL(v.VideoID),
			})
		}
		ytCh <- result{tracks: tracks}
	}()

	ytm := <-ytmCh
	yt := <-ytCh
	if ytm.err != nil && yt.err != nil {
		return nil, fmt.Errorf("%w: ytmusic: %v, ytsearch: %v", ErrUnavailable, ytm.err, yt.err)
	}

	seen := make(map[string]struct{})
	merged := make([]Track, 0, len(ytm.tracks)+len(yt.tracks))
	for _, t := range append(ytm.tracks, yt.tracks...) {
		if _, dup := seen[t.ID]; dup {
			continue
		}
		seen[t.ID] = struct{}{}
		merged = append(merged, t)
		if len(merged) >= y.maxResults {
			break
		}
	}
	return merged, nil
}
