package session

import (
	"context"
	"maps"
	"time"

	"github.com/rs/zerolog/log"

	"moodwave/internal/catalog"
)

// selectionTimeout bounds one recommendation round-trip.
const selectionTimeout = 30 * time.Second

// SignalInfo is the read-only view of the radio tuning returned by Signal.
type SignalInfo struct {
	Description  string
	Energy       int
	TracksPlayed int
	Directions   int
}

// StartRadio begins a radio session tuned to the description. Only valid
// from idle.
func (c *Controller) StartRadio(description string) error {
	return c.startRadioWith(NewTuning(description))
}

// LoadStation behaves like StartRadio but restores the full saved tuning
// snapshot, including energy and direction history.
func (c *Controller) LoadStation(t Tuning) error {
	return c.startRadioWith(t.Snapshot())
}

func (c *Controller) startRadioWith(t Tuning) error {
	return c.call(func() error {
		if c.mode != ModeIdle {
			return ErrModeConflict
		}
		c.invalidate()
		c.mode = ModeRadio
		c.tuning = t
		c.history.Clear()
		c.avoid = nil
		log.Info().Str("guild", c.guildID).Str("description", t.Description).
			Int("energy", t.Energy).Msg("Radio started")
		c.requestSelection()
		return nil
	})
}

// StopRadio ends the radio session and reports how many tracks it played.
func (c *Controller) StopRadio() (played int, err error) {
	err = c.call(func() error {
		if c.mode != ModeRadio {
			return ErrNotInRadio
		}
		played = c.history.Len()
		c.driver.Halt()
		c.resetToIdle()
		return nil
	})
	return played, err
}

// Tune shifts the radio to a new direction. Takes effect on the next
// selection; the current track keeps playing.
func (c *Controller) Tune(direction string) error {
	return c.call(func() error {
		if c.mode != ModeRadio {
			return ErrNotInRadio
		}
		c.tuning.Retune(direction)
		return nil
	})
}

// Dial adjusts the radio energy by delta (clamped) and returns the new level.
func (c *Controller) Dial(delta int) (energy int, err error) {
	err = c.call(func() error {
		if c.mode != ModeRadio {
			return ErrNotInRadio
		}
		energy = c.tuning.Dial(delta)
		return nil
	})
	return energy, err
}

// Static skips the current track and steers the next selection away from
// it. The avoid set is consulted by exactly one selection, then dropped.
func (c *Controller) Static() (skipped catalog.Track, err error) {
	err = c.call(func() error {
		if c.mode != ModeRadio {
			return ErrNotInRadio
		}
		if c.current == nil {
			return ErrNotPlaying
		}
		skipped = *c.current
		if c.avoid == nil {
			c.avoid = make(map[string]struct{})
		}
		c.avoid[skipped.ID] = struct{}{}
		c.driver.Halt()
		c.current = nil
		c.requestSelection()
		return nil
	})
	return skipped, err
}

// Signal returns the current radio tuning. Pure read.
func (c *Controller) Signal() (info SignalInfo, err error) {
	err = c.call(func() error {
		if c.mode != ModeRadio {
			return ErrNotInRadio
		}
		info = SignalInfo{
			Description:  c.tuning.Description,
			Energy:       c.tuning.Energy,
			TracksPlayed: c.history.Len(),
			Directions:   len(c.tuning.Directions),
		}
		return nil
	})
	return info, err
}

// TuningSnapshot returns a copy of the live tuning for saving as a station.
func (c *Controller) TuningSnapshot() (t Tuning, err error) {
	err = c.call(func() error {
		if c.mode != ModeRadio {
			return ErrNotInRadio
		}
		t = c.tuning.Snapshot()
		return nil
	})
	return t, err
}

// requestSelection kicks off an asynchronous track selection for the
// current mode. At most one selection is in flight at a time; its result
// re-enters the mailbox tagged with the generation it was issued for.
func (c *Controller) requestSelection() {
	if c.selecting {
		return
	}

	var steering catalog.Steering
	switch c.mode {
	case ModeRadio:
		steering = catalog.Steering{
			Description: c.tuning.Description,
			Energy:      c.tuning.Energy,
		}
		if c.lastPlayed != nil {
			// Seed with the last played track so the catalog can lead
			// with tracks related to it before falling back to the
			// description search.
			seed := *c.lastPlayed
			steering.Seed = &seed
		}
		if len(c.avoid) > 0 {
			steering.Avoid = maps.Clone(c.avoid)
			c.avoid = nil // single use
		}
	case ModeAutoplay:
		steering = catalog.Steering{Description: c.auto.artist}
	default:
		return
	}

	c.selecting = true
	c.runSelection(c.gen, steering, false)
}

func (c *Controller) runSelection(gen uint64, steering catalog.Steering, widened bool) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), selectionTimeout)
		defer cancel()
		tracks, err := c.catalog.Recommend(ctx, steering)
		c.post(func() { c.applySelection(gen, steering, widened, tracks, err) })
	}()
}

// applySelection picks the first candidate not yet in history and starts
// it. All-duplicate responses trigger one widened retry (avoid set dropped,
// query broadened) before surfacing a transient failure.
func (c *Controller) applySelection(gen uint64, steering catalog.Steering, widened bool, tracks []catalog.Track, err error) {
	if gen != c.gen {
		log.Debug().Str("guild", c.guildID).Msg("Discarding stale selection result")
		return
	}
	c.selecting = false

	if err != nil {
		// Collaborator failure: mode and current track stay untouched.
		log.Error().Err(err).Str("guild", c.guildID).Msg("Selection failed")
		c.notifyf("Track selection failed: %v", err)
		return
	}

	for _, t := range tracks {
		if c.history.Contains(t.ID) {
			continue
		}
		if serr := c.startTrack(context.Background(), t); serr != nil {
			c.history.Add(t.ID) // don't retry a track that won't start
			c.failures++
			if c.failures >= maxStartFailures {
				c.notifyf("Playback keeps failing, stopping. Last error: %v", serr)
				c.resetToIdle()
				return
			}
			c.requestSelection()
			return
		}
		if c.mode == ModeAutoplay {
			c.auto.played++
		}
		return
	}

	if !widened {
		log.Info().Str("guild", c.guildID).Msg("All candidates are duplicates, widening request")
		steering.Avoid = nil
		steering.Seed = nil
		switch c.mode {
		case ModeAutoplay:
			steering.Description = c.auto.artist + " songs"
		case ModeRadio:
			steering.Description = c.tuning.Description + " songs playlist mix"
		}
		c.selecting = true
		c.runSelection(gen, steering, true)
		return
	}

	// Widened request exhausted too.
	switch c.mode {
	case ModeAutoplay:
		c.notifyf("Ran out of new songs for **%s**. Stopping autoplay.", c.auto.artist)
		c.driver.Halt()
		c.resetToIdle()
	default:
		log.Warn().Str("guild", c.guildID).Msg("No new candidates")
		c.notifyf("Running low on new tracks. Try `tune` to explore a new direction. (%v)", ErrNoNewCandidates)
	}
}
