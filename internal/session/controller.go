package session

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"moodwave/internal/catalog"
	"moodwave/internal/playback"
)

// Controller owns all playback state for one guild. User commands and
// playback-driver events are serialized through a single mailbox goroutine,
// so the state machine only ever processes one transition at a time.
// Different guilds run independent controllers.
type Controller struct {
	guildID string
	catalog catalog.Client
	driver  playback.Driver
	notify  func(text string)
	now     func() time.Time

	cmds   chan func()
	closed chan struct{}

	// State below is owned by the mailbox goroutine.
	mode       Mode
	current    *catalog.Track
	lastPlayed *catalog.Track
	queue      Queue
	history    History
	tuning     Tuning
	avoid      map[string]struct{}
	auto       autoplayState

	// gen tags in-flight selections; a mode change bumps it so stale
	// results are discarded on arrival instead of applied.
	gen       uint64
	selecting bool
	failures  int
}

// New creates and starts a controller for one guild. notify receives
// user-facing session messages (now playing, mode endings, transient
// errors); nil discards them.
func New(guildID string, cat catalog.Client, drv playback.Driver, notify func(text string)) *Controller {
	if notify == nil {
		notify = func(string) {}
	}
	c := &Controller{
		guildID: guildID,
		catalog: cat,
		driver:  drv,
		notify:  notify,
		now:     time.Now,
		cmds:    make(chan func()),
		closed:  make(chan struct{}),
	}
	go c.run()
	go c.pumpEvents()
	return c
}

// Close shuts the controller down and halts playback.
func (c *Controller) Close() {
	select {
	case <-c.closed:
		return
	default:
	}
	close(c.closed)
	c.driver.Halt()
}

func (c *Controller) run() {
	for {
		select {
		case fn := <-c.cmds:
			fn()
		case <-c.closed:
			return
		}
	}
}

// pumpEvents feeds driver events into the same mailbox as user commands.
func (c *Controller) pumpEvents() {
	for {
		select {
		case evt, ok := <-c.driver.Events():
			if !ok {
				return
			}
			c.post(func() { c.onDriverEvent(evt) })
		case <-c.closed:
			return
		}
	}
}

// call runs fn on the mailbox goroutine and waits for its result.
func (c *Controller) call(fn func() error) error {
	errCh := make(chan error, 1)
	select {
	case c.cmds <- func() { errCh <- fn() }:
	case <-c.closed:
		return ErrClosed
	}
	select {
	case err := <-errCh:
		return err
	case <-c.closed:
		return ErrClosed
	}
}

// post schedules fn on the mailbox goroutine without waiting.
func (c *Controller) post(fn func()) {
	select {
	case c.cmds <- fn:
	case <-c.closed:
	}
}

func (c *Controller) notifyf(format string, args ...any) {
	c.notify(fmt.Sprintf(format, args...))
}

// invalidate discards any in-flight selection. Called on every mode change.
func (c *Controller) invalidate() {
	c.gen++
	c.selecting = false
}

// resetToIdle clears all mode state. History is cleared too: it belongs to
// the continuous mode session that just ended.
func (c *Controller) resetToIdle() {
	c.invalidate()
	c.mode = ModeIdle
	c.current = nil
	c.lastPlayed = nil
	c.queue.Clear()
	c.history.Clear()
	c.tuning = Tuning{}
	c.avoid = nil
	c.auto = autoplayState{}
	c.failures = 0
}

// startTrack hands a track to the driver and records it. Exactly one
// outstanding start exists per guild because only the mailbox goroutine
// calls this.
func (c *Controller) startTrack(ctx context.Context, t catalog.Track) error {
	if err := c.driver.Start(ctx, t); err != nil {
		return fmt.Errorf("start playback: %w", err)
	}
	tt := t
	c.current = &tt
	c.lastPlayed = &tt
	c.history.Add(t.ID)
	c.failures = 0
	c.notifyf("Now playing: **%s**", t.Title)
	return nil
}

// Play resolves the query and enqueues the result, starting playback
// immediately when nothing is playing. Valid in idle and manual mode.
// Returns the resolved track and its queue position (0 = playing now).
func (c *Controller) Play(ctx context.Context, query string) (track catalog.Track, position int, err error) {
	err = c.call(func() error {
		if c.mode == ModeAutoplay || c.mode == ModeRadio {
			return ErrModeConflict
		}
		t, serr := c.catalog.Search(ctx, query)
		if serr != nil {
			return serr
		}
		track = t
		c.mode = ModeManual
		if c.current != nil {
			c.queue.Enqueue(t)
			position = c.queue.Len()
			return nil
		}
		if serr := c.startTrack(ctx, t); serr != nil {
			c.mode = ModeIdle
			return serr
		}
		return nil
	})
	return track, position, err
}

// Skip advances past the current track according to the active mode.
func (c *Controller) Skip(ctx context.Context) error {
	return c.call(func() error {
		switch c.mode {
		case ModeIdle:
			return ErrNotPlaying
		case ModeManual:
			c.driver.Halt()
			c.current = nil
			if c.queue.Len() == 0 {
				c.mode = ModeIdle
				c.history.Clear()
				return ErrEmptyQueue
			}
			return c.advanceManual(ctx)
		default: // autoplay, radio
			c.driver.Halt()
			c.current = nil
			c.requestSelection()
			return nil
		}
	})
}

// Stop halts playback and returns the session to idle, clearing queue,
// history, tuning and autoplay state. Saved stations are unaffected.
func (c *Controller) Stop() error {
	return c.call(func() error {
		c.driver.Halt()
		c.resetToIdle()
		return nil
	})
}

// Pause suspends the current track.
func (c *Controller) Pause() error {
	return c.call(func() error {
		if c.current == nil {
			return ErrNotPlaying
		}
		return c.driver.Pause()
	})
}

// Resume continues a paused track.
func (c *Controller) Resume() error {
	return c.call(func() error {
		if c.current == nil {
			return ErrNotPlaying
		}
		return c.driver.Resume()
	})
}

// NowPlaying returns the current track, if any.
func (c *Controller) NowPlaying() (track catalog.Track, ok bool) {
	c.call(func() error {
		if c.current != nil {
			track = *c.current
			ok = true
		}
		return nil
	})
	return track, ok
}

// QueueView returns the current track and the full pending queue. Callers
// cap the presentation, not the queue.
func (c *Controller) QueueView() (current *catalog.Track, upcoming []catalog.Track) {
	c.call(func() error {
		if c.current != nil {
			t := *c.current
			current = &t
		}
		upcoming = c.queue.Peek(0)
		return nil
	})
	return current, upcoming
}

// Mode returns the active playback mode.
func (c *Controller) Mode() (m Mode) {
	c.call(func() error {
		m = c.mode
		return nil
	})
	return m
}

// StartAutoplay begins a two-hour autoplay session for an artist. Only
// valid from idle.
func (c *Controller) StartAutoplay(artist string) error {
	return c.call(func() error {
		if c.mode != ModeIdle {
			return ErrModeConflict
		}
		c.invalidate()
		c.mode = ModeAutoplay
		c.history.Clear()
		now := c.now()
		c.auto = autoplayState{artist: artist, startedAt: now, deadline: now.Add(autoplayWindow)}
		log.Info().Str("guild", c.guildID).Str("artist", artist).Msg("Autoplay started")
		c.requestSelection()
		return nil
	})
}

// StopAutoplay ends autoplay and reports how many songs were played.
func (c *Controller) StopAutoplay() (played int, err error) {
	err = c.call(func() error {
		if c.mode != ModeAutoplay {
			return ErrModeConflict
		}
		played = c.auto.played
		c.driver.Halt()
		c.resetToIdle()
		return nil
	})
	return played, err
}

// AutoplayStatus reports the artist, songs played and time remaining.
func (c *Controller) AutoplayStatus() (artist string, played int, remaining time.Duration, err error) {
	err = c.call(func() error {
		if c.mode != ModeAutoplay {
			return ErrModeConflict
		}
		artist = c.auto.artist
		played = c.auto.played
		remaining = max(0, c.auto.deadline.Sub(c.now()))
		return nil
	})
	return artist, played, remaining, err
}

// onDriverEvent handles track-finished and track-error notifications.
func (c *Controller) onDriverEvent(evt playback.Event) {
	if c.current == nil || evt.Track.ID != c.current.ID {
		// A skip or stop already moved past this track.
		return
	}

	if evt.Type == playback.EventError {
		c.failures++
		log.Warn().Err(evt.Err).Str("guild", c.guildID).Str("track", evt.Track.Title).
			Int("failures", c.failures).Msg("Track failed, advancing")
		if c.failures >= maxStartFailures {
			c.notifyf("Playback keeps failing, stopping. Last error: %v", evt.Err)
			c.driver.Halt()
			c.resetToIdle()
			return
		}
	}

	c.current = nil
	switch c.mode {
	case ModeManual:
		if c.queue.Len() == 0 {
			c.mode = ModeIdle
			c.history.Clear()
			return
		}
		if err := c.advanceManual(context.Background()); err != nil {
			c.notifyf("Playback error: %v", err)
		}
	case ModeAutoplay:
		if !c.now().Before(c.auto.deadline) {
			c.notifyf("Autoplay ended after 2 hours. Played %d unique songs.", c.auto.played)
			c.resetToIdle()
			return
		}
		c.requestSelection()
	case ModeRadio:
		c.requestSelection()
	}
}

// advanceManual starts the next queued track, skipping tracks that fail to
// start, up to the failure cap.
func (c *Controller) advanceManual(ctx context.Context) error {
	for {
		track, err := c.queue.Dequeue()
		if err != nil {
			c.mode = ModeIdle
			c.history.Clear()
			return fmt.Errorf("%w: %w", ErrPlaybackFailed, ErrEmptyQueue)
		}
		if err := c.startTrack(ctx, track); err == nil {
			return nil
		}
		c.failures++
		log.Warn().Str("guild", c.guildID).Str("track", track.Title).Msg("Track failed to start, trying next")
		if c.failures >= maxStartFailures {
			c.resetToIdle()
			return ErrPlaybackFailed
		}
	}
}
