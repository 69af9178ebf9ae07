package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"moodwave/internal/catalog"
	"moodwave/internal/playback"
)

// fakeCatalog resolves searches from a fixed map and delegates
// recommendations to a swappable function, recording every steering it sees.
type fakeCatalog struct {
	mu        sync.Mutex
	tracks    map[string]catalog.Track
	searchErr error
	recommend func(catalog.Steering) ([]catalog.Track, error)
	steerings []catalog.Steering
}

func (f *fakeCatalog) Search(_ context.Context, text string) (catalog.Track, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.searchErr != nil {
		return catalog.Track{}, f.searchErr
	}
	if t, ok := f.tracks[text]; ok {
		return t, nil
	}
	return tr(text), nil
}

func (f *fakeCatalog) Recommend(_ context.Context, s catalog.Steering) ([]catalog.Track, error) {
	f.mu.Lock()
	f.steerings = append(f.steerings, s)
	fn := f.recommend
	f.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn(s)
}

func (f *fakeCatalog) setRecommend(fn func(catalog.Steering) ([]catalog.Track, error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recommend = fn
}

func (f *fakeCatalog) steeringAt(i int) catalog.Steering {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.steerings[i]
}

func (f *fakeCatalog) steeringCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.steerings)
}

// fakeDriver records every lifecycle call and exposes the events channel so
// tests can inject track-finished and track-error notifications.
type fakeDriver struct {
	mu      sync.Mutex
	started []catalog.Track
	halts   int
	pauses  int
	resumes int
	failIDs map[string]bool

	startCh chan catalog.Track
	events  chan playback.Event
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		failIDs: map[string]bool{},
		startCh: make(chan catalog.Track, 32),
		events:  make(chan playback.Event, 32),
	}
}

func (d *fakeDriver) Start(_ context.Context, t catalog.Track) error {
	d.mu.Lock()
	fail := d.failIDs[t.ID]
	if !fail {
		d.started = append(d.started, t)
	}
	d.mu.Unlock()
	if fail {
		return errors.New("stream unavailable")
	}
	d.startCh <- t
	return nil
}

func (d *fakeDriver) Pause() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pauses++
	return nil
}

func (d *fakeDriver) Resume() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resumes++
	return nil
}

func (d *fakeDriver) Halt() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.halts++
	return nil
}

func (d *fakeDriver) Close() error { return nil }

func (d *fakeDriver) Events() <-chan playback.Event { return d.events }

func (d *fakeDriver) finish(t catalog.Track) {
	d.events <- playback.Event{Type: playback.EventFinished, Track: t}
}

func (d *fakeDriver) fail(t catalog.Track, err error) {
	d.events <- playback.Event{Type: playback.EventError, Track: t, Err: err}
}

func (d *fakeDriver) startedIDs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	ids := make([]string, len(d.started))
	for i, t := range d.started {
		ids[i] = t.ID
	}
	return ids
}

func tr(id string) catalog.Track {
	return catalog.Track{
		ID:       id,
		Title:    "Track " + id,
		Artist:   "Artist",
		Duration: 3 * time.Minute,
		URL:      "https://youtu.be/" + id,
	}
}

func newTestController(t *testing.T) (*Controller, *fakeDriver, *fakeCatalog, chan string) {
	t.Helper()
	drv := newFakeDriver()
	cat := &fakeCatalog{tracks: map[string]catalog.Track{}}
	notes := make(chan string, 64)
	c := New("guild-1", cat, drv, func(s string) {
		select {
		case notes <- s:
		default:
		}
	})
	t.Cleanup(c.Close)
	return c, drv, cat, notes
}

func waitStart(t *testing.T, drv *fakeDriver) catalog.Track {
	t.Helper()
	select {
	case track := <-drv.startCh:
		return track
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a track to start")
		return catalog.Track{}
	}
}

func waitNotify(t *testing.T, notes chan string, substr string) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case note := <-notes:
			if strings.Contains(note, substr) {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for notification containing %q", substr)
		}
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition never became true")
}

func TestPlayStartsImmediatelyWhenIdle(t *testing.T) {
	c, drv, _, _ := newTestController(t)

	track, position, err := c.Play(context.Background(), "a")
	if err != nil {
		t.Fatalf("Play: %v", err)
	}
	if position != 0 {
		t.Errorf("position = %d, want 0", position)
	}
	if track.ID != "a" {
		t.Errorf("track.ID = %q, want %q", track.ID, "a")
	}
	waitStart(t, drv)

	if got, ok := c.NowPlaying(); !ok || got.ID != "a" {
		t.Errorf("NowPlaying = %v, %v, want track a", got, ok)
	}
	if m := c.Mode(); m != ModeManual {
		t.Errorf("Mode = %v, want manual", m)
	}
}

func TestPlayQueuesInArrivalOrder(t *testing.T) {
	c, drv, _, _ := newTestController(t)
	ctx := context.Background()

	c.Play(ctx, "a")
	waitStart(t, drv)
	if _, pos, _ := c.Play(ctx, "b"); pos != 1 {
		t.Errorf("position for b = %d, want 1", pos)
	}
	if _, pos, _ := c.Play(ctx, "c"); pos != 2 {
		t.Errorf("position for c = %d, want 2", pos)
	}

	current, upcoming := c.QueueView()
	if current == nil || current.ID != "a" {
		t.Fatalf("current = %v, want track a", current)
	}
	if len(upcoming) != 2 || upcoming[0].ID != "b" || upcoming[1].ID != "c" {
		t.Fatalf("upcoming = %v, want [b c]", upcoming)
	}

	drv.finish(tr("a"))
	waitStart(t, drv)
	drv.finish(tr("b"))
	waitStart(t, drv)
	drv.finish(tr("c"))
	waitFor(t, func() bool { return c.Mode() == ModeIdle })

	ids := drv.startedIDs()
	want := []string{"a", "b", "c"}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("playback order = %v, want %v", ids, want)
		}
	}
}

func TestQueueViewDoesNotConsume(t *testing.T) {
	c, drv, _, _ := newTestController(t)
	ctx := context.Background()

	c.Play(ctx, "a")
	waitStart(t, drv)
	c.Play(ctx, "b")

	_, first := c.QueueView()
	_, second := c.QueueView()
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("queue views = %v, %v, want both to keep one entry", first, second)
	}
}

func TestPlayRejectedInRadioAndAutoplay(t *testing.T) {
	c, drv, cat, _ := newTestController(t)
	cat.setRecommend(func(catalog.Steering) ([]catalog.Track, error) {
		return []catalog.Track{tr("r1")}, nil
	})

	if err := c.StartRadio("synthwave"); err != nil {
		t.Fatalf("StartRadio: %v", err)
	}
	waitStart(t, drv)
	if _, _, err := c.Play(context.Background(), "a"); !errors.Is(err, ErrModeConflict) {
		t.Errorf("Play in radio = %v, want ErrModeConflict", err)
	}

	c.Stop()
	if err := c.StartAutoplay("Daft Punk"); err != nil {
		t.Fatalf("StartAutoplay: %v", err)
	}
	waitStart(t, drv)
	if _, _, err := c.Play(context.Background(), "a"); !errors.Is(err, ErrModeConflict) {
		t.Errorf("Play in autoplay = %v, want ErrModeConflict", err)
	}
}

func TestPlaySearchFailureLeavesSessionIdle(t *testing.T) {
	c, _, cat, _ := newTestController(t)
	cat.searchErr = catalog.ErrNotFound

	if _, _, err := c.Play(context.Background(), "nope"); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("Play = %v, want ErrNotFound", err)
	}
	if m := c.Mode(); m != ModeIdle {
		t.Errorf("Mode = %v, want idle", m)
	}
}

func TestSkipManual(t *testing.T) {
	c, drv, _, _ := newTestController(t)
	ctx := context.Background()

	c.Play(ctx, "a")
	waitStart(t, drv)
	c.Play(ctx, "b")

	if err := c.Skip(ctx); err != nil {
		t.Fatalf("Skip: %v", err)
	}
	if got := waitStart(t, drv); got.ID != "b" {
		t.Errorf("skipped to %q, want b", got.ID)
	}

	if err := c.Skip(ctx); !errors.Is(err, ErrEmptyQueue) {
		t.Errorf("Skip with empty queue = %v, want ErrEmptyQueue", err)
	}
	if m := c.Mode(); m != ModeIdle {
		t.Errorf("Mode = %v, want idle", m)
	}
}

func TestSkipWhenIdle(t *testing.T) {
	c, _, _, _ := newTestController(t)
	if err := c.Skip(context.Background()); !errors.Is(err, ErrNotPlaying) {
		t.Errorf("Skip = %v, want ErrNotPlaying", err)
	}
}

func TestPauseResume(t *testing.T) {
	c, drv, _, _ := newTestController(t)

	if err := c.Pause(); !errors.Is(err, ErrNotPlaying) {
		t.Errorf("Pause while idle = %v, want ErrNotPlaying", err)
	}

	c.Play(context.Background(), "a")
	waitStart(t, drv)
	if err := c.Pause(); err != nil {
		t.Errorf("Pause: %v", err)
	}
	if err := c.Resume(); err != nil {
		t.Errorf("Resume: %v", err)
	}

	c.Stop()
	if err := c.Resume(); !errors.Is(err, ErrNotPlaying) {
		t.Errorf("Resume after stop = %v, want ErrNotPlaying", err)
	}
}

func TestStopClearsSessionState(t *testing.T) {
	c, drv, _, _ := newTestController(t)
	ctx := context.Background()

	c.Play(ctx, "a")
	waitStart(t, drv)
	c.Play(ctx, "b")

	if err := c.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if m := c.Mode(); m != ModeIdle {
		t.Errorf("Mode = %v, want idle", m)
	}
	if _, ok := c.NowPlaying(); ok {
		t.Error("NowPlaying reports a track after Stop")
	}
	if current, upcoming := c.QueueView(); current != nil || len(upcoming) != 0 {
		t.Errorf("queue not cleared: current=%v upcoming=%v", current, upcoming)
	}

	// A fresh session starts cleanly.
	if _, pos, err := c.Play(ctx, "c"); err != nil || pos != 0 {
		t.Errorf("Play after Stop = pos %d, %v, want 0, nil", pos, err)
	}
}

func TestRadioNeverRepeatsWithinSession(t *testing.T) {
	c, drv, cat, _ := newTestController(t)
	cat.setRecommend(func(catalog.Steering) ([]catalog.Track, error) {
		return []catalog.Track{tr("r1"), tr("r2"), tr("r3")}, nil
	})

	if err := c.StartRadio("synthwave"); err != nil {
		t.Fatalf("StartRadio: %v", err)
	}
	if got := waitStart(t, drv); got.ID != "r1" {
		t.Fatalf("first selection = %q, want r1", got.ID)
	}

	drv.finish(tr("r1"))
	if got := waitStart(t, drv); got.ID != "r2" {
		t.Errorf("second selection = %q, want r2 (r1 already played)", got.ID)
	}
	drv.finish(tr("r2"))
	if got := waitStart(t, drv); got.ID != "r3" {
		t.Errorf("third selection = %q, want r3", got.ID)
	}
}

func TestDialClampsEnergy(t *testing.T) {
	c, drv, cat, _ := newTestController(t)
	cat.setRecommend(func(catalog.Steering) ([]catalog.Track, error) {
		return []catalog.Track{tr("r1")}, nil
	})
	c.StartRadio("synthwave")
	waitStart(t, drv)

	for i := 0; i < 5; i++ {
		c.Dial(+1)
	}
	if energy, _ := c.Dial(+1); energy != EnergyMax {
		t.Errorf("energy after repeated dial up = %d, want %d", energy, EnergyMax)
	}
	if energy, _ := c.Dial(-1); energy != EnergyMax-1 {
		t.Errorf("dial down from max = %d, want %d", energy, EnergyMax-1)
	}
	for i := 0; i < 10; i++ {
		c.Dial(-1)
	}
	if energy, _ := c.Dial(-1); energy != EnergyMin {
		t.Errorf("energy after repeated dial down = %d, want %d", energy, EnergyMin)
	}
}

func TestTuneTakesEffectOnNextSelection(t *testing.T) {
	c, drv, cat, _ := newTestController(t)
	cat.setRecommend(func(catalog.Steering) ([]catalog.Track, error) {
		return []catalog.Track{tr("r1"), tr("r2")}, nil
	})
	c.StartRadio("synthwave")
	waitStart(t, drv)

	if err := c.Tune("more minimal"); err != nil {
		t.Fatalf("Tune: %v", err)
	}
	// Current track keeps playing.
	if got, ok := c.NowPlaying(); !ok || got.ID != "r1" {
		t.Errorf("NowPlaying after Tune = %v, %v, want r1 still playing", got, ok)
	}

	drv.finish(tr("r1"))
	waitStart(t, drv)
	if desc := cat.steeringAt(1).Description; desc != "more minimal" {
		t.Errorf("second steering description = %q, want %q", desc, "more minimal")
	}

	info, err := c.Signal()
	if err != nil {
		t.Fatalf("Signal: %v", err)
	}
	if info.Description != "more minimal" || info.Directions != 2 {
		t.Errorf("Signal = %+v, want description %q with 2 directions", info, "more minimal")
	}
}

func TestStaticAvoidSetIsSingleUse(t *testing.T) {
	c, drv, cat, _ := newTestController(t)
	cat.setRecommend(func(catalog.Steering) ([]catalog.Track, error) {
		return []catalog.Track{tr("r1"), tr("r2"), tr("r3")}, nil
	})
	c.StartRadio("synthwave")
	waitStart(t, drv)

	skipped, err := c.Static()
	if err != nil {
		t.Fatalf("Static: %v", err)
	}
	if skipped.ID != "r1" {
		t.Errorf("skipped = %q, want r1", skipped.ID)
	}
	waitStart(t, drv)

	second := cat.steeringAt(1)
	if _, ok := second.Avoid["r1"]; !ok {
		t.Errorf("steering after Static lacks avoided track: %+v", second)
	}

	drv.finish(tr("r2"))
	waitStart(t, drv)
	if third := cat.steeringAt(2); len(third.Avoid) != 0 {
		t.Errorf("avoid set leaked into later selection: %+v", third)
	}
}

func TestRadioSelectionSeededByLastPlayed(t *testing.T) {
	c, drv, cat, _ := newTestController(t)
	cat.setRecommend(func(catalog.Steering) ([]catalog.Track, error) {
		return []catalog.Track{tr("r1"), tr("r2"), tr("r3")}, nil
	})

	c.StartRadio("synthwave")
	waitStart(t, drv)

	// Nothing has played yet, so the opening selection runs unseeded.
	if first := cat.steeringAt(0); first.Seed != nil {
		t.Errorf("opening steering carries seed %+v, want none", first.Seed)
	}

	drv.finish(tr("r1"))
	waitStart(t, drv)
	second := cat.steeringAt(1)
	if second.Seed == nil || second.Seed.ID != "r1" {
		t.Errorf("second steering seed = %+v, want the track that just played (r1)", second.Seed)
	}

	drv.finish(tr("r2"))
	waitStart(t, drv)
	if third := cat.steeringAt(2); third.Seed == nil || third.Seed.ID != "r2" {
		t.Errorf("third steering seed = %+v, want r2", third.Seed)
	}
}

func TestRadioWidenedRetryBroadensQuery(t *testing.T) {
	c, drv, cat, notes := newTestController(t)
	cat.setRecommend(func(catalog.Steering) ([]catalog.Track, error) {
		return []catalog.Track{tr("only")}, nil
	})

	c.StartRadio("synthwave")
	waitStart(t, drv)

	drv.finish(tr("only"))
	waitNotify(t, notes, "Running low on new tracks")

	// Initial request, the post-finish request, then its widened retry.
	if n := cat.steeringCount(); n != 3 {
		t.Fatalf("steering count = %d, want 3", n)
	}
	narrow := cat.steeringAt(1)
	widened := cat.steeringAt(2)
	if narrow.Seed == nil || narrow.Seed.ID != "only" {
		t.Errorf("pre-widening steering seed = %+v, want the last played track", narrow.Seed)
	}
	if widened.Description != "synthwave songs playlist mix" {
		t.Errorf("widened description = %q, want %q", widened.Description, "synthwave songs playlist mix")
	}
	if widened.Seed != nil || len(widened.Avoid) != 0 {
		t.Errorf("widened steering = %+v, want seed and avoid set dropped", widened)
	}
	if widened.Description == narrow.Description {
		t.Error("widened retry re-issued the same query")
	}
}

func TestRadioOperationsOutsideRadioMode(t *testing.T) {
	c, _, _, _ := newTestController(t)

	if err := c.Tune("x"); !errors.Is(err, ErrNotInRadio) {
		t.Errorf("Tune = %v, want ErrNotInRadio", err)
	}
	if _, err := c.Dial(1); !errors.Is(err, ErrNotInRadio) {
		t.Errorf("Dial = %v, want ErrNotInRadio", err)
	}
	if _, err := c.Static(); !errors.Is(err, ErrNotInRadio) {
		t.Errorf("Static = %v, want ErrNotInRadio", err)
	}
	if _, err := c.Signal(); !errors.Is(err, ErrNotInRadio) {
		t.Errorf("Signal = %v, want ErrNotInRadio", err)
	}
	if _, err := c.StopRadio(); !errors.Is(err, ErrNotInRadio) {
		t.Errorf("StopRadio = %v, want ErrNotInRadio", err)
	}
}

func TestLoadStationRestoresSnapshot(t *testing.T) {
	c, drv, cat, _ := newTestController(t)
	cat.setRecommend(func(catalog.Steering) ([]catalog.Track, error) {
		return []catalog.Track{tr("r1")}, nil
	})

	saved := Tuning{
		Description: "more minimal",
		Energy:      2,
		Directions:  []string{"synthwave", "more minimal"},
	}
	if err := c.LoadStation(saved); err != nil {
		t.Fatalf("LoadStation: %v", err)
	}
	waitStart(t, drv)

	first := cat.steeringAt(0)
	if first.Description != "more minimal" || first.Energy != 2 {
		t.Errorf("steering = %+v, want restored description and energy", first)
	}
	info, _ := c.Signal()
	if info.Directions != 2 || info.Energy != 2 {
		t.Errorf("Signal = %+v, want 2 directions at energy 2", info)
	}
}

func TestRadioSessionRoundTrip(t *testing.T) {
	c, drv, cat, _ := newTestController(t)
	cat.setRecommend(func(catalog.Steering) ([]catalog.Track, error) {
		return []catalog.Track{tr("r1"), tr("r2"), tr("r3")}, nil
	})

	c.StartRadio("synthwave")
	waitStart(t, drv)
	c.Dial(+1)
	c.Tune("darker synthwave")
	if _, err := c.Static(); err != nil {
		t.Fatalf("Static: %v", err)
	}
	waitStart(t, drv)

	snapshot, err := c.TuningSnapshot()
	if err != nil {
		t.Fatalf("TuningSnapshot: %v", err)
	}
	if snapshot.Description != "darker synthwave" || snapshot.Energy != 1 {
		t.Errorf("snapshot = %+v, want darker synthwave at energy 1", snapshot)
	}

	played, err := c.StopRadio()
	if err != nil {
		t.Fatalf("StopRadio: %v", err)
	}
	if played != 2 {
		t.Errorf("played = %d, want 2", played)
	}
	if m := c.Mode(); m != ModeIdle {
		t.Errorf("Mode = %v, want idle", m)
	}

	// The snapshot survives the stop and restores the same signal.
	if err := c.LoadStation(snapshot); err != nil {
		t.Fatalf("LoadStation: %v", err)
	}
	waitStart(t, drv)
	info, _ := c.Signal()
	if info.Description != "darker synthwave" || info.Energy != 1 {
		t.Errorf("restored signal = %+v, want original tuning back", info)
	}
}

func TestAutoplayEndsAfterWindow(t *testing.T) {
	drv := newFakeDriver()
	cat := &fakeCatalog{}
	next := 0
	cat.setRecommend(func(catalog.Steering) ([]catalog.Track, error) {
		next++
		return []catalog.Track{tr(fmt.Sprintf("s%d", next))}, nil
	})
	notes := make(chan string, 64)
	c := New("guild-1", cat, drv, func(s string) {
		select {
		case notes <- s:
		default:
		}
	})
	t.Cleanup(c.Close)

	var mu sync.Mutex
	base := time.Now()
	offset := time.Duration(0)
	c.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return base.Add(offset)
	}

	if err := c.StartAutoplay("Daft Punk"); err != nil {
		t.Fatalf("StartAutoplay: %v", err)
	}
	first := waitStart(t, drv)

	drv.finish(first)
	second := waitStart(t, drv)

	artist, played, remaining, err := c.AutoplayStatus()
	if err != nil {
		t.Fatalf("AutoplayStatus: %v", err)
	}
	if artist != "Daft Punk" || played != 2 {
		t.Errorf("status = %q, %d played, want Daft Punk with 2 played", artist, played)
	}
	if remaining <= 0 || remaining > autoplayWindow {
		t.Errorf("remaining = %v, want within the window", remaining)
	}

	mu.Lock()
	offset = autoplayWindow + time.Minute
	mu.Unlock()

	drv.finish(second)
	waitNotify(t, notes, "Autoplay ended")
	if m := c.Mode(); m != ModeIdle {
		t.Errorf("Mode = %v, want idle after the window", m)
	}
}

func TestAutoplayWidensThenGivesUp(t *testing.T) {
	c, drv, cat, notes := newTestController(t)
	cat.setRecommend(func(catalog.Steering) ([]catalog.Track, error) {
		return []catalog.Track{tr("only")}, nil
	})

	c.StartAutoplay("Obscure Band")
	waitStart(t, drv)

	drv.finish(tr("only"))
	waitNotify(t, notes, "Ran out of new songs")
	if m := c.Mode(); m != ModeIdle {
		t.Errorf("Mode = %v, want idle after exhaustion", m)
	}

	// Initial request, then the post-finish request, then its widened retry.
	if n := cat.steeringCount(); n != 3 {
		t.Fatalf("steering count = %d, want 3", n)
	}
	if desc := cat.steeringAt(2).Description; desc != "Obscure Band songs" {
		t.Errorf("widened description = %q, want %q", desc, "Obscure Band songs")
	}
}

func TestRadioSurvivesCandidateExhaustion(t *testing.T) {
	c, drv, cat, notes := newTestController(t)
	cat.setRecommend(func(catalog.Steering) ([]catalog.Track, error) {
		return []catalog.Track{tr("only")}, nil
	})

	c.StartRadio("synthwave")
	waitStart(t, drv)

	drv.finish(tr("only"))
	waitNotify(t, notes, "Running low on new tracks")
	if m := c.Mode(); m != ModeRadio {
		t.Errorf("Mode = %v, want radio to stay active", m)
	}

	// A tune opens a new direction and selection works again.
	cat.setRecommend(func(catalog.Steering) ([]catalog.Track, error) {
		return []catalog.Track{tr("fresh")}, nil
	})
	c.Tune("adjacent genre")
	c.Skip(context.Background())
	if got := waitStart(t, drv); got.ID != "fresh" {
		t.Errorf("recovered selection = %q, want fresh", got.ID)
	}
}

func TestSelectionErrorKeepsSessionState(t *testing.T) {
	c, drv, cat, notes := newTestController(t)
	calls := 0
	cat.setRecommend(func(catalog.Steering) ([]catalog.Track, error) {
		calls++
		if calls > 1 {
			return nil, catalog.ErrUnavailable
		}
		return []catalog.Track{tr("r1")}, nil
	})

	c.StartRadio("synthwave")
	waitStart(t, drv)

	drv.finish(tr("r1"))
	waitNotify(t, notes, "Track selection failed")
	if m := c.Mode(); m != ModeRadio {
		t.Errorf("Mode = %v, want radio after a transient selection failure", m)
	}
}

func TestFailedStartFallsToNextCandidate(t *testing.T) {
	c, drv, cat, _ := newTestController(t)
	drv.failIDs["bad"] = true
	cat.setRecommend(func(catalog.Steering) ([]catalog.Track, error) {
		return []catalog.Track{tr("bad"), tr("good")}, nil
	})

	c.StartRadio("synthwave")
	if got := waitStart(t, drv); got.ID != "good" {
		t.Fatalf("started %q, want good after bad failed to start", got.ID)
	}

	// The failed track is treated as played and never retried.
	drv.finish(tr("good"))
	waitFor(t, func() bool { return cat.steeringCount() >= 3 })
}

func TestRepeatedPlaybackErrorsStopSession(t *testing.T) {
	c, drv, cat, notes := newTestController(t)
	drv.failIDs["r2"] = true
	drv.failIDs["r3"] = true
	drv.failIDs["r4"] = true
	next := 0
	cat.setRecommend(func(catalog.Steering) ([]catalog.Track, error) {
		next++
		return []catalog.Track{tr(fmt.Sprintf("r%d", next))}, nil
	})

	c.StartRadio("synthwave")
	got := waitStart(t, drv)

	// One mid-track failure, then every replacement refuses to start.
	drv.fail(got, errors.New("decode error"))
	waitNotify(t, notes, "Playback keeps failing")
	if m := c.Mode(); m != ModeIdle {
		t.Errorf("Mode = %v, want idle after repeated failures", m)
	}
}

func TestStopDiscardsInFlightSelection(t *testing.T) {
	c, drv, cat, _ := newTestController(t)
	gate := make(chan struct{})
	cat.setRecommend(func(catalog.Steering) ([]catalog.Track, error) {
		<-gate
		return []catalog.Track{tr("late")}, nil
	})

	c.StartRadio("synthwave")
	if err := c.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	close(gate)

	time.Sleep(100 * time.Millisecond)
	if ids := drv.startedIDs(); len(ids) != 0 {
		t.Errorf("stale selection started %v, want nothing", ids)
	}
	if m := c.Mode(); m != ModeIdle {
		t.Errorf("Mode = %v, want idle", m)
	}
}

func TestModeEntryRequiresIdle(t *testing.T) {
	c, drv, cat, _ := newTestController(t)
	cat.setRecommend(func(catalog.Steering) ([]catalog.Track, error) {
		return []catalog.Track{tr("r1")}, nil
	})

	c.Play(context.Background(), "a")
	waitStart(t, drv)

	if err := c.StartRadio("synthwave"); !errors.Is(err, ErrModeConflict) {
		t.Errorf("StartRadio during manual = %v, want ErrModeConflict", err)
	}
	if err := c.StartAutoplay("Daft Punk"); !errors.Is(err, ErrModeConflict) {
		t.Errorf("StartAutoplay during manual = %v, want ErrModeConflict", err)
	}
	if _, err := c.StopAutoplay(); !errors.Is(err, ErrModeConflict) {
		t.Errorf("StopAutoplay outside autoplay = %v, want ErrModeConflict", err)
	}
}
