package playback

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/kkdai/youtube/v2"
	"github.com/rs/zerolog/log"
	"layeh.com/gopus"

	"moodwave/internal/catalog"
)

const (
	channels   = 2
	sampleRate = 48000
	frameSize  = 960 // 20ms at 48kHz
)

// DiscordDriver streams tracks into a guild voice channel. One instance per
// guild; all methods are safe for concurrent use.
type DiscordDriver struct {
	dg      *discordgo.Session
	guildID string

	mu        sync.Mutex
	channelID string
	vc        *discordgo.VoiceConnection
	stop      chan struct{}
	playing   bool

	paused atomic.Bool
	events chan Event
}

// NewDiscordDriver creates a driver for the given guild.
func NewDiscordDriver(dg *discordgo.Session, guildID string) *DiscordDriver {
	return &DiscordDriver{
		dg:      dg,
		guildID: guildID,
		events:  make(chan Event, 16),
	}
}

// SetVoiceChannel records the channel playback should join. Takes effect on
// the next Start.
func (d *DiscordDriver) SetVoiceChannel(channelID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.channelID = channelID
}

// Events delivers track-finished and track-error notifications.
func (d *DiscordDriver) Events() <-chan Event {
	return d.events
}

// Start begins playback of the track, stopping any current one first.
func (d *DiscordDriver) Start(ctx context.Context, track catalog.Track) error {
	d.haltCurrent()

	stream, cleanup, err := openStream(ctx, track)
	if err != nil {
		return fmt.Errorf("open stream for %q: %w", track.Title, err)
	}

	d.mu.Lock()
	vc, err := d.voiceConnLocked()
	if err != nil {
		d.mu.Unlock()
		cleanup()
		stream.Close()
		return err
	}
	stop := make(chan struct{})
	d.stop = stop
	d.playing = true
	d.paused.Store(false)
	d.mu.Unlock()

	log.Info().Str("guild", d.guildID).Str("track", track.Title).Msg("Starting playback")

	go d.runPlayback(track, stream, cleanup, vc, stop)
	return nil
}

// Pause suspends the opus frame loop.
func (d *DiscordDriver) Pause() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.playing {
		return ErrNoTrackPlaying
	}
	d.paused.Store(true)
	return nil
}

// Resume continues a paused track.
func (d *DiscordDriver) Resume() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.playing {
		return ErrNoTrackPlaying
	}
	d.paused.Store(false)
	return nil
}

// Halt stops playback without emitting a finish event.
func (d *DiscordDriver) Halt() error {
	d.haltCurrent()
	return nil
}

// Close stops playback and leaves the voice channel.
func (d *DiscordDriver) Close() error {
	d.haltCurrent()
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.vc != nil {
		d.vc.Disconnect()
		d.vc = nil
	}
	return nil
}

func (d *DiscordDriver) haltCurrent() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stop != nil {
		close(d.stop)
		d.stop = nil
	}
	d.playing = false
	d.paused.Store(false)
}

// voiceConnLocked joins or reuses the guild voice connection. Caller holds mu.
func (d *DiscordDriver) voiceConnLocked() (*discordgo.VoiceConnection, error) {
	if d.channelID == "" {
		return nil, errors.New("voice channel is not set")
	}
	if d.vc != nil && d.vc.ChannelID == d.channelID {
		return d.vc, nil
	}
	if d.vc != nil {
		d.vc.Disconnect()
		d.vc = nil
	}
	vc, err := d.dg.ChannelVoiceJoin(d.guildID, d.channelID, false, true)
	if err != nil {
		return nil, fmt.Errorf("join voice channel: %w", err)
	}
	d.vc = vc
	return vc, nil
}

// runPlayback reads PCM off the stream, encodes opus and feeds the voice
// connection until the track ends, errors out, or stop closes.
func (d *DiscordDriver) runPlayback(track catalog.Track, stream io.ReadCloser, cleanup func(), vc *discordgo.VoiceConnection, stop chan struct{}) {
	defer cleanup()
	defer stream.Close()

	encoder, err := gopus.NewEncoder(sampleRate, channels, gopus.Audio)
	if err != nil {
		d.finish(track, stop, fmt.Errorf("opus encoder: %w", err))
		return
	}

	vc.Speaking(true)
	defer vc.Speaking(false)

	pcmBuf := make([]byte, frameSize*channels*2)
	intBuf := make([]int16, frameSize*channels)

	for {
		select {
		case <-stop:
			return
		default:
		}

		for d.paused.Load() {
			select {
			case <-stop:
				return
			case <-time.After(20 * time.Millisecond):
			}
		}

		if _, err := io.ReadFull(stream, pcmBuf); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				d.finish(track, stop, nil)
			} else {
				d.finish(track, stop, fmt.Errorf("read stream: %w", err))
			}
			return
		}

		for i := range intBuf {
			intBuf[i] = int16(binary.LittleEndian.Uint16(pcmBuf[i*2 : i*2+2]))
		}

		opus, err := encoder.Encode(intBuf, frameSize, len(pcmBuf))
		if err != nil {
			d.finish(track, stop, fmt.Errorf("encode: %w", err))
			return
		}

		select {
		case vc.OpusSend <- opus:
		case <-stop:
			return
		}
	}
}

// finish reports track completion unless the playback was halted.
func (d *DiscordDriver) finish(track catalog.Track, stop chan struct{}, cause error) {
	d.mu.Lock()
	halted := d.stop != stop
	if !halted {
		d.stop = nil
		d.playing = false
	}
	d.mu.Unlock()
	if halted {
		return
	}

	evt := Event{Type: EventFinished, Track: track}
	if cause != nil {
		evt = Event{Type: EventError, Track: track, Err: cause}
		log.Error().Err(cause).Str("track", track.Title).Msg("Playback failed")
	}
	select {
	case d.events <- evt:
	default:
		log.Warn().Str("track", track.Title).Msg("Playback event dropped (channel full)")
	}
}

// openStream resolves the track to an audio URL and pipes it through ffmpeg
// as 48kHz stereo s16le PCM.
func openStream(ctx context.Context, track catalog.Track) (io.ReadCloser, func(), error) {
	videoID, err := extractYouTubeID(track.URL)
	if err != nil {
		return nil, nil, err
	}

	client := &youtube.Client{}
	video, err := client.GetVideoContext(ctx, videoID)
	if err != nil {
		return nil, nil, fmt.Errorf("youtube client error: %w", err)
	}

	formats := video.Formats.WithAudioChannels()
	if len(formats) == 0 {
		return nil, nil, errors.New("no audio formats found for video")
	}

	link, err := client.GetStreamURLContext(ctx, video, &formats[0])
	if err != nil {
		return nil, nil, fmt.Errorf("get stream URL error: %w", err)
	}

	ffmpeg := exec.Command("ffmpeg",
		"-reconnect", "1",
		"-reconnect_streamed", "1",
		"-reconnect_delay_max", "5",
		"-i", link,
		"-f", "s16le",
		"-ar", fmt.Sprintf("%d", sampleRate),
		"-ac", fmt.Sprintf("%d", channels),
		"-af", "loudnorm=I=-16:TP=-1.5:LRA=11",
		"-loglevel", "warning",
		"pipe:1",
	)

	reader, err := ffmpeg.StdoutPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("stdout pipe error: %w", err)
	}
	if err := ffmpeg.Start(); err != nil {
		return nil, nil, fmt.Errorf("command start error: %w", err)
	}

	cleanup := func() {
		ffmpeg.Process.Kill()
		ffmpeg.Wait()
	}
	return reader, cleanup, nil
}

// extractYouTubeID pulls the video ID out of a watch URL, or accepts a bare ID.
func extractYouTubeID(raw string) (string, error) {
	if !strings.Contains(raw, "/") {
		return raw, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse track URL: %w", err)
	}
	if id := u.Query().Get("v"); id != "" {
		return id, nil
	}
	if strings.Contains(u.Host, "youtu.be") {
		if id := strings.Trim(u.Path, "/"); id != "" {
			return id, nil
		}
	}
	return "", fmt.Errorf("no video ID in URL %q", raw)
}
