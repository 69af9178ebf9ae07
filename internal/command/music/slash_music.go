// Package music implements the /music slash command: manual playback with
// a FIFO queue.
package music

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"moodwave/internal/catalog"
	"moodwave/internal/core"
	"moodwave/internal/discord"
	"moodwave/internal/session"
)

// queueViewLimit caps how many upcoming tracks the queue reply shows.
const queueViewLimit = 10

type MusicCommand struct {
	Bot core.Runtime
}

func (c *MusicCommand) Name() string        { return "music" }
func (c *MusicCommand) Description() string { return "Play specific tracks with a queue" }
func (c *MusicCommand) Group() string       { return "music" }

func (c *MusicCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "play",
				Description: "Search for a track and play or queue it",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "query",
						Description: "Song name, artist, or link",
						Required:    true,
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "skip",
				Description: "Skip to the next queued track",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "stop",
				Description: "Stop playback and clear the queue",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "pause",
				Description: "Pause the current track",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "resume",
				Description: "Resume a paused track",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "nowplaying",
				Description: "Show the current track",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "queue",
				Description: "Show the upcoming tracks",
			},
		},
	}
}

func (c *MusicCommand) Run(ctx interface{}) error {
	context, ok := ctx.(*core.SlashInteractionContext)
	if !ok {
		return nil
	}

	s := context.Session
	e := context.Event

	if len(e.ApplicationCommandData().Options) == 0 {
		return discord.RespondEmbedEphemeral(s, e, &discordgo.MessageEmbed{
			Description: "Missing subcommand.",
		})
	}

	sub := e.ApplicationCommandData().Options[0]

	switch sub.Name {
	case "play":
		var query string
		for _, opt := range sub.Options {
			if opt.Name == "query" {
				query = opt.StringValue()
			}
		}
		return c.runPlay(s, e, query)
	case "skip":
		return c.runSkip(s, e)
	case "stop":
		return c.runStop(s, e)
	case "pause":
		return c.runPause(s, e)
	case "resume":
		return c.runResume(s, e)
	case "nowplaying":
		return c.runNowPlaying(s, e)
	case "queue":
		return c.runQueue(s, e)
	default:
		return discord.RespondEmbedEphemeral(s, e, &discordgo.MessageEmbed{
			Description: fmt.Sprintf("Unknown subcommand: %s", sub.Name),
		})
	}
}

func (c *MusicCommand) runPlay(s *discordgo.Session, e *discordgo.InteractionCreate, query string) error {
	if strings.TrimSpace(query) == "" {
		return discord.RespondEmbedEphemeral(s, e, &discordgo.MessageEmbed{
			Title:       "🎵 Error",
			Description: "A search query is required.",
		})
	}

	// The catalog search can take a while, acknowledge first.
	if err := discord.RespondDeferred(s, e); err != nil {
		return fmt.Errorf("defer response: %w", err)
	}

	if err := c.Bot.JoinVoice(e.GuildID, e.Member.User.ID); err != nil {
		discord.FollowupEmbedEphemeral(s, e, &discordgo.MessageEmbed{
			Title:       "🎵 Voice Error",
			Description: fmt.Sprintf("%v", err),
		})
		return nil
	}

	ctl := c.Bot.GuildSession(e.GuildID)
	track, position, err := ctl.Play(context.Background(), query)
	if err != nil {
		discord.FollowupEmbedEphemeral(s, e, &discordgo.MessageEmbed{
			Title:       "🎵 Error",
			Description: playErrorText(err),
		})
		return nil
	}

	desc := fmt.Sprintf("🎶 [%s](%s)", track.Title, track.URL)
	title := "▶️ Now Playing"
	if position > 0 {
		title = "➕ Queued"
		desc += fmt.Sprintf("\nPosition in queue: **%d**", position)
	}
	discord.FollowupEmbed(s, e, &discordgo.MessageEmbed{
		Title:       title,
		Description: desc,
		Color:       discord.EmbedColor,
	})
	return nil
}

func playErrorText(err error) string {
	switch {
	case errors.Is(err, session.ErrModeConflict):
		return "Radio or autoplay is running. Stop it before queueing tracks."
	case errors.Is(err, catalog.ErrNotFound):
		return "Couldn't find anything for that query."
	default:
		return fmt.Sprintf("%v", err)
	}
}

func (c *MusicCommand) runSkip(s *discordgo.Session, e *discordgo.InteractionCreate) error {
	ctl := c.Bot.GuildSession(e.GuildID)
	err := ctl.Skip(context.Background())
	switch {
	case errors.Is(err, session.ErrEmptyQueue):
		return discord.RespondEmbed(s, e, &discordgo.MessageEmbed{
			Description: "⏹️ Queue is empty, playback stopped.",
			Color:       discord.EmbedColor,
		})
	case errors.Is(err, session.ErrNotPlaying):
		return discord.RespondEmbedEphemeral(s, e, &discordgo.MessageEmbed{
			Description: "Nothing is playing.",
		})
	case err != nil:
		return discord.RespondEmbedEphemeral(s, e, &discordgo.MessageEmbed{
			Description: fmt.Sprintf("Skip failed: %v", err),
		})
	}
	return discord.RespondEmbed(s, e, &discordgo.MessageEmbed{
		Description: "⏭️ Skipped.",
		Color:       discord.EmbedColor,
	})
}

func (c *MusicCommand) runStop(s *discordgo.Session, e *discordgo.InteractionCreate) error {
	ctl := c.Bot.GuildSession(e.GuildID)
	if err := ctl.Stop(); err != nil {
		return discord.RespondEmbedEphemeral(s, e, &discordgo.MessageEmbed{
			Description: fmt.Sprintf("Stop failed: %v", err),
		})
	}
	return discord.RespondEmbed(s, e, &discordgo.MessageEmbed{
		Description: "⏹️ Playback stopped. Queue cleared.",
		Color:       discord.EmbedColor,
	})
}

func (c *MusicCommand) runPause(s *discordgo.Session, e *discordgo.InteractionCreate) error {
	ctl := c.Bot.GuildSession(e.GuildID)
	if err := ctl.Pause(); err != nil {
		return discord.RespondEmbedEphemeral(s, e, &discordgo.MessageEmbed{
			Description: fmt.Sprintf("%v", err),
		})
	}
	return discord.RespondEmbed(s, e, &discordgo.MessageEmbed{
		Description: "⏸️ Paused.",
		Color:       discord.EmbedColor,
	})
}

func (c *MusicCommand) runResume(s *discordgo.Session, e *discordgo.InteractionCreate) error {
	ctl := c.Bot.GuildSession(e.GuildID)
	if err := ctl.Resume(); err != nil {
		return discord.RespondEmbedEphemeral(s, e, &discordgo.MessageEmbed{
			Description: fmt.Sprintf("%v", err),
		})
	}
	return discord.RespondEmbed(s, e, &discordgo.MessageEmbed{
		Description: "▶️ Resumed.",
		Color:       discord.EmbedColor,
	})
}

func (c *MusicCommand) runNowPlaying(s *discordgo.Session, e *discordgo.InteractionCreate) error {
	ctl := c.Bot.GuildSession(e.GuildID)
	track, ok := ctl.NowPlaying()
	if !ok {
		return discord.RespondEmbedEphemeral(s, e, &discordgo.MessageEmbed{
			Description: "Nothing is playing.",
		})
	}
	return discord.RespondEmbed(s, e, &discordgo.MessageEmbed{
		Title:       "🎶 Now Playing",
		Description: fmt.Sprintf("[%s](%s) by %s", track.Title, track.URL, track.Artist),
		Color:       discord.EmbedColor,
	})
}

func (c *MusicCommand) runQueue(s *discordgo.Session, e *discordgo.InteractionCreate) error {
	ctl := c.Bot.GuildSession(e.GuildID)
	current, upcoming := ctl.QueueView()
	if current == nil && len(upcoming) == 0 {
		return discord.RespondEmbedEphemeral(s, e, &discordgo.MessageEmbed{
			Description: "The queue is empty.",
		})
	}

	var sb strings.Builder
	if current != nil {
		fmt.Fprintf(&sb, "**Now:** [%s](%s)\n", current.Title, current.URL)
	}
	for i, t := range upcoming {
		if i == queueViewLimit {
			fmt.Fprintf(&sb, "...and %d more\n", len(upcoming)-queueViewLimit)
			break
		}
		fmt.Fprintf(&sb, "%d. [%s](%s)\n", i+1, t.Title, t.URL)
	}

	return discord.RespondEmbed(s, e, &discordgo.MessageEmbed{
		Title:       "📜 Queue",
		Description: sb.String(),
		Color:       discord.EmbedColor,
	})
}
