// Package autoplay implements the /autoplay slash command: a timed
// artist-seeded listening session.
package autoplay

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"moodwave/internal/core"
	"moodwave/internal/discord"
	"moodwave/internal/session"
)

type AutoplayCommand struct {
	Bot core.Runtime
}

func (c *AutoplayCommand) Name() string        { return "autoplay" }
func (c *AutoplayCommand) Description() string { return "Play songs by an artist for two hours" }
func (c *AutoplayCommand) Group() string       { return "music" }

func (c *AutoplayCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "start",
				Description: "Start an autoplay session",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "artist",
						Description: "Artist to build the session around",
						Required:    true,
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "stop",
				Description: "End the autoplay session",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "status",
				Description: "Show the session's progress",
			},
		},
	}
}

func (c *AutoplayCommand) Run(ctx interface{}) error {
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
	case "start":
		var artist string
		for _, opt := range sub.Options {
			if opt.Name == "artist" {
				artist = opt.StringValue()
			}
		}
		return c.runStart(s, e, artist)
	case "stop":
		return c.runStop(s, e)
	case "status":
		return c.runStatus(s, e)
	default:
		return discord.RespondEmbedEphemeral(s, e, &discordgo.MessageEmbed{
			Description: fmt.Sprintf("Unknown subcommand: %s", sub.Name),
		})
	}
}

func (c *AutoplayCommand) runStart(s *discordgo.Session, e *discordgo.InteractionCreate, artist string) error {
	if strings.TrimSpace(artist) == "" {
		return discord.RespondEmbedEphemeral(s, e, &discordgo.MessageEmbed{
			Title:       "🔁 Error",
			Description: "An artist is required.",
		})
	}

	if err := c.Bot.JoinVoice(e.GuildID, e.Member.User.ID); err != nil {
		return discord.RespondEmbedEphemeral(s, e, &discordgo.MessageEmbed{
			Title:       "🔁 Voice Error",
			Description: fmt.Sprintf("%v", err),
		})
	}

	ctl := c.Bot.GuildSession(e.GuildID)
	if err := ctl.StartAutoplay(artist); err != nil {
		if errors.Is(err, session.ErrModeConflict) {
			return discord.RespondEmbedEphemeral(s, e, &discordgo.MessageEmbed{
				Description: "Something else is already playing. Stop it first.",
			})
		}
		return discord.RespondEmbedEphemeral(s, e, &discordgo.MessageEmbed{
			Description: fmt.Sprintf("Autoplay failed to start: %v", err),
		})
	}

	return discord.RespondEmbed(s, e, &discordgo.MessageEmbed{
		Title:       "🔁 Autoplay On",
		Description: fmt.Sprintf("Playing **%s** for the next two hours.", artist),
		Color:       discord.EmbedColor,
	})
}

func (c *AutoplayCommand) runStop(s *discordgo.Session, e *discordgo.InteractionCreate) error {
	ctl := c.Bot.GuildSession(e.GuildID)
	played, err := ctl.StopAutoplay()
	if err != nil {
		return discord.RespondEmbedEphemeral(s, e, &discordgo.MessageEmbed{
			Description: "Autoplay isn't running.",
		})
	}
	return discord.RespondEmbed(s, e, &discordgo.MessageEmbed{
		Title:       "🔁 Autoplay Off",
		Description: fmt.Sprintf("Played **%d** unique songs.", played),
		Color:       discord.EmbedColor,
	})
}

func (c *AutoplayCommand) runStatus(s *discordgo.Session, e *discordgo.InteractionCreate) error {
	ctl := c.Bot.GuildSession(e.GuildID)
	artist, played, remaining, err := ctl.AutoplayStatus()
	if err != nil {
		return discord.RespondEmbedEphemeral(s, e, &discordgo.MessageEmbed{
			Description: "Autoplay isn't running.",
		})
	}
	return discord.RespondEmbed(s, e, &discordgo.MessageEmbed{
		Title: "🔁 Autoplay",
		Description: fmt.Sprintf("Artist: **%s**\nSongs played: **%d**\nTime left: **%s**",
			artist, played, remaining.Round(time.Minute)),
		Color: discord.EmbedColor,
	})
}
