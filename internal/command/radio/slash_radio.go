// Package radio implements the /radio slash command: description-driven
// continuous playback with tuning.
package radio

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"moodwave/internal/core"
	"moodwave/internal/discord"
	"moodwave/internal/session"
)

type RadioCommand struct {
	Bot core.Runtime
}

func (c *RadioCommand) Name() string        { return "radio" }
func (c *RadioCommand) Description() string { return "Run a radio steered by a vibe description" }
func (c *RadioCommand) Group() string       { return "music" }

func (c *RadioCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "start",
				Description: "Start the radio",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "vibe",
						Description: "What the radio should play, e.g. \"rainy day synthwave\"",
						Required:    true,
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "stop",
				Description: "Stop the radio",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "tune",
				Description: "Steer the radio in a new direction",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "direction",
						Description: "Where to take it, e.g. \"more minimal\" or \"add vocals\"",
						Required:    true,
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "dial",
				Description: "Nudge the energy up or down",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "direction",
						Description: "Which way to turn the dial",
						Required:    true,
						Choices: []*discordgo.ApplicationCommandOptionChoice{
							{Name: "up", Value: "up"},
							{Name: "down", Value: "down"},
						},
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "static",
				Description: "Skip this track and avoid it next pick",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "signal",
				Description: "Show the current tuning",
			},
		},
	}
}

func (c *RadioCommand) Run(ctx interface{}) error {
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
		var vibe string
		for _, opt := range sub.Options {
			if opt.Name == "vibe" {
				vibe = opt.StringValue()
			}
		}
		return c.runStart(s, e, vibe)
	case "stop":
		return c.runStop(s, e)
	case "tune":
		var direction string
		for _, opt := range sub.Options {
			if opt.Name == "direction" {
				direction = opt.StringValue()
			}
		}
		return c.runTune(s, e, direction)
	case "dial":
		delta := +1
		for _, opt := range sub.Options {
			if opt.Name == "direction" && opt.StringValue() == "down" {
				delta = -1
			}
		}
		return c.runDial(s, e, delta)
	case "static":
		return c.runStatic(s, e)
	case "signal":
		return c.runSignal(s, e)
	default:
		return discord.RespondEmbedEphemeral(s, e, &discordgo.MessageEmbed{
			Description: fmt.Sprintf("Unknown subcommand: %s", sub.Name),
		})
	}
}

func (c *RadioCommand) runStart(s *discordgo.Session, e *discordgo.InteractionCreate, vibe string) error {
	if strings.TrimSpace(vibe) == "" {
		return discord.RespondEmbedEphemeral(s, e, &discordgo.MessageEmbed{
			Title:       "📻 Error",
			Description: "A vibe description is required.",
		})
	}

	if err := c.Bot.JoinVoice(e.GuildID, e.Member.User.ID); err != nil {
		return discord.RespondEmbedEphemeral(s, e, &discordgo.MessageEmbed{
			Title:       "📻 Voice Error",
			Description: fmt.Sprintf("%v", err),
		})
	}

	ctl := c.Bot.GuildSession(e.GuildID)
	if err := ctl.StartRadio(vibe); err != nil {
		if errors.Is(err, session.ErrModeConflict) {
			return discord.RespondEmbedEphemeral(s, e, &discordgo.MessageEmbed{
				Description: "Something else is already playing. Stop it first.",
			})
		}
		return discord.RespondEmbedEphemeral(s, e, &discordgo.MessageEmbed{
			Description: fmt.Sprintf("Radio failed to start: %v", err),
		})
	}

	return discord.RespondEmbed(s, e, &discordgo.MessageEmbed{
		Title:       "📻 Radio On",
		Description: fmt.Sprintf("Tuned to: **%s**", vibe),
		Color:       discord.EmbedColor,
	})
}

func (c *RadioCommand) runStop(s *discordgo.Session, e *discordgo.InteractionCreate) error {
	ctl := c.Bot.GuildSession(e.GuildID)
	played, err := ctl.StopRadio()
	if err != nil {
		return respondNotInRadio(s, e, err)
	}
	return discord.RespondEmbed(s, e, &discordgo.MessageEmbed{
		Title:       "📻 Radio Off",
		Description: fmt.Sprintf("Played **%d** tracks this session.", played),
		Color:       discord.EmbedColor,
	})
}

func (c *RadioCommand) runTune(s *discordgo.Session, e *discordgo.InteractionCreate, direction string) error {
	if strings.TrimSpace(direction) == "" {
		return discord.RespondEmbedEphemeral(s, e, &discordgo.MessageEmbed{
			Description: "A direction is required.",
		})
	}
	ctl := c.Bot.GuildSession(e.GuildID)
	if err := ctl.Tune(direction); err != nil {
		return respondNotInRadio(s, e, err)
	}
	return discord.RespondEmbed(s, e, &discordgo.MessageEmbed{
		Description: fmt.Sprintf("🎛️ Tuning towards **%s**. Takes effect on the next track.", direction),
		Color:       discord.EmbedColor,
	})
}

func (c *RadioCommand) runDial(s *discordgo.Session, e *discordgo.InteractionCreate, delta int) error {
	ctl := c.Bot.GuildSession(e.GuildID)
	energy, err := ctl.Dial(delta)
	if err != nil {
		return respondNotInRadio(s, e, err)
	}
	return discord.RespondEmbed(s, e, &discordgo.MessageEmbed{
		Description: fmt.Sprintf("🎚️ Energy is now **%+d**.", energy),
		Color:       discord.EmbedColor,
	})
}

func (c *RadioCommand) runStatic(s *discordgo.Session, e *discordgo.InteractionCreate) error {
	ctl := c.Bot.GuildSession(e.GuildID)
	skipped, err := ctl.Static()
	if err != nil {
		if errors.Is(err, session.ErrNotPlaying) {
			return discord.RespondEmbedEphemeral(s, e, &discordgo.MessageEmbed{
				Description: "Nothing is playing.",
			})
		}
		return respondNotInRadio(s, e, err)
	}
	return discord.RespondEmbed(s, e, &discordgo.MessageEmbed{
		Description: fmt.Sprintf("📡 Static. Skipping **%s** and steering away from it.", skipped.Title),
		Color:       discord.EmbedColor,
	})
}

func (c *RadioCommand) runSignal(s *discordgo.Session, e *discordgo.InteractionCreate) error {
	ctl := c.Bot.GuildSession(e.GuildID)
	info, err := ctl.Signal()
	if err != nil {
		return respondNotInRadio(s, e, err)
	}
	return discord.RespondEmbed(s, e, &discordgo.MessageEmbed{
		Title: "📶 Signal",
		Description: fmt.Sprintf(
			"Tuned to: **%s**\nEnergy: **%+d**\nTracks played: **%d**\nDirections explored: **%d**",
			info.Description, info.Energy, info.TracksPlayed, info.Directions,
		),
		Color: discord.EmbedColor,
	})
}

func respondNotInRadio(s *discordgo.Session, e *discordgo.InteractionCreate, err error) error {
	if errors.Is(err, session.ErrNotInRadio) {
		return discord.RespondEmbedEphemeral(s, e, &discordgo.MessageEmbed{
			Description: "The radio isn't running. Start it with `/radio start`.",
		})
	}
	return discord.RespondEmbedEphemeral(s, e, &discordgo.MessageEmbed{
		Description: fmt.Sprintf("%v", err),
	})
}
