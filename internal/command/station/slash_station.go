// Package station implements the /station slash command: saving, loading
// and managing named radio presets.
package station

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"moodwave/internal/core"
	"moodwave/internal/discord"
	"moodwave/internal/session"
	store "moodwave/internal/station"
)

type StationCommand struct {
	Bot core.Runtime
}

func (c *StationCommand) Name() string        { return "station" }
func (c *StationCommand) Description() string { return "Save and restore radio stations" }
func (c *StationCommand) Group() string       { return "music" }

func (c *StationCommand) SlashDefinition() *discordgo.ApplicationCommand {
	nameOption := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "name",
		Description: "Station name",
		Required:    true,
	}
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "save",
				Description: "Save the current radio tuning as a station",
				Options:     []*discordgo.ApplicationCommandOption{nameOption},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "load",
				Description: "Start the radio from a saved station",
				Options:     []*discordgo.ApplicationCommandOption{nameOption},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "list",
				Description: "List this server's stations",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "delete",
				Description: "Delete a saved station",
				Options:     []*discordgo.ApplicationCommandOption{nameOption},
			},
		},
	}
}

func (c *StationCommand) Run(ctx interface{}) error {
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
	var name string
	for _, opt := range sub.Options {
		if opt.Name == "name" {
			name = opt.StringValue()
		}
	}

	switch sub.Name {
	case "save":
		return c.runSave(s, e, name)
	case "load":
		return c.runLoad(s, e, name)
	case "list":
		return c.runList(s, e)
	case "delete":
		return c.runDelete(s, e, name)
	default:
		return discord.RespondEmbedEphemeral(s, e, &discordgo.MessageEmbed{
			Description: fmt.Sprintf("Unknown subcommand: %s", sub.Name),
		})
	}
}

func (c *StationCommand) runSave(s *discordgo.Session, e *discordgo.InteractionCreate, name string) error {
	if strings.TrimSpace(name) == "" {
		return discord.RespondEmbedEphemeral(s, e, &discordgo.MessageEmbed{
			Description: "A station name is required.",
		})
	}

	ctl := c.Bot.GuildSession(e.GuildID)
	tuning, err := ctl.TuningSnapshot()
	if err != nil {
		if errors.Is(err, session.ErrNotInRadio) {
			return discord.RespondEmbedEphemeral(s, e, &discordgo.MessageEmbed{
				Description: "Start the radio first, then save its tuning.",
			})
		}
		return discord.RespondEmbedEphemeral(s, e, &discordgo.MessageEmbed{
			Description: fmt.Sprintf("%v", err),
		})
	}

	if err := c.Bot.Stations().Save(e.GuildID, name, tuning); err != nil {
		return discord.RespondEmbedEphemeral(s, e, &discordgo.MessageEmbed{
			Description: fmt.Sprintf("Failed to save station: %v", err),
		})
	}

	return discord.RespondEmbed(s, e, &discordgo.MessageEmbed{
		Title:       "💾 Station Saved",
		Description: fmt.Sprintf("**%s** → %s (energy %+d)", name, tuning.Description, tuning.Energy),
		Color:       discord.EmbedColor,
	})
}

func (c *StationCommand) runLoad(s *discordgo.Session, e *discordgo.InteractionCreate, name string) error {
	if strings.TrimSpace(name) == "" {
		return discord.RespondEmbedEphemeral(s, e, &discordgo.MessageEmbed{
			Description: "A station name is required.",
		})
	}

	tuning, err := c.Bot.Stations().Load(e.GuildID, name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return discord.RespondEmbedEphemeral(s, e, &discordgo.MessageEmbed{
				Description: fmt.Sprintf("No station named **%s**. Try `/station list`.", name),
			})
		}
		return discord.RespondEmbedEphemeral(s, e, &discordgo.MessageEmbed{
			Description: fmt.Sprintf("Failed to load station: %v", err),
		})
	}

	if err := c.Bot.JoinVoice(e.GuildID, e.Member.User.ID); err != nil {
		return discord.RespondEmbedEphemeral(s, e, &discordgo.MessageEmbed{
			Title:       "📻 Voice Error",
			Description: fmt.Sprintf("%v", err),
		})
	}

	ctl := c.Bot.GuildSession(e.GuildID)
	if err := ctl.LoadStation(tuning); err != nil {
		if errors.Is(err, session.ErrModeConflict) {
			return discord.RespondEmbedEphemeral(s, e, &discordgo.MessageEmbed{
				Description: "Something else is already playing. Stop it first.",
			})
		}
		return discord.RespondEmbedEphemeral(s, e, &discordgo.MessageEmbed{
			Description: fmt.Sprintf("Failed to start station: %v", err),
		})
	}

	return discord.RespondEmbed(s, e, &discordgo.MessageEmbed{
		Title:       "📻 Station Loaded",
		Description: fmt.Sprintf("Tuned to **%s** (energy %+d).", tuning.Description, tuning.Energy),
		Color:       discord.EmbedColor,
	})
}

func (c *StationCommand) runList(s *discordgo.Session, e *discordgo.InteractionCreate) error {
	names, err := c.Bot.Stations().List(e.GuildID)
	if err != nil {
		return discord.RespondEmbedEphemeral(s, e, &discordgo.MessageEmbed{
			Description: fmt.Sprintf("Failed to list stations: %v", err),
		})
	}
	if len(names) == 0 {
		return discord.RespondEmbedEphemeral(s, e, &discordgo.MessageEmbed{
			Description: "No stations saved yet. Tune the radio and `/station save` it.",
		})
	}

	var sb strings.Builder
	for _, name := range names {
		fmt.Fprintf(&sb, "• %s\n", name)
	}
	return discord.RespondEmbed(s, e, &discordgo.MessageEmbed{
		Title:       "📻 Stations",
		Description: sb.String(),
		Color:       discord.EmbedColor,
	})
}

func (c *StationCommand) runDelete(s *discordgo.Session, e *discordgo.InteractionCreate, name string) error {
	if strings.TrimSpace(name) == "" {
		return discord.RespondEmbedEphemeral(s, e, &discordgo.MessageEmbed{
			Description: "A station name is required.",
		})
	}

	if err := c.Bot.Stations().Delete(e.GuildID, name); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return discord.RespondEmbedEphemeral(s, e, &discordgo.MessageEmbed{
				Description: fmt.Sprintf("No station named **%s**.", name),
			})
		}
		return discord.RespondEmbedEphemeral(s, e, &discordgo.MessageEmbed{
			Description: fmt.Sprintf("Failed to delete station: %v", err),
		})
	}

	return discord.RespondEmbed(s, e, &discordgo.MessageEmbed{
		Description: fmt.Sprintf("🗑️ Station **%s** deleted.", name),
		Color:       discord.EmbedColor,
	})
}
