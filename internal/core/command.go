// Package core defines the command abstraction shared by all slash
// commands and the registry the bot dispatches through.
package core

import (
	"github.com/bwmarrin/discordgo"

	"moodwave/internal/session"
	"moodwave/internal/station"
)

type Command interface {
	Name() string
	Description() string
	Group() string
	Run(ctx interface{}) error
}

// SlashProvider tells the bot how to register the command with Discord.
type SlashProvider interface {
	SlashDefinition() *discordgo.ApplicationCommand
}

// SlashInteractionContext is what the runtime hands a command on execution.
type SlashInteractionContext struct {
	Session *discordgo.Session
	Event   *discordgo.InteractionCreate
}

// VoiceState holds minimal voice channel state for a user.
type VoiceState struct {
	ChannelID string
	UserID    string
}

// Runtime is the surface the running bot exposes to commands.
type Runtime interface {
	// GuildSession returns the playback session for the guild, creating
	// it on first use.
	GuildSession(guildID string) *session.Controller
	// JoinVoice connects playback to the voice channel the user is in.
	JoinVoice(guildID, userID string) error
	// Stations returns the persistent station store.
	Stations() *station.Store
}
