// Package discord runs the bot: the gateway connection, slash command
// registration and dispatch, and the per-guild playback sessions.
package discord

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"moodwave/internal/catalog"
	"moodwave/internal/config"
	"moodwave/internal/core"
	"moodwave/internal/playback"
	"moodwave/internal/session"
	"moodwave/internal/station"
)

// guildSession bundles the per-guild playback pipeline.
type guildSession struct {
	controller *session.Controller
	driver     *playback.DiscordDriver

	mu            sync.Mutex
	noticeChannel string
}

func (g *guildSession) setNoticeChannel(channelID string) {
	g.mu.Lock()
	g.noticeChannel = channelID
	g.mu.Unlock()
}

func (g *guildSession) getNoticeChannel() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.noticeChannel
}

// Bot is the Discord bot.
type Bot struct {
	dg       *discordgo.Session
	cfg      *config.Config
	catalog  catalog.Client
	stations *station.Store

	mu       sync.Mutex
	sessions map[string]*guildSession
}

// NewBot creates the bot. Run starts it.
func NewBot(cfg *config.Config, stations *station.Store) *Bot {
	return &Bot{
		cfg:      cfg,
		catalog:  catalog.NewYouTube(cfg.CatalogRequestsPerSec, cfg.CatalogMaxResults),
		stations: stations,
		sessions: make(map[string]*guildSession),
	}
}

// Run connects to Discord and blocks until the context is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	dg, err := discordgo.New("Bot " + b.cfg.DiscordToken)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	b.dg = dg

	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates | discordgo.IntentsGuildMessages

	dg.AddHandler(b.onReady)
	dg.AddHandler(b.onGuildCreate)
	dg.AddHandler(b.onInteractionCreate)

	if err := dg.Open(); err != nil {
		return fmt.Errorf("open Discord session: %w", err)
	}
	defer dg.Close()

	<-ctx.Done()
	log.Info().Msg("Shutdown signal received, closing sessions")
	b.closeSessions()
	return nil
}

func (b *Bot) closeSessions() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for guildID, gs := range b.sessions {
		gs.controller.Close()
		gs.driver.Close()
		delete(b.sessions, guildID)
	}
}

// onReady leaves blacklisted guilds and registers commands everywhere else.
func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	for _, g := range r.Guilds {
		if b.isGuildBlacklisted(g.ID) {
			log.Info().Str("guild", g.ID).Msg("Leaving blacklisted guild")
			if err := s.GuildLeave(g.ID); err != nil {
				log.Error().Err(err).Str("guild", g.ID).Msg("Failed to leave guild")
			}
			continue
		}

		if b.cfg.InitSlashCommands {
			if err := b.registerCommands(g.ID); err != nil {
				log.Error().Err(err).Str("guild", g.ID).Msg("Failed to register slash commands")
			}
		}
	}

	log.Info().Str("user", s.State.User.Username).Msg("Discord bot is running")
}

func (b *Bot) onGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	if b.isGuildBlacklisted(g.Guild.ID) {
		log.Info().Str("guild", g.Guild.ID).Msg("Leaving blacklisted guild")
		if err := s.GuildLeave(g.Guild.ID); err != nil {
			log.Error().Err(err).Str("guild", g.Guild.ID).Msg("Failed to leave guild")
		}
		return
	}

	if b.cfg.InitSlashCommands {
		if err := b.registerCommands(g.Guild.ID); err != nil {
			log.Error().Err(err).Str("guild", g.Guild.ID).Msg("Failed to register slash commands")
		}
	}
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	cmdName := i.ApplicationCommandData().Name
	cmd, ok := core.GetCommand(cmdName)
	if !ok {
		log.Warn().Str("command", cmdName).Msg("Unknown command")
		return
	}

	// Session notices go to wherever the guild last talked to the bot.
	if i.GuildID != "" {
		b.session(i.GuildID).setNoticeChannel(i.ChannelID)
	}

	ctx := &core.SlashInteractionContext{Session: s, Event: i}
	if err := cmd.Run(ctx); err != nil {
		log.Error().Err(err).Str("command", cmdName).Msg("Command failed")
		RespondEmbedEphemeral(s, i, &discordgo.MessageEmbed{
			Description: fmt.Sprintf("Command failed: %v", err),
		})
	}
}

// registerCommands replaces the guild's slash commands with the registry's,
// deleting ones that no longer exist.
func (b *Bot) registerCommands(guildID string) error {
	appID := b.dg.State.User.ID

	wanted := make(map[string]*discordgo.ApplicationCommand)
	for _, cmd := range core.AllCommands() {
		if sp, ok := cmd.(core.SlashProvider); ok {
			if def := sp.SlashDefinition(); def != nil {
				wanted[def.Name] = def
			}
		}
	}

	existing, err := b.dg.ApplicationCommands(appID, guildID)
	if err != nil {
		return fmt.Errorf("list commands: %w", err)
	}

	limiter := rate.NewLimiter(rate.Every(time.Second/20), 1)
	ctx := context.Background()

	for _, old := range existing {
		if _, ok := wanted[old.Name]; ok {
			continue
		}
		limiter.Wait(ctx)
		log.Info().Str("guild", guildID).Str("command", old.Name).Msg("Deleting obsolete command")
		if err := b.dg.ApplicationCommandDelete(appID, guildID, old.ID); err != nil {
			log.Error().Err(err).Str("command", old.Name).Msg("Failed to delete command")
		}
	}

	for _, def := range wanted {
		limiter.Wait(ctx)
		if _, err := b.dg.ApplicationCommandCreate(appID, guildID, def); err != nil {
			log.Error().Err(err).Str("command", def.Name).Msg("Failed to create command")
		}
	}

	return nil
}

func (b *Bot) isGuildBlacklisted(guildID string) bool {
	return slices.Contains(b.cfg.DiscordGuildBlacklist, guildID)
}

// session returns the guild's playback bundle, creating it on first use.
func (b *Bot) session(guildID string) *guildSession {
	b.mu.Lock()
	defer b.mu.Unlock()

	if gs, ok := b.sessions[guildID]; ok {
		return gs
	}

	gs := &guildSession{}
	gs.driver = playback.NewDiscordDriver(b.dg, guildID)
	gs.controller = session.New(guildID, b.catalog, gs.driver, func(text string) {
		channelID := gs.getNoticeChannel()
		if channelID == "" {
			return
		}
		if err := MessageEmbed(b.dg, channelID, &discordgo.MessageEmbed{
			Description: text,
			Color:       EmbedColor,
		}); err != nil {
			log.Warn().Err(err).Str("guild", guildID).Msg("Failed to deliver session notice")
		}
	})
	b.sessions[guildID] = gs
	return gs
}

// GuildSession implements core.Runtime.
func (b *Bot) GuildSession(guildID string) *session.Controller {
	return b.session(guildID).controller
}

// Stations implements core.Runtime.
func (b *Bot) Stations() *station.Store {
	return b.stations
}

// JoinVoice implements core.Runtime: it points the guild's playback at the
// voice channel the user currently occupies.
func (b *Bot) JoinVoice(guildID, userID string) error {
	vs, err := b.FindUserVoiceState(guildID, userID)
	if err != nil {
		return err
	}
	b.session(guildID).driver.SetVoiceChannel(vs.ChannelID)
	return nil
}

// FindUserVoiceState finds the voice state of a user.
func (b *Bot) FindUserVoiceState(guildID, userID string) (*core.VoiceState, error) {
	guild, err := b.dg.State.Guild(guildID)
	if err != nil {
		return nil, fmt.Errorf("retrieve guild: %w", err)
	}

	for _, vs := range guild.VoiceStates {
		if vs.UserID == userID {
			return &core.VoiceState{ChannelID: vs.ChannelID, UserID: vs.UserID}, nil
		}
	}
	return nil, fmt.Errorf("join a voice channel first")
}
