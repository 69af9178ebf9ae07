package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"moodwave/internal/command/autoplay"
	"moodwave/internal/command/music"
	"moodwave/internal/command/radio"
	stationcmd "moodwave/internal/command/station"
	"moodwave/internal/config"
	"moodwave/internal/core"
	"moodwave/internal/discord"
	"moodwave/internal/logging"
	"moodwave/internal/station"
	v "moodwave/internal/version"
)

func main() {
	cfg, err := config.New()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	logging.Setup(cfg.LogLevel, cfg.LogPath)

	log.Info().Str("version", v.AppVersion).Msgf("Starting %s", v.AppName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stations, err := station.New(cfg.StoragePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open station store")
	}
	defer stations.Close()

	bot := discord.NewBot(cfg, stations)

	mws := []core.Middleware{
		core.WithGuildOnly(),
		core.WithCommandLogger(),
	}
	core.RegisterCommand(&music.MusicCommand{Bot: bot}, mws...)
	core.RegisterCommand(&radio.RadioCommand{Bot: bot}, mws...)
	core.RegisterCommand(&autoplay.AutoplayCommand{Bot: bot}, mws...)
	core.RegisterCommand(&stationcmd.StationCommand{Bot: bot}, mws...)

	errCh := make(chan error, 1)
	go func() {
		errCh <- bot.Run(ctx)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		log.Info().Str("signal", s.String()).Msg("Shutting down")
		cancel()
		<-errCh
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("Discord bot error")
		}
		cancel()
	}

	log.Info().Msg("Bot exited cleanly")
}
