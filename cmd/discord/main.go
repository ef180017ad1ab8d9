// cmd/discord/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/keshon/voicebot/internal/config"
	"github.com/keshon/voicebot/internal/discord"
	"github.com/keshon/voicebot/internal/logging"
	v "github.com/keshon/voicebot/internal/version"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fallback := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
		fallback.Error().Err(err).Msg("Invalid configuration")
		return 1
	}

	log, closer, err := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile, JSON: cfg.LogJSON})
	if err != nil {
		fallback := zerolog.New(os.Stderr)
		fallback.Error().Err(err).Msg("Failed to set up logging")
		return 1
	}
	defer closer.Close()

	log.Info().
		Str("app", v.AppName).
		Str("version", v.Version).
		Str("env", cfg.AppEnv).
		Str("scope", string(cfg.CommandScope)).
		Msg("Starting bot")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bot, err := discord.NewBot(cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create bot")
		return 1
	}
	if err := bot.Run(ctx); err != nil {
		log.Error().Err(err).Msg("Discord bot error")
		return 1
	}

	log.Info().Msg("Discord bot exited cleanly")
	return 0
}
