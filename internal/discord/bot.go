// Package discord connects the bot to the Discord gateway: session
// lifecycle, slash command registration, interaction dispatch and the voice
// transport used by players.
package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/keshon/voicebot/internal/command"
	"github.com/keshon/voicebot/internal/command/catalog"
	"github.com/keshon/voicebot/internal/config"
	"github.com/keshon/voicebot/internal/player"
	"github.com/keshon/voicebot/pkg/cmd"
	"github.com/keshon/voicebot/pkg/jobmgr"
)

// Bot is a Discord bot.
type Bot struct {
	cfg        *config.Config
	dg         *discordgo.Session
	jobs       *jobmgr.Manager
	transport  *VoiceTransport
	players    *player.Registry
	commands   *cmd.Registry
	dispatcher *command.Dispatcher
	log        zerolog.Logger

	ctx context.Context
}

// NewBot creates the session and wires commands, players and voice.
func NewBot(cfg *config.Config, log zerolog.Logger) (*Bot, error) {
	dg, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates
	dg.State.TrackVoice = true

	b := &Bot{
		cfg:  cfg,
		dg:   dg,
		jobs: jobmgr.NewManager(log),
		log:  log.With().Str("component", "bot").Logger(),
		ctx:  context.Background(),
	}
	b.transport = NewVoiceTransport(dg, b.jobs, log)
	b.players = player.NewRegistry(b.transport,
		player.WithReconnectTimeout(cfg.ReconnectTimeout),
		player.WithLogger(log),
	)

	b.commands, err = catalog.Build(catalog.Deps{
		Players:          b.players,
		Gateway:          dg,
		SupportServerURL: cfg.SupportServerURL,
		Log:              log,
	})
	if err != nil {
		return nil, err
	}
	b.dispatcher = command.NewDispatcher(b.commands, NewVoiceStates(dg.State), log)

	dg.AddHandler(b.onReady)
	dg.AddHandler(b.onInteractionCreate)
	dg.AddHandler(b.onVoiceStateUpdate)
	dg.AddHandler(b.onVoiceServerUpdate)
	return b, nil
}

// Run opens the gateway and blocks until ctx is done, then tears down every
// player and background job.
func (b *Bot) Run(ctx context.Context) error {
	b.ctx = ctx
	if err := b.dg.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}
	defer b.dg.Close()

	<-ctx.Done()
	b.log.Info().Msg("Shutdown signal received. Cleaning up...")
	b.players.Close()
	b.jobs.StopAll()
	return nil
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	b.log.Info().Str("user", r.User.Username).Int("guilds", len(r.Guilds)).Msg("Discord bot is running")

	appID := ApplicationID(r)
	go func() {
		reg := NewRegistrar(s, s.State, appID, b.cfg, b.log)
		if err := reg.Sync(b.ctx, Definitions(b.commands)); err != nil {
			b.log.Error().Err(err).Msg("Command registration failed")
		}
	}()
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	c := contextFromInteraction(s, i.Interaction)
	_ = b.dispatcher.Dispatch(b.ctx, i.ApplicationCommandData().Name, c)
}

func (b *Bot) onVoiceStateUpdate(s *discordgo.Session, e *discordgo.VoiceStateUpdate) {
	if s.State.User == nil {
		return
	}
	b.transport.HandleVoiceStateUpdate(s.State.User.ID, e.VoiceState)
}

func (b *Bot) onVoiceServerUpdate(_ *discordgo.Session, e *discordgo.VoiceServerUpdate) {
	b.transport.HandleVoiceServerUpdate(e.GuildID)
}

// ApplicationID returns the application the session acts as, falling back
// to the bot user when Ready carries no application.
func ApplicationID(r *discordgo.Ready) string {
	if r.Application != nil && r.Application.ID != "" {
		return r.Application.ID
	}
	if r.User != nil {
		return r.User.ID
	}
	return ""
}
