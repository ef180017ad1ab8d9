package discord

import (
	"context"
	"errors"
	"net/http"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/keshon/voicebot/internal/config"
	"github.com/keshon/voicebot/pkg/retrylimit"
)

// CommandAPI is the part of *discordgo.Session used to manage commands.
type CommandAPI interface {
	ApplicationCommands(appID, guildID string, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
	ApplicationCommandCreate(appID, guildID string, cmd *discordgo.ApplicationCommand, options ...discordgo.RequestOption) (*discordgo.ApplicationCommand, error)
	ApplicationCommandDelete(appID, guildID, cmdID string, options ...discordgo.RequestOption) error
}

// GuildLookup resolves cached guilds. *discordgo.State satisfies it.
type GuildLookup interface {
	Guild(guildID string) (*discordgo.Guild, error)
}

const globalTarget = "global"

// Registrar syncs command definitions with Discord for the configured scope.
type Registrar struct {
	api         CommandAPI
	guilds      GuildLookup
	appID       string
	scope       config.Scope
	testGuildID string
	cache       hashCache
	limiter     *retrylimit.AdaptiveLimiter
	retry       retrylimit.RetryConfig
	log         zerolog.Logger
}

// NewRegistrar returns a registrar acting as application appID.
func NewRegistrar(api CommandAPI, guilds GuildLookup, appID string, cfg *config.Config, log zerolog.Logger) *Registrar {
	log = log.With().Str("component", "commands").Logger()
	retry := retrylimit.DefaultRetryConfig()
	retry.MaxAttempts = 5
	retry.Status = restStatus
	retry.Logger = &log

	return &Registrar{
		api:         api,
		guilds:      guilds,
		appID:       appID,
		scope:       cfg.CommandScope,
		testGuildID: cfg.TestGuildID,
		cache:       hashCache{dir: cfg.CommandCacheDir},
		limiter:     retrylimit.NewAdaptiveLimiter(5, 1, 20, 1, 0.5),
		retry:       retry,
		log:         log,
	}
}

// TargetGuild returns the guild commands are registered in, or "" for
// global registration.
func (r *Registrar) TargetGuild() (string, error) {
	if r.scope == config.ScopePublic {
		return "", nil
	}
	if r.testGuildID == "" {
		return "", &RegistrationError{Reason: "test guild id is undefined"}
	}
	if r.guilds != nil {
		if _, err := r.guilds.Guild(r.testGuildID); err != nil {
			return "", &RegistrationError{Reason: "test guild not found", Err: err}
		}
	}
	return r.testGuildID, nil
}

// Remote lists the commands currently registered for the scope.
func (r *Registrar) Remote(ctx context.Context) ([]*discordgo.ApplicationCommand, error) {
	guildID, err := r.TargetGuild()
	if err != nil {
		return nil, err
	}
	var remote []*discordgo.ApplicationCommand
	err = r.call(ctx, func() (err error) {
		remote, err = r.api.ApplicationCommands(r.appID, guildID)
		return err
	})
	if err != nil {
		return nil, &RegistrationError{Reason: "list commands", Err: err}
	}
	return remote, nil
}

// Sync deletes remote commands missing from defs and creates or updates the
// ones whose definition changed since the last successful sync.
func (r *Registrar) Sync(ctx context.Context, defs []*discordgo.ApplicationCommand) error {
	guildID, err := r.TargetGuild()
	if err != nil {
		return err
	}
	remote, err := r.Remote(ctx)
	if err != nil {
		return err
	}

	target := guildID
	if target == "" {
		target = globalTarget
	}
	log := r.log.With().Str("target", target).Logger()

	local := make(map[string]struct{}, len(defs))
	for _, d := range defs {
		local[d.Name] = struct{}{}
	}
	remoteByName := make(map[string]*discordgo.ApplicationCommand, len(remote))
	for _, rc := range remote {
		remoteByName[rc.Name] = rc
	}

	cached := r.cache.load(target)
	var errs []error

	for name, rc := range remoteByName {
		if _, keep := local[name]; keep {
			continue
		}
		log.Info().Str("command", name).Msg("Deleting obsolete command")
		err := r.call(ctx, func() error {
			return r.api.ApplicationCommandDelete(r.appID, guildID, rc.ID)
		})
		if err != nil {
			log.Error().Err(err).Str("command", name).Msg("Failed to delete command")
			errs = append(errs, err)
			continue
		}
		delete(cached, name)
	}

	created := 0
	for _, d := range defs {
		h := hashCommand(d)
		_, registered := remoteByName[d.Name]
		if registered && cached[d.Name] == h {
			continue
		}
		err := r.call(ctx, func() error {
			_, err := r.api.ApplicationCommandCreate(r.appID, guildID, d)
			return err
		})
		if err != nil {
			log.Error().Err(err).Str("command", d.Name).Msg("Failed to register command")
			errs = append(errs, err)
			continue
		}
		cached[d.Name] = h
		created++
		log.Info().Str("command", d.Name).Msg("Registered command")
	}

	if err := r.cache.save(target, cached); err != nil {
		log.Warn().Err(err).Msg("Failed to save command cache")
	}
	log.Info().Int("registered", created).Int("total", len(defs)).Msg("Commands synced")

	if len(errs) > 0 {
		return &RegistrationError{Reason: "sync commands", Err: errors.Join(errs...)}
	}
	return nil
}

// call runs a REST call under the adaptive limiter. Client errors other than
// rate limits are not retried.
func (r *Registrar) call(ctx context.Context, fn func() error) error {
	return retrylimit.WithRetryConfig(ctx, func() error {
		err := fn()
		if code, ok := restStatus(err); ok && code >= 400 && code < 500 && code != http.StatusTooManyRequests {
			return &retrylimit.FatalError{Err: err}
		}
		return err
	}, r.limiter, r.retry)
}

// restStatus extracts the HTTP status of a discordgo REST error.
func restStatus(err error) (int, bool) {
	var rerr *discordgo.RESTError
	if errors.As(err, &rerr) && rerr.Response != nil {
		return rerr.Response.StatusCode, true
	}
	return 0, false
}
