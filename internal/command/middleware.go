package command

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/keshon/voicebot/pkg/cmd"
)

// WithCommandLogger logs every invocation with its duration and outcome.
func WithCommandLogger(log zerolog.Logger) cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			start := time.Now()
			err := c.Run(ctx, inv)

			ev := log.Info()
			if err != nil {
				ev = log.Warn().Err(err)
			}
			if cc, cerr := FromInvocation(inv); cerr == nil {
				ev = ev.Str("trace_id", cc.TraceID).
					Str("guild_id", cc.GuildID).
					Str("channel_id", cc.ChannelID).
					Str("user", cc.Username)
			}
			ev.Str("command", c.Name()).Dur("took", time.Since(start)).Msg("Command executed")
			return err
		})
	}
}
