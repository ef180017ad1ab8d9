package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/keshon/voicebot/internal/command"
	"github.com/keshon/voicebot/internal/command/catalog"
	"github.com/keshon/voicebot/internal/discord"
	"github.com/keshon/voicebot/pkg/cmd"
)

// CommandInfo is one row of `commands list`.
type CommandInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Voice       bool   `json:"requires_voice"`
}

func newCommandsCmd(opts *options) *cobra.Command {
	c := &cobra.Command{
		Use:   "commands",
		Short: "Work with slash commands",
	}
	c.AddCommand(newCommandsListCmd(opts), newCommandsRemoteCmd(opts), newCommandsSyncCmd(opts))
	return c
}

func newCommandsListCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the bot's commands",
		RunE: func(c *cobra.Command, _ []string) error {
			r, err := catalog.Build(catalog.Deps{Log: zerolog.Nop()})
			if err != nil {
				return err
			}
			return printCommands(c.OutOrStdout(), opts.output, describe(r))
		},
	}
}

func newCommandsRemoteCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "remote",
		Short: "List the commands registered with Discord for the configured scope",
		RunE: func(c *cobra.Command, _ []string) error {
			return withRegistrar(c.Context(), opts, func(ctx context.Context, reg *discord.Registrar, _ *cmd.Registry) error {
				remote, err := reg.Remote(ctx)
				if err != nil {
					return err
				}
				rows := make([]CommandInfo, 0, len(remote))
				for _, rc := range remote {
					rows = append(rows, CommandInfo{Name: rc.Name, Description: rc.Description})
				}
				return printCommands(c.OutOrStdout(), opts.output, rows)
			})
		},
	}
}

func newCommandsSyncCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Register the bot's commands for the configured scope",
		RunE: func(c *cobra.Command, _ []string) error {
			return withRegistrar(c.Context(), opts, func(ctx context.Context, reg *discord.Registrar, r *cmd.Registry) error {
				if err := reg.Sync(ctx, discord.Definitions(r)); err != nil {
					return err
				}
				fmt.Fprintln(c.OutOrStdout(), "Commands synced.")
				return nil
			})
		},
	}
}

// withRegistrar opens a gateway session so the state cache knows the bot's
// guilds, then hands a registrar to fn.
func withRegistrar(ctx context.Context, opts *options, fn func(context.Context, *discord.Registrar, *cmd.Registry) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, log, err := loadConfig(opts)
	if err != nil {
		return err
	}
	r, err := catalog.Build(catalog.Deps{SupportServerURL: cfg.SupportServerURL, Log: log})
	if err != nil {
		return err
	}

	dg, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds
	if err := dg.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}
	defer dg.Close()

	dg.State.RLock()
	appID := discord.ApplicationID(&dg.State.Ready)
	dg.State.RUnlock()

	return fn(ctx, discord.NewRegistrar(dg, dg.State, appID, cfg, log), r)
}

func describe(r *cmd.Registry) []CommandInfo {
	var rows []CommandInfo
	for _, c := range r.GetAll() {
		rows = append(rows, CommandInfo{
			Name:        c.Name(),
			Description: c.Description(),
			Voice:       command.RequiresVoice(c),
		})
	}
	return rows
}

func printCommands(w io.Writer, format string, rows []CommandInfo) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tVOICE\tDESCRIPTION")
	for _, row := range rows {
		voice := "no"
		if row.Voice {
			voice = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", row.Name, voice, row.Description)
	}
	return tw.Flush()
}
