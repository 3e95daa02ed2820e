package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pevans/newsdesk/config"
	"github.com/spf13/cobra"
)

func newSettingsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change saved settings",
		Long: `Show or change settings saved in the database.

Saved settings override the config file; environment variables override both.
Keys: ` + config.KeyTimezone + `, ` + config.KeyStoryLimit + `.`,
	}

	cmd.AddCommand(newSettingsShowCommand(ctx))
	cmd.AddCommand(newSettingsSetCommand(ctx))
	cmd.AddCommand(newSettingsUnsetCommand(ctx))

	return cmd
}

func newSettingsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show effective and saved settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			return ctx.withSettings(func(store *config.SettingsStore) error {
				saved, err := store.GetSettings()
				if err != nil {
					return err
				}

				savedTimezone := "-"
				if saved.Timezone != nil {
					savedTimezone = *saved.Timezone
				}
				savedLimit := "-"
				if saved.StoryLimit != nil {
					savedLimit = strconv.Itoa(*saved.StoryLimit)
				}

				rows := [][]string{
					{config.KeyTimezone, cfg.Timezone, savedTimezone},
					{config.KeyStoryLimit, strconv.Itoa(cfg.Ingest.StoryLimit), savedLimit},
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Key", "Effective", "Saved"},
					rows,
					nil,
				))
				return nil
			})
		},
	}
}

func newSettingsSetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Save a setting",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := strings.ToLower(strings.TrimSpace(args[0]))
			value := strings.TrimSpace(args[1])

			return ctx.withSettings(func(store *config.SettingsStore) error {
				if err := store.Set(key, value); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved %s = %s\n", key, value)
				return nil
			})
		},
	}
}

func newSettingsUnsetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "unset <key>",
		Short: "Remove a saved setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := strings.ToLower(strings.TrimSpace(args[0]))
			if key != config.KeyTimezone && key != config.KeyStoryLimit {
				return fmt.Errorf("%w: unknown setting %q", config.ErrInvalidConfig, key)
			}

			return ctx.withSettings(func(store *config.SettingsStore) error {
				if err := store.Unset(key); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", key)
				return nil
			})
		},
	}
}
