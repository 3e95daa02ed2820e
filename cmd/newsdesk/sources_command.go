package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/pevans/newsdesk/sources"
	"github.com/spf13/cobra"
)

func newSourcesCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "Manage the feed list",
	}

	cmd.AddCommand(newSourcesListCommand(ctx))
	cmd.AddCommand(newSourcesAddCommand(ctx))
	cmd.AddCommand(newSourcesEditCommand(ctx))
	cmd.AddCommand(newSourcesToggleCommand(ctx, "enable", true))
	cmd.AddCommand(newSourcesToggleCommand(ctx, "disable", false))
	cmd.AddCommand(newSourcesDeleteCommand(ctx))
	cmd.AddCommand(newSourcesImportCommand(ctx))
	cmd.AddCommand(newSourcesExportCommand(ctx))
	cmd.AddCommand(newSourcesSeedCommand(ctx))

	return cmd
}

func newSourcesListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List configured feeds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSources(func(store *sources.Store) error {
				feeds, err := store.List(sources.FeedFilter{})
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if asJSON {
					return writeJSON(out, feeds)
				}
				if len(feeds) == 0 {
					fmt.Fprintln(out, "No feeds configured. Add one with `newsdesk sources add` or run `newsdesk sources seed`.")
					return nil
				}

				now := ctx.clock()
				rows := make([][]string, 0, len(feeds))
				for i, feed := range feeds {
					lastError := ""
					if feed.LastError != nil {
						lastError = truncate(*feed.LastError, 40)
					}
					rows = append(rows, []string{
						strconv.Itoa(i + 1),
						feed.Name,
						truncate(feed.URL, 50),
						yesNo(feed.IsEnabled()),
						relativeTime(feed.LastFetchedAt, now),
						strconv.Itoa(feed.FetchErrorCount),
						lastError,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"#", "Name", "URL", "Enabled", "Last Fetched", "Errors", "Last Error"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newSourcesAddCommand(ctx *commandContext) *cobra.Command {
	var disabled bool

	cmd := &cobra.Command{
		Use:   "add <name> <url>",
		Short: "Add a feed",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSources(func(store *sources.Store) error {
				var enabledAt = ctx.now()
				enabled := &enabledAt
				if disabled {
					enabled = nil
				}

				feed, err := store.Create(args[0], args[1], enabled)
				if err != nil {
					return fmt.Errorf("failed to add feed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added feed %q (%s)\n", feed.Name, feed.URL)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&disabled, "disabled", false, "Add the feed without pulling it")
	return cmd
}

func newSourcesEditCommand(ctx *commandContext) *cobra.Command {
	var name, url string

	cmd := &cobra.Command{
		Use:   "edit <name>",
		Short: "Rename a feed or change its URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var update sources.FeedUpdate
			if cmd.Flags().Changed("name") {
				update.Name = &name
			}
			if cmd.Flags().Changed("url") {
				update.URL = &url
			}
			if update.Name == nil && update.URL == nil {
				return fmt.Errorf("nothing to change: pass --name or --url")
			}

			return ctx.withSources(func(store *sources.Store) error {
				if err := store.Update(args[0], update); err != nil {
					return fmt.Errorf("failed to update feed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated feed %q\n", args[0])
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New feed name")
	cmd.Flags().StringVar(&url, "url", "", "New feed URL")
	return cmd
}

func newSourcesToggleCommand(ctx *commandContext, use string, enable bool) *cobra.Command {
	short := "Stop pulling a feed"
	if enable {
		short = "Resume pulling a feed"
	}

	return &cobra.Command{
		Use:   use + " <name>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			update := sources.FeedUpdate{ClearEnabledAt: !enable}
			if enable {
				now := ctx.now()
				update.EnabledAt = &now
			}

			return ctx.withSources(func(store *sources.Store) error {
				if err := store.Update(args[0], update); err != nil {
					return fmt.Errorf("failed to %s feed: %w", use, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Feed %q %sd\n", args[0], use)
				return nil
			})
		},
	}
}

func newSourcesDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Remove a feed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSources(func(store *sources.Store) error {
				if err := store.Delete(args[0]); err != nil {
					return fmt.Errorf("failed to delete feed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted feed %q\n", args[0])
				return nil
			})
		},
	}
}

func newSourcesImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Add feeds from a JSON list of {\"name\", \"url\"} objects",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open feed list: %w", err)
			}
			defer f.Close()

			return ctx.withSources(func(store *sources.Store) error {
				result, err := store.ImportJSON(f)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Imported %d feeds\n", result.Imported)
				for _, name := range result.Skipped {
					fmt.Fprintf(out, "Skipped %q: already configured\n", name)
				}
				for _, err := range result.Errors {
					fmt.Fprintf(out, "Failed: %v\n", err)
				}
				return nil
			})
		},
	}
}

func newSourcesExportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Write the feed list as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSources(func(store *sources.Store) error {
				if len(args) == 0 {
					return store.ExportJSON(cmd.OutOrStdout())
				}

				f, err := os.OpenFile(args[0], os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
				if err != nil {
					return fmt.Errorf("failed to create export file: %w", err)
				}
				if err := store.ExportJSON(f); err != nil {
					f.Close()
					return err
				}
				return f.Close()
			})
		},
	}
}

func newSourcesSeedCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Install the default feeds into an empty feed list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSources(func(store *sources.Store) error {
				added, err := store.Seed()
				if err != nil {
					return err
				}
				if added == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Feed list is not empty; nothing seeded.")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d default feeds\n", added)
				return nil
			})
		},
	}
}
