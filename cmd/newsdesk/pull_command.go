package main

import (
	"fmt"
	"strconv"

	"github.com/pevans/newsdesk/events"
	"github.com/pevans/newsdesk/ingest"
	"github.com/pevans/newsdesk/sources"
	"github.com/spf13/cobra"
)

func newPullCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var category string
	var addAll bool
	var add []int
	var showEvents bool

	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Fetch every enabled feed and list the stories by category",
		Long: `Fetch every enabled feed and list the stories by category.

Stories are numbered in the order shown. Use --add to put some of them into
the rundown, or --add-all to add everything listed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("limit") {
				limit = cfg.Ingest.StoryLimit
			}

			var result *ingest.Result
			err = ctx.withSources(func(store *sources.Store) error {
				srcs, err := store.Sources()
				if err != nil {
					return err
				}

				coordinator := ingest.NewCoordinator(ingest.NewFetcher(cfg.Ingest.FetchTimeout), nil, ctx.logger)
				result = coordinator.Pull(cmd.Context(), srcs, limit)

				fetchedAt := ctx.now()
				for _, report := range result.Reports {
					if err := store.RecordFetch(report.Name, fetchedAt, report.Err); err != nil {
						ctx.logger.Warn().Err(err).Str("source", report.Name).Msg("could not record fetch")
					}
				}
				return nil
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			stories := result.Filter(category)

			if showEvents {
				for _, evt := range result.Events {
					fmt.Fprintln(out, evt.String())
				}
				fmt.Fprintln(out)
			}

			if len(stories) == 0 {
				fmt.Fprintln(out, "No stories to display.")
			} else {
				fmt.Fprintln(out, renderStoryTable(stories, ctx))
			}
			fmt.Fprintln(out, pullSummary(result, len(stories)))

			selected, err := selectStories(stories, add, addAll)
			if err != nil {
				return err
			}
			if len(selected) == 0 {
				return nil
			}

			return ctx.withDesk(true, func(s *deskSession) error {
				added := s.desk.Add(selected...)
				fmt.Fprintf(out, "Added %d of %d stories to the rundown. Show starts at %s.\n",
					added, len(selected), s.desk.Last().Headline)
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Stories per feed (0 for all; default from config)")
	cmd.Flags().StringVar(&category, "category", ingest.CategoryAll, "Only list this category")
	cmd.Flags().BoolVar(&addAll, "add-all", false, "Add every listed story to the rundown")
	cmd.Flags().IntSliceVar(&add, "add", nil, "Add the listed stories with these numbers to the rundown")
	cmd.Flags().BoolVar(&showEvents, "events", false, "Print the fetch log")
	return cmd
}

func renderStoryTable(stories []ingest.Story, ctx *commandContext) string {
	now := ctx.clock()
	rows := make([][]string, 0, len(stories))
	for i, story := range stories {
		published := story.PublishedAt
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			story.Category,
			truncate(story.Title, 60),
			truncate(story.Source, 30),
			relativeTime(&published, now),
		})
	}
	return renderTable(
		[]string{"#", "Category", "Title", "Source", "Published"},
		rows,
		[]columnAlignment{alignRight},
	)
}

func pullSummary(result *ingest.Result, shown int) string {
	failed := 0
	for _, report := range result.Reports {
		if report.Err != nil {
			failed++
		}
	}

	warnings := 0
	for _, evt := range result.Events {
		if evt.Level == events.Warning {
			warnings++
		}
	}

	return fmt.Sprintf("%d stories shown, %d total from %d feeds (%d failed, %d warnings, %d duplicates dropped)",
		shown, result.Total(), len(result.Reports), failed, warnings, result.Duplicates)
}

// selectStories picks the stories named by 1-based numbers, or all of them.
func selectStories(stories []ingest.Story, numbers []int, all bool) ([]ingest.Story, error) {
	if all {
		return stories, nil
	}

	selected := make([]ingest.Story, 0, len(numbers))
	for _, n := range numbers {
		if n < 1 || n > len(stories) {
			return nil, fmt.Errorf("no story numbered %d (have %d)", n, len(stories))
		}
		selected = append(selected, stories[n-1])
	}
	return selected, nil
}
