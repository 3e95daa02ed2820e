package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pevans/newsdesk/ingest"
	"github.com/pevans/newsdesk/rundown"
	"github.com/pevans/newsdesk/timecode"
	"github.com/spf13/cobra"
)

func newRundownCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rundown",
		Short: "Edit the show rundown",
	}

	cmd.AddCommand(newRundownShowCommand(ctx))
	cmd.AddCommand(newRundownAddCommand(ctx))
	cmd.AddCommand(newRundownMoveCommand(ctx))
	cmd.AddCommand(newRundownDeleteCommand(ctx))
	cmd.AddCommand(newRundownSetCommand(ctx))
	cmd.AddCommand(newRundownRewriteCommand(ctx))
	cmd.AddCommand(newRundownAnchorCommand(ctx))
	cmd.AddCommand(newRundownScheduleCommand(ctx))
	cmd.AddCommand(newRundownCountdownCommand(ctx))
	cmd.AddCommand(newRundownNewCommand(ctx))

	return cmd
}

func printRundown(cmd *cobra.Command, s *deskSession) {
	out := cmd.OutOrStdout()
	r := s.desk.Rundown()
	if r.Len() == 0 {
		fmt.Fprintln(out, "Rundown is empty.")
		return
	}

	segments := r.Segments()
	rows := make([][]string, 0, len(segments))
	var total int
	for i, seg := range segments {
		secs, err := seg.DurationSeconds()
		if err == nil && seg.Active {
			total += secs
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			seg.Backtime,
			seg.Duration,
			yesNo(seg.Active),
			truncate(seg.Title, 50),
			truncate(seg.Source, 24),
			seg.Profile,
			fmt.Sprintf("%s/%s/%s", seg.Style, seg.Tone, seg.Length),
		})
	}

	fmt.Fprintln(out, renderTable(
		[]string{"#", "Backtime", "Duration", "Active", "Title", "Source", "Profile", "Style/Tone/Length"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignRight},
	))

	last := s.desk.Last()
	fmt.Fprintf(out, "Show starts %s, ends %s, running time %s\n",
		last.Headline, timecode.FormatClockTimeSeconds(last.Anchor), timecode.FormatDuration(total))
}

func newRundownShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the rundown with backtimes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withDesk(false, func(s *deskSession) error {
				if asJSON {
					return rundown.Encode(cmd.OutOrStdout(), s.desk.Rundown())
				}
				printRundown(cmd, s)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output the rundown file format")
	return cmd
}

func newRundownAddCommand(ctx *commandContext) *cobra.Command {
	var link, summary, source, category string

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a hand-written story as a segment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			story := ingest.Story{
				Title:       strings.TrimSpace(args[0]),
				Link:        link,
				Summary:     summary,
				Source:      source,
				PublishedAt: ctx.now().UTC(),
				Category:    category,
			}
			if story.Link == "" {
				story.Link = ingest.NoLink
			}
			story.OriginalSummary = story.Summary

			return ctx.withDesk(true, func(s *deskSession) error {
				if s.desk.Add(story) == 0 {
					return fmt.Errorf("story %q is already in the rundown", story.Title)
				}
				printRundown(cmd, s)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&link, "link", "", "Story link")
	cmd.Flags().StringVar(&summary, "summary", "", "Story summary, used as teleprompter text")
	cmd.Flags().StringVar(&source, "source", "Desk", "Source name")
	cmd.Flags().StringVar(&category, "category", ingest.CategoryOther, "Category")
	return cmd
}

func newRundownMoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "move <position> <up|down>",
		Short: "Move a segment one place up or down",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[0])
			if err != nil {
				return err
			}

			var direction int
			switch strings.ToLower(args[1]) {
			case "up":
				direction = -1
			case "down":
				direction = 1
			default:
				return fmt.Errorf("direction must be up or down, got %q", args[1])
			}

			return ctx.withDesk(true, func(s *deskSession) error {
				if !s.desk.Move(index, direction) {
					fmt.Fprintln(cmd.OutOrStdout(), "Segment cannot move that way.")
				}
				printRundown(cmd, s)
				return nil
			})
		},
	}
}

func newRundownDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <position>",
		Short: "Remove a segment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[0])
			if err != nil {
				return err
			}

			return ctx.withDesk(true, func(s *deskSession) error {
				if err := s.desk.Delete(index); err != nil {
					return err
				}
				printRundown(cmd, s)
				return nil
			})
		},
	}
}

func fieldNames() string {
	names := make([]string, 0, len(rundown.Fields))
	for _, f := range rundown.Fields {
		names = append(names, string(f))
	}
	return strings.Join(names, ", ")
}

func newRundownSetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "set <position> <field> <value>",
		Short: "Change one field of a segment",
		Long:  "Change one field of a segment. Fields: " + fieldNames() + ".",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			field := rundown.Field(strings.ToLower(args[1]))

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.CheckSegmentValue(field, args[2]); err != nil {
				return err
			}

			return ctx.withDesk(true, func(s *deskSession) error {
				if err := s.desk.Update(index, field, args[2]); err != nil {
					return err
				}
				printRundown(cmd, s)
				return nil
			})
		},
	}
}

func newRundownRewriteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rewrite <position> <text>",
		Short: "Replace a segment's teleprompter text with rewritten copy",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[0])
			if err != nil {
				return err
			}

			return ctx.withDesk(true, func(s *deskSession) error {
				if err := s.desk.Rundown().MarkRewritten(index, args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Segment %d marked as rewritten\n", index+1)
				return nil
			})
		},
	}
}

func newRundownAnchorCommand(ctx *commandContext) *cobra.Command {
	var clearAnchor bool

	cmd := &cobra.Command{
		Use:   "anchor [time]",
		Short: "Set the time the show ends, e.g. \"6:00 PM\" or 18:00",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if !clearAnchor && strings.TrimSpace(text) == "" {
				return fmt.Errorf("give a time or --clear")
			}

			return ctx.withDesk(true, func(s *deskSession) error {
				if clearAnchor {
					s.desk.Rundown().ClearAnchor()
					s.desk.Reschedule()
				} else if err := s.desk.SetAnchorText(text); err != nil {
					return err
				}
				printRundown(cmd, s)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&clearAnchor, "clear", false, "Forget the show end and derive a new one")
	return cmd
}

func newRundownScheduleCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Recompute backtimes and save them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withDesk(true, func(s *deskSession) error {
				res := s.desk.Reschedule()
				for _, w := range res.Warnings {
					fmt.Fprintln(cmd.OutOrStdout(), w.String())
				}
				printRundown(cmd, s)
				return nil
			})
		},
	}
}

func newRundownCountdownCommand(ctx *commandContext) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "countdown",
		Short: "Show the time left until the first segment airs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withDesk(false, func(s *deskSession) error {
				out := cmd.OutOrStdout()
				clock := s.desk.Countdown()
				fmt.Fprintln(out, clock.Text)
				if !watch {
					return nil
				}

				ticker := time.NewTicker(time.Second)
				defer ticker.Stop()
				for clock.State == rundown.Pending {
					select {
					case <-cmd.Context().Done():
						return cmd.Context().Err()
					case <-ticker.C:
						clock = s.desk.Countdown()
						fmt.Fprintln(out, clock.Text)
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Keep counting once a second until air")
	return cmd
}

func newRundownNewCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "new",
		Short: "Start an empty rundown",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withDesk(true, func(s *deskSession) error {
				s.desk.Reset()
				fmt.Fprintln(cmd.OutOrStdout(), "Started a new rundown.")
				return nil
			})
		},
	}
}
