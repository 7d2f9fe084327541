// Copyright (c) 2026 Talehub. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/taibuivan/talehub/internal/app"
	"github.com/taibuivan/talehub/internal/core/chapter"
	"github.com/taibuivan/talehub/pkg/slice"
)

func newOrdinalsCommand(ctx *commandContext) *cobra.Command {
	ordinalsCmd := &cobra.Command{
		Use:   "ordinals",
		Short: "Audit and repair chapter numbering",
	}

	ordinalsCmd.AddCommand(newOrdinalsVerifyCommand(ctx))
	ordinalsCmd.AddCommand(newOrdinalsRepairCommand(ctx))

	return ordinalsCmd
}

func newOrdinalsVerifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "verify [storyID...]",
		Short: "Check that chapter numbers are exactly 1..N (all stories when none given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withServices(cmd.Context(), func(services *app.Services) error {
				storyIDs := args
				if len(storyIDs) == 0 {
					var err error
					if storyIDs, err = services.Stories.ListStoryIDs(cmd.Context()); err != nil {
						return err
					}
				}

				reports := make([]*chapter.OrdinalReport, 0, len(storyIDs))
				for _, storyID := range storyIDs {
					report, err := services.Chapters.VerifyOrdinals(cmd.Context(), storyID)
					if err != nil {
						return fmt.Errorf("verify %s: %w", storyID, err)
					}
					reports = append(reports, report)
				}

				out := cmd.OutOrStdout()
				if len(reports) == 0 {
					fmt.Fprintln(out, "No stories")
					return nil
				}

				fmt.Fprintln(out, renderTable(
					[]string{"Story", "Chapters", "Dense", "Missing", "Duplicates", "Out of range"},
					slice.Map(reports, verifyRow),
					[]columnAlignment{alignLeft, alignRight},
				))

				broken := 0
				for _, report := range reports {
					if !report.Dense {
						broken++
					}
				}
				if broken > 0 {
					return fmt.Errorf("%d of %d stories have broken chapter numbering, run `talehubctl ordinals repair`", broken, len(reports))
				}
				return nil
			})
		},
	}
}

func newOrdinalsRepairCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "repair <storyID...>",
		Short: "Renumber chapters to 1..N, keeping their order",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withServices(cmd.Context(), func(services *app.Services) error {
				reports := make([]*chapter.OrdinalReport, 0, len(args))
				for _, storyID := range args {
					report, err := services.Chapters.RepairOrdinals(cmd.Context(), storyID)
					if err != nil {
						return fmt.Errorf("repair %s: %w", storyID, err)
					}
					reports = append(reports, report)
				}

				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Story", "Chapters", "Renumbered", "Dense"},
					slice.Map(reports, repairRow),
					[]columnAlignment{alignLeft, alignRight, alignRight},
				))
				return nil
			})
		},
	}
}

func verifyRow(report *chapter.OrdinalReport) []string {
	return []string{
		report.StoryID,
		strconv.Itoa(report.Count),
		yesNo(report.Dense),
		joinInts(report.Missing),
		joinInts(report.Duplicates),
		joinInts(report.OutOfRange),
	}
}

func repairRow(report *chapter.OrdinalReport) []string {
	return []string{
		report.StoryID,
		strconv.Itoa(report.Count),
		strconv.Itoa(report.Renumbered),
		yesNo(report.Dense),
	}
}

func joinInts(values []int) string {
	if len(values) == 0 {
		return "-"
	}
	return strings.Join(slice.Map(values, strconv.Itoa), ", ")
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
