package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cadenza/internal/api"
)

func newStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show catalog-wide matching statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			var stats api.StatsResponse
			if err := ctx.client().get("/api/stats", nil, &stats); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Works:                %d\n", stats.Works)
			fmt.Fprintf(out, "Match groups:         %d\n", stats.MatchGroups)
			fmt.Fprintf(out, "Conflicts:            %d\n", stats.TotalConflicts)
			fmt.Fprintf(out, "Unresolved conflicts: %d\n", stats.UnresolvedConflicts)
			if stats.LastJob != nil {
				job := stats.LastJob
				fmt.Fprintf(out, "Last job:             %d (%s, %s)\n", job.ID, job.Type, job.Status)
			}
			return nil
		},
	}
}
