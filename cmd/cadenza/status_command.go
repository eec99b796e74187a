package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cadenza/internal/api"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and catalog status",
		RunE: func(cmd *cobra.Command, args []string) error {
			var status api.DaemonStatus
			if err := ctx.client().get("/api/status", nil, &status); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			fmt.Fprintln(out, renderSectionHeader("Daemon", colorize))

			runningKind := statusError
			runningMsg := "stopped"
			if status.Running {
				runningKind = statusOK
				runningMsg = fmt.Sprintf("pid %d", status.PID)
			}
			fmt.Fprintln(out, renderStatusLine("Daemon", runningKind, runningMsg, colorize))

			dbKind := statusError
			dbMsg := status.Database.Integrity
			if status.Database.Healthy {
				dbKind = statusOK
				dbMsg = status.Database.Path
			}
			fmt.Fprintln(out, renderStatusLine("Database", dbKind, dbMsg, colorize))

			if status.ActiveJob != nil {
				job := status.ActiveJob
				msg := fmt.Sprintf("job %d (%s) %d/%d works", job.ID, job.Type, job.ProcessedWorks, job.TotalWorks)
				fmt.Fprintln(out, renderStatusLine("Matching job", statusInfo, msg, colorize))
			} else {
				fmt.Fprintln(out, renderStatusLine("Matching job", statusOK, "idle", colorize))
			}
			return nil
		},
	}
}
