package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cadenza/internal/api"
	"cadenza/internal/catalog"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	var full bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Start a matching job",
		Long:  "Starts an incremental matching job, or a full catalog rescan with --full.",
		RunE: func(cmd *cobra.Command, args []string) error {
			jobType := catalog.JobIncremental
			if full {
				jobType = catalog.JobFullScan
			}

			var resp api.JobResponse
			payload := map[string]string{"type": string(jobType)}
			if err := ctx.client().post("/api/jobs", payload, &resp); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Started %s job %d\n", resp.Job.Type, resp.Job.ID)
			return nil
		},
	}

	cmd.Flags().BoolVar(&full, "full", false, "Rebuild all match groups instead of scanning changes")
	return cmd
}
