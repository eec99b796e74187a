package main

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"

	"cadenza/internal/api"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect matching job history",
	}

	jobsCmd.AddCommand(newJobsListCommand(ctx))
	jobsCmd.AddCommand(newJobsShowCommand(ctx))
	jobsCmd.AddCommand(newJobsCancelCommand(ctx))
	return jobsCmd
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent matching jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			query := url.Values{}
			query.Set("limit", strconv.Itoa(limit))
			var resp api.JobListResponse
			if err := ctx.client().get("/api/jobs", query, &resp); err != nil {
				return err
			}
			if len(resp.Jobs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No matching jobs recorded.")
				return nil
			}

			rows := make([][]string, 0, len(resp.Jobs))
			for _, job := range resp.Jobs {
				rows = append(rows, []string{
					strconv.FormatInt(job.ID, 10),
					job.Type,
					job.Status,
					fmt.Sprintf("%d/%d", job.ProcessedWorks, job.TotalWorks),
					strconv.FormatInt(job.MatchesFound, 10),
					strconv.FormatInt(job.ConflictsCreated, 10),
					job.FinishedAt,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]tableColumn{
					{title: "ID", numeric: true},
					{title: "Type"},
					{title: "Status"},
					{title: "Progress", numeric: true},
					{title: "Matches", numeric: true},
					{title: "Conflicts", numeric: true},
					{title: "Finished"},
				},
				rows,
			))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of jobs to list")
	return cmd
}

func newJobsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one matching job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp api.JobResponse
			if err := ctx.client().get("/api/jobs/"+args[0], nil, &resp); err != nil {
				return err
			}
			job := resp.Job

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Job %d (%s)\n", job.ID, job.Type)
			fmt.Fprintf(out, "  Status:     %s\n", job.Status)
			fmt.Fprintf(out, "  Progress:   %d/%d works\n", job.ProcessedWorks, job.TotalWorks)
			fmt.Fprintf(out, "  Matches:    %d\n", job.MatchesFound)
			fmt.Fprintf(out, "  Conflicts:  %d\n", job.ConflictsCreated)
			if job.StartedAt != "" {
				fmt.Fprintf(out, "  Started:    %s\n", job.StartedAt)
			}
			if job.FinishedAt != "" {
				fmt.Fprintf(out, "  Finished:   %s\n", job.FinishedAt)
			}
			if job.ErrorMessage != "" {
				fmt.Fprintf(out, "  Error:      %s\n", job.ErrorMessage)
			}
			if job.CancelRequested && job.Status == "running" {
				fmt.Fprintln(out, "  Cancellation requested; waiting for the runner to stop.")
			}
			return nil
		},
	}
}

func newJobsCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <id>",
		Short: "Request cancellation of a matching job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp api.JobResponse
			if err := ctx.client().post("/api/jobs/"+args[0]+"/cancel", nil, &resp); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cancellation requested for job %d\n", resp.Job.ID)
			return nil
		},
	}
}
