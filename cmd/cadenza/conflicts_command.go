package main

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"cadenza/internal/api"
)

func newConflictsCommand(ctx *commandContext) *cobra.Command {
	conflictsCmd := &cobra.Command{
		Use:   "conflicts",
		Short: "Review and resolve ownership conflicts",
	}

	conflictsCmd.AddCommand(newConflictsListCommand(ctx))
	conflictsCmd.AddCommand(newConflictsShowCommand(ctx))
	conflictsCmd.AddCommand(newConflictsResolveCommand(ctx))
	return conflictsCmd
}

func newConflictsListCommand(ctx *commandContext) *cobra.Command {
	var (
		all          bool
		conflictType string
		severity     string
		offset       int
		limit        int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List open conflicts",
		RunE: func(cmd *cobra.Command, args []string) error {
			query := url.Values{}
			if !all {
				query.Set("resolved", "false")
			}
			if trimmed := strings.TrimSpace(conflictType); trimmed != "" {
				query.Set("type", trimmed)
			}
			if trimmed := strings.TrimSpace(severity); trimmed != "" {
				query.Set("severity", trimmed)
			}
			query.Set("offset", strconv.Itoa(offset))
			query.Set("limit", strconv.Itoa(limit))

			var resp api.ConflictListResponse
			if err := ctx.client().get("/api/conflicts", query, &resp); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(resp.Conflicts) == 0 {
				fmt.Fprintln(out, "No conflicts found.")
				return nil
			}

			rows := make([][]string, 0, len(resp.Conflicts))
			for _, conflict := range resp.Conflicts {
				state := "open"
				if conflict.Resolved {
					state = "resolved"
				}
				rows = append(rows, []string{
					strconv.FormatInt(conflict.ID, 10),
					conflict.Type,
					conflict.Severity,
					state,
					strings.Join(conflict.Accounts, ", "),
					conflict.Description,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]tableColumn{
					{title: "ID", numeric: true},
					{title: "Type"},
					{title: "Severity"},
					{title: "State"},
					{title: "Accounts"},
					{title: "Description", maxWidth: 60},
				},
				rows,
			))
			fmt.Fprintf(out, "Showing %d of %d conflicts\n", len(resp.Conflicts), resp.Total)
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Include resolved conflicts")
	cmd.Flags().StringVar(&conflictType, "type", "", "Filter by conflict type")
	cmd.Flags().StringVar(&severity, "severity", "", "Filter by severity")
	cmd.Flags().IntVar(&offset, "offset", 0, "Pagination offset")
	cmd.Flags().IntVar(&limit, "limit", 50, "Page size")
	return cmd
}

func newConflictsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one conflict",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp api.ConflictResponse
			if err := ctx.client().get("/api/conflicts/"+args[0], nil, &resp); err != nil {
				return err
			}
			conflict := resp.Conflict

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			fmt.Fprintf(out, "Conflict %d (group %d)\n", conflict.ID, conflict.GroupID)
			fmt.Fprintf(out, "  Type:       %s\n", conflict.Type)
			fmt.Fprintln(out, renderStatusLine("Severity", severityKind(conflict.Severity), conflict.Severity, colorize))
			fmt.Fprintf(out, "  Accounts:   %s\n", strings.Join(conflict.Accounts, ", "))
			if conflict.Territory != "" {
				fmt.Fprintf(out, "  Territory:  %s\n", conflict.Territory)
			}
			if conflict.Category != "" {
				fmt.Fprintf(out, "  Category:   %s\n", conflict.Category)
			}
			if conflict.ShareAxis != "" {
				fmt.Fprintf(out, "  Share axis: %s\n", conflict.ShareAxis)
			}
			fmt.Fprintf(out, "  Detail:     %s\n", conflict.Description)
			if conflict.Resolved {
				fmt.Fprintf(out, "  Resolved:   %s\n", conflict.ResolvedAt)
			}
			return nil
		},
	}
}

func newConflictsResolveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <id>",
		Short: "Mark a conflict resolved",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp api.ConflictResponse
			if err := ctx.client().post("/api/conflicts/"+args[0]+"/resolve", nil, &resp); err != nil {
				return err
			}
			if resp.AlreadyResolved {
				fmt.Fprintf(cmd.OutOrStdout(), "Conflict %d was already resolved\n", resp.Conflict.ID)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Resolved conflict %d\n", resp.Conflict.ID)
			return nil
		},
	}
}
