package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"cadenza/internal/api"
	"cadenza/internal/rights"
)

func newValidateCommand(ctx *commandContext) *cobra.Command {
	var epsilon float64

	cmd := &cobra.Command{
		Use:   "validate <chain.json>",
		Short: "Validate an ownership chain file",
		Long: "Reads a JSON territory chain and checks the per-territory 100% " +
			"rollup invariant on all four share axes. Validation runs locally " +
			"and does not require the daemon.",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read chain file: %w", err)
			}
			var req api.ValidateRequest
			if err := json.Unmarshal(raw, &req); err != nil {
				return fmt.Errorf("parse chain file: %w", err)
			}

			if epsilon <= 0 {
				if cfg, cfgErr := ctx.ensureConfig(); cfgErr == nil && cfg != nil {
					epsilon = cfg.Validation.ChainEpsilon
				}
			}
			chain := api.ToRightsChain(req.Chain)
			validator := rights.NewValidator(epsilon)
			result, err := validator.Validate(chain)
			resp := api.FromValidation(result, err)

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			if resp.Valid {
				fmt.Fprintln(out, renderStatusLine("Chain", statusOK, "all territories apportion to 100%", colorize))
				renderChainTotals(out, chain)
				return nil
			}
			for _, structural := range resp.StructuralErrors {
				msg := structural.Detail
				if structural.Territory != "" {
					msg = fmt.Sprintf("%s: %s", structural.Territory, structural.Detail)
				}
				fmt.Fprintln(out, renderStatusLine(structural.Kind, statusError, msg, colorize))
			}
			for _, violation := range resp.Violations {
				msg := fmt.Sprintf("%s %s totals %.2f%% (deviation %+.2f)",
					violation.Territory, violation.ShareAxis, violation.Total, violation.Deviation)
				fmt.Fprintln(out, renderStatusLine("violation", statusWarn, msg, colorize))
			}
			return fmt.Errorf("chain has %d finding(s)", len(resp.StructuralErrors)+len(resp.Violations))
		},
	}

	cmd.Flags().Float64Var(&epsilon, "epsilon", 0, "Rollup tolerance (defaults to the configured chain_epsilon)")
	return cmd
}

// renderChainTotals loads the chain into an editing arena and prints the
// per-territory rollups it maintains, one row per territory.
func renderChainTotals(out io.Writer, chain []rights.TerritoryChain) {
	arena, err := rights.LoadArena(chain)
	if err != nil {
		return
	}
	exported := arena.Chain()
	if len(exported) == 0 {
		return
	}
	rows := make([][]string, 0, len(exported))
	for _, tc := range exported {
		rows = append(rows, []string{
			tc.Territory,
			fmt.Sprintf("%.2f", tc.Totals.MechanicalOwnership),
			fmt.Sprintf("%.2f", tc.Totals.PerformanceOwnership),
			fmt.Sprintf("%.2f", tc.Totals.MechanicalCollection),
			fmt.Sprintf("%.2f", tc.Totals.PerformanceCollection),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]tableColumn{
			{title: "Territory"},
			{title: "Mech own", numeric: true},
			{title: "Perf own", numeric: true},
			{title: "Mech coll", numeric: true},
			{title: "Perf coll", numeric: true},
		},
		rows,
	))
}
