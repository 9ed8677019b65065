package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"nascam/internal/preflight"
)

func newPreflightCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "preflight [file]...",
		Short: "Check directory access and input readability",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cfg)
			for _, arg := range args {
				results = append(results, preflight.CheckReadable(arg))
			}
			failed := preflight.Failed(results)

			if ctx.JSONMode() {
				if err := writeJSON(cmd, results); err != nil {
					return err
				}
			} else {
				rows := make([][]string, 0, len(results))
				for _, r := range results {
					status := "ok"
					if !r.Passed {
						status = "FAIL"
					}
					rows = append(rows, []string{status, r.Name, r.Detail})
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable([]string{"Status", "Check", "Detail"}, rows, nil))
			}
			if len(failed) > 0 {
				return fmt.Errorf("%d preflight checks failed", len(failed))
			}
			return nil
		},
	}
}
