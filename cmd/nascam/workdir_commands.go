package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"nascam/internal/logging"
	"nascam/internal/workdir"
)

func newWorkdirCommand(ctx *commandContext) *cobra.Command {
	workdirCmd := &cobra.Command{
		Use:   "workdir",
		Short: "Manage the extraction working directory",
	}

	workdirCmd.AddCommand(newWorkdirListCommand(ctx))
	workdirCmd.AddCommand(newWorkdirCleanCommand(ctx))

	return workdirCmd
}

func newWorkdirListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List leftover extraction directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			dir := cfg.Paths.WorkingDir
			dirs, err := workdir.List(dir)
			if err != nil {
				return fmt.Errorf("list working directory: %w", err)
			}

			var totalSize int64
			for _, d := range dirs {
				totalSize += d.Size
			}

			if ctx.JSONMode() {
				if dirs == nil {
					dirs = []workdir.DirInfo{}
				}
				return writeJSON(cmd, map[string]any{
					"working_dir":      dir,
					"directories":      dirs,
					"total_size_bytes": totalSize,
				})
			}

			out := cmd.OutOrStdout()
			if len(dirs) == 0 {
				fmt.Fprintln(out, "No extraction directories found")
				return nil
			}
			fmt.Fprintf(out, "Working directory: %s\n\n", dir)
			rows := make([][]string, 0, len(dirs))
			for _, d := range dirs {
				rows = append(rows, []string{
					d.Name,
					formatAge(time.Since(d.ModTime).Truncate(time.Minute)),
					fmt.Sprint(d.Files),
					logging.FormatBytes(d.Size),
				})
			}
			fmt.Fprint(out, renderTable(
				[]string{"Directory", "Age", "Frames", "Size"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignRight},
			))
			fmt.Fprintf(out, "\nTotal: %d directories, %s\n", len(dirs), logging.FormatBytes(totalSize))
			return nil
		},
	}
}

func newWorkdirCleanCommand(ctx *commandContext) *cobra.Command {
	var cleanAll bool
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove stale extraction directories",
		Long: `Remove extraction directories left behind by reads run with cleanup disabled
or interrupted part way.

By default only directories older than reader.stale_after_hours are removed.
Use --all to remove every directory. The command refuses to run while a read
holds the working directory.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			maxAge := time.Duration(cfg.Reader.StaleAfterHours) * time.Hour
			if cmd.Flags().Changed("older-than") {
				maxAge = olderThan
			}
			if cleanAll {
				maxAge = 0
			}

			lock, err := workdir.AcquireExclusive(cfg.Paths.WorkingDir)
			if err != nil {
				return err
			}
			defer lock.Release()

			result := workdir.CleanStale(cmd.Context(), cfg.Paths.WorkingDir, maxAge, logger)
			if ctx.JSONMode() {
				errs := make([]string, 0, len(result.Errors))
				for _, e := range result.Errors {
					errs = append(errs, fmt.Sprintf("%s: %v", e.Path, e.Error))
				}
				removed := result.Removed
				if removed == nil {
					removed = []string{}
				}
				return writeJSON(cmd, map[string]any{"removed": removed, "errors": errs})
			}

			out := cmd.OutOrStdout()
			if len(result.Removed) == 0 && len(result.Errors) == 0 {
				fmt.Fprintln(out, "No extraction directories to clean")
				return nil
			}
			fmt.Fprintf(out, "Removed %d extraction directories\n", len(result.Removed))
			for _, e := range result.Errors {
				fmt.Fprintf(out, "  Error: %s: %v\n", e.Path, e.Error)
			}
			if len(result.Errors) > 0 {
				return fmt.Errorf("%d directories could not be removed", len(result.Errors))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&cleanAll, "all", false, "Remove every extraction directory")
	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "Override reader.stale_after_hours (e.g. 6h)")
	return cmd
}
