package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"nascam/internal/catalog"
	"nascam/internal/logging"
)

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Record and query frame metadata",
	}

	catalogCmd.AddCommand(newCatalogImportCommand(ctx))
	catalogCmd.AddCommand(newCatalogListCommand(ctx))
	catalogCmd.AddCommand(newCatalogHistoryCommand(ctx))

	return catalogCmd
}

func withCatalog(cmd *cobra.Command, ctx *commandContext, fn func(*catalog.Store) error) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	store, err := catalog.Open(cmd.Context(), cfg.Paths.CatalogPath)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer store.Close()
	return fn(store)
}

func newCatalogImportCommand(ctx *commandContext) *cobra.Command {
	var flags readFlags

	cmd := &cobra.Command{
		Use:   "import <file>...",
		Short: "Read files and record their frame metadata",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := runRead(cmd, ctx, &flags, args)
			if err != nil {
				return err
			}
			return withCatalog(cmd, ctx, func(store *catalog.Store) error {
				id, err := store.Record(cmd.Context(), result)
				if err != nil {
					return fmt.Errorf("record batch: %w", err)
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, map[string]any{
						"read_id":  id,
						"files":    result.Files,
						"frames":   result.Frames(),
						"problems": len(result.Problems),
						"lost":     len(result.Lost),
					})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Recorded read %d: %d frames from %d files (%d problems, %d lost)\n",
					id, result.Frames(), result.Files, len(result.Problems), len(result.Lost))
				return nil
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newCatalogListCommand(ctx *commandContext) *cobra.Command {
	var query catalog.FrameQuery
	var since, until string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalogued frames",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if query.Since, err = parseDateFlag(since); err != nil {
				return fmt.Errorf("--since: %w", err)
			}
			if query.Until, err = parseDateFlag(until); err != nil {
				return fmt.Errorf("--until: %w", err)
			}
			return withCatalog(cmd, ctx, func(store *catalog.Store) error {
				frames, err := store.Frames(cmd.Context(), query)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					if frames == nil {
						frames = []catalog.FrameRecord{}
					}
					return writeJSON(cmd, frames)
				}
				if len(frames) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No frames catalogued")
					return nil
				}
				rows := make([][]string, 0, len(frames))
				for _, f := range frames {
					rows = append(rows, []string{
						f.ExposureStart.Format("2006-01-02 15:04:05"),
						f.SiteID,
						f.DeviceID,
						f.ModeID,
						fmt.Sprintf("%.3f ms", f.ExposureMS),
						f.Filename,
						strconv.FormatInt(f.ReadID, 10),
					})
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"Start (UTC)", "Site", "Device", "Mode", "Exposure", "Frame", "Read"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignRight},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&query.SiteID, "site", "", "Only frames from this site")
	cmd.Flags().StringVar(&query.DeviceID, "device", "", "Only frames from this device")
	cmd.Flags().StringVar(&query.ModeID, "mode", "", "Only frames taken in this mode")
	cmd.Flags().StringVar(&since, "since", "", "Only frames starting at or after this time (YYYYMMDD or RFC3339)")
	cmd.Flags().StringVar(&until, "until", "", "Only frames starting before this time (YYYYMMDD or RFC3339)")
	cmd.Flags().IntVar(&query.Limit, "limit", 0, "Maximum number of frames to list")
	return cmd
}

func newCatalogHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded reads",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCatalog(cmd, ctx, func(store *catalog.Store) error {
				reads, err := store.Reads(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					if reads == nil {
						reads = []catalog.ReadSummary{}
					}
					return writeJSON(cmd, reads)
				}
				if len(reads) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No reads recorded")
					return nil
				}
				rows := make([][]string, 0, len(reads))
				for _, r := range reads {
					size := "-"
					if r.Frames > 0 {
						size = fmt.Sprintf("%dx%d/%d", r.Width, r.Height, r.SampleBits)
					}
					rows = append(rows, []string{
						strconv.FormatInt(r.ID, 10),
						r.RecordedAt.Local().Format("2006-01-02 15:04"),
						strconv.Itoa(r.Files),
						strconv.Itoa(r.Frames),
						size,
						strconv.Itoa(r.Problems + r.Lost),
						logging.FormatBytes(r.TotalBytes),
					})
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"Read", "Recorded", "Files", "Frames", "Frame size", "Failed", "Bytes"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignLeft, alignRight, alignRight},
				))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Number of reads to show")
	return cmd
}

// parseDateFlag accepts the compact date form used in frame names or a full
// RFC3339 timestamp. Dates are taken as UTC midnight.
func parseDateFlag(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse("20060102", value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
}
