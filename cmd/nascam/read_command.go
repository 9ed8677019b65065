package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"nascam/internal/catalog"
	"nascam/internal/config"
	"nascam/internal/logging"
	"nascam/internal/metadata"
	"nascam/internal/preflight"
	"nascam/internal/reader"
)

type readFlags struct {
	workers        int
	firstFrameOnly bool
	noCleanup      bool
	quiet          bool
	strict         bool
	showFrames     bool
	record         bool
}

func (f *readFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&f.workers, "workers", "w", 0, "Concurrent workers (default from config)")
	cmd.Flags().BoolVar(&f.firstFrameOnly, "first-frame-only", false, "Decode only the earliest frame of each container")
	cmd.Flags().BoolVar(&f.noCleanup, "no-cleanup", false, "Keep extracted frames in the working directory")
	cmd.Flags().BoolVarP(&f.quiet, "quiet", "q", false, "Suppress progress and rate reporting")
	cmd.Flags().BoolVar(&f.strict, "strict", false, "Refuse to start if any input is missing or unreadable")
}

// options merges command-line flags over the configured reader defaults.
func (f *readFlags) options(cmd *cobra.Command, cfg *config.Config) reader.Options {
	opts := reader.OptionsFromConfig(cfg)
	if cmd.Flags().Changed("workers") {
		opts.Workers = f.workers
	}
	if f.firstFrameOnly {
		opts.FirstFrameOnly = true
	}
	if f.noCleanup {
		opts.Cleanup = false
	}
	if f.quiet {
		opts.Quiet = true
	}
	return opts
}

func newReadCommand(ctx *commandContext) *cobra.Command {
	var flags readFlags

	cmd := &cobra.Command{
		Use:   "read <file>...",
		Short: "Read frames and containers into one batch",
		Long: `Read bare PNG frames and tar containers of frames into a single batch.

Files are processed in sorted order. Files that cannot be read, or whose frame
size differs from the first readable file, are listed as problems and do not
stop the batch.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := runRead(cmd, ctx, &flags, args)
			if err != nil {
				return err
			}
			if flags.record {
				if err := recordResult(cmd.Context(), ctx, cmd, result); err != nil {
					return err
				}
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, newReadReport(result, flags.showFrames))
			}
			printReadResult(cmd.OutOrStdout(), result, flags.showFrames)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&flags.showFrames, "frames", false, "List every decoded frame")
	cmd.Flags().BoolVar(&flags.record, "record", false, "Record the batch in the catalog")
	return cmd
}

func runRead(cmd *cobra.Command, ctx *commandContext, flags *readFlags, args []string) (reader.Result, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return reader.Result{}, err
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return reader.Result{}, err
	}

	paths := make([]string, 0, len(args))
	for _, arg := range args {
		path, err := config.ExpandPath(arg)
		if err != nil {
			return reader.Result{}, err
		}
		paths = append(paths, path)
	}

	if flags.strict {
		var failed []string
		for _, path := range paths {
			if res := preflight.CheckReadable(path); !res.Passed {
				failed = append(failed, fmt.Sprintf("%s: %s", res.Name, res.Detail))
			}
		}
		if len(failed) > 0 {
			return reader.Result{}, fmt.Errorf("%d inputs failed preflight:\n  %s", len(failed), strings.Join(failed, "\n  "))
		}
	}

	opts := flags.options(cmd, cfg)
	opts.Logger = logger

	var bar *progressbar.ProgressBar
	errOut := cmd.ErrOrStderr()
	if !opts.Quiet && !ctx.JSONMode() && isTerminal(errOut) {
		bar = progressbar.NewOptions(len(paths),
			progressbar.OptionSetWriter(errOut),
			progressbar.OptionSetDescription("reading"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
		// The bar replaces per-file progress log lines.
		opts.Quiet = true
		opts.OnProgress = func(reader.Progress) { _ = bar.Add(1) }
	}

	result, err := reader.Read(cmd.Context(), paths, opts)
	if bar != nil {
		_ = bar.Finish()
	}
	return result, err
}

func recordResult(ctx context.Context, cc *commandContext, cmd *cobra.Command, result reader.Result) error {
	cfg, err := cc.ensureConfig()
	if err != nil {
		return err
	}
	store, err := catalog.Open(ctx, cfg.Paths.CatalogPath)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer store.Close()

	id, err := store.Record(ctx, result)
	if err != nil {
		return fmt.Errorf("record batch: %w", err)
	}
	if !cc.JSONMode() {
		fmt.Fprintf(cmd.ErrOrStderr(), "Recorded read %d in %s\n", id, store.Path())
	}
	return nil
}

type readReport struct {
	Files          int                      `json:"files"`
	Frames         int                      `json:"frames"`
	Width          int                      `json:"width"`
	Height         int                      `json:"height"`
	SampleBits     int                      `json:"sample_bits"`
	TotalBytes     int64                    `json:"total_bytes"`
	ElapsedSeconds float64                  `json:"elapsed_seconds"`
	Problems       []reader.Problem         `json:"problems"`
	MemberFailures []reader.MemberFailure   `json:"member_failures"`
	Lost           []string                 `json:"lost"`
	Metadata       []metadata.FrameMetadata `json:"metadata,omitempty"`
}

func newReadReport(result reader.Result, withFrames bool) readReport {
	sig := result.Stack.Signature()
	report := readReport{
		Files:          result.Files,
		Frames:         result.Frames(),
		Width:          sig.Width,
		Height:         sig.Height,
		SampleBits:     sig.Sample.Bits(),
		TotalBytes:     result.TotalBytes,
		ElapsedSeconds: result.Elapsed.Seconds(),
		Problems:       result.Problems,
		MemberFailures: result.MemberFailures,
		Lost:           result.Lost,
	}
	if report.Problems == nil {
		report.Problems = []reader.Problem{}
	}
	if report.MemberFailures == nil {
		report.MemberFailures = []reader.MemberFailure{}
	}
	if report.Lost == nil {
		report.Lost = []string{}
	}
	if withFrames {
		report.Metadata = result.Metadata
	}
	return report
}

func printReadResult(out io.Writer, result reader.Result, withFrames bool) {
	sig := "-"
	if result.Frames() > 0 {
		sig = result.Stack.Signature().String()
	}
	fmt.Fprint(out, renderTable(
		[]string{"Files", "Frames", "Frame size", "Problems", "Lost", "Read", "Rate", "Elapsed"},
		[][]string{{
			strconv.Itoa(result.Files),
			strconv.Itoa(result.Frames()),
			sig,
			strconv.Itoa(len(result.Problems)),
			strconv.Itoa(len(result.Lost)),
			logging.FormatBytes(result.TotalBytes),
			logging.FormatRate(result.TotalBytes, result.Elapsed),
			result.Elapsed.Round(time.Millisecond).String(),
		}},
		[]columnAlignment{alignRight, alignRight, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight},
	))

	if withFrames && len(result.Metadata) > 0 {
		rows := make([][]string, 0, len(result.Metadata))
		for i, m := range result.Metadata {
			rows = append(rows, []string{
				strconv.Itoa(i),
				m.Filename,
				m.SiteID,
				m.DeviceID,
				m.ModeID,
				m.ExposureStart.Format("2006-01-02 15:04:05"),
				m.ExposureLabel(),
			})
		}
		fmt.Fprint(out, "\n", renderTable(
			[]string{"#", "Frame", "Site", "Device", "Mode", "Start (UTC)", "Exposure"},
			rows,
			[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
		))
	}

	if len(result.Problems) > 0 {
		rows := make([][]string, 0, len(result.Problems))
		for _, p := range result.Problems {
			rows = append(rows, []string{p.Path, p.Kind, p.Message})
		}
		fmt.Fprint(out, "\nProblems\n", renderTable([]string{"File", "Kind", "Error"}, rows, nil))
	}
	if len(result.MemberFailures) > 0 {
		rows := make([][]string, 0, len(result.MemberFailures))
		for _, mf := range result.MemberFailures {
			rows = append(rows, []string{mf.File, mf.Member, mf.Kind})
		}
		fmt.Fprint(out, "\nSkipped members\n", renderTable([]string{"File", "Member", "Kind"}, rows, nil))
	}
	if len(result.Lost) > 0 {
		fmt.Fprintln(out, "\nLost to a worker failure (rerun with --workers 1):")
		for _, path := range result.Lost {
			fmt.Fprintf(out, "  %s\n", path)
		}
	}
}
