package reader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"nascam/internal/config"
	"nascam/internal/container"
	"nascam/internal/frame"
	"nascam/internal/logging"
	"nascam/internal/metadata"
	"nascam/internal/workdir"
)

// DefaultWorkingDir is where containers are extracted when Options.WorkingDir
// is empty.
const DefaultWorkingDir = "~/.nascam_imager_readfile"

// ErrInvalidOptions marks a rejected Options value.
var ErrInvalidOptions = errors.New("invalid read options")

// Options configures Read.
type Options struct {
	// Workers is the number of concurrent shards. Must be at least 1.
	Workers int
	// FirstFrameOnly decodes only the earliest member of each container.
	FirstFrameOnly bool
	// Quiet suppresses progress and rate logging. Problems are still logged.
	Quiet bool
	// Cleanup removes extracted frames after each file.
	Cleanup    bool
	WorkingDir string
	Logger     *slog.Logger
	// Codec and Archive override the PNG and tar capabilities.
	Codec   frame.Codec
	Archive container.Archive
	// OnProgress is called after each input file completes. Calls are
	// serialized but may come from any worker goroutine.
	OnProgress func(Progress)
}

// DefaultOptions returns single-worker options that extract every frame and
// clean up afterwards.
func DefaultOptions() Options {
	return Options{
		Workers:    1,
		Cleanup:    true,
		WorkingDir: DefaultWorkingDir,
	}
}

// OptionsFromConfig builds Options from the [paths] and [reader] sections.
func OptionsFromConfig(cfg *config.Config) Options {
	opts := DefaultOptions()
	if cfg == nil {
		return opts
	}
	opts.Workers = cfg.Reader.Workers
	opts.FirstFrameOnly = cfg.Reader.FirstFrameOnly
	opts.Quiet = cfg.Reader.Quiet
	opts.Cleanup = cfg.Reader.Cleanup
	if strings.TrimSpace(cfg.Paths.WorkingDir) != "" {
		opts.WorkingDir = cfg.Paths.WorkingDir
	}
	return opts
}

func (o *Options) normalize() error {
	if o.Workers < 1 {
		return fmt.Errorf("%w: workers must be at least 1, got %d", ErrInvalidOptions, o.Workers)
	}
	if strings.TrimSpace(o.WorkingDir) == "" {
		o.WorkingDir = DefaultWorkingDir
	}
	dir, err := config.ExpandPath(o.WorkingDir)
	if err != nil {
		return fmt.Errorf("%w: working dir: %v", ErrInvalidOptions, err)
	}
	o.WorkingDir = dir
	if o.Logger == nil {
		o.Logger = logging.NewNop()
	}
	return nil
}

// Progress reports one completed input file.
type Progress struct {
	Done   int
	Total  int
	Path   string
	Frames int
	Bytes  int64
	Err    error
}

// Result is the outcome of a batch read. Stack and Metadata are owned by the
// caller and always have the same length. Every input path appears exactly
// once: as the source of at least one frame, in Problems, or in Lost.
type Result struct {
	Stack          *frame.Stack
	Metadata       []metadata.FrameMetadata
	Problems       []Problem
	MemberFailures []MemberFailure
	// Lost lists inputs whose results were discarded because their worker
	// failed.
	Lost       []string
	Files      int
	TotalBytes int64
	Elapsed    time.Duration
}

// Frames returns the number of frames in the batch.
func (r Result) Frames() int {
	return r.Stack.Len()
}

func emptyResult() Result {
	return Result{Stack: &frame.Stack{}, Metadata: []metadata.FrameMetadata{}}
}

type run struct {
	workers   int
	quiet     bool
	total     int
	logger    *slog.Logger
	processor *fileProcessor

	mu         sync.Mutex
	done       int
	sampler    *logging.ProgressSampler
	onProgress func(Progress)
}

// Read decodes paths into one batch. Paths are de-duplicated and processed in
// sorted order. Per-file and per-member failures are reported in the result;
// an error is returned only for invalid options, a working directory that
// cannot be locked, or cancellation, in which case the result is empty.
func Read(ctx context.Context, paths []string, opts Options) (Result, error) {
	if err := opts.normalize(); err != nil {
		return emptyResult(), err
	}
	inputs := uniqueSorted(paths)
	if len(inputs) == 0 {
		return emptyResult(), nil
	}

	logger := logging.NewComponentLogger(opts.Logger, "reader")
	lock, err := workdir.AcquireShared(ctx, opts.WorkingDir)
	if err != nil {
		return emptyResult(), err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Debug("release working dir lock", logging.Error(err))
		}
	}()

	start := time.Now()
	r := &run{
		workers: opts.Workers,
		quiet:   opts.Quiet,
		total:   len(inputs),
		logger:  logger,
		processor: &fileProcessor{
			resolver: container.NewResolver(container.Options{
				WorkingDir:     opts.WorkingDir,
				FirstFrameOnly: opts.FirstFrameOnly,
				Cleanup:        opts.Cleanup,
			}, opts.Archive, opts.Logger),
			decoder: frame.NewDecoder(opts.Codec),
			logger:  logger,
		},
		sampler:    logging.NewProgressSampler(10),
		onProgress: opts.OnProgress,
	}
	if !opts.Quiet {
		logger.Info("reading files",
			logging.Int("files", len(inputs)),
			logging.Int("workers", min(opts.Workers, len(inputs))),
			logging.Bool("first_frame_only", opts.FirstFrameOnly),
		)
	}

	outputs := r.dispatch(ctx, inputs)
	if err := ctx.Err(); err != nil {
		return emptyResult(), err
	}

	asm := newAssembler(len(inputs))
	var lost []string
	for _, out := range outputs {
		if out.err != nil {
			lost = append(lost, out.lost...)
			continue
		}
		for _, fr := range out.files {
			asm.add(fr)
		}
	}
	stack, metas := asm.finish()

	result := Result{
		Stack:          stack,
		Metadata:       metas,
		Problems:       asm.problems,
		MemberFailures: asm.memberFailures,
		Lost:           lost,
		Files:          len(inputs),
		TotalBytes:     asm.bytes,
		Elapsed:        time.Since(start),
	}
	r.report(result)
	return result, nil
}

func (r *run) progress(fr FileResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.done++
	if !r.quiet && r.sampler.ShouldLog(r.done, r.total) {
		r.logger.Info("read progress",
			logging.Int("done", r.done),
			logging.Int("total", r.total),
			logging.String(logging.FieldFile, fr.Path),
		)
	}
	if r.onProgress != nil {
		r.onProgress(Progress{
			Done:   r.done,
			Total:  r.total,
			Path:   fr.Path,
			Frames: fr.Stack.Len(),
			Bytes:  fr.Bytes,
			Err:    fr.Err,
		})
	}
}

func (r *run) report(result Result) {
	for _, p := range result.Problems {
		logging.WarnWithContext(r.logger, "file skipped", "file_skipped",
			logging.String(logging.FieldFile, p.Path),
			logging.String(logging.FieldErrorKind, p.Kind),
			logging.Error(p.Err),
			logging.String(logging.FieldImpact, "file contributes no frames"),
		)
	}
	if len(result.MemberFailures) > 0 {
		logging.WarnWithContext(r.logger, "some container members were unreadable", "members_skipped",
			logging.Int("members", len(result.MemberFailures)),
			logging.String(logging.FieldErrorHint, "rerun with --json to list each member"),
			logging.String(logging.FieldImpact, "affected frames missing from stack"),
		)
	}
	if r.quiet {
		return
	}
	r.logger.Info("read complete",
		logging.Int("files", result.Files),
		logging.Int("frames", result.Frames()),
		logging.Int("problems", len(result.Problems)),
		logging.Int("lost", len(result.Lost)),
		logging.String("bytes", logging.FormatBytes(result.TotalBytes)),
		logging.String("rate", logging.FormatRate(result.TotalBytes, result.Elapsed)),
		logging.Duration("elapsed", result.Elapsed),
	)
}

func uniqueSorted(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
