package container

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"nascam/internal/failure"
	"nascam/internal/logging"
)

// Kind classifies an input path by extension.
type Kind int

const (
	KindUnknown Kind = iota
	KindFrame
	KindArchive
)

func (k Kind) String() string {
	switch k {
	case KindFrame:
		return "frame"
	case KindArchive:
		return "archive"
	default:
		return "unknown"
	}
}

// Classify reports whether path names a bare frame (".png") or a container
// (".tar", normally ".png.tar").
func Classify(path string) Kind {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".tar"):
		return KindArchive
	case strings.HasSuffix(lower, ".png"):
		return KindFrame
	default:
		return KindUnknown
	}
}

// Options configures a Resolver.
type Options struct {
	WorkingDir     string
	FirstFrameOnly bool
	Cleanup        bool
}

// Resolution lists the frame files backing one input path.
type Resolution struct {
	Source    string
	Kind      Kind
	Members   []string
	Artifacts []string
	Dir       string
}

// Resolver turns input paths into ordered frame file lists.
type Resolver struct {
	archive Archive
	opts    Options
	logger  *slog.Logger
}

// NewResolver builds a resolver. A nil archive selects TarArchive.
func NewResolver(opts Options, archive Archive, logger *slog.Logger) *Resolver {
	if archive == nil {
		archive = TarArchive{}
	}
	return &Resolver{
		archive: archive,
		opts:    opts,
		logger:  logging.NewComponentLogger(logger, "container"),
	}
}

// Resolve returns the ordered member files for path. Containers are extracted
// into a fresh directory beneath the working directory; on any extraction
// failure that directory is removed before the error is returned.
func (r *Resolver) Resolve(path string) (Resolution, error) {
	switch Classify(path) {
	case KindFrame:
		return Resolution{Source: path, Kind: KindFrame, Members: []string{path}}, nil
	case KindArchive:
		return r.extract(path)
	default:
		return Resolution{}, failure.Wrap(failure.ErrFileProcessing, path, "classify", "unrecognized file type", nil)
	}
}

func (r *Resolver) extract(path string) (Resolution, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Resolution{}, failure.Wrap(failure.ErrFileProcessing, path, "read archive", "", err)
	}

	names, err := r.archive.ListEntries(data)
	if err != nil {
		return Resolution{}, failure.Wrap(failure.ErrArchive, path, "list entries", "", err)
	}
	if len(names) == 0 {
		return Resolution{}, failure.Wrap(failure.ErrArchive, path, "list entries", "archive holds no frames", nil)
	}
	sort.Strings(names)
	if r.opts.FirstFrameOnly {
		names = names[:1]
	}

	if err := os.MkdirAll(r.opts.WorkingDir, 0o755); err != nil {
		return Resolution{}, failure.Wrap(failure.ErrFileProcessing, path, "create working directory", r.opts.WorkingDir, err)
	}
	dir := filepath.Join(r.opts.WorkingDir, uuid.NewString())
	if err := os.Mkdir(dir, 0o755); err != nil {
		return Resolution{}, failure.Wrap(failure.ErrFileProcessing, path, "create extraction directory", dir, err)
	}

	members := make([]string, 0, len(names))
	for _, name := range names {
		target, err := r.archive.ExtractEntry(data, name, dir)
		if err != nil {
			_ = os.RemoveAll(dir)
			return Resolution{}, failure.Wrap(failure.ErrArchive, path, "extract entry", name, err)
		}
		members = append(members, target)
	}

	r.logger.Debug("extracted container",
		logging.String(logging.FieldFile, path),
		logging.Int("members", len(members)),
		logging.String("dir", dir),
	)

	artifacts := make([]string, len(members))
	copy(artifacts, members)
	return Resolution{Source: path, Kind: KindArchive, Members: members, Artifacts: artifacts, Dir: dir}, nil
}

// Cleanup removes the extraction artifacts of res unless cleanup is disabled.
// Files that are already gone are not an error.
func (r *Resolver) Cleanup(res Resolution) error {
	if !r.opts.Cleanup || res.Kind != KindArchive {
		return nil
	}
	var errs []error
	for _, artifact := range res.Artifacts {
		if err := os.Remove(artifact); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	if res.Dir != "" {
		if err := os.RemoveAll(res.Dir); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		logging.WarnWithContext(r.logger, "failed to remove extraction artifacts", "extraction_cleanup_failed",
			logging.String(logging.FieldFile, res.Source),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check working_dir permissions"),
			logging.String(logging.FieldImpact, "disk space not reclaimed until workdir clean"),
		)
		return fmt.Errorf("cleanup %s: %w", res.Source, err)
	}
	return nil
}
