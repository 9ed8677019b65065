package workdir

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"nascam/internal/logging"
)

// DirInfo describes one extraction directory.
type DirInfo struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	ModTime time.Time `json:"mod_time"`
	Files   int       `json:"files"`
	Size    int64     `json:"size"`
}

// CleanResult contains the outcome of a stale directory cleanup.
type CleanResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a directory path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// List returns the extraction directories beneath dir sorted by name. A
// missing working directory yields an empty list.
func List(dir string) ([]DirInfo, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var dirs []DirInfo
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		files, size := usage(path)
		dirs = append(dirs, DirInfo{
			Name:    entry.Name(),
			Path:    path,
			ModTime: info.ModTime(),
			Files:   files,
			Size:    size,
		})
	}
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].Name < dirs[j].Name })
	return dirs, nil
}

// CleanStale removes extraction directories last modified more than maxAge
// ago. A maxAge of zero removes every directory. The caller is expected to
// hold the exclusive lock.
func CleanStale(ctx context.Context, dir string, maxAge time.Duration, logger *slog.Logger) CleanResult {
	result := CleanResult{}
	logger = logging.NewComponentLogger(logger, "workdir")

	dirs, err := List(dir)
	if err != nil {
		result.Errors = append(result.Errors, CleanupError{Path: dir, Error: err})
		return result
	}

	cutoff := time.Now().Add(-maxAge)
	for _, d := range dirs {
		if ctx.Err() != nil {
			break
		}
		if maxAge > 0 && !d.ModTime.Before(cutoff) {
			continue
		}
		if err := os.RemoveAll(d.Path); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: d.Path, Error: err})
			logging.WarnWithContext(logger, "failed to remove stale extraction directory", "workdir_cleanup_failed",
				logging.String("path", d.Path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check working_dir permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
			continue
		}
		result.Removed = append(result.Removed, d.Path)
		logger.Info("removed stale extraction directory",
			logging.String("path", d.Path),
			logging.Duration("age", time.Since(d.ModTime)),
			logging.String(logging.FieldEventType, "workdir_cleanup"),
		)
	}
	return result
}

func usage(path string) (int, int64) {
	var files int
	var size int64
	_ = filepath.WalkDir(path, func(_ string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			files++
			size += info.Size()
		}
		return nil
	})
	return files, size
}
