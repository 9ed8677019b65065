package failure

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMalformedFilename = errors.New("malformed filename")
	ErrDecode            = errors.New("decode error")
	ErrArchive           = errors.New("archive error")
	ErrDimensionMismatch = errors.New("dimension mismatch")
	ErrFileProcessing    = errors.New("file processing error")
	ErrWorkerFailure     = errors.New("worker failure")
)

// Wrap builds an error message that includes the offending path and operation
// while tagging it with the provided marker for later classification. The
// marker should be one of the exported sentinel errors above.
func Wrap(marker error, path, operation, message string, err error) error {
	detail := buildDetail(path, operation, message)
	if marker == nil {
		marker = ErrFileProcessing
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind returns a stable snake_case classification for err, suitable for log
// fields, JSON output and the catalog.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrWorkerFailure):
		return "worker_failure"
	case errors.Is(err, ErrDimensionMismatch):
		return "dimension_mismatch"
	case errors.Is(err, ErrMalformedFilename):
		return "malformed_filename"
	case errors.Is(err, ErrArchive):
		return "archive"
	case errors.Is(err, ErrDecode):
		return "decode"
	default:
		return "file_processing"
	}
}

func buildDetail(path, operation, message string) string {
	parts := make([]string, 0, 3)
	if path = strings.TrimSpace(path); path != "" {
		parts = append(parts, path)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "read failure"
	}
	return strings.Join(parts, ": ")
}
