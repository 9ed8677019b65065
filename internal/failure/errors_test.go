package failure

import (
	"errors"
	"strings"
	"testing"
)

func TestWrapKeepsMarkerAndCause(t *testing.T) {
	cause := errors.New("unexpected EOF")
	err := Wrap(ErrArchive, "/data/a.png.tar", "list entries", "", cause)
	if !errors.Is(err, ErrArchive) {
		t.Fatalf("expected ErrArchive marker, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to be preserved, got %v", err)
	}
	if !strings.Contains(err.Error(), "/data/a.png.tar: list entries") {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestWrapDefaults(t *testing.T) {
	err := Wrap(nil, "", "", "", nil)
	if !errors.Is(err, ErrFileProcessing) {
		t.Fatalf("expected default marker, got %v", err)
	}
	if err.Error() != "file processing error: read failure" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{Wrap(ErrMalformedFilename, "x", "", "", nil), "malformed_filename"},
		{Wrap(ErrDecode, "x", "", "", nil), "decode"},
		{Wrap(ErrArchive, "x", "", "", nil), "archive"},
		{Wrap(ErrDimensionMismatch, "x", "", "", nil), "dimension_mismatch"},
		{Wrap(ErrWorkerFailure, "x", "", "", nil), "worker_failure"},
		{errors.New("other"), "file_processing"},
	}
	for _, tt := range tests {
		if got := Kind(tt.err); got != tt.want {
			t.Errorf("Kind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
