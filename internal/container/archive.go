package container

import (
	"archive/tar"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Archive is the container codec capability.
type Archive interface {
	// ListEntries returns the names of the regular-file members in archive order.
	ListEntries(data []byte) ([]string, error)
	// ExtractEntry writes member name beneath destDir and returns its path.
	ExtractEntry(data []byte, name, destDir string) (string, error)
}

// TarArchive reads uncompressed tar containers.
type TarArchive struct{}

// ListEntries implements Archive.
func (TarArchive) ListEntries(data []byte) ([]string, error) {
	tr := tar.NewReader(bytes.NewReader(data))
	var names []string
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read tar header: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		if _, err := safeMemberPath(hdr.Name); err != nil {
			return nil, err
		}
		names = append(names, hdr.Name)
	}
	return names, nil
}

// ExtractEntry implements Archive.
func (TarArchive) ExtractEntry(data []byte, name, destDir string) (string, error) {
	rel, err := safeMemberPath(name)
	if err != nil {
		return "", err
	}
	tr := tar.NewReader(bytes.NewReader(data))
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return "", fmt.Errorf("member %q not found", name)
		}
		if err != nil {
			return "", fmt.Errorf("read tar header: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg || hdr.Name != name {
			continue
		}

		target := filepath.Join(destDir, rel)
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return "", fmt.Errorf("create member directory: %w", err)
		}
		if err := writeMember(target, tr, hdr.Size); err != nil {
			_ = os.Remove(target)
			return "", fmt.Errorf("extract %q: %w", name, err)
		}
		return target, nil
	}
}

func writeMember(target string, r io.Reader, size int64) error {
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()

	written, err := io.Copy(out, r)
	if err != nil {
		return err
	}
	if written != size {
		return fmt.Errorf("short member: wrote %d of %d bytes", written, size)
	}
	return out.Close()
}

// safeMemberPath rejects member names that would escape the extraction
// directory.
func safeMemberPath(name string) (string, error) {
	cleaned := path.Clean(strings.ReplaceAll(name, "\\", "/"))
	if name == "" || cleaned == "." || path.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("unsafe member name %q", name)
	}
	return filepath.FromSlash(cleaned), nil
}
