package testsupport

import (
	"archive/tar"
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"nascam/internal/metadata"
)

// Epoch is the exposure start used by FrameName for index 0.
var Epoch = time.Date(2021, time.March, 4, 5, 6, 0, 0, time.UTC)

// FrameName returns a canonical frame basename whose timestamp is Epoch plus
// index seconds, so names sort in index order.
func FrameName(index, exposureMS int) string {
	return metadata.Format(Epoch.Add(time.Duration(index)*time.Second), "ikr", "cam01", "m1", exposureMS)
}

// Gray16 returns a width x height raster whose samples encode seed and the
// pixel position, stored top-to-bottom.
func Gray16(width, height int, seed uint16) []uint16 {
	pix := make([]uint16, width*height)
	for i := range pix {
		pix[i] = seed*1000 + uint16(i)
	}
	return pix
}

// EncodePNG16 renders a 16-bit grayscale PNG from top-to-bottom samples.
func EncodePNG16(t testing.TB, width, height int, pix []uint16) []byte {
	t.Helper()

	img := image.NewGray16(image.Rect(0, 0, width, height))
	for i, v := range pix {
		img.Pix[2*i] = byte(v >> 8)
		img.Pix[2*i+1] = byte(v)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// EncodePNG8 renders an 8-bit grayscale PNG from top-to-bottom samples.
func EncodePNG8(t testing.TB, width, height int, pix []uint8) []byte {
	t.Helper()

	img := image.NewGray(image.Rect(0, 0, width, height))
	copy(img.Pix, pix)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// Member is one entry of a test container.
type Member struct {
	Name string
	Data []byte
}

// WriteFrame writes a 16-bit PNG frame into dir and returns its path.
func WriteFrame(t testing.TB, dir, name string, width, height int, seed uint16) string {
	t.Helper()
	return WriteBytes(t, filepath.Join(dir, name), EncodePNG16(t, width, height, Gray16(width, height, seed)))
}

// FrameMembers builds count 16-bit frames of the given size named by
// FrameName starting at first.
func FrameMembers(t testing.TB, first, count, width, height int) []Member {
	t.Helper()
	members := make([]Member, 0, count)
	for i := first; i < first+count; i++ {
		members = append(members, Member{
			Name: FrameName(i, 1000),
			Data: EncodePNG16(t, width, height, Gray16(width, height, uint16(i))),
		})
	}
	return members
}

// WriteTar writes members, in the order given, as a tar container at path.
func WriteTar(t testing.TB, path string, members []Member) string {
	t.Helper()

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, m := range members {
		hdr := &tar.Header{Name: m.Name, Mode: 0o644, Size: int64(len(m.Data)), Typeflag: tar.TypeReg, ModTime: Epoch}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("write tar header %s: %v", m.Name, err)
		}
		if _, err := tw.Write(m.Data); err != nil {
			t.Fatalf("write tar member %s: %v", m.Name, err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("close tar: %v", err)
	}
	return WriteBytes(t, path, buf.Bytes())
}

// WriteBytes writes data to path, creating parent directories.
func WriteBytes(t testing.TB, path string, data []byte) string {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// ListDir returns the entry names directly beneath dir, or nil if dir is
// missing.
func ListDir(t testing.TB, dir string) []string {
	t.Helper()

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		t.Fatalf("read dir %s: %v", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}
