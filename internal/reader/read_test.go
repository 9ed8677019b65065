package reader_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"nascam/internal/failure"
	"nascam/internal/frame"
	"nascam/internal/logging"
	"nascam/internal/reader"
	"nascam/internal/testsupport"
	"nascam/internal/workdir"
)

const (
	testWidth  = 4
	testHeight = 3
)

// writeArchives writes n containers of perFile frames each, with globally
// increasing frame names, and returns their paths in sorted order.
func writeArchives(t *testing.T, dir string, n, perFile int) []string {
	t.Helper()
	paths := make([]string, 0, n)
	for i := 0; i < n; i++ {
		members := testsupport.FrameMembers(t, i*perFile, perFile, testWidth, testHeight)
		name := fmt.Sprintf("%02d_%s.tar", i, members[0].Name)
		paths = append(paths, testsupport.WriteTar(t, filepath.Join(dir, name), members))
	}
	return paths
}

func testOptions(t *testing.T, workers int) reader.Options {
	t.Helper()
	opts := reader.DefaultOptions()
	opts.Workers = workers
	opts.Quiet = true
	opts.WorkingDir = filepath.Join(t.TempDir(), "work")
	opts.Logger = logging.NewNop()
	return opts
}

func mustRead(t *testing.T, paths []string, opts reader.Options) reader.Result {
	t.Helper()
	result, err := reader.Read(context.Background(), paths, opts)
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	if result.Stack.Len() != len(result.Metadata) {
		t.Fatalf("stack holds %d frames but metadata has %d entries", result.Stack.Len(), len(result.Metadata))
	}
	return result
}

// assertPartition checks that every input is accounted for exactly once.
func assertPartition(t *testing.T, inputs []string, result reader.Result) {
	t.Helper()
	seen := map[string]int{}
	contributed := map[string]bool{}
	for _, m := range result.Metadata {
		contributed[m.SourceFile] = true
	}
	for p := range contributed {
		seen[p]++
	}
	for _, p := range result.Problems {
		seen[p.Path]++
	}
	for _, p := range result.Lost {
		seen[p]++
	}
	for _, in := range inputs {
		if seen[in] != 1 {
			t.Errorf("input %s accounted for %d times", in, seen[in])
		}
	}
	if len(seen) != len(inputs) {
		t.Errorf("result references %d paths, want %d", len(seen), len(inputs))
	}
}

func TestReadArchivesInOrder(t *testing.T) {
	paths := writeArchives(t, t.TempDir(), 3, 4)
	result := mustRead(t, paths, testOptions(t, 1))

	if result.Stack.Len() != 12 {
		t.Fatalf("expected 12 frames, got %d", result.Stack.Len())
	}
	if got := result.Stack.Signature(); got != (frame.Signature{Width: testWidth, Height: testHeight, Sample: frame.Uint16}) {
		t.Fatalf("unexpected signature %s", got)
	}
	if result.Stack.Cap() != result.Stack.Len() {
		t.Fatalf("stack not trimmed: len %d cap %d", result.Stack.Len(), result.Stack.Cap())
	}
	for i, m := range result.Metadata {
		if m.Filename != testsupport.FrameName(i, 1000) {
			t.Fatalf("frame %d: got %s want %s", i, m.Filename, testsupport.FrameName(i, 1000))
		}
		want := frame.FlipVertical(frame.Frame{
			Signature: result.Stack.Signature(),
			Pix16:     testsupport.Gray16(testWidth, testHeight, uint16(i)),
		}).Pix16
		if diff := cmp.Diff(want, result.Stack.Pix16(i)); diff != "" {
			t.Fatalf("frame %d pixels mismatch (-want +got):\n%s", i, diff)
		}
	}
	if result.TotalBytes <= 0 {
		t.Fatalf("expected bytes to be counted, got %d", result.TotalBytes)
	}
	assertPartition(t, paths, result)
}

func TestReadBareFrameIsFlipped(t *testing.T) {
	dir := t.TempDir()
	pix := []uint16{1, 2, 3, 4, 5, 6}
	path := testsupport.WriteBytes(t, filepath.Join(dir, testsupport.FrameName(0, 250)), testsupport.EncodePNG16(t, 2, 3, pix))

	result := mustRead(t, []string{path}, testOptions(t, 1))
	if diff := cmp.Diff([]uint16{5, 6, 3, 4, 1, 2}, result.Stack.Pix16(0)); diff != "" {
		t.Fatalf("expected bottom-to-top rows (-want +got):\n%s", diff)
	}
	meta := result.Metadata[0]
	if meta.ExposureDurationMS != 250 || meta.ExposureLabel() != "250.000 ms" || meta.ProjectID != "nascam" {
		t.Fatalf("unexpected metadata %+v", meta)
	}
}

func TestReadWorkerCountDoesNotChangeResult(t *testing.T) {
	paths := writeArchives(t, t.TempDir(), 7, 3)
	single := mustRead(t, paths, testOptions(t, 1))

	for _, workers := range []int{2, 4, 16} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			parallel := mustRead(t, paths, testOptions(t, workers))
			if !single.Stack.Equal(parallel.Stack) {
				t.Fatal("frame stacks differ from single-worker read")
			}
			if diff := cmp.Diff(single.Metadata, parallel.Metadata); diff != "" {
				t.Fatalf("metadata differs (-single +parallel):\n%s", diff)
			}
			assertPartition(t, paths, parallel)
		})
	}
}

func TestReadCorruptArchiveIsReported(t *testing.T) {
	dir := t.TempDir()
	paths := writeArchives(t, dir, 4, 2)
	corrupt := testsupport.WriteBytes(t, filepath.Join(dir, "02_corrupt.tar"), bytes.Repeat([]byte("garbage "), 16))
	inputs := append(slices.Clone(paths), corrupt)

	result := mustRead(t, inputs, testOptions(t, 2))
	if len(result.Problems) != 1 || result.Problems[0].Path != corrupt {
		t.Fatalf("expected only %s as a problem, got %+v", corrupt, result.Problems)
	}
	if result.Problems[0].Kind != "archive" || !errors.Is(result.Problems[0].Err, failure.ErrArchive) {
		t.Fatalf("unexpected problem kind %+v", result.Problems[0])
	}
	if result.Stack.Len() != 8 {
		t.Fatalf("expected 8 frames from the 4 valid archives, got %d", result.Stack.Len())
	}
	assertPartition(t, inputs, result)
}

func TestReadDimensionMismatchExcludesLaterFile(t *testing.T) {
	dir := t.TempDir()
	first := testsupport.WriteTar(t, filepath.Join(dir, "a.tar"), testsupport.FrameMembers(t, 0, 2, 4, 2))
	second := testsupport.WriteTar(t, filepath.Join(dir, "b.tar"), testsupport.FrameMembers(t, 2, 2, 3, 3))

	for _, workers := range []int{1, 2} {
		result := mustRead(t, []string{second, first}, testOptions(t, workers))
		if result.Stack.Len() != 2 || result.Metadata[0].SourceFile != first {
			t.Fatalf("workers=%d: expected first file intact, got %d frames", workers, result.Stack.Len())
		}
		if len(result.Problems) != 1 || result.Problems[0].Path != second || result.Problems[0].Kind != "dimension_mismatch" {
			t.Fatalf("workers=%d: unexpected problems %+v", workers, result.Problems)
		}
	}
}

func TestReadMismatchInsideArchiveFailsWholeFile(t *testing.T) {
	dir := t.TempDir()
	members := testsupport.FrameMembers(t, 0, 2, 4, 2)
	members = append(members, testsupport.FrameMembers(t, 2, 1, 2, 2)...)
	path := testsupport.WriteTar(t, filepath.Join(dir, "mixed.tar"), members)

	result := mustRead(t, []string{path}, testOptions(t, 1))
	if result.Stack.Len() != 0 || len(result.Problems) != 1 {
		t.Fatalf("expected mixed archive to be rejected, got %d frames, problems %+v", result.Stack.Len(), result.Problems)
	}
	if !errors.Is(result.Problems[0].Err, failure.ErrDimensionMismatch) {
		t.Fatalf("expected dimension mismatch, got %v", result.Problems[0].Err)
	}
}

func TestReadReportsMemberFailures(t *testing.T) {
	dir := t.TempDir()
	members := testsupport.FrameMembers(t, 0, 3, testWidth, testHeight)
	members = append(members,
		testsupport.Member{Name: testsupport.FrameName(5, 1000), Data: []byte("not a png")},
		testsupport.Member{Name: "junk.png", Data: members[0].Data},
	)
	path := testsupport.WriteTar(t, filepath.Join(dir, "partial.tar"), members)

	result := mustRead(t, []string{path}, testOptions(t, 1))
	if result.Stack.Len() != 3 || len(result.Problems) != 0 {
		t.Fatalf("expected 3 frames and no problems, got %d frames, %+v", result.Stack.Len(), result.Problems)
	}
	var kinds []string
	for _, mf := range result.MemberFailures {
		if mf.File != path {
			t.Fatalf("member failure attributed to %s", mf.File)
		}
		kinds = append(kinds, mf.Kind)
	}
	if diff := cmp.Diff([]string{"decode", "malformed_filename"}, kinds); diff != "" {
		t.Fatalf("member failure kinds mismatch (-want +got):\n%s", diff)
	}
}

func TestReadArchiveWithNoReadableMembersIsProblem(t *testing.T) {
	dir := t.TempDir()
	path := testsupport.WriteTar(t, filepath.Join(dir, "bad.tar"), []testsupport.Member{
		{Name: "bad-name.png", Data: []byte("x")},
		{Name: testsupport.FrameName(1, 10), Data: []byte("x")},
	})
	result := mustRead(t, []string{path}, testOptions(t, 1))
	// Members are visited in name order, so the undecodable frame fails first.
	if len(result.Problems) != 1 || result.Problems[0].Kind != "decode" {
		t.Fatalf("expected problem carrying first member error, got %+v", result.Problems)
	}
	if len(result.MemberFailures) != 0 {
		t.Fatalf("member failures of a rejected file must not be reported separately: %+v", result.MemberFailures)
	}
}

func TestReadFirstFrameOnly(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for i := 0; i < 3; i++ {
		m := testsupport.FrameMembers(t, i*10, 4, testWidth, testHeight)
		paths = append(paths, testsupport.WriteTar(t, filepath.Join(dir, fmt.Sprintf("%d.tar", i)),
			[]testsupport.Member{m[2], m[3], m[0], m[1]}))
	}
	opts := testOptions(t, 2)
	opts.FirstFrameOnly = true

	result := mustRead(t, paths, opts)
	if result.Stack.Len() != 3 {
		t.Fatalf("expected one frame per archive, got %d", result.Stack.Len())
	}
	for i, m := range result.Metadata {
		if m.Filename != testsupport.FrameName(i*10, 1000) {
			t.Fatalf("archive %d: expected earliest member, got %s", i, m.Filename)
		}
	}
}

func TestReadRepeatableWithoutCleanup(t *testing.T) {
	paths := writeArchives(t, t.TempDir(), 3, 2)
	opts := testOptions(t, 2)
	opts.Cleanup = false

	first := mustRead(t, paths, opts)
	second := mustRead(t, paths, opts)
	if !first.Stack.Equal(second.Stack) {
		t.Fatal("second read produced a different stack")
	}
	if diff := cmp.Diff(first.Metadata, second.Metadata); diff != "" {
		t.Fatalf("second read metadata differs:\n%s", diff)
	}
	dirs, err := workdir.List(opts.WorkingDir)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(dirs) != 6 {
		t.Fatalf("expected 6 retained extraction directories, got %d", len(dirs))
	}
}

func TestReadCleansWorkingDir(t *testing.T) {
	paths := writeArchives(t, t.TempDir(), 3, 2)
	opts := testOptions(t, 3)
	mustRead(t, paths, opts)

	left := testsupport.ListDir(t, opts.WorkingDir)
	if diff := cmp.Diff([]string{workdir.LockFileName}, left); diff != "" {
		t.Fatalf("unexpected working dir contents (-want +got):\n%s", diff)
	}
}

func TestReadDeduplicatesAndSortsPaths(t *testing.T) {
	paths := writeArchives(t, t.TempDir(), 2, 1)
	result := mustRead(t, []string{paths[1], paths[0], paths[1], ""}, testOptions(t, 1))
	if result.Files != 2 || result.Stack.Len() != 2 {
		t.Fatalf("expected 2 files and frames, got %d files %d frames", result.Files, result.Stack.Len())
	}
	if result.Metadata[0].SourceFile != paths[0] {
		t.Fatalf("expected sorted processing order, first frame from %s", result.Metadata[0].SourceFile)
	}
}

func TestReadAllFilesFail(t *testing.T) {
	dir := t.TempDir()
	a := testsupport.WriteBytes(t, filepath.Join(dir, "a.txt"), []byte("x"))
	b := filepath.Join(dir, "missing.png.tar")

	result := mustRead(t, []string{a, b}, testOptions(t, 2))
	if result.Stack.Len() != 0 || len(result.Problems) != 2 {
		t.Fatalf("expected empty stack and 2 problems, got %d frames %+v", result.Stack.Len(), result.Problems)
	}
}

func TestReadEmptyInput(t *testing.T) {
	result := mustRead(t, nil, testOptions(t, 1))
	if result.Stack.Len() != 0 || result.Files != 0 {
		t.Fatalf("expected empty result, got %+v", result)
	}
}

func TestReadRejectsInvalidWorkers(t *testing.T) {
	opts := testOptions(t, 0)
	if _, err := reader.Read(context.Background(), []string{"x.png"}, opts); !errors.Is(err, reader.ErrInvalidOptions) {
		t.Fatalf("expected ErrInvalidOptions, got %v", err)
	}
}

func TestReadCancelled(t *testing.T) {
	paths := writeArchives(t, t.TempDir(), 4, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opts := testOptions(t, 1)
	opts.OnProgress = func(p reader.Progress) {
		if p.Done == 1 {
			cancel()
		}
	}
	result, err := reader.Read(ctx, paths, opts)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if result.Stack.Len() != 0 || len(result.Metadata) != 0 {
		t.Fatalf("expected empty result on cancellation, got %d frames", result.Stack.Len())
	}
}

func TestReadProgressCallbacks(t *testing.T) {
	paths := writeArchives(t, t.TempDir(), 5, 1)
	opts := testOptions(t, 3)

	var mu sync.Mutex
	var done []int
	opts.OnProgress = func(p reader.Progress) {
		mu.Lock()
		defer mu.Unlock()
		if p.Total != 5 || p.Frames != 1 {
			t.Errorf("unexpected progress %+v", p)
		}
		done = append(done, p.Done)
	}
	mustRead(t, paths, opts)
	if diff := cmp.Diff([]int{1, 2, 3, 4, 5}, done); diff != "" {
		t.Fatalf("progress counts mismatch (-want +got):\n%s", diff)
	}
}

// panicCodec panics on inputs that start with "PANIC" and decodes PNG
// otherwise.
type panicCodec struct{ frame.PNGCodec }

func (c panicCodec) Decode(data []byte) (frame.Frame, error) {
	if bytes.HasPrefix(data, []byte("PANIC")) {
		panic("codec exploded")
	}
	return c.PNGCodec.Decode(data)
}

func TestReadWorkerPanicReportsLostFiles(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for i := 1; i <= 3; i++ {
		members := testsupport.FrameMembers(t, i*10, 2, testWidth, testHeight)
		paths = append(paths, testsupport.WriteTar(t, filepath.Join(dir, fmt.Sprint(i), "frames.tar"), members))
	}
	bomb := testsupport.WriteBytes(t, filepath.Join(dir, "4", testsupport.FrameName(99, 1000)), []byte("PANIC"))
	inputs := append(slices.Clone(paths), bomb)

	opts := testOptions(t, 2)
	opts.Codec = panicCodec{}
	result := mustRead(t, inputs, opts)

	if diff := cmp.Diff([]string{paths[2], bomb}, result.Lost); diff != "" {
		t.Fatalf("lost files mismatch (-want +got):\n%s", diff)
	}
	if result.Stack.Len() != 4 {
		t.Fatalf("expected frames from the surviving shard only, got %d", result.Stack.Len())
	}
	assertPartition(t, inputs, result)

	left := testsupport.ListDir(t, opts.WorkingDir)
	if diff := cmp.Diff([]string{workdir.LockFileName}, left); diff != "" {
		t.Fatalf("panicking shard left extraction directories (-want +got):\n%s", diff)
	}
}
