package catalog_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"nascam/internal/catalog"
	"nascam/internal/logging"
	"nascam/internal/reader"
	"nascam/internal/testsupport"
)

func openStore(t *testing.T) *catalog.Store {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store, err := catalog.Open(context.Background(), cfg.Paths.CatalogPath)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func readBatch(t *testing.T) (reader.Result, string) {
	t.Helper()
	dir := t.TempDir()
	good := testsupport.WriteTar(t, filepath.Join(dir, "a.tar"), testsupport.FrameMembers(t, 0, 3, 4, 2))
	bad := testsupport.WriteBytes(t, filepath.Join(dir, "b.tar"), []byte("corrupt"))

	opts := reader.DefaultOptions()
	opts.Quiet = true
	opts.WorkingDir = filepath.Join(dir, "work")
	opts.Logger = logging.NewNop()
	result, err := reader.Read(context.Background(), []string{good, bad}, opts)
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	return result, bad
}

func TestRecordAndQuery(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	result, bad := readBatch(t)

	id, err := store.Record(ctx, result)
	if err != nil {
		t.Fatalf("Record returned error: %v", err)
	}

	frames, err := store.Frames(ctx, catalog.FrameQuery{SiteID: "ikr"})
	if err != nil {
		t.Fatalf("Frames returned error: %v", err)
	}
	var names []string
	for _, f := range frames {
		if f.ReadID != id || f.ProjectID != "nascam" || f.ExposureMS != 1000 {
			t.Fatalf("unexpected frame record %+v", f)
		}
		names = append(names, f.Filename)
	}
	want := []string{testsupport.FrameName(0, 1000), testsupport.FrameName(1, 1000), testsupport.FrameName(2, 1000)}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Fatalf("catalogued frames mismatch (-want +got):\n%s", diff)
	}
	if !frames[0].ExposureStart.Equal(testsupport.Epoch) {
		t.Fatalf("unexpected exposure start %s", frames[0].ExposureStart)
	}

	reads, err := store.Reads(ctx, 10)
	if err != nil {
		t.Fatalf("Reads returned error: %v", err)
	}
	if len(reads) != 1 || reads[0].Frames != 3 || reads[0].Problems != 1 || reads[0].Width != 4 || reads[0].SampleBits != 16 {
		t.Fatalf("unexpected read summary %+v", reads)
	}

	problems, err := store.Problems(ctx, id)
	if err != nil {
		t.Fatalf("Problems returned error: %v", err)
	}
	if len(problems) != 1 || problems[0].Path != bad || problems[0].Kind != "archive" {
		t.Fatalf("unexpected problems %+v", problems)
	}
}

func TestFramesFilters(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	result, _ := readBatch(t)
	if _, err := store.Record(ctx, result); err != nil {
		t.Fatalf("Record returned error: %v", err)
	}

	cases := map[string]struct {
		query catalog.FrameQuery
		want  int
	}{
		"all":          {catalog.FrameQuery{}, 3},
		"other site":   {catalog.FrameQuery{SiteID: "elsewhere"}, 0},
		"device":       {catalog.FrameQuery{DeviceID: "cam01"}, 3},
		"since second": {catalog.FrameQuery{Since: testsupport.Epoch.Add(time.Second)}, 2},
		"until second": {catalog.FrameQuery{Until: testsupport.Epoch.Add(time.Second)}, 1},
		"limit":        {catalog.FrameQuery{Limit: 2}, 2},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			frames, err := store.Frames(ctx, tc.query)
			if err != nil {
				t.Fatalf("Frames returned error: %v", err)
			}
			if len(frames) != tc.want {
				t.Fatalf("expected %d frames, got %d", tc.want, len(frames))
			}
		})
	}
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "catalog.db")
	store, err := catalog.Open(ctx, path)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	result, _ := readBatch(t)
	if _, err := store.Record(ctx, result); err != nil {
		t.Fatalf("Record returned error: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	reopened, err := catalog.Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	reads, err := reopened.Reads(ctx, 0)
	if err != nil || len(reads) != 1 {
		t.Fatalf("expected one read after reopen, got %v (%v)", reads, err)
	}
}
