package metadata

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"nascam/internal/failure"
)

func TestParseFrameFilename(t *testing.T) {
	got, err := Parse("/data/extract/20090209_060501_gill_nascam-iccd02_5577_001000ms.png")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}

	start := time.Date(2009, time.February, 9, 6, 5, 1, 0, time.UTC)
	want := FrameMetadata{
		ProjectID:          "nascam",
		SiteID:             "gill",
		DeviceID:           "nascam-iccd02",
		ModeID:             "5577",
		ExposureStart:      start,
		ExposureStartEpoch: start.Unix(),
		ExposureDurationMS: 1000,
		Filename:           "20090209_060501_gill_nascam-iccd02_5577_001000ms.png",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected metadata (-want +got):\n%s", diff)
	}
	if got.ExposureLabel() != "1000.000 ms" {
		t.Fatalf("unexpected exposure label %q", got.ExposureLabel())
	}
	if got.ExposureSeconds() != 1 {
		t.Fatalf("unexpected exposure seconds %v", got.ExposureSeconds())
	}
	if got.ExposureDuration() != time.Second {
		t.Fatalf("unexpected exposure duration %v", got.ExposureDuration())
	}
}

func TestParseEpochMatchesTimestamp(t *testing.T) {
	got, err := Parse("20230101_235959_rabb_nascam-iccd04_6300_000250ms.png")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if got.ExposureStart.Unix() != got.ExposureStartEpoch {
		t.Fatalf("epoch %d does not match timestamp %v", got.ExposureStartEpoch, got.ExposureStart)
	}
	if got.ExposureDurationMS != 250 {
		t.Fatalf("unexpected exposure %v", got.ExposureDurationMS)
	}
}

func TestParseRejectsMalformedNames(t *testing.T) {
	names := []string{
		"",
		"20090209_0600_gill_nascam-iccd02.png.tar",
		"20090209_060501_gill_nascam-iccd02_5577.png",
		"20090209_060501_gill_nascam-iccd02_5577_001000ms_extra.png",
		"2009020X_060501_gill_nascam-iccd02_5577_001000ms.png",
		"20090209_06050_gill_nascam-iccd02_5577_001000ms.png",
		"20091309_060501_gill_nascam-iccd02_5577_001000ms.png",
		"20090209_250501_gill_nascam-iccd02_5577_001000ms.png",
		"20090209_060501_gill_nascam-iccd02_5577_001000us.png",
		"20090209_060501_gill_nascam-iccd02_5577_abcms.png",
		"20090209_060501__nascam-iccd02_5577_001000ms.png",
	}
	for _, name := range names {
		if _, err := Parse(name); !errors.Is(err, failure.ErrMalformedFilename) {
			t.Errorf("Parse(%q) error = %v, want ErrMalformedFilename", name, err)
		}
	}
}

func TestFormatRoundTrip(t *testing.T) {
	start := time.Date(2009, time.February, 9, 6, 0, 3, 0, time.UTC)
	name := Format(start, "gill", "nascam-iccd02", "5577", 1000)
	if name != "20090209_060003_gill_nascam-iccd02_5577_001000ms.png" {
		t.Fatalf("unexpected name %q", name)
	}
	got, err := Parse(name)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if !got.ExposureStart.Equal(start) {
		t.Fatalf("timestamp mismatch: %v vs %v", got.ExposureStart, start)
	}
}
