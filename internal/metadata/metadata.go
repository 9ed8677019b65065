package metadata

import (
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"nascam/internal/failure"
)

// ProjectID identifies the instrument family every record belongs to.
const ProjectID = "nascam"

const (
	fieldSeparator = "_"
	fieldCount     = 6
	dateLayoutLen  = 8
	timeLayoutLen  = 6
	// exposureTag is the fixed-length trailing unit tag on the last field.
	exposureTag = "ms.png"
)

// FrameMetadata describes one decoded frame.
type FrameMetadata struct {
	ProjectID          string    `json:"project_id"`
	SiteID             string    `json:"site_id"`
	DeviceID           string    `json:"device_id"`
	ModeID             string    `json:"mode_id"`
	ExposureStart      time.Time `json:"exposure_start"`
	ExposureStartEpoch int64     `json:"exposure_start_epoch"`
	ExposureDurationMS float64   `json:"exposure_duration_ms"`
	Filename           string    `json:"filename"`
	SourceFile         string    `json:"source_file,omitempty"`
}

// ExposureDuration returns the requested exposure as a time.Duration.
func (m FrameMetadata) ExposureDuration() time.Duration {
	return time.Duration(m.ExposureDurationMS * float64(time.Millisecond))
}

// ExposureSeconds returns the requested exposure in seconds.
func (m FrameMetadata) ExposureSeconds() float64 {
	return m.ExposureDurationMS / 1000
}

// ExposureLabel renders the exposure the way instrument operators quote it,
// e.g. "1000.000 ms".
func (m FrameMetadata) ExposureLabel() string {
	return fmt.Sprintf("%.3f ms", m.ExposureDurationMS)
}

// Parse extracts metadata from a frame filename. Directory components are
// ignored. Any deviation from the naming contract yields an error wrapping
// failure.ErrMalformedFilename.
func Parse(name string) (FrameMetadata, error) {
	base := filepath.Base(name)
	fields := strings.Split(base, fieldSeparator)
	if len(fields) != fieldCount {
		return FrameMetadata{}, malformed(base, fmt.Sprintf("expected %d fields, found %d", fieldCount, len(fields)))
	}

	start, err := parseStart(fields[0], fields[1])
	if err != nil {
		return FrameMetadata{}, failure.Wrap(failure.ErrMalformedFilename, base, "parse timestamp", "", err)
	}

	exposure, err := parseExposure(fields[5])
	if err != nil {
		return FrameMetadata{}, failure.Wrap(failure.ErrMalformedFilename, base, "parse exposure", "", err)
	}

	for i, label := range []string{"site", "device", "mode"} {
		if fields[2+i] == "" {
			return FrameMetadata{}, malformed(base, label+" field is empty")
		}
	}

	return FrameMetadata{
		ProjectID:          ProjectID,
		SiteID:             fields[2],
		DeviceID:           fields[3],
		ModeID:             fields[4],
		ExposureStart:      start,
		ExposureStartEpoch: start.Unix(),
		ExposureDurationMS: exposure,
		Filename:           base,
	}, nil
}

// Format renders the canonical frame basename for the given identifiers.
func Format(start time.Time, site, device, mode string, exposureMS int) string {
	start = start.UTC()
	return fmt.Sprintf("%s_%s_%s_%s_%s_%06d%s",
		start.Format("20060102"),
		start.Format("150405"),
		site,
		device,
		mode,
		exposureMS,
		exposureTag,
	)
}

func parseStart(dateField, timeField string) (time.Time, error) {
	if len(dateField) < dateLayoutLen {
		return time.Time{}, fmt.Errorf("date field %q shorter than %d characters", dateField, dateLayoutLen)
	}
	if len(timeField) < timeLayoutLen {
		return time.Time{}, fmt.Errorf("time field %q shorter than %d characters", timeField, timeLayoutLen)
	}

	digits := dateField[:dateLayoutLen] + timeField[:timeLayoutLen]
	values := make([]int, 0, 6)
	for _, span := range [][2]int{{0, 4}, {4, 6}, {6, 8}, {8, 10}, {10, 12}, {12, 14}} {
		v, err := strconv.Atoi(digits[span[0]:span[1]])
		if err != nil || v < 0 {
			return time.Time{}, fmt.Errorf("non-numeric timestamp %q", digits)
		}
		values = append(values, v)
	}

	year, month, day := values[0], time.Month(values[1]), values[2]
	hour, minute, second := values[3], values[4], values[5]
	ts := time.Date(year, month, day, hour, minute, second, 0, time.UTC)
	// time.Date normalizes out-of-range values; reject instead of rolling over.
	if ts.Year() != year || ts.Month() != month || ts.Day() != day ||
		ts.Hour() != hour || ts.Minute() != minute || ts.Second() != second {
		return time.Time{}, fmt.Errorf("timestamp %q out of range", digits)
	}
	return ts, nil
}

func parseExposure(field string) (float64, error) {
	if len(field) <= len(exposureTag) || !strings.HasSuffix(field, exposureTag) {
		return 0, fmt.Errorf("exposure field %q missing %q tag", field, exposureTag)
	}
	value, err := strconv.ParseFloat(field[:len(field)-len(exposureTag)], 64)
	if err != nil {
		return 0, fmt.Errorf("exposure field %q: %w", field, err)
	}
	if value < 0 || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("exposure field %q out of range", field)
	}
	return value, nil
}

func malformed(base, message string) error {
	return failure.Wrap(failure.ErrMalformedFilename, base, "split fields", message, nil)
}
