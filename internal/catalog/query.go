package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// FrameRecord is one catalogued frame.
type FrameRecord struct {
	ReadID             int64     `json:"read_id"`
	Seq                int       `json:"seq"`
	ProjectID          string    `json:"project_id"`
	SiteID             string    `json:"site_id"`
	DeviceID           string    `json:"device_id"`
	ModeID             string    `json:"mode_id"`
	ExposureStart      time.Time `json:"exposure_start"`
	ExposureStartEpoch int64     `json:"exposure_start_epoch"`
	ExposureMS         float64   `json:"exposure_ms"`
	Filename           string    `json:"filename"`
	SourceFile         string    `json:"source_file"`
}

// FrameQuery filters Frames. Zero fields match everything.
type FrameQuery struct {
	SiteID   string
	DeviceID string
	ModeID   string
	Since    time.Time
	Until    time.Time
	Limit    int
}

// Frames returns catalogued frames ordered by exposure start.
func (s *Store) Frames(ctx context.Context, q FrameQuery) ([]FrameRecord, error) {
	var where []string
	var args []any
	for _, f := range []struct {
		column string
		value  string
	}{
		{"site_id", q.SiteID},
		{"device_id", q.DeviceID},
		{"mode_id", q.ModeID},
	} {
		if v := strings.TrimSpace(f.value); v != "" {
			where = append(where, f.column+" = ?")
			args = append(args, v)
		}
	}
	if !q.Since.IsZero() {
		where = append(where, "exposure_start_epoch >= ?")
		args = append(args, q.Since.Unix())
	}
	if !q.Until.IsZero() {
		where = append(where, "exposure_start_epoch < ?")
		args = append(args, q.Until.Unix())
	}

	query := `SELECT read_id, seq, project_id, site_id, device_id, mode_id, exposure_start,
        exposure_start_epoch, exposure_ms, filename, source_file FROM frames`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY exposure_start_epoch, filename, read_id"
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query frames: %w", err)
	}
	defer rows.Close()

	var records []FrameRecord
	for rows.Next() {
		var rec FrameRecord
		var start string
		if err := rows.Scan(&rec.ReadID, &rec.Seq, &rec.ProjectID, &rec.SiteID, &rec.DeviceID, &rec.ModeID,
			&start, &rec.ExposureStartEpoch, &rec.ExposureMS, &rec.Filename, &rec.SourceFile); err != nil {
			return nil, fmt.Errorf("scan frame: %w", err)
		}
		if rec.ExposureStart, err = time.Parse(time.RFC3339, start); err != nil {
			return nil, fmt.Errorf("parse exposure start %q: %w", start, err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ReadSummary is one recorded read.
type ReadSummary struct {
	ID         int64         `json:"id"`
	RecordedAt time.Time     `json:"recorded_at"`
	Files      int           `json:"files"`
	Frames     int           `json:"frames"`
	Problems   int           `json:"problems"`
	Lost       int           `json:"lost"`
	TotalBytes int64         `json:"total_bytes"`
	Elapsed    time.Duration `json:"elapsed"`
	Width      int           `json:"width,omitempty"`
	Height     int           `json:"height,omitempty"`
	SampleBits int           `json:"sample_bits,omitempty"`
}

// Reads returns recorded reads, newest first.
func (s *Store) Reads(ctx context.Context, limit int) ([]ReadSummary, error) {
	query := `SELECT id, recorded_at, files, frames, problems, lost, total_bytes, elapsed_ms,
        width, height, sample_bits FROM reads ORDER BY id DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reads: %w", err)
	}
	defer rows.Close()

	var out []ReadSummary
	for rows.Next() {
		var r ReadSummary
		var recorded string
		var elapsedMS int64
		var width, height, bits sql.NullInt64
		if err := rows.Scan(&r.ID, &recorded, &r.Files, &r.Frames, &r.Problems, &r.Lost, &r.TotalBytes,
			&elapsedMS, &width, &height, &bits); err != nil {
			return nil, fmt.Errorf("scan read: %w", err)
		}
		if r.RecordedAt, err = time.Parse(time.RFC3339Nano, recorded); err != nil {
			return nil, fmt.Errorf("parse recorded_at %q: %w", recorded, err)
		}
		r.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		r.Width, r.Height, r.SampleBits = int(width.Int64), int(height.Int64), int(bits.Int64)
		out = append(out, r)
	}
	return out, rows.Err()
}

// ProblemRecord is a file or member that failed during a recorded read.
type ProblemRecord struct {
	ReadID  int64  `json:"read_id"`
	Path    string `json:"path"`
	Member  string `json:"member,omitempty"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Problems returns the failures recorded for readID in insertion order.
func (s *Store) Problems(ctx context.Context, readID int64) ([]ProblemRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT read_id, path, member, kind, message FROM problems WHERE read_id = ? ORDER BY id`, readID)
	if err != nil {
		return nil, fmt.Errorf("query problems: %w", err)
	}
	defer rows.Close()

	var out []ProblemRecord
	for rows.Next() {
		var p ProblemRecord
		var member sql.NullString
		if err := rows.Scan(&p.ReadID, &p.Path, &member, &p.Kind, &p.Message); err != nil {
			return nil, fmt.Errorf("scan problem: %w", err)
		}
		p.Member = member.String
		out = append(out, p)
	}
	return out, rows.Err()
}
