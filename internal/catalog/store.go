package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"nascam/internal/reader"
)

// Store is the SQLite-backed frame catalog.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or connects to the catalog at path and ensures its schema.
func Open(ctx context.Context, path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("catalog path not set")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create catalog directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One connection keeps the per-connection pragmas in force.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Record stores result as one read with its frames and problems and returns
// the new read ID. Nothing is written if any insert fails.
func (s *Store) Record(ctx context.Context, result reader.Result) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin record tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var width, height, bits sql.NullInt64
	if result.Stack.Len() > 0 {
		sig := result.Stack.Signature()
		width = sql.NullInt64{Int64: int64(sig.Width), Valid: true}
		height = sql.NullInt64{Int64: int64(sig.Height), Valid: true}
		bits = sql.NullInt64{Int64: int64(sig.Sample.Bits()), Valid: true}
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO reads (recorded_at, files, frames, problems, lost, total_bytes, elapsed_ms, width, height, sample_bits)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		time.Now().UTC().Format(time.RFC3339Nano),
		result.Files,
		result.Stack.Len(),
		len(result.Problems),
		len(result.Lost),
		result.TotalBytes,
		result.Elapsed.Milliseconds(),
		width, height, bits,
	)
	if err != nil {
		return 0, fmt.Errorf("insert read: %w", err)
	}
	readID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}

	frameStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO frames (read_id, seq, project_id, site_id, device_id, mode_id,
            exposure_start, exposure_start_epoch, exposure_ms, filename, source_file)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare frame insert: %w", err)
	}
	defer frameStmt.Close()
	for i, m := range result.Metadata {
		if _, err := frameStmt.ExecContext(ctx,
			readID, i, m.ProjectID, m.SiteID, m.DeviceID, m.ModeID,
			m.ExposureStart.UTC().Format(time.RFC3339), m.ExposureStartEpoch, m.ExposureDurationMS,
			m.Filename, m.SourceFile,
		); err != nil {
			return 0, fmt.Errorf("insert frame %s: %w", m.Filename, err)
		}
	}

	for _, p := range result.Problems {
		if err := insertProblem(ctx, tx, readID, p.Path, "", p.Kind, p.Message); err != nil {
			return 0, err
		}
	}
	for _, mf := range result.MemberFailures {
		if err := insertProblem(ctx, tx, readID, mf.File, mf.Member, mf.Kind, mf.Message); err != nil {
			return 0, err
		}
	}
	for _, path := range result.Lost {
		if err := insertProblem(ctx, tx, readID, path, "", "worker_failure", "worker failed before results were merged"); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit record: %w", err)
	}
	return readID, nil
}

func insertProblem(ctx context.Context, tx *sql.Tx, readID int64, path, member, kind, message string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO problems (read_id, path, member, kind, message) VALUES (?, ?, ?, ?, ?)`,
		readID, path, nullableString(member), kind, message,
	)
	if err != nil {
		return fmt.Errorf("insert problem %s: %w", path, err)
	}
	return nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
