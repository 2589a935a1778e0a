package watcheddb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"viddup/internal/logging"
)

// Params is the global hashing parameter record describing the whole store.
type Params struct {
	NumFrames int
	HashSize  int
}

// Info summarizes store contents for read-only inspection.
type Info struct {
	VideoCount int
	HashCount  int
	Params     *Params
}

// ErrParameterMismatch indicates the store's metadata disagrees with the
// current run's hashing parameters.
var ErrParameterMismatch = errors.New("watched database parameter mismatch")

// Store manages watched-video persistence backed by SQLite.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Open initializes or connects to the watched database at path, creating
// parent directories as needed.
func Open(path string, logger *slog.Logger) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("watched database path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path, logger: logging.NewComponentLogger(logger, "watcheddb")}
	if err := store.initSchema(context.Background()); err != nil {
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

// Path returns the on-disk database location.
func (s *Store) Path() string { return s.path }

// AddOrUpdate replaces the hash set stored for identifier and rewrites the
// global metadata record with the parameters of this call. Calling twice with
// the same arguments leaves the store unchanged.
func (s *Store) AddOrUpdate(ctx context.Context, identifier string, hashes map[string]struct{}, params Params) error {
	ctx = ensureContext(ctx)
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return errors.New("video identifier cannot be empty")
	}
	if len(hashes) == 0 {
		return errors.New("hash set cannot be empty")
	}

	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO watched_videos (id) VALUES (?) ON CONFLICT(id) DO NOTHING", identifier); err != nil {
			return fmt.Errorf("upsert video: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM watched_hashes WHERE video_id = ?", identifier); err != nil {
			return fmt.Errorf("clear hashes: %w", err)
		}
		for hash := range hashes {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO watched_hashes (video_id, hash) VALUES (?, ?)", identifier, hash); err != nil {
				return fmt.Errorf("insert hash: %w", err)
			}
		}

		// Metadata is a single global record; the last writer wins.
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO db_metadata (id, num_frames, hash_size) VALUES (1, ?, ?)
			ON CONFLICT(id) DO UPDATE SET num_frames = excluded.num_frames, hash_size = excluded.hash_size`,
			params.NumFrames, params.HashSize); err != nil {
			return fmt.Errorf("write metadata: %w", err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
		return nil
	})
}

// Load returns every entry's hash set and the global metadata record, or nil
// when the store predates metadata.
func (s *Store) Load(ctx context.Context) (map[string]map[string]struct{}, *Params, error) {
	ctx = ensureContext(ctx)

	rows, err := s.db.QueryContext(ctx, "SELECT video_id, hash FROM watched_hashes")
	if err != nil {
		return nil, nil, fmt.Errorf("query hashes: %w", err)
	}
	defer rows.Close()

	entries := make(map[string]map[string]struct{})
	for rows.Next() {
		var videoID, hash string
		if err := rows.Scan(&videoID, &hash); err != nil {
			return nil, nil, fmt.Errorf("scan hash row: %w", err)
		}
		set, ok := entries[videoID]
		if !ok {
			set = make(map[string]struct{})
			entries[videoID] = set
		}
		set[hash] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate hashes: %w", err)
	}

	params, err := s.readParams(ctx)
	if err != nil {
		return nil, nil, err
	}
	return entries, params, nil
}

// Inspect reports entry counts and metadata without mutating the store.
func (s *Store) Inspect(ctx context.Context) (Info, error) {
	ctx = ensureContext(ctx)

	var info Info
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM watched_videos").Scan(&info.VideoCount); err != nil {
		return Info{}, fmt.Errorf("count videos: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM watched_hashes").Scan(&info.HashCount); err != nil {
		return Info{}, fmt.Errorf("count hashes: %w", err)
	}
	params, err := s.readParams(ctx)
	if err != nil {
		return Info{}, err
	}
	info.Params = params
	return info, nil
}

// CheckParams compares the store's metadata with the current run. A nil
// metadata record (legacy store) passes with a warning left to the caller.
func (s *Store) CheckParams(ctx context.Context, current Params) (*Params, error) {
	stored, err := s.readParams(ensureContext(ctx))
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, nil
	}
	if stored.NumFrames != current.NumFrames || stored.HashSize != current.HashSize {
		return stored, fmt.Errorf("%w: database uses frames=%d hash_size=%d, current run uses frames=%d hash_size=%d",
			ErrParameterMismatch, stored.NumFrames, stored.HashSize, current.NumFrames, current.HashSize)
	}
	return stored, nil
}

func (s *Store) readParams(ctx context.Context) (*Params, error) {
	var p Params
	err := s.db.QueryRowContext(ctx, "SELECT num_frames, hash_size FROM db_metadata WHERE id = 1").
		Scan(&p.NumFrames, &p.HashSize)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	return &p, nil
}

// LoadTolerant opens and reads the store at path, degrading to an empty
// result when the file is missing or unreadable. It never creates a store.
func LoadTolerant(ctx context.Context, path string, logger *slog.Logger) (map[string]map[string]struct{}, *Params) {
	logger = logging.NewComponentLogger(logger, "watcheddb")

	if _, err := os.Stat(path); err != nil {
		logger.Info("watched database not found, starting fresh",
			logging.Args(logging.String(logging.FieldPath, path))...)
		return map[string]map[string]struct{}{}, nil
	}

	store, err := Open(path, logger)
	if err != nil {
		logging.WarnWithContext(logger, "failed to open watched database", "watched_db_open_failed",
			logging.String(logging.FieldPath, path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "every video is treated as unwatched this run"))
		return map[string]map[string]struct{}{}, nil
	}
	defer store.Close()

	entries, params, err := store.Load(ctx)
	if err != nil {
		logging.WarnWithContext(logger, "failed to read watched database", "watched_db_load_failed",
			logging.String(logging.FieldPath, path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "every video is treated as unwatched this run"))
		return map[string]map[string]struct{}{}, nil
	}
	return entries, params
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
