package sigcache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/gofrs/flock"

	"viddup/internal/hashing"
	"viddup/internal/logging"
)

// Params is the hashing parameter fingerprint recorded with every entry.
type Params struct {
	NumFrames int
	HashSize  int
}

type entry struct {
	MTimeUnixNano int64    `json:"mtime"`
	NumFrames     int      `json:"num_frames"`
	HashSize      int      `json:"hash_size"`
	Skipped       bool     `json:"skipped,omitempty"`
	Hashes        []string `json:"hashes,omitempty"`
}

// Result partitions the scanned paths after consulting the cache.
type Result struct {
	// Hits maps paths to their cached valid signatures.
	Hits map[string][]hashing.FrameHash
	// Misses lists paths that must be recomputed (absent, stale, or invalid).
	Misses []string
	// Skipped holds paths with a valid cached skip marker; they are neither
	// hashed nor compared this run.
	Skipped map[string]struct{}

	HitCount   int
	MissCount  int
	StaleCount int
}

// Store is the on-disk signature cache for one scan directory.
type Store struct {
	path     string
	logger   *slog.Logger
	lock     *flock.Flock
	writable bool
	entries  map[string]entry
}

// Path returns the cache file location for a scan directory and base name.
func Path(dir, baseName string) string {
	return filepath.Join(dir, baseName+".json")
}

// Open loads the cache at path, degrading to an empty, unpersisted cache when
// the file is unreadable, corrupt, or locked by another process. Open never
// fails; Close releases the file lock.
func Open(path string, logger *slog.Logger) *Store {
	logger = logging.NewComponentLogger(logger, "sigcache")

	s := &Store{
		path:     path,
		logger:   logger,
		lock:     flock.New(path + ".lock"),
		entries:  make(map[string]entry),
		writable: true,
	}

	locked, err := s.lock.TryLock()
	if err != nil || !locked {
		logging.WarnWithContext(logger, "could not acquire cache lock", "sigcache_lock_failed",
			logging.String(logging.FieldPath, s.lock.Path()),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "is another viddup scan running against this directory?"),
			logging.String(logging.FieldImpact, "hashes will be recomputed and not persisted this run"))
		s.writable = false
		return s
	}

	if err := s.load(); err != nil {
		logging.WarnWithContext(logger, "failed to load signature cache", "sigcache_load_failed",
			logging.String(logging.FieldPath, path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "every video will be re-hashed this run"))
		s.entries = make(map[string]entry)
	}

	return s
}

// Classify prunes entries for paths no longer present, then splits the
// current path set into cache hits, skip hits, and misses. An entry is a hit
// only when its recorded mtime, frame count, and hash size all match the
// current run.
func (s *Store) Classify(paths []string, params Params) Result {
	pathSet := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		pathSet[p] = struct{}{}
	}

	pruned := 0
	for cached := range s.entries {
		if _, ok := pathSet[cached]; !ok {
			delete(s.entries, cached)
			pruned++
		}
	}
	if pruned > 0 {
		s.logger.Debug("pruned cache entries for removed files", logging.Args(logging.Int("pruned", pruned))...)
	}

	result := Result{
		Hits:    make(map[string][]hashing.FrameHash),
		Skipped: make(map[string]struct{}),
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			s.logger.Debug("stat failed during cache check, treating as miss",
				logging.Args(logging.String(logging.FieldPath, path), logging.Error(err))...)
			delete(s.entries, path)
			result.Misses = append(result.Misses, path)
			result.MissCount++
			continue
		}

		cached, ok := s.entries[path]
		if !ok {
			result.Misses = append(result.Misses, path)
			result.MissCount++
			continue
		}

		if cached.MTimeUnixNano != info.ModTime().UnixNano() ||
			cached.NumFrames != params.NumFrames ||
			cached.HashSize != params.HashSize {
			result.Misses = append(result.Misses, path)
			result.StaleCount++
			continue
		}

		if cached.Skipped {
			result.Skipped[path] = struct{}{}
			result.HitCount++
			continue
		}

		sig, err := decodeHashes(cached.Hashes, params)
		if err != nil {
			s.logger.Debug("cached signature invalid, recomputing",
				logging.Args(logging.String(logging.FieldPath, path), logging.Error(err))...)
			result.Misses = append(result.Misses, path)
			result.StaleCount++
			continue
		}
		result.Hits[path] = sig
		result.HitCount++
	}

	s.logger.Info("signature cache consulted", logging.Args(
		logging.Int("hits", result.HitCount),
		logging.Int("misses", result.MissCount),
		logging.Int("stale", result.StaleCount))...)

	return result
}

// Update records newly computed signatures and skip markers under the current
// run's parameters and persists the cache in one write. Paths whose files
// disappeared mid-run are dropped with a warning.
func (s *Store) Update(valid map[string][]hashing.FrameHash, skips []string, params Params) error {
	for path, sig := range valid {
		ent, ok := s.buildEntry(path, params, false, sig)
		if ok {
			s.entries[path] = ent
		}
	}
	for _, path := range skips {
		ent, ok := s.buildEntry(path, params, true, nil)
		if ok {
			s.entries[path] = ent
		}
	}

	if !s.writable {
		return nil
	}
	if err := s.save(); err != nil {
		logging.WarnWithContext(s.logger, "failed to persist signature cache", "sigcache_save_failed",
			logging.String(logging.FieldPath, s.path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "hashes will be recomputed next run"))
		return fmt.Errorf("persist cache: %w", err)
	}
	return nil
}

// Close releases the cache file lock.
func (s *Store) Close() {
	if s.writable {
		if err := s.lock.Unlock(); err != nil {
			s.logger.Debug("failed to release cache lock", logging.Args(logging.Error(err))...)
		}
	}
}

func (s *Store) buildEntry(path string, params Params, skipped bool, sig []hashing.FrameHash) (entry, bool) {
	info, err := os.Stat(path)
	if err != nil {
		s.logger.Warn("file disappeared before it could be cached",
			logging.Args(logging.String(logging.FieldPath, path), logging.Error(err))...)
		return entry{}, false
	}
	ent := entry{
		MTimeUnixNano: info.ModTime().UnixNano(),
		NumFrames:     params.NumFrames,
		HashSize:      params.HashSize,
		Skipped:       skipped,
	}
	if !skipped {
		ent.Hashes = make([]string, len(sig))
		for i, h := range sig {
			ent.Hashes[i] = h.String()
		}
	}
	return ent, true
}

func decodeHashes(encoded []string, params Params) ([]hashing.FrameHash, error) {
	if len(encoded) != params.NumFrames {
		return nil, fmt.Errorf("entry has %d hashes, want %d", len(encoded), params.NumFrames)
	}
	sig := make([]hashing.FrameHash, len(encoded))
	for i, raw := range encoded {
		h, err := hashing.ParseHash(raw, params.HashSize)
		if err != nil {
			return nil, err
		}
		sig[i] = h
	}
	return sig, nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read cache file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var entries map[string]entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parse cache file: %w", err)
	}
	s.entries = entries
	if s.entries == nil {
		s.entries = make(map[string]entry)
	}

	s.logger.Debug("loaded signature cache", logging.Args(
		logging.Int("entry_count", len(s.entries)),
		logging.String(logging.FieldPath, s.path))...)
	return nil
}

// save writes the cache to disk atomically via a temp file rename.
func (s *Store) save() error {
	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// Paths returns the cached paths, sorted, primarily for tests and debugging.
func (s *Store) Paths() []string {
	paths := make([]string, 0, len(s.entries))
	for p := range s.entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
