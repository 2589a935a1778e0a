// Package relocate moves scan results into subdirectories of the scan root.
package relocate

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"viddup/internal/grouping"
	"viddup/internal/logging"
)

// Subdirectory names created under the scan root.
const (
	DuplicateDirName = "duplicate_videos"
	WatchedDirName   = "watched_videos"
	SkippedDirName   = "skipped_videos"
)

// maxCollisionRenames bounds the _N suffix search in a destination directory.
const maxCollisionRenames = 100

// Outcome summarizes one batch of moves. Moved holds the original paths of
// files that were actually relocated.
type Outcome struct {
	MovedCount  int
	FailedCount int
	Moved       map[string]struct{}
}

// Mover moves files into a destination subdirectory, one batch per scan
// stage. A per-file failure is logged and counted but never aborts the batch.
type Mover struct {
	baseDir string
	logger  *slog.Logger
}

// NewMover returns a Mover rooted at the scan directory.
func NewMover(baseDir string, logger *slog.Logger) *Mover {
	return &Mover{
		baseDir: baseDir,
		logger:  logging.NewComponentLogger(logger, "relocate"),
	}
}

// Duplicates moves every group member except the first in path order into the
// duplicate subdirectory. The kept member stays in place so each group
// retains one copy.
func (m *Mover) Duplicates(groups []grouping.Group) Outcome {
	var paths []string
	for _, g := range groups {
		if len(g.Paths) < 2 {
			continue
		}
		sorted := append([]string(nil), g.Paths...)
		sort.Strings(sorted)
		m.logger.Info("keeping one copy of duplicate group", logging.Args(
			logging.String(logging.FieldPath, sorted[0]),
			logging.Int("moving", len(sorted)-1))...)
		paths = append(paths, sorted[1:]...)
	}
	return m.moveAll(paths, DuplicateDirName)
}

// Watched moves videos that matched the watched reference set.
func (m *Mover) Watched(paths []string) Outcome {
	return m.moveAll(paths, WatchedDirName)
}

// Skipped moves videos excluded by the skip policy.
func (m *Mover) Skipped(paths []string) Outcome {
	return m.moveAll(paths, SkippedDirName)
}

func (m *Mover) moveAll(paths []string, subdir string) Outcome {
	out := Outcome{Moved: make(map[string]struct{})}
	if len(paths) == 0 {
		return out
	}

	destDir := filepath.Join(m.baseDir, subdir)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		m.logger.Error("failed to create destination directory", logging.Args(
			logging.String(logging.FieldPath, destDir),
			logging.Error(err))...)
		out.FailedCount = len(paths)
		return out
	}

	for _, src := range paths {
		if err := m.moveOne(src, destDir); err != nil {
			logging.WarnWithContext(m.logger, "failed to move file", "move_failed",
				logging.String(logging.FieldPath, src),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "file may be locked or already moved"),
				logging.String(logging.FieldImpact, "file stays in the scan directory"))
			out.FailedCount++
			continue
		}
		out.MovedCount++
		out.Moved[src] = struct{}{}
	}

	m.logger.Info("move batch finished", logging.Args(
		logging.String("destination", destDir),
		logging.Int("moved", out.MovedCount),
		logging.Int("failed", out.FailedCount))...)
	return out
}

func (m *Mover) moveOne(src, destDir string) error {
	if _, err := os.Stat(src); err != nil {
		return fmt.Errorf("source missing: %w", err)
	}

	dest, err := collisionFreePath(destDir, filepath.Base(src))
	if err != nil {
		return err
	}
	if dest != filepath.Join(destDir, filepath.Base(src)) {
		m.logger.Info("destination name taken, renaming", logging.Args(
			logging.String(logging.FieldPath, src),
			logging.String("renamed_to", filepath.Base(dest)))...)
	}

	if err := os.Rename(src, dest); err != nil {
		return fmt.Errorf("move %s: %w", src, err)
	}
	m.logger.Debug("moved file", logging.Args(
		logging.String(logging.FieldPath, src),
		logging.String("destination", dest))...)
	return nil
}

// collisionFreePath finds an unused destination name, appending _1, _2 and so
// on when the plain name is taken.
func collisionFreePath(destDir, baseName string) (string, error) {
	dest := filepath.Join(destDir, baseName)
	if _, err := os.Stat(dest); os.IsNotExist(err) {
		return dest, nil
	}
	ext := filepath.Ext(baseName)
	stem := strings.TrimSuffix(baseName, ext)
	for i := 1; i <= maxCollisionRenames; i++ {
		dest = filepath.Join(destDir, fmt.Sprintf("%s_%d%s", stem, i, ext))
		if _, err := os.Stat(dest); os.IsNotExist(err) {
			return dest, nil
		}
	}
	return "", fmt.Errorf("no free name for %s in %s after %d attempts", baseName, destDir, maxCollisionRenames)
}
