// Package discover enumerates the video files a scan operates on.
package discover

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"viddup/internal/logging"
)

// videoExtensions lists the container extensions treated as video files.
var videoExtensions = map[string]struct{}{
	".mp4": {},
	".avi": {},
	".mkv": {},
	".mov": {},
	".wmv": {},
	".flv": {},
}

// IsVideo reports whether path has a recognized video extension. The check is
// case-insensitive.
func IsVideo(path string) bool {
	_, ok := videoExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Videos lists the video files under dir as absolute paths in ascending
// order. With recursive set, subdirectories are walked as well; an unreadable
// subdirectory is logged and skipped rather than aborting the scan.
func Videos(dir string, recursive bool, logger *slog.Logger) ([]string, error) {
	logger = logging.NewComponentLogger(logger, "discover")

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", dir, err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", absDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", absDir)
	}

	var videos []string
	if recursive {
		err = filepath.WalkDir(absDir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				logger.Warn("skipping unreadable entry", logging.Args(
					logging.String(logging.FieldPath, path),
					logging.Error(err))...)
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if !d.IsDir() && IsVideo(path) {
				videos = append(videos, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", absDir, err)
		}
	} else {
		entries, err := os.ReadDir(absDir)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", absDir, err)
		}
		for _, entry := range entries {
			if !entry.IsDir() && IsVideo(entry.Name()) {
				videos = append(videos, filepath.Join(absDir, entry.Name()))
			}
		}
	}

	sort.Strings(videos)
	logger.Info("discovered videos", logging.Args(
		logging.String("directory", absDir),
		logging.Bool("recursive", recursive),
		logging.Int("count", len(videos)))...)
	return videos, nil
}
