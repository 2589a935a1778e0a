package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Scan contains the hashing and comparison parameters for a run.
type Scan struct {
	// Threshold is the similarity percentage (0-100) above which a pair of
	// videos is considered duplicate.
	Threshold float64 `toml:"threshold"`
	// Frames is the number of frames sampled per video.
	Frames int `toml:"frames"`
	// HashSize is the perceptual hash grid size (8 means 8x8 = 64 bits).
	HashSize int `toml:"hash_size"`
	// Workers bounds the parallel hash workers. Zero means NumCPU.
	Workers int `toml:"workers"`
	// Recursive controls whether subdirectories are scanned.
	Recursive bool `toml:"recursive"`
	// SkipDurationSeconds is the minimum video duration; shorter videos are
	// marked skipped rather than hashed.
	SkipDurationSeconds int `toml:"skip_duration_seconds"`
	// CacheFile is the base name of the signature cache stored beside the
	// scanned directory.
	CacheFile string `toml:"cache_file"`
}

// Watched contains settings for the cross-run watched-video database.
type Watched struct {
	// DBPath points at the watched database. Empty disables the watched split.
	DBPath string `toml:"db_path"`
	// Update controls whether unique, unwatched videos are added to the
	// database after a scan.
	Update bool `toml:"update"`
}

// Tools names the external binaries used for frame sampling.
type Tools struct {
	FFmpeg  string `toml:"ffmpeg"`
	FFprobe string `toml:"ffprobe"`
}

// Logging contains configuration for log output.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Config is the root configuration document.
type Config struct {
	Scan    Scan    `toml:"scan"`
	Watched Watched `toml:"watched"`
	Tools   Tools   `toml:"tools"`
	Logging Logging `toml:"logging"`
}

// Load reads configuration from path, falling back to the default location
// and then to built-in defaults when no file exists. It returns the resolved
// path and whether a file was actually read.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if strings.TrimSpace(path) != "" {
		expanded, err := ExpandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, fmt.Errorf("config file not found: %s", expanded)
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := ExpandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	if _, err := os.Stat(defaultPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return defaultPath, false, nil
		}
		return "", false, fmt.Errorf("stat config: %w", err)
	}
	return defaultPath, true, nil
}

// ExpandPath resolves a leading ~ against the current user's home directory.
func ExpandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if trimmed == "~" {
			return home, nil
		}
		return filepath.Join(home, trimmed[2:]), nil
	}
	return trimmed, nil
}
