package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"

	"viddup/internal/config"
	"viddup/internal/discover"
	"viddup/internal/hashing"
	"viddup/internal/logging"
	"viddup/internal/pipeline"
	"viddup/internal/report"
	"viddup/internal/sampler"
	"viddup/internal/sigcache"
	"viddup/internal/watcheddb"
)

const defaultWatchedDBName = ".viddup_watched.db"

func newWatchedCommand(cctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watched",
		Short: "Manage the watched video database",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(newWatchedCreateCommand(cctx))
	cmd.AddCommand(newWatchedInspectCommand(cctx))
	return cmd
}

type watchedCreateFlags struct {
	dbPath       string
	frames       int
	hashSize     int
	workers      int
	recursive    bool
	skipDuration int
	cacheFile    string
}

func newWatchedCreateCommand(cctx *commandContext) *cobra.Command {
	var flags watchedCreateFlags

	cmd := &cobra.Command{
		Use:   "create DIRECTORY",
		Short: "Hash every video in a directory and record it as watched",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatchedCreate(cmd, cctx, args[0], flags)
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.dbPath, "watched-db", "", "Database path (defaults to "+defaultWatchedDBName+" inside the directory)")
	f.IntVar(&flags.frames, "frames", config.Default().Scan.Frames, "Frames sampled per video")
	f.IntVar(&flags.hashSize, "hash-size", config.Default().Scan.HashSize, "Perceptual hash grid size")
	f.IntVar(&flags.workers, "workers", 0, "Parallel hash workers (0 uses all CPUs)")
	f.BoolVarP(&flags.recursive, "recursive", "r", false, "Scan subdirectories as well")
	f.IntVar(&flags.skipDuration, "skip-duration", config.Default().Scan.SkipDurationSeconds, "Skip videos shorter than this many seconds")
	f.StringVar(&flags.cacheFile, "cache-file", config.Default().Scan.CacheFile, "Base name of the signature cache stored in the directory")

	return cmd
}

func runWatchedCreate(cmd *cobra.Command, cctx *commandContext, directory string, flags watchedCreateFlags) error {
	loaded, err := cctx.ensureConfig()
	if err != nil {
		return err
	}
	cfg := *loaded
	f := cmd.Flags()
	if f.Changed("frames") {
		cfg.Scan.Frames = flags.frames
	}
	if f.Changed("hash-size") {
		cfg.Scan.HashSize = flags.hashSize
	}
	if f.Changed("workers") {
		cfg.Scan.Workers = flags.workers
		if cfg.Scan.Workers == 0 {
			cfg.Scan.Workers = runtime.NumCPU()
		}
	}
	if f.Changed("recursive") {
		cfg.Scan.Recursive = flags.recursive
	}
	if f.Changed("skip-duration") {
		cfg.Scan.SkipDurationSeconds = flags.skipDuration
	}
	if f.Changed("cache-file") {
		cfg.Scan.CacheFile = flags.cacheFile
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger, err := cctx.ensureLogger()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	absDir, err := filepath.Abs(directory)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", directory, err)
	}
	dbPath := flags.dbPath
	if dbPath == "" {
		dbPath = filepath.Join(absDir, defaultWatchedDBName)
	}

	videos, err := discover.Videos(absDir, cfg.Scan.Recursive, logger)
	if err != nil {
		return err
	}
	if len(videos) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No video files found.")
		return nil
	}

	cacheParams := sigcache.Params{NumFrames: cfg.Scan.Frames, HashSize: cfg.Scan.HashSize}
	cache := sigcache.Open(sigcache.Path(absDir, cfg.Scan.CacheFile), logger)
	defer cache.Close()
	classified := cache.Classify(videos, cacheParams)

	smp := sampler.NewFFmpegSampler(cfg.Tools.FFprobe, cfg.Tools.FFmpeg, logger)
	computed := pipeline.Run(ctx, classified.Misses, smp, sampler.Params{
		NumFrames:           cfg.Scan.Frames,
		HashSize:            cfg.Scan.HashSize,
		SkipDurationSeconds: cfg.Scan.SkipDurationSeconds,
	}, cfg.Scan.Workers, logger, nil)
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := cache.Update(computed.Valid, computed.Skipped, cacheParams); err != nil {
		logger.Warn("failed to persist signature cache", logging.Args(logging.Error(err))...)
	}

	store, err := watcheddb.Open(dbPath, logger)
	if err != nil {
		return fmt.Errorf("open watched database: %w", err)
	}
	defer store.Close()

	params := watcheddb.Params{NumFrames: cfg.Scan.Frames, HashSize: cfg.Scan.HashSize}
	added := 0
	record := func(path string, sig []hashing.FrameHash) {
		hashes := make(map[string]struct{}, len(sig))
		for _, h := range sig {
			hashes[h.String()] = struct{}{}
		}
		if err := store.AddOrUpdate(ctx, path, hashes, params); err != nil {
			logger.Warn("failed to record watched video", logging.Args(
				logging.String(logging.FieldPath, path),
				logging.Error(err))...)
			return
		}
		added++
	}
	for path, sig := range classified.Hits {
		record(path, sig)
	}
	for path, sig := range computed.Valid {
		record(path, sig)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Recorded %d video(s) in %s.\n", added, dbPath)
	return nil
}

func newWatchedInspectCommand(cctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect DATABASE",
		Short: "Show watched database statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatchedInspect(cmd, cctx, args[0])
		},
	}
	return cmd
}

func runWatchedInspect(cmd *cobra.Command, cctx *commandContext, dbPath string) error {
	logger, err := cctx.ensureLogger()
	if err != nil {
		return err
	}

	absPath, err := filepath.Abs(dbPath)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", dbPath, err)
	}
	if _, err := os.Stat(absPath); err != nil {
		return fmt.Errorf("watched database not found: %s", absPath)
	}

	store, err := watcheddb.Open(absPath, logger)
	if err != nil {
		return fmt.Errorf("open watched database: %w", err)
	}
	defer store.Close()

	info, err := store.Inspect(cmd.Context())
	if err != nil {
		return fmt.Errorf("inspect watched database: %w", err)
	}
	report.Inspect(cmd.OutOrStdout(), absPath, info)
	return nil
}
