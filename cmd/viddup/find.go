package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"viddup/internal/config"
	"viddup/internal/decision"
	"viddup/internal/discover"
	"viddup/internal/grouping"
	"viddup/internal/hashing"
	"viddup/internal/logging"
	"viddup/internal/pipeline"
	"viddup/internal/relocate"
	"viddup/internal/report"
	"viddup/internal/sampler"
	"viddup/internal/sigcache"
	"viddup/internal/watched"
	"viddup/internal/watcheddb"
)

type findFlags struct {
	threshold    float64
	frames       int
	hashSize     int
	workers      int
	recursive    bool
	skipDuration int
	cacheFile    string
	watchedDB    string
	updateDB     bool
	yes          bool
}

func newFindCommand(cctx *commandContext) *cobra.Command {
	var flags findFlags

	cmd := &cobra.Command{
		Use:   "find DIRECTORY",
		Short: "Scan a directory for duplicate and already-watched videos",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFind(cmd, cctx, args[0], flags)
		},
	}

	f := cmd.Flags()
	f.Float64Var(&flags.threshold, "threshold", config.Default().Scan.Threshold, "Similarity percentage (0-100) required for a duplicate match")
	f.IntVar(&flags.frames, "frames", config.Default().Scan.Frames, "Frames sampled per video")
	f.IntVar(&flags.hashSize, "hash-size", config.Default().Scan.HashSize, "Perceptual hash grid size")
	f.IntVar(&flags.workers, "workers", 0, "Parallel hash workers (0 uses all CPUs)")
	f.BoolVarP(&flags.recursive, "recursive", "r", false, "Scan subdirectories as well")
	f.IntVar(&flags.skipDuration, "skip-duration", config.Default().Scan.SkipDurationSeconds, "Skip videos shorter than this many seconds")
	f.StringVar(&flags.cacheFile, "cache-file", config.Default().Scan.CacheFile, "Base name of the signature cache stored in the scan directory")
	f.StringVar(&flags.watchedDB, "watched-db", "", "Watched video database to compare against")
	f.BoolVar(&flags.updateDB, "update-watched-db", false, "Add unique, unwatched videos to the watched database after the scan")
	f.BoolVarP(&flags.yes, "yes", "y", false, "Answer yes to every prompt")

	return cmd
}

// mergeFindConfig overlays explicitly set flags onto the loaded configuration.
func mergeFindConfig(cfg config.Config, cmd *cobra.Command, flags findFlags) (config.Config, error) {
	f := cmd.Flags()
	if f.Changed("threshold") {
		cfg.Scan.Threshold = flags.threshold
	}
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
	if f.Changed("watched-db") {
		cfg.Watched.DBPath = flags.watchedDB
	}
	if f.Changed("update-watched-db") {
		cfg.Watched.Update = flags.updateDB
	}
	if cfg.Watched.Update && cfg.Watched.DBPath == "" {
		return cfg, errors.New("--update-watched-db requires --watched-db")
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func newDecider(yes bool) decision.Decider {
	if yes {
		return decision.Auto{Answer: true}
	}
	if !stdoutIsTerminal() {
		return decision.Auto{Answer: false}
	}
	return decision.Prompt{}
}

func runFind(cmd *cobra.Command, cctx *commandContext, directory string, flags findFlags) error {
	loaded, err := cctx.ensureConfig()
	if err != nil {
		return err
	}
	cfg, err := mergeFindConfig(*loaded, cmd, flags)
	if err != nil {
		return err
	}
	logger, err := cctx.ensureLogger()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	decider := newDecider(flags.yes)

	absDir, err := filepath.Abs(directory)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", directory, err)
	}

	videos, err := discover.Videos(absDir, cfg.Scan.Recursive, logger)
	if err != nil {
		return err
	}
	if len(videos) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No video files found.")
		return nil
	}

	// The watched database's parameters are adopted (or the run aborted)
	// before any hashing so the cache is classified under the final values.
	var watchedData map[string]map[string]struct{}
	if cfg.Watched.DBPath != "" {
		var dbParams *watcheddb.Params
		watchedData, dbParams = watcheddb.LoadTolerant(ctx, cfg.Watched.DBPath, logger)
		cfg, err = reconcileWatchedParams(cmd, cfg, dbParams, decider)
		if err != nil {
			return err
		}
	}

	cacheParams := sigcache.Params{NumFrames: cfg.Scan.Frames, HashSize: cfg.Scan.HashSize}
	cache := sigcache.Open(sigcache.Path(absDir, cfg.Scan.CacheFile), logger)
	defer cache.Close()
	classified := cache.Classify(videos, cacheParams)

	smp := sampler.NewFFmpegSampler(cfg.Tools.FFprobe, cfg.Tools.FFmpeg, logger)
	samplerParams := sampler.Params{
		NumFrames:           cfg.Scan.Frames,
		HashSize:            cfg.Scan.HashSize,
		SkipDurationSeconds: cfg.Scan.SkipDurationSeconds,
	}

	var onProgress func(done, total int)
	var bar *progressbar.ProgressBar
	if stdoutIsTerminal() && len(classified.Misses) > 0 {
		bar = progressbar.NewOptions(len(classified.Misses),
			progressbar.OptionSetDescription("hashing"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
		onProgress = func(done, total int) {
			_ = bar.Set(done)
		}
	}

	computed := pipeline.Run(ctx, classified.Misses, smp, samplerParams, cfg.Scan.Workers, logger, onProgress)
	if bar != nil {
		_ = bar.Finish()
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := cache.Update(computed.Valid, computed.Skipped, cacheParams); err != nil {
		logger.Warn("failed to persist signature cache", logging.Args(logging.Error(err))...)
	}

	signatures := make(map[string][]hashing.FrameHash, len(classified.Hits)+len(computed.Valid))
	for path, sig := range classified.Hits {
		signatures[path] = sig
	}
	for path, sig := range computed.Valid {
		signatures[path] = sig
	}

	skipped := make([]string, 0, len(classified.Skipped)+len(computed.Skipped))
	for path := range classified.Skipped {
		skipped = append(skipped, path)
	}
	skipped = append(skipped, computed.Skipped...)
	sort.Strings(skipped)

	out := cmd.OutOrStdout()
	mover := relocate.NewMover(absDir, logger)

	remaining := signatures
	movedWatched := make(map[string]struct{})
	if len(watchedData) > 0 {
		union := make(map[string]struct{})
		for _, hashes := range watchedData {
			for h := range hashes {
				union[h] = struct{}{}
			}
		}
		matcher, err := watched.NewMatcher(union, cfg.Scan.HashSize)
		if err != nil {
			return fmt.Errorf("watched database: %w", err)
		}
		var matched []string
		matched, remaining = watched.Partition(signatures, matcher, cfg.Scan.Threshold, logger)
		report.WatchedMatches(out, matched)
		if len(matched) > 0 {
			ok, err := decider.Confirm(fmt.Sprintf("Move %d watched video(s) to %s/", len(matched), relocate.WatchedDirName), false)
			if err != nil {
				return err
			}
			if ok {
				outcome := mover.Watched(matched)
				movedWatched = outcome.Moved
				fmt.Fprintf(out, "Moved %d watched video(s), %d failed.\n", outcome.MovedCount, outcome.FailedCount)
			}
		}
	}

	groups := grouping.FindDuplicates(remaining, cfg.Scan.Threshold, cfg.Scan.HashSize, logger)
	report.Groups(out, groups)
	duplicateMembers := make(map[string]struct{})
	if len(groups) > 0 {
		ok, err := decider.Confirm(fmt.Sprintf("Move duplicates (keeping one per group) to %s/", relocate.DuplicateDirName), true)
		if err != nil {
			return err
		}
		if ok {
			outcome := mover.Duplicates(groups)
			fmt.Fprintf(out, "Moved %d duplicate(s), %d failed.\n", outcome.MovedCount, outcome.FailedCount)
			for _, g := range groups {
				for _, p := range g.Paths {
					duplicateMembers[p] = struct{}{}
				}
			}
		}
	}

	if len(skipped) > 0 {
		ok, err := decider.Confirm(fmt.Sprintf("Move %d skipped video(s) to %s/", len(skipped), relocate.SkippedDirName), true)
		if err != nil {
			return err
		}
		if ok {
			outcome := mover.Skipped(skipped)
			fmt.Fprintf(out, "Moved %d skipped video(s), %d failed.\n", outcome.MovedCount, outcome.FailedCount)
		}
	}

	if cfg.Watched.DBPath != "" && cfg.Watched.Update {
		if err := updateWatchedDB(cmd, cfg, logger, remaining, movedWatched, duplicateMembers); err != nil {
			return err
		}
	}

	report.Summary(out, report.ScanSummary{
		Discovered: len(videos),
		CacheHits:  classified.HitCount,
		CacheStale: classified.StaleCount,
		Computed:   len(computed.Valid),
		Skipped:    len(skipped),
		Failed:     len(computed.Failed),
	})
	return nil
}

// reconcileWatchedParams aborts or adopts when the database was built with
// different hashing parameters. Adopting keeps the comparison meaningful;
// mixing parameters silently would make every watched score garbage.
func reconcileWatchedParams(cmd *cobra.Command, cfg config.Config, dbParams *watcheddb.Params, decider decision.Decider) (config.Config, error) {
	if dbParams == nil {
		return cfg, nil
	}
	if dbParams.NumFrames == cfg.Scan.Frames && dbParams.HashSize == cfg.Scan.HashSize {
		return cfg, nil
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Watched database parameters differ from the current run:")
	fmt.Fprintf(out, "  database: frames=%d hash_size=%d\n", dbParams.NumFrames, dbParams.HashSize)
	fmt.Fprintf(out, "  current:  frames=%d hash_size=%d\n", cfg.Scan.Frames, cfg.Scan.HashSize)

	ok, err := decider.Confirm("Use the database parameters for this run", false)
	if err != nil {
		return cfg, err
	}
	if !ok {
		return cfg, fmt.Errorf("%w: database frames=%d hash_size=%d, current frames=%d hash_size=%d",
			watcheddb.ErrParameterMismatch, dbParams.NumFrames, dbParams.HashSize, cfg.Scan.Frames, cfg.Scan.HashSize)
	}
	cfg.Scan.Frames = dbParams.NumFrames
	cfg.Scan.HashSize = dbParams.HashSize
	return cfg, nil
}

// updateWatchedDB records the videos that survived every filter as watched.
func updateWatchedDB(cmd *cobra.Command, cfg config.Config, logger *slog.Logger, remaining map[string][]hashing.FrameHash, movedWatched, duplicateMembers map[string]struct{}) error {
	store, err := watcheddb.Open(cfg.Watched.DBPath, logger)
	if err != nil {
		return fmt.Errorf("open watched database: %w", err)
	}
	defer store.Close()

	params := watcheddb.Params{NumFrames: cfg.Scan.Frames, HashSize: cfg.Scan.HashSize}
	ctx := cmd.Context()

	added := 0
	for path, sig := range remaining {
		if _, ok := movedWatched[path]; ok {
			continue
		}
		if _, ok := duplicateMembers[path]; ok {
			continue
		}
		hashes := make(map[string]struct{}, len(sig))
		for _, h := range sig {
			hashes[h.String()] = struct{}{}
		}
		if err := store.AddOrUpdate(ctx, path, hashes, params); err != nil {
			logger.Warn("failed to record watched video", logging.Args(
				logging.String(logging.FieldPath, path),
				logging.Error(err))...)
			continue
		}
		added++
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Recorded %d video(s) in the watched database.\n", added)
	return nil
}
