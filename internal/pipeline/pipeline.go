package pipeline

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"viddup/internal/hashing"
	"viddup/internal/logging"
	"viddup/internal/sampler"
)

// Result aggregates the outcomes of one pipeline run.
type Result struct {
	// Valid maps each successfully hashed path to its signature.
	Valid map[string][]hashing.FrameHash
	// Skipped lists paths excluded by the skip policy; cached so the decode
	// cost is not paid again.
	Skipped []string
	// Failed lists paths whose decode failed; never cached, retried next run.
	Failed []string
}

type outcome struct {
	path string
	sig  hashing.Signature
}

// Run hashes the given miss paths on a pool of at most workers goroutines.
// onProgress, if non-nil, is called from the controlling goroutine after each
// completion with the number done and the total.
func Run(ctx context.Context, paths []string, smp sampler.Sampler, params sampler.Params, workers int, logger *slog.Logger, onProgress func(done, total int)) Result {
	logger = logging.NewComponentLogger(logger, "pipeline")

	result := Result{Valid: make(map[string][]hashing.FrameHash)}
	if len(paths) == 0 {
		return result
	}
	if workers < 1 {
		workers = 1
	}

	logger.Info("computing signatures", logging.Args(
		logging.Int("videos", len(paths)),
		logging.Int("workers", workers))...)

	results := make(chan outcome)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	go func() {
		defer close(results)
		for _, path := range paths {
			g.Go(func() error {
				sig := smp.Sample(gctx, path, params)
				select {
				case results <- outcome{path: path, sig: sig}:
					return nil
				case <-gctx.Done():
					return gctx.Err()
				}
			})
		}
		_ = g.Wait()
	}()

	done := 0
	for out := range results {
		done++
		switch out.sig.Status {
		case hashing.StatusValid:
			if len(out.sig.Hashes) == params.NumFrames {
				result.Valid[out.path] = out.sig.Hashes
			} else {
				// A sampler bug, not a property of the video; treated as failed.
				logger.Warn("sampler returned wrong hash count", logging.Args(
					logging.String(logging.FieldPath, out.path),
					logging.Int("got", len(out.sig.Hashes)),
					logging.Int("want", params.NumFrames))...)
				result.Failed = append(result.Failed, out.path)
			}
		case hashing.StatusSkipped:
			result.Skipped = append(result.Skipped, out.path)
		case hashing.StatusFailed:
			logger.Warn("failed to hash video", logging.Args(
				logging.String(logging.FieldPath, out.path),
				logging.Error(out.sig.Err))...)
			result.Failed = append(result.Failed, out.path)
		}
		if onProgress != nil {
			onProgress(done, len(paths))
		}
	}

	logger.Info("signature computation finished", logging.Args(
		logging.Int("valid", len(result.Valid)),
		logging.Int("skipped", len(result.Skipped)),
		logging.Int("failed", len(result.Failed)))...)

	return result
}
