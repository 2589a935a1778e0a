package sampler

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"log/slog"
	"os/exec"
	"strings"

	"viddup/internal/hashing"
	"viddup/internal/logging"
)

// Params carries the sampling parameters for one run.
type Params struct {
	// NumFrames is how many evenly spaced frames to hash per video.
	NumFrames int
	// HashSize is the perceptual hash grid size.
	HashSize int
	// SkipDurationSeconds marks videos shorter than this as skipped.
	SkipDurationSeconds int
}

// Sampler produces a video's signature.
type Sampler interface {
	Sample(ctx context.Context, path string, params Params) hashing.Signature
}

// FFmpegSampler samples frames by shelling out to ffprobe and ffmpeg.
type FFmpegSampler struct {
	FFprobe string
	FFmpeg  string
	logger  *slog.Logger
}

// NewFFmpegSampler builds a sampler using the given binaries (empty falls
// back to PATH lookup of ffprobe/ffmpeg).
func NewFFmpegSampler(ffprobe, ffmpeg string, logger *slog.Logger) *FFmpegSampler {
	return &FFmpegSampler{
		FFprobe: ffprobe,
		FFmpeg:  ffmpeg,
		logger:  logging.NewComponentLogger(logger, "sampler"),
	}
}

// Sample probes the video, applies the skip policy, then extracts and hashes
// NumFrames frames. Probe or decode errors yield a Failed signature; short
// videos yield Skipped.
func (s *FFmpegSampler) Sample(ctx context.Context, path string, params Params) hashing.Signature {
	info, err := probe(ctx, s.FFprobe, path)
	if err != nil {
		return hashing.FailedSignature(err)
	}
	if !info.hasVideoStream() {
		return hashing.FailedSignature(fmt.Errorf("no video stream in %s", path))
	}

	duration := info.durationSeconds()
	frames := info.frameCount()
	if duration < float64(params.SkipDurationSeconds) || frames < params.NumFrames {
		s.logger.Debug("skipping short video", logging.Args(
			logging.String(logging.FieldPath, path),
			logging.Float64("duration_seconds", duration),
			logging.Int("frame_count", frames))...)
		return hashing.SkippedSignature()
	}

	sig := make([]hashing.FrameHash, 0, params.NumFrames)
	for i := 0; i < params.NumFrames; i++ {
		// Spread samples across [0, duration), never seeking to the exact end.
		ts := duration * float64(i) / float64(params.NumFrames)
		hash, err := s.hashFrameAt(ctx, path, ts, params.HashSize)
		if err != nil {
			return hashing.FailedSignature(fmt.Errorf("frame %d at %.2fs: %w", i, ts, err))
		}
		sig = append(sig, hash)
	}
	return hashing.ValidSignature(sig)
}

func (s *FFmpegSampler) hashFrameAt(ctx context.Context, path string, ts float64, hashSize int) (hashing.FrameHash, error) {
	binary := strings.TrimSpace(s.FFmpeg)
	if binary == "" {
		binary = "ffmpeg"
	}

	// -ss before -i uses the fast keyframe seek; the hash tolerates the
	// resulting off-by-a-few-frames imprecision.
	cmd := exec.CommandContext(ctx, binary,
		"-v", "error", "-hide_banner", "-nostdin",
		"-ss", fmt.Sprintf("%.3f", ts),
		"-i", path,
		"-frames:v", "1",
		"-f", "image2pipe", "-vcodec", "png", "-")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return hashing.FrameHash{}, fmt.Errorf("ffmpeg extract: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	img, err := png.Decode(&stdout)
	if err != nil {
		return hashing.FrameHash{}, fmt.Errorf("decode frame: %w", err)
	}
	return hashing.AverageHash(img, hashSize)
}
