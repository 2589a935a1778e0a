package sampler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// probeResult represents the parsed output from an ffprobe inspection.
type probeResult struct {
	Streams []probeStream `json:"streams"`
	Format  probeFormat   `json:"format"`
}

type probeStream struct {
	CodecType    string `json:"codec_type"`
	NBFrames     string `json:"nb_frames"`
	Duration     string `json:"duration"`
	AvgFrameRate string `json:"avg_frame_rate"`
}

type probeFormat struct {
	Duration string `json:"duration"`
}

// probe executes ffprobe against the provided path and decodes the JSON
// response.
func probe(ctx context.Context, binary, path string) (probeResult, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return probeResult{}, errors.New("ffprobe inspect: empty path")
	}

	cmd := exec.CommandContext(ctx, binary,
		"-v", "error", "-hide_banner",
		"-select_streams", "v:0",
		"-show_entries", "stream=codec_type,nb_frames,duration,avg_frame_rate",
		"-show_entries", "format=duration",
		"-of", "json", "--", path)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return probeResult{}, fmt.Errorf("ffprobe inspect: %w: %s", err, strings.TrimSpace(string(output)))
	}

	var result probeResult
	if err := json.Unmarshal(output, &result); err != nil {
		return probeResult{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	return result, nil
}

// durationSeconds returns the container duration in seconds, preferring the
// video stream's own value, or 0 when unavailable.
func (r probeResult) durationSeconds() float64 {
	for _, stream := range r.Streams {
		if d := parseFloat(stream.Duration); d > 0 {
			return d
		}
	}
	return parseFloat(r.Format.Duration)
}

// frameCount returns the video stream frame count, estimating from duration
// and average frame rate when the container does not record it.
func (r probeResult) frameCount() int {
	for _, stream := range r.Streams {
		if n, err := strconv.Atoi(strings.TrimSpace(stream.NBFrames)); err == nil && n > 0 {
			return n
		}
	}
	duration := r.durationSeconds()
	if duration <= 0 {
		return 0
	}
	for _, stream := range r.Streams {
		if fps := parseRate(stream.AvgFrameRate); fps > 0 {
			return int(duration * fps)
		}
	}
	return 0
}

func (r probeResult) hasVideoStream() bool {
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, "video") {
			return true
		}
	}
	return false
}

func parseFloat(value string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || f < 0 {
		return 0
	}
	return f
}

// parseRate parses an ffprobe rational like "30000/1001".
func parseRate(value string) float64 {
	value = strings.TrimSpace(value)
	if value == "" || value == "0/0" {
		return 0
	}
	num, den, found := strings.Cut(value, "/")
	if !found {
		return parseFloat(value)
	}
	n, d := parseFloat(num), parseFloat(den)
	if d == 0 {
		return 0
	}
	return n / d
}
