package watched

import (
	"fmt"
	"log/slog"
	"math"
	"sort"

	"viddup/internal/bktree"
	"viddup/internal/hashing"
	"viddup/internal/logging"
)

// Matcher holds an indexed reference hash set.
type Matcher struct {
	hashes []hashing.FrameHash
	tree   *bktree.Tree
	bits   int
}

// NewMatcher parses and indexes the given reference hashes. The set is the
// union over all watched videos, encoded in canonical hex for hashSize.
func NewMatcher(encoded map[string]struct{}, hashSize int) (*Matcher, error) {
	m := &Matcher{
		hashes: make([]hashing.FrameHash, 0, len(encoded)),
		tree:   bktree.New(),
		bits:   hashSize * hashSize,
	}
	for enc := range encoded {
		h, err := hashing.ParseHash(enc, hashSize)
		if err != nil {
			return nil, fmt.Errorf("parse watched hash %q: %w", enc, err)
		}
		m.hashes = append(m.hashes, h)
		m.tree.Add(h)
	}
	return m, nil
}

// Len reports the number of distinct reference hashes.
func (m *Matcher) Len() int { return len(m.hashes) }

// Similarity scores one signature against the reference set, in percent. The
// score derives from the average over frames of each frame's distance to its
// nearest reference hash.
func (m *Matcher) Similarity(sig []hashing.FrameHash) float64 {
	if len(sig) == 0 || len(m.hashes) == 0 {
		return 0
	}
	total := 0
	for _, h := range sig {
		total += m.minDistance(h)
	}
	avg := float64(total) / float64(len(sig))
	score := (float64(m.bits) - avg) / float64(m.bits) * 100
	if score < 0 {
		return 0
	}
	return score
}

// minDistance finds the exact nearest-neighbor distance for one frame hash.
// The index answers most frames cheaply; a frame with no near neighbor falls
// back to a linear scan so the average stays exact.
func (m *Matcher) minDistance(h hashing.FrameHash) int {
	const nearRadius = 10
	best := -1
	for _, match := range m.tree.Query(h, nearRadius) {
		if best == -1 || match.Distance < best {
			best = match.Distance
		}
	}
	if best >= 0 {
		return best
	}
	for _, ref := range m.hashes {
		d := h.Distance(ref)
		if best == -1 || d < best {
			best = d
		}
	}
	return best
}

// Partition splits signatures into paths that match the reference set at or
// above threshold (percent) and the remainder. Matched paths come back in
// ascending order; remaining keeps its signatures for the duplicate scan. An
// empty reference set matches nothing.
func Partition(signatures map[string][]hashing.FrameHash, matcher *Matcher, threshold float64, logger *slog.Logger) (matched []string, remaining map[string][]hashing.FrameHash) {
	logger = logging.NewComponentLogger(logger, "watched")

	remaining = make(map[string][]hashing.FrameHash, len(signatures))
	if matcher == nil || matcher.Len() == 0 {
		for path, sig := range signatures {
			remaining[path] = sig
		}
		return nil, remaining
	}

	for path, sig := range signatures {
		score := matcher.Similarity(sig)
		if score >= threshold {
			logger.Debug("video matches watched set", logging.Args(
				logging.String(logging.FieldPath, path),
				logging.Float64("similarity", math.Round(score*10)/10))...)
			matched = append(matched, path)
		} else {
			remaining[path] = sig
		}
	}
	sort.Strings(matched)

	logger.Info("watched comparison finished", logging.Args(
		logging.Int("matched", len(matched)),
		logging.Int("remaining", len(remaining)))...)

	return matched, remaining
}
