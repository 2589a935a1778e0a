package grouping

import (
	"log/slog"
	"math"
	"sort"

	"viddup/internal/bktree"
	"viddup/internal/hashing"
	"viddup/internal/logging"
)

// Group is one set of mutually similar videos.
type Group struct {
	// Paths holds the group members in ascending order.
	Paths []string
	// Score is the mean pairwise similarity of the verified pairs inside the
	// group, in percent.
	Score float64
}

type pairKey struct {
	a, b string
}

func orderedPair(a, b string) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{a: a, b: b}
}

// FindDuplicates clusters the given signatures into duplicate groups. Two
// videos belong to the same group when they are connected through pairs whose
// exact similarity is at or above threshold (percent). Signatures are assumed
// to share hashSize and frame count; the cache layer enforces that upstream.
func FindDuplicates(signatures map[string][]hashing.FrameHash, threshold float64, hashSize int, logger *slog.Logger) []Group {
	logger = logging.NewComponentLogger(logger, "grouping")

	if len(signatures) < 2 {
		return nil
	}

	bits := hashSize * hashSize
	// A pair at exactly the threshold has an average frame distance of
	// bits*(1-threshold/100). Searching one step beyond that keeps any frame
	// whose individual distance still allows the pair average to qualify.
	radius := int(math.Floor(float64(bits)*(1-threshold/100))) + 1

	tree := bktree.New()
	hashPaths := make(map[string][]string)
	hashValues := make(map[string]hashing.FrameHash)
	for path, sig := range signatures {
		seen := make(map[string]struct{}, len(sig))
		for _, h := range sig {
			key := h.String()
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			if _, ok := hashValues[key]; !ok {
				hashValues[key] = h
				tree.Add(h)
			}
			hashPaths[key] = append(hashPaths[key], path)
		}
	}

	logger.Debug("built similarity index", logging.Args(
		logging.Int("videos", len(signatures)),
		logging.Int("distinct_hashes", tree.Len()),
		logging.Int("radius", radius))...)

	// Candidate pairs: any two videos sharing at least one pair of frame
	// hashes within the search radius.
	candidates := make(map[pairKey]struct{})
	for path, sig := range signatures {
		queried := make(map[string]struct{}, len(sig))
		for _, h := range sig {
			key := h.String()
			if _, ok := queried[key]; ok {
				continue
			}
			queried[key] = struct{}{}
			for _, m := range tree.Query(h, radius) {
				for _, other := range hashPaths[m.Hash.String()] {
					if other == path {
						continue
					}
					candidates[orderedPair(path, other)] = struct{}{}
				}
			}
		}
	}

	// Exact verification. The index only narrows the pair space; membership
	// is decided by the full signature comparison.
	type edge struct {
		pair  pairKey
		score float64
	}
	var kept []edge
	for pair := range candidates {
		score := hashing.Compare(signatures[pair.a], signatures[pair.b], hashSize)
		if score >= threshold {
			kept = append(kept, edge{pair: pair, score: score})
		}
	}

	logger.Debug("verified candidate pairs", logging.Args(
		logging.Int("candidates", len(candidates)),
		logging.Int("kept", len(kept)))...)

	if len(kept) == 0 {
		return nil
	}

	// Connected components over the kept pairs.
	parent := make(map[string]string)
	var find func(string) string
	find = func(x string) string {
		if parent[x] != x {
			parent[x] = find(parent[x])
		}
		return parent[x]
	}
	union := func(a, b string) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[ra] = rb
		}
	}
	for _, e := range kept {
		if _, ok := parent[e.pair.a]; !ok {
			parent[e.pair.a] = e.pair.a
		}
		if _, ok := parent[e.pair.b]; !ok {
			parent[e.pair.b] = e.pair.b
		}
		union(e.pair.a, e.pair.b)
	}

	members := make(map[string][]string)
	for path := range parent {
		root := find(path)
		members[root] = append(members[root], path)
	}
	scoreSum := make(map[string]float64)
	scoreCount := make(map[string]int)
	for _, e := range kept {
		root := find(e.pair.a)
		scoreSum[root] += e.score
		scoreCount[root]++
	}

	groups := make([]Group, 0, len(members))
	for root, paths := range members {
		sort.Strings(paths)
		groups = append(groups, Group{
			Paths: paths,
			Score: scoreSum[root] / float64(scoreCount[root]),
		})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Score != groups[j].Score {
			return groups[i].Score > groups[j].Score
		}
		return groups[i].Paths[0] < groups[j].Paths[0]
	})

	logger.Info("duplicate grouping finished", logging.Args(
		logging.Int("groups", len(groups)))...)

	return groups
}
