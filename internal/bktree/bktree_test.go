package bktree

import (
	"math/rand"
	"sort"
	"testing"

	"viddup/internal/hashing"
)

func randomHash(t *testing.T, rng *rand.Rand, size int) hashing.FrameHash {
	t.Helper()
	set := make([]bool, size*size)
	for i := range set {
		set[i] = rng.Intn(2) == 1
	}
	h, err := hashing.NewFrameHash(size, set)
	if err != nil {
		t.Fatalf("NewFrameHash: %v", err)
	}
	return h
}

func TestQueryMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 25; trial++ {
		tree := New()
		stored := make(map[string]hashing.FrameHash)
		for i := 0; i < 120; i++ {
			h := randomHash(t, rng, 8)
			tree.Add(h)
			stored[h.String()] = h
		}

		query := randomHash(t, rng, 8)
		for _, radius := range []int{0, 3, 10, 24, 64} {
			want := make([]string, 0)
			for key, h := range stored {
				if query.Distance(h) <= radius {
					want = append(want, key)
				}
			}
			sort.Strings(want)

			got := make([]string, 0)
			for _, m := range tree.Query(query, radius) {
				got = append(got, m.Hash.String())
				if d := query.Distance(m.Hash); d != m.Distance {
					t.Errorf("reported distance %d, true distance %d", m.Distance, d)
				}
			}
			sort.Strings(got)

			if len(got) != len(want) {
				t.Fatalf("radius %d: got %d matches, want %d", radius, len(got), len(want))
			}
			for i := range got {
				if got[i] != want[i] {
					t.Fatalf("radius %d: match set differs from brute force", radius)
				}
			}
		}
	}
}

func TestAddDuplicateIsNoOp(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	tree := New()
	h := randomHash(t, rng, 8)
	tree.Add(h)
	tree.Add(h)
	if tree.Len() != 1 {
		t.Errorf("duplicate insert should not grow the tree, len=%d", tree.Len())
	}
	if got := tree.Query(h, 0); len(got) != 1 {
		t.Errorf("exact query should return one match, got %d", len(got))
	}
}

func TestQueryEmptyTree(t *testing.T) {
	tree := New()
	rng := rand.New(rand.NewSource(2))
	if got := tree.Query(randomHash(t, rng, 8), 64); got != nil {
		t.Errorf("empty tree query should return nil, got %v", got)
	}
}
