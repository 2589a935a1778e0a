// Package testsupport provides small builders shared by package tests.
package testsupport

import (
	"testing"

	"viddup/internal/hashing"
)

// Hash builds a hashSize-square frame hash with the given bit positions set.
func Hash(t *testing.T, hashSize int, setBits ...int) hashing.FrameHash {
	t.Helper()
	set := make([]bool, hashSize*hashSize)
	for _, i := range setBits {
		if i < 0 || i >= len(set) {
			t.Fatalf("bit %d out of range for hash size %d", i, hashSize)
		}
		set[i] = true
	}
	h, err := hashing.NewFrameHash(hashSize, set)
	if err != nil {
		t.Fatalf("build hash: %v", err)
	}
	return h
}

// Signature builds a signature of numFrames copies of a base hash, where
// frame i additionally flips the bits listed in flips[i] when present.
func Signature(t *testing.T, hashSize, numFrames int, baseBits []int, flips map[int][]int) []hashing.FrameHash {
	t.Helper()
	sig := make([]hashing.FrameHash, numFrames)
	for i := range sig {
		set := make([]bool, hashSize*hashSize)
		for _, b := range baseBits {
			set[b] = true
		}
		for _, b := range flips[i] {
			set[b] = !set[b]
		}
		h, err := hashing.NewFrameHash(hashSize, set)
		if err != nil {
			t.Fatalf("build signature frame: %v", err)
		}
		sig[i] = h
	}
	return sig
}
