package sigcache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"viddup/internal/hashing"
)

var testParams = Params{NumFrames: 3, HashSize: 8}

func writeVideoFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("fake video payload"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func testSignature(t *testing.T, seed int) []hashing.FrameHash {
	t.Helper()
	sig := make([]hashing.FrameHash, testParams.NumFrames)
	for i := range sig {
		set := make([]bool, 64)
		for j := range set {
			set[j] = (seed+i+j)%3 == 0
		}
		h, err := hashing.NewFrameHash(8, set)
		if err != nil {
			t.Fatal(err)
		}
		sig[i] = h
	}
	return sig
}

func TestRoundTripHit(t *testing.T) {
	dir := t.TempDir()
	video := writeVideoFile(t, dir, "a.mp4")
	cachePath := Path(dir, ".cache")

	sig := testSignature(t, 1)

	store := Open(cachePath, nil)
	if err := store.Update(map[string][]hashing.FrameHash{video: sig}, nil, testParams); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	store.Close()

	reopened := Open(cachePath, nil)
	defer reopened.Close()
	result := reopened.Classify([]string{video}, testParams)

	if len(result.Misses) != 0 {
		t.Fatalf("expected no misses, got %v", result.Misses)
	}
	got, ok := result.Hits[video]
	if !ok {
		t.Fatal("expected cache hit")
	}
	for i := range sig {
		if !got[i].Equal(sig[i]) {
			t.Errorf("hash %d differs after round trip", i)
		}
	}
}

func TestStaleOnAnyFingerprintChange(t *testing.T) {
	dir := t.TempDir()
	video := writeVideoFile(t, dir, "a.mp4")
	cachePath := Path(dir, ".cache")

	store := Open(cachePath, nil)
	if err := store.Update(map[string][]hashing.FrameHash{video: testSignature(t, 2)}, nil, testParams); err != nil {
		t.Fatal(err)
	}
	store.Close()

	t.Run("mtime changed", func(t *testing.T) {
		later := time.Now().Add(2 * time.Hour)
		if err := os.Chtimes(video, later, later); err != nil {
			t.Fatal(err)
		}
		s := Open(cachePath, nil)
		defer s.Close()
		result := s.Classify([]string{video}, testParams)
		if result.StaleCount != 1 || len(result.Misses) != 1 {
			t.Errorf("mtime change should be stale: %+v", result)
		}
	})

	t.Run("num frames changed", func(t *testing.T) {
		s := Open(cachePath, nil)
		defer s.Close()
		result := s.Classify([]string{video}, Params{NumFrames: 5, HashSize: 8})
		if len(result.Misses) != 1 {
			t.Errorf("frame count change should miss: %+v", result)
		}
	})

	t.Run("hash size changed", func(t *testing.T) {
		s := Open(cachePath, nil)
		defer s.Close()
		result := s.Classify([]string{video}, Params{NumFrames: 3, HashSize: 16})
		if len(result.Misses) != 1 {
			t.Errorf("hash size change should miss: %+v", result)
		}
	})
}

func TestSkippedEntryClassification(t *testing.T) {
	dir := t.TempDir()
	video := writeVideoFile(t, dir, "short.mp4")
	cachePath := Path(dir, ".cache")

	store := Open(cachePath, nil)
	if err := store.Update(nil, []string{video}, testParams); err != nil {
		t.Fatal(err)
	}
	store.Close()

	s := Open(cachePath, nil)
	defer s.Close()
	result := s.Classify([]string{video}, testParams)

	if _, ok := result.Skipped[video]; !ok {
		t.Error("expected skipped classification from cache")
	}
	if len(result.Misses) != 0 {
		t.Errorf("skipped entry must not be a miss: %v", result.Misses)
	}
	if len(result.Hits) != 0 {
		t.Errorf("skipped entry must not be a hit: %v", result.Hits)
	}
}

func TestPruneRemovedPaths(t *testing.T) {
	dir := t.TempDir()
	keep := writeVideoFile(t, dir, "keep.mp4")
	gone := writeVideoFile(t, dir, "gone.mp4")
	cachePath := Path(dir, ".cache")

	store := Open(cachePath, nil)
	err := store.Update(map[string][]hashing.FrameHash{
		keep: testSignature(t, 3),
		gone: testSignature(t, 4),
	}, nil, testParams)
	if err != nil {
		t.Fatal(err)
	}
	store.Close()

	// "gone" is no longer part of the scan.
	s := Open(cachePath, nil)
	s.Classify([]string{keep}, testParams)
	if err := s.Update(nil, nil, testParams); err != nil {
		t.Fatal(err)
	}
	s.Close()

	reopened := Open(cachePath, nil)
	defer reopened.Close()
	paths := reopened.Paths()
	if len(paths) != 1 || paths[0] != keep {
		t.Errorf("expected pruned cache with only %s, got %v", keep, paths)
	}
}

func TestCorruptCacheDegradesToEmpty(t *testing.T) {
	dir := t.TempDir()
	video := writeVideoFile(t, dir, "a.mp4")
	cachePath := Path(dir, ".cache")
	if err := os.WriteFile(cachePath, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	store := Open(cachePath, nil)
	defer store.Close()
	result := store.Classify([]string{video}, testParams)
	if len(result.Misses) != 1 {
		t.Errorf("corrupt cache should treat every path as a miss: %+v", result)
	}
}

func TestMissingFileIsMiss(t *testing.T) {
	dir := t.TempDir()
	cachePath := Path(dir, ".cache")

	store := Open(cachePath, nil)
	defer store.Close()
	result := store.Classify([]string{filepath.Join(dir, "absent.mp4")}, testParams)
	if len(result.Misses) != 1 {
		t.Errorf("unreadable path should be a miss: %+v", result)
	}
}
