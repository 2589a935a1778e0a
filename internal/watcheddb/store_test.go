package watcheddb

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "watched.db"), nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func hashSet(hashes ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(hashes))
	for _, h := range hashes {
		set[h] = struct{}{}
	}
	return set
}

func TestAddOrUpdateRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	params := Params{NumFrames: 20, HashSize: 8}

	if err := store.AddOrUpdate(ctx, "/videos/a.mp4", hashSet("aa", "bb"), params); err != nil {
		t.Fatalf("AddOrUpdate failed: %v", err)
	}

	entries, loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entry count: got %d, want 1", len(entries))
	}
	set := entries["/videos/a.mp4"]
	if len(set) != 2 {
		t.Errorf("hash count: got %d, want 2", len(set))
	}
	if loaded == nil || *loaded != params {
		t.Errorf("metadata: got %+v, want %+v", loaded, params)
	}
}

func TestAddOrUpdateIdempotent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	params := Params{NumFrames: 20, HashSize: 8}

	for i := 0; i < 2; i++ {
		if err := store.AddOrUpdate(ctx, "/videos/a.mp4", hashSet("aa", "bb"), params); err != nil {
			t.Fatalf("AddOrUpdate %d failed: %v", i, err)
		}
	}

	info, err := store.Inspect(ctx)
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}
	if info.VideoCount != 1 {
		t.Errorf("video count: got %d, want 1", info.VideoCount)
	}
	if info.HashCount != 2 {
		t.Errorf("hash count: got %d, want 2", info.HashCount)
	}
}

func TestAddOrUpdateReplacesHashSet(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	params := Params{NumFrames: 20, HashSize: 8}

	if err := store.AddOrUpdate(ctx, "/videos/a.mp4", hashSet("aa", "bb"), params); err != nil {
		t.Fatal(err)
	}
	if err := store.AddOrUpdate(ctx, "/videos/a.mp4", hashSet("cc"), params); err != nil {
		t.Fatal(err)
	}

	entries, _, err := store.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	set := entries["/videos/a.mp4"]
	if len(set) != 1 {
		t.Fatalf("hash set should be replaced, got %v", set)
	}
	if _, ok := set["cc"]; !ok {
		t.Errorf("expected replacement hash, got %v", set)
	}
}

func TestMetadataLastWriterWins(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.AddOrUpdate(ctx, "/a.mp4", hashSet("aa"), Params{NumFrames: 10, HashSize: 8}); err != nil {
		t.Fatal(err)
	}
	if err := store.AddOrUpdate(ctx, "/b.mp4", hashSet("bb"), Params{NumFrames: 30, HashSize: 16}); err != nil {
		t.Fatal(err)
	}

	_, params, err := store.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := Params{NumFrames: 30, HashSize: 16}
	if params == nil || *params != want {
		t.Errorf("metadata: got %+v, want %+v", params, want)
	}
}

func TestCheckParamsMismatch(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.AddOrUpdate(ctx, "/a.mp4", hashSet("aa"), Params{NumFrames: 20, HashSize: 8}); err != nil {
		t.Fatal(err)
	}

	if _, err := store.CheckParams(ctx, Params{NumFrames: 20, HashSize: 8}); err != nil {
		t.Errorf("matching params should pass, got %v", err)
	}

	stored, err := store.CheckParams(ctx, Params{NumFrames: 10, HashSize: 8})
	if !errors.Is(err, ErrParameterMismatch) {
		t.Fatalf("expected ErrParameterMismatch, got %v", err)
	}
	if stored == nil || stored.NumFrames != 20 {
		t.Errorf("mismatch should still report stored params, got %+v", stored)
	}
}

func TestCheckParamsLegacyStore(t *testing.T) {
	store := openTestStore(t)
	stored, err := store.CheckParams(context.Background(), Params{NumFrames: 20, HashSize: 8})
	if err != nil {
		t.Fatalf("legacy store without metadata should pass: %v", err)
	}
	if stored != nil {
		t.Errorf("expected nil params for legacy store, got %+v", stored)
	}
}

func TestLoadTolerantMissingFile(t *testing.T) {
	entries, params := LoadTolerant(context.Background(), filepath.Join(t.TempDir(), "absent.db"), nil)
	if len(entries) != 0 {
		t.Errorf("missing store should load empty, got %v", entries)
	}
	if params != nil {
		t.Errorf("missing store should have nil params, got %+v", params)
	}
}

func TestLoadTolerantCorruptFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "watched.db")
	if err := os.WriteFile(path, []byte("this is not a sqlite database at all"), 0o644); err != nil {
		t.Fatal(err)
	}

	entries, params := LoadTolerant(context.Background(), path, nil)
	if len(entries) != 0 || params != nil {
		t.Errorf("corrupt store should degrade to empty, got %v / %+v", entries, params)
	}
}

func TestInspectEmptyStore(t *testing.T) {
	store := openTestStore(t)
	info, err := store.Inspect(context.Background())
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}
	if info.VideoCount != 0 || info.HashCount != 0 || info.Params != nil {
		t.Errorf("empty store should inspect as zeroes, got %+v", info)
	}
}
