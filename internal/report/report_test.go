package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"viddup/internal/grouping"
	"viddup/internal/watcheddb"
)

func TestGroupsEmpty(t *testing.T) {
	var sb strings.Builder
	Groups(&sb, nil)
	if !strings.Contains(sb.String(), "No duplicate videos found") {
		t.Errorf("unexpected output: %q", sb.String())
	}
}

func TestGroupsRendersMembersAndScore(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.mp4")
	b := filepath.Join(dir, "b.mp4")
	if err := os.WriteFile(a, make([]byte, 2048), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(b, make([]byte, 2048), 0o644); err != nil {
		t.Fatal(err)
	}

	var sb strings.Builder
	Groups(&sb, []grouping.Group{{Paths: []string{a, b}, Score: 97.5}})
	out := sb.String()
	for _, want := range []string{"a.mp4", "b.mp4", "97.5%", "2.0 KiB", "1 duplicate group"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWatchedMatchesSorted(t *testing.T) {
	var sb strings.Builder
	WatchedMatches(&sb, []string{"/v/zz.mp4", "/v/aa.mp4"})
	out := sb.String()
	if !strings.Contains(out, "aa.mp4") || !strings.Contains(out, "zz.mp4") {
		t.Fatalf("output missing members:\n%s", out)
	}
	if strings.Index(out, "aa.mp4") > strings.Index(out, "zz.mp4") {
		t.Errorf("matches not sorted:\n%s", out)
	}
}

func TestSummaryCounters(t *testing.T) {
	var sb strings.Builder
	Summary(&sb, ScanSummary{Discovered: 10, CacheHits: 6, CacheStale: 1, Computed: 4, Skipped: 2, Failed: 1})
	out := sb.String()
	for _, want := range []string{"Videos discovered", "Cache hits", "Signatures computed", "10", "6", "4"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestInspectUnknownParams(t *testing.T) {
	var sb strings.Builder
	Inspect(&sb, "/tmp/watched.db", watcheddb.Info{VideoCount: 3, HashCount: 42})
	out := sb.String()
	if !strings.Contains(out, "unknown") {
		t.Errorf("missing parameters should render as unknown:\n%s", out)
	}
	if !strings.Contains(out, "42") || !strings.Contains(out, "3") {
		t.Errorf("counts missing:\n%s", out)
	}
}
