package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/dustin/go-humanize"

	"viddup/internal/grouping"
	"viddup/internal/watcheddb"
)

// Groups renders duplicate groups, highest similarity first. Each member row
// shows the file size when the file is still present.
func Groups(w io.Writer, groups []grouping.Group) {
	if len(groups) == 0 {
		fmt.Fprintln(w, "No duplicate videos found.")
		return
	}

	fmt.Fprintf(w, "Found %d duplicate group(s):\n", len(groups))
	rows := make([][]string, 0, len(groups)*2)
	for i, g := range groups {
		for j, path := range g.Paths {
			similarity := ""
			if j == 0 {
				similarity = fmt.Sprintf("%.1f%%", g.Score)
			}
			rows = append(rows, []string{
				groupLabel(i+1, j),
				similarity,
				filepath.Base(path),
				fileSize(path),
				filepath.Dir(path),
			})
		}
	}
	fmt.Fprintln(w, renderTable(
		[]string{"Group", "Similarity", "File", "Size", "Directory"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignLeft, alignRight, alignLeft},
	))
}

func groupLabel(group, member int) string {
	if member == 0 {
		return fmt.Sprintf("%d", group)
	}
	return ""
}

// WatchedMatches renders videos matching the watched reference set.
func WatchedMatches(w io.Writer, paths []string) {
	if len(paths) == 0 {
		fmt.Fprintln(w, "No videos matched the watched database.")
		return
	}

	fmt.Fprintf(w, "Found %d video(s) matching the watched database:\n", len(paths))
	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)
	rows := make([][]string, 0, len(sorted))
	for _, path := range sorted {
		rows = append(rows, []string{filepath.Base(path), fileSize(path), filepath.Dir(path)})
	}
	fmt.Fprintln(w, renderTable(
		[]string{"File", "Size", "Directory"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignLeft},
	))
}

// ScanSummary holds the counters a finished scan reports.
type ScanSummary struct {
	Discovered int
	CacheHits  int
	CacheStale int
	Computed   int
	Skipped    int
	Failed     int
}

// Summary renders the scan counters.
func Summary(w io.Writer, s ScanSummary) {
	rows := [][]string{
		{"Videos discovered", fmt.Sprintf("%d", s.Discovered)},
		{"Cache hits", fmt.Sprintf("%d", s.CacheHits)},
		{"Stale cache entries", fmt.Sprintf("%d", s.CacheStale)},
		{"Signatures computed", fmt.Sprintf("%d", s.Computed)},
		{"Skipped", fmt.Sprintf("%d", s.Skipped)},
		{"Failed", fmt.Sprintf("%d", s.Failed)},
	}
	fmt.Fprintln(w, renderTable(
		[]string{"Scan", "Count"},
		rows,
		[]columnAlignment{alignLeft, alignRight},
	))
}

// Inspect renders watched database statistics.
func Inspect(w io.Writer, path string, info watcheddb.Info) {
	frames := "unknown"
	hashSize := "unknown"
	if info.Params != nil {
		frames = fmt.Sprintf("%d", info.Params.NumFrames)
		hashSize = fmt.Sprintf("%d", info.Params.HashSize)
	}
	rows := [][]string{
		{"Database", path},
		{"Watched videos", fmt.Sprintf("%d", info.VideoCount)},
		{"Stored hashes", fmt.Sprintf("%d", info.HashCount)},
		{"Frames per video", frames},
		{"Hash size", hashSize},
	}
	fmt.Fprintln(w, renderTable(
		[]string{"Watched Database", "Value"},
		rows,
		[]columnAlignment{alignLeft, alignRight},
	))
}

func fileSize(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return "?"
	}
	return humanize.IBytes(uint64(info.Size()))
}
