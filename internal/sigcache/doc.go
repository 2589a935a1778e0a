// Package sigcache persists per-video frame hash signatures between runs so
// unchanged videos are never re-decoded.
//
// The cache is a JSON file stored beside the scanned directory under a
// configurable base name. Each record carries the source file's mtime and the
// hashing parameters in effect when it was written; an entry is only served
// when all three still match, otherwise the video is recomputed. Entries for
// files no longer present in the scan are pruned. An unreadable or corrupt
// cache degrades to an empty one for the run; it never aborts the pipeline.
//
// The store is single-writer: a flock guards the file for the open/close
// window, and within a run the cache is read once before hash dispatch and
// written once after every worker has finished.
package sigcache
