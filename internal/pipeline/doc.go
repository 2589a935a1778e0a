// Package pipeline runs the bounded worker pool that fills signature cache
// misses.
//
// Workers invoke the frame sampler in parallel across files; all result
// aggregation happens on the single controlling goroutine as completions
// arrive, so the shared maps are never touched concurrently. Valid and
// skipped outcomes are handed back for caching; failed outcomes are logged,
// excluded downstream, and deliberately not cached so transiently unreadable
// files are retried on the next run.
package pipeline
