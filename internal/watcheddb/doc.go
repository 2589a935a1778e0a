// Package watcheddb persists the cross-run watched-video reference set in
// SQLite.
//
// Each entry maps a video identifier (its path at registration time) to the
// set of frame hash strings observed for it. One global metadata row records
// the num_frames/hash_size parameters the store was built with; AddOrUpdate
// rewrites it unconditionally, so the last writer wins. A store whose
// metadata disagrees with the current run surfaces ErrParameterMismatch for
// an explicit user decision.
//
// The store is single-writer and single-process; loading tolerates a missing
// file, a corrupt file, and a legacy file without metadata.
package watcheddb
