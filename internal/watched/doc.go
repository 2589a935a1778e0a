// Package watched matches scanned videos against a reference hash set.
//
// The reference set is the union of frame hashes from all watched videos. A
// scanned video matches when the average of its per-frame minimum distances
// to the set is close enough, so a video matches even when its frames line up
// with different watched videos.
package watched
