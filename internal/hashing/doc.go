// Package hashing defines the perceptual frame hash value type, the video
// signature variants built from it, and the whole-signature similarity
// comparison used by the duplicate and watched matchers.
//
// A FrameHash is an immutable bit vector of hashSize x hashSize bits with
// Hamming distance and a canonical lowercase-hex encoding compatible across
// runs and stores. A video signature is either Valid (exactly the configured
// number of frame hashes, in sample order), Skipped (video too short; a
// policy outcome, not an error), or Failed (decode error).
package hashing
