// Package sampler produces perceptual video signatures by decoding a handful
// of evenly spaced frames and average-hashing each one.
//
// The default implementation shells out to ffprobe for container metadata and
// ffmpeg for frame extraction, so no video codecs are linked into the binary.
// Videos shorter than the configured minimum duration, or with fewer frames
// than the sample count, are reported as skipped; any probe or decode failure
// is reported as failed and retried on a later run. The Sampler interface
// lets the pipeline and tests substitute a stub.
package sampler
