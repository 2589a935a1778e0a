package hashing

// Status classifies the outcome of sampling one video.
type Status int

const (
	// StatusValid means the signature holds exactly the configured number of
	// frame hashes and participates in comparisons.
	StatusValid Status = iota
	// StatusSkipped means the video was too short or had too few frames.
	// Skips are a stable policy outcome and are cached.
	StatusSkipped
	// StatusFailed means the video could not be opened or decoded. Failures
	// are treated as possibly transient and are retried on the next run.
	StatusFailed
)

// Signature is the sampling result for one video.
type Signature struct {
	Status Status
	Hashes []FrameHash
	Err    error
}

// ValidSignature wraps an ordered frame hash sequence.
func ValidSignature(hashes []FrameHash) Signature {
	return Signature{Status: StatusValid, Hashes: hashes}
}

// SkippedSignature marks a video excluded by the skip policy.
func SkippedSignature() Signature {
	return Signature{Status: StatusSkipped}
}

// FailedSignature records a decode error.
func FailedSignature(err error) Signature {
	return Signature{Status: StatusFailed, Err: err}
}

// Compare scores two valid signatures as a similarity percentage in [0,100].
// Signatures of unequal length (or empty) score 0. The score is the average
// per-frame Hamming distance mapped onto the hash bit width:
//
//	similarity = max(0, (bits - avgDistance) / bits) * 100
//
// Compare is symmetric and returns 100 for identical sequences.
func Compare(a, b []FrameHash, hashSize int) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	hashBits := hashSize * hashSize
	if hashBits == 0 {
		return 0
	}
	total := 0
	for i := range a {
		total += a[i].Distance(b[i])
	}
	avg := float64(total) / float64(len(a))
	similarity := (float64(hashBits) - avg) / float64(hashBits) * 100
	if similarity < 0 {
		return 0
	}
	return similarity
}
