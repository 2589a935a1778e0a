package hashing

import (
	"fmt"
	"math/bits"
	"strings"
)

const hexDigits = "0123456789abcdef"

// FrameHash is a fixed-width perceptual hash of a single video frame.
// The zero value is an empty hash with no bits; hashes are immutable once
// built.
type FrameHash struct {
	bits  int
	words []uint64
}

// NewFrameHash builds a hash of size*size bits from a row-major bit slice.
// The slice length must equal size*size.
func NewFrameHash(size int, set []bool) (FrameHash, error) {
	total := size * size
	if size <= 1 {
		return FrameHash{}, fmt.Errorf("frame hash size must be greater than 1, got %d", size)
	}
	if len(set) != total {
		return FrameHash{}, fmt.Errorf("frame hash needs %d bits, got %d", total, len(set))
	}
	words := make([]uint64, (total+63)/64)
	for i, on := range set {
		if on {
			words[i/64] |= 1 << uint(63-i%64)
		}
	}
	return FrameHash{bits: total, words: words}, nil
}

// Bits returns the total bit width of the hash.
func (h FrameHash) Bits() int { return h.bits }

// IsZero reports whether the hash is the empty zero value.
func (h FrameHash) IsZero() bool { return h.bits == 0 }

// Bit returns bit i in row-major order.
func (h FrameHash) Bit(i int) bool {
	if i < 0 || i >= h.bits {
		return false
	}
	return h.words[i/64]&(1<<uint(63-i%64)) != 0
}

// Distance returns the Hamming distance to other. Hashes of different widths
// never match: the wider bit count is returned as a maximal penalty distance.
func (h FrameHash) Distance(other FrameHash) int {
	if h.bits != other.bits {
		if other.bits > h.bits {
			return other.bits
		}
		return h.bits
	}
	total := 0
	for i := range h.words {
		total += bits.OnesCount64(h.words[i] ^ other.words[i])
	}
	return total
}

// Equal reports whether two hashes have identical width and bits.
func (h FrameHash) Equal(other FrameHash) bool {
	return h.bits == other.bits && h.Distance(other) == 0
}

// String returns the canonical lowercase-hex encoding: bits in row-major
// order, four per hex digit, most significant bit first.
func (h FrameHash) String() string {
	if h.bits == 0 {
		return ""
	}
	digits := (h.bits + 3) / 4
	var sb strings.Builder
	sb.Grow(digits)
	for d := 0; d < digits; d++ {
		nibble := 0
		for b := 0; b < 4; b++ {
			i := d*4 + b
			if i < h.bits && h.Bit(i) {
				nibble |= 1 << uint(3-b)
			}
		}
		sb.WriteByte(hexDigits[nibble])
	}
	return sb.String()
}

// ParseHash decodes the canonical hex encoding of a size*size-bit hash.
func ParseHash(encoded string, size int) (FrameHash, error) {
	total := size * size
	if size <= 1 {
		return FrameHash{}, fmt.Errorf("frame hash size must be greater than 1, got %d", size)
	}
	digits := (total + 3) / 4
	encoded = strings.ToLower(strings.TrimSpace(encoded))
	if len(encoded) != digits {
		return FrameHash{}, fmt.Errorf("hash %q has %d digits, want %d for size %d", encoded, len(encoded), digits, size)
	}
	set := make([]bool, total)
	for d, c := range []byte(encoded) {
		nibble := strings.IndexByte(hexDigits, c)
		if nibble < 0 {
			return FrameHash{}, fmt.Errorf("hash %q contains non-hex digit %q", encoded, c)
		}
		for b := 0; b < 4; b++ {
			i := d*4 + b
			if i >= total {
				if nibble&(1<<uint(3-b)) != 0 {
					return FrameHash{}, fmt.Errorf("hash %q sets padding bits beyond %d", encoded, total)
				}
				continue
			}
			set[i] = nibble&(1<<uint(3-b)) != 0
		}
	}
	return NewFrameHash(size, set)
}
