package matcher

import (
	"errors"
	"fmt"

	"github.com/menta2k/image-dedup/pkg/bithash"
)

// ErrShapeMismatch is returned when two hashes have different sizes.
var ErrShapeMismatch = errors.New("matcher: hash sizes differ")

// Hamming counts the bit positions in which a and b differ. The DC bit at
// [0][0] never contributes, so the result lies in [0, K²-1].
func Hamming(a, b bithash.HashMatrix) (int, error) {
	if a.Size() != b.Size() {
		return 0, fmt.Errorf("%w: %d vs %d", ErrShapeMismatch, a.Size(), b.Size())
	}

	distance := 0
	for r := 0; r < a.Size(); r++ {
		for c := 0; c < a.Size(); c++ {
			if a.Bit(r, c) != b.Bit(r, c) {
				distance++
			}
		}
	}
	if a.Size() > 0 && a.Bit(0, 0) != b.Bit(0, 0) {
		distance--
	}
	return distance, nil
}
