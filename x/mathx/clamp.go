package mathx

import "golang.org/x/exp/constraints"

// Clamp limits v to [lo, hi]. If lo > hi, the bounds are swapped.
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if hi < lo {
		lo, hi = hi, lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampU8 narrows an integer to a byte, saturating at 0 and 255.
func ClampU8[T constraints.Integer](v T) uint8 {
	if v < 0 {
		return 0
	}
	if uint64(v) > 255 {
		return 255
	}
	return uint8(v)
}

// ClampU32 narrows an integer to [0, hi].
func ClampU32[T constraints.Integer](v T, hi uint32) uint32 {
	if v < 0 {
		return 0
	}
	if uint64(v) > uint64(hi) {
		return hi
	}
	return uint32(v)
}
