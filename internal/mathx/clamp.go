// Package mathx holds small generic numeric helpers.
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

// Floor limits v from below only.
func Floor[T constraints.Ordered](v, lo T) T {
	if v < lo {
		return lo
	}
	return v
}

// Between reports lo < v && v < hi. Both bounds are exclusive.
func Between[T constraints.Ordered](v, lo, hi T) bool {
	return v > lo && v < hi
}
