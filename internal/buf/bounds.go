// Package buf holds the overflow-checked size arithmetic shared by the allocator
// and the buffer growth policy.
package buf

import "math"

// AddOverflowSafe adds a and b, returning ok = false when the result would overflow int.
func AddOverflowSafe(a, b int) (int, bool) {
	switch {
	case b > 0 && a > math.MaxInt-b:
		return 0, false
	case b < 0 && a < math.MinInt-b:
		return 0, false
	default:
		return a + b, true
	}
}

// MulOverflowSafe multiplies two non-negative sizes, returning ok = false when the
// result would overflow int. Negative operands are rejected.
func MulOverflowSafe(a, b int) (int, bool) {
	if a < 0 || b < 0 {
		return 0, false
	}
	if a == 0 || b == 0 {
		return 0, true
	}
	if a > math.MaxInt/b {
		return 0, false
	}
	return a * b, true
}

// AlignUp rounds n up to the next multiple of align, which must be a power of two.
// ok is false when n is negative or rounding would overflow int.
func AlignUp(n, align int) (int, bool) {
	if n < 0 || align <= 0 || align&(align-1) != 0 {
		return 0, false
	}
	end, ok := AddOverflowSafe(n, align-1)
	if !ok {
		return 0, false
	}
	return end &^ (align - 1), true
}

// Double returns 2*max(a, b), the amortized growth step used for capacities.
func Double(a, b int) (int, bool) {
	return MulOverflowSafe(max(a, b), 2)
}
