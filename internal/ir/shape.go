package ir

import (
	"fmt"
	"strings"
)

// Shape represents the dimensions of a tensor.
type Shape []int

// Rank returns the number of axes.
func (s Shape) Rank() int {
	return len(s)
}

// NumElements returns the total number of elements in the tensor.
func (s Shape) NumElements() int {
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Validate checks that every dimension is non-negative. Zero-size axes are
// legal; the memory planner maps them to zero bytes.
func (s Shape) Validate() error {
	for i, dim := range s {
		if dim < 0 {
			return fmt.Errorf("invalid dimension at index %d: %d (must be >= 0)", i, dim)
		}
	}
	return nil
}

// Equal checks if two shapes are equal.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	clone := make(Shape, len(s))
	copy(clone, s)
	return clone
}

// String renders the shape as [d0 d1 ...].
func (s Shape) String() string {
	parts := make([]string, len(s))
	for i, dim := range s {
		parts[i] = fmt.Sprintf("%d", dim)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Broadcast computes the common shape of a and b under NumPy-style rules.
//
// Shapes are aligned at the trailing axis; the shorter one is padded on the
// left with size-1 axes. Per aligned pair the result is the common size, or
// the non-1 size when exactly one of the pair is 1. Differing sizes where
// neither is 1 are incompatible.
//
// The function is pure and symmetric: Broadcast(a, b) == Broadcast(b, a).
//
// Examples:
//
//	Broadcast([2 1 4], [3 4]) → [2 3 4]
//	Broadcast([5], [1])       → [5]
//	Broadcast([2 3], [2 4])   → error
func Broadcast(a, b Shape) (Shape, error) {
	maxRank := len(a)
	if len(b) > maxRank {
		maxRank = len(b)
	}
	result := make(Shape, maxRank)

	for i := 0; i < maxRank; i++ {
		aDim, bDim := 1, 1
		if idx := len(a) - 1 - i; idx >= 0 {
			aDim = a[idx]
		}
		if idx := len(b) - 1 - i; idx >= 0 {
			bDim = b[idx]
		}

		switch {
		case aDim == bDim:
			result[maxRank-1-i] = aDim
		case aDim == 1:
			result[maxRank-1-i] = bDim
		case bDim == 1:
			result[maxRank-1-i] = aDim
		default:
			return nil, fmt.Errorf("cannot broadcast %v with %v: axis sizes %d and %d", a, b, aDim, bDim)
		}
	}
	return result, nil
}

// normalizeAxis maps a possibly negative axis onto [0, rank).
func normalizeAxis(axis, rank int) (int, error) {
	if rank < 1 {
		return 0, fmt.Errorf("axis %d on rank-%d shape", axis, rank)
	}
	if axis < -rank || axis > rank-1 {
		return 0, fmt.Errorf("axis %d out of range for rank %d", axis, rank)
	}
	if axis < 0 {
		return axis + rank, nil
	}
	return axis, nil
}
