// Package byterange implements the pure byte-position algebra of
// spec.md §4.1: half-open genomic intervals, byte-offset positions,
// merging, and HTTP Range rendering. None of this package performs I/O.
package byterange

import "math"

// Interval is a half-open [Start, End) genomic coordinate range, 0-based.
// Either bound may be absent, meaning unbounded in that direction.
type Interval struct {
	Start *uint32
	End   *uint32
}

// NewInterval builds an Interval from optional bounds.
func NewInterval(start, end *uint32) Interval {
	return Interval{Start: start, End: end}
}

// Contains reports whether x falls within the interval, treating absent
// bounds as ±infinity.
func (iv Interval) Contains(x uint32) bool {
	if iv.Start != nil && x < *iv.Start {
		return false
	}
	if iv.End != nil && x >= *iv.End {
		return false
	}
	return true
}

// StartOr returns the start bound, or def if absent.
func (iv Interval) StartOr(def uint32) uint32 {
	if iv.Start == nil {
		return def
	}
	return *iv.Start
}

// EndOr returns the end bound, or def if absent.
func (iv Interval) EndOr(def uint32) uint32 {
	if iv.End == nil {
		return def
	}
	return *iv.End
}

// ToOneBased converts the half-open 0-based interval into the inclusive
// 1-based interval used by BAI/TBI/CSI binning queries. An absent start
// becomes 1; an absent end becomes the maximum representable coordinate.
func (iv Interval) ToOneBased() (start, end int64) {
	s := iv.StartOr(0)
	e := iv.EndOr(math.MaxInt32)
	start = int64(s) + 1
	end = int64(e)
	if end < start {
		end = start
	}
	return start, end
}

// U32Ptr is a small helper for building Interval literals.
func U32Ptr(v uint32) *uint32 { return &v }
