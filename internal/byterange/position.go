package byterange

import "sort"

// Class tags a byte position or data block as belonging to the container
// header or the record body. The zero value means "mixed/unknown".
type Class string

const (
	ClassHeader Class = "header"
	ClassBody   Class = "body"
)

// ClassPtr is a small helper for building Class pointers.
func ClassPtr(c Class) *Class { return &c }

// U64Ptr is a small helper for building optional uint64 bounds.
func U64Ptr(v uint64) *uint64 { return &v }

// sameClass returns a copy of the class shared by a and b, or nil if
// either is absent or they differ.
func sameClass(a, b *Class) *Class {
	if a == nil || b == nil {
		return nil
	}
	if *a == *b {
		c := *a
		return &c
	}
	return nil
}

// BytesPosition is a half-open [Start, End) span of bytes in the
// underlying file, with an optional Class tag. Either bound may be
// absent (open-ended).
type BytesPosition struct {
	Start *uint64
	End   *uint64
	Class *Class
}

// NewBytesPosition builds a BytesPosition from optional bounds and class.
func NewBytesPosition(start, end *uint64, class *Class) BytesPosition {
	return BytesPosition{Start: start, End: end, Class: class}
}

// WithStart returns a copy with Start set.
func (p BytesPosition) WithStart(start uint64) BytesPosition {
	p.Start = &start
	return p
}

// WithEnd returns a copy with End set.
func (p BytesPosition) WithEnd(end uint64) BytesPosition {
	p.End = &end
	return p
}

// WithClass returns a copy with Class set.
func (p BytesPosition) WithClass(class Class) BytesPosition {
	p.Class = &class
	return p
}

// Overlaps reports whether p and other overlap or are adjacent (no gap
// between them), per spec.md §3's BytesPosition invariants.
func (p BytesPosition) Overlaps(other BytesPosition) bool {
	cond1 := true
	if p.Start != nil && other.End != nil {
		cond1 = *other.End >= *p.Start
	}
	cond2 := true
	if p.End != nil && other.Start != nil {
		cond2 = *p.End >= *other.Start
	}
	return cond1 && cond2
}

// MergeWith merges other into p in place, assuming the two overlap. The
// merged start is the min of the two starts (None propagates as -infinity,
// i.e. wins), the merged end is the max of the two ends (None propagates
// as +infinity), and the class is preserved only if both sides agree.
func (p *BytesPosition) MergeWith(other BytesPosition) {
	switch {
	case p.Start == nil || other.Start == nil:
		p.Start = nil
	default:
		s := *p.Start
		if *other.Start < s {
			s = *other.Start
		}
		p.Start = &s
	}

	switch {
	case p.End == nil || other.End == nil:
		p.End = nil
	default:
		e := *p.End
		if *other.End > e {
			e = *other.End
		}
		p.End = &e
	}

	p.Class = sameClass(p.Class, other.Class)
}

// MergeAll sorts positions by (start ascending, end descending with
// None==+inf) and folds overlapping/adjacent entries, returning a
// minimal sorted list of non-overlapping positions. Pure, no I/O.
func MergeAll(positions []BytesPosition) []BytesPosition {
	if len(positions) < 2 {
		out := make([]BytesPosition, len(positions))
		copy(out, positions)
		return out
	}

	sorted := make([]BytesPosition, len(positions))
	copy(sorted, positions)

	sort.SliceStable(sorted, func(i, j int) bool {
		ai := uint64(0)
		if sorted[i].Start != nil {
			ai = *sorted[i].Start
		}
		bi := uint64(0)
		if sorted[j].Start != nil {
			bi = *sorted[j].Start
		}
		if ai != bi {
			return ai < bi
		}
		// Equal starts: descending end, with None (open-ended) sorting first.
		aEndOpen := sorted[i].End == nil
		bEndOpen := sorted[j].End == nil
		if aEndOpen != bEndOpen {
			return aEndOpen
		}
		if aEndOpen && bEndOpen {
			return false
		}
		return *sorted[i].End > *sorted[j].End
	})

	result := make([]BytesPosition, 0, len(sorted))
	current := sorted[0]
	for _, next := range sorted[1:] {
		if current.Overlaps(next) {
			current.MergeWith(next)
		} else {
			result = append(result, current)
			current = next
		}
	}
	result = append(result, current)
	return result
}

// BytesRange is the inclusive-inclusive view of a BytesPosition, used to
// render an HTTP Range header.
type BytesRange struct {
	Start *uint64
	End   *uint64
}

// FromBytesPosition converts a half-open BytesPosition into an
// inclusive-inclusive BytesRange by subtracting one from the end.
func FromBytesPosition(p BytesPosition) BytesRange {
	var end *uint64
	if p.End != nil {
		e := *p.End - 1
		end = &e
	}
	return BytesRange{Start: p.Start, End: end}
}

// HTTPRangeHeader renders the "bytes=a-b" form. An absent start renders
// as 0; an absent end renders as an open tail ("bytes=s-"); if both
// bounds are absent, the header should be omitted entirely — callers
// must check IsOpen first.
func (r BytesRange) HTTPRangeHeader() string {
	if r.Start == nil && r.End == nil {
		return ""
	}
	start := uint64(0)
	if r.Start != nil {
		start = *r.Start
	}
	if r.End == nil {
		return "bytes=" + itoa(start) + "-"
	}
	return "bytes=" + itoa(start) + "-" + itoa(*r.End)
}

// IsOpen reports whether both bounds are absent, in which case no Range
// header should be sent at all (the whole object is requested).
func (r BytesRange) IsOpen() bool {
	return r.Start == nil && r.End == nil
}

func itoa(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}
