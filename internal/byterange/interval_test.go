package byterange

import "testing"

func TestIntervalContainsTreatsAbsentBoundsAsInfinite(t *testing.T) {
	iv := NewInterval(U32Ptr(10), U32Ptr(20))
	if !iv.Contains(10) || iv.Contains(20) || iv.Contains(9) {
		t.Fatalf("Contains boundary behaviour wrong for %+v", iv)
	}

	unbounded := NewInterval(nil, nil)
	if !unbounded.Contains(0) || !unbounded.Contains(1 << 20) {
		t.Fatal("expected an unbounded interval to contain everything")
	}
}

func TestIntervalStartOrEndOrDefaults(t *testing.T) {
	iv := NewInterval(nil, nil)
	if iv.StartOr(5) != 5 || iv.EndOr(9) != 9 {
		t.Fatalf("expected defaults to be used for absent bounds")
	}
	iv2 := NewInterval(U32Ptr(1), U32Ptr(2))
	if iv2.StartOr(5) != 1 || iv2.EndOr(9) != 2 {
		t.Fatalf("expected explicit bounds to override defaults")
	}
}

func TestIntervalToOneBasedConvertsHalfOpenToInclusive(t *testing.T) {
	iv := NewInterval(U32Ptr(0), U32Ptr(100))
	start, end := iv.ToOneBased()
	if start != 1 || end != 100 {
		t.Fatalf("ToOneBased = (%d,%d), want (1,100)", start, end)
	}
}

func TestIntervalToOneBasedUnboundedUsesMaxInt32(t *testing.T) {
	iv := NewInterval(nil, nil)
	start, end := iv.ToOneBased()
	if start != 1 {
		t.Fatalf("start = %d, want 1", start)
	}
	if end <= int64(1)<<30 {
		t.Fatalf("expected a very large end bound for an unbounded interval, got %d", end)
	}
}

func TestIntervalToOneBasedNeverReturnsEndBeforeStart(t *testing.T) {
	iv := NewInterval(U32Ptr(100), U32Ptr(50))
	start, end := iv.ToOneBased()
	if end < start {
		t.Fatalf("end (%d) < start (%d)", end, start)
	}
}
