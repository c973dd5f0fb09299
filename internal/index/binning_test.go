package index

import "testing"

func TestReg2BinsIncludesBinZeroForAnyRegion(t *testing.T) {
	bins := Reg2Bins(0, 100, 14, 5)
	found := false
	for _, b := range bins {
		if b == 0 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected bin 0 (the whole-reference bin) in %v", bins)
	}
}

func TestReg2BinsEmptyRegionReturnsNil(t *testing.T) {
	if bins := Reg2Bins(100, 100, 14, 5); bins != nil {
		t.Fatalf("expected nil for an empty region, got %v", bins)
	}
	if bins := Reg2Bins(200, 100, 14, 5); bins != nil {
		t.Fatalf("expected nil for beg > end, got %v", bins)
	}
}

func TestReg2BinsClampsEndToMaxPosition(t *testing.T) {
	maxPos := int64(1) << uint(14+5*3)
	withinRange := Reg2Bins(0, maxPos-1, 14, 5)
	clamped := Reg2Bins(0, maxPos*2, 14, 5)
	if len(clamped) != len(withinRange) {
		t.Fatalf("expected an out-of-range end to clamp to the same bin set, got %d vs %d bins", len(clamped), len(withinRange))
	}
}

func TestReg2BinsNarrowRegionStaysWithinSmallestBinLevel(t *testing.T) {
	bins := Reg2Bins(0, 1, 14, 5)
	if len(bins) == 0 {
		t.Fatal("expected at least one bin")
	}
}
