package bgzf

import "testing"

func TestVirtualPositionPacksAndUnpacksCompressedAndUncompressed(t *testing.T) {
	vp := NewVirtualPosition(123456, 789)
	if vp.Compressed() != 123456 {
		t.Fatalf("Compressed() = %d, want 123456", vp.Compressed())
	}
	if vp.Uncompressed() != 789 {
		t.Fatalf("Uncompressed() = %d, want 789", vp.Uncompressed())
	}
}

func TestVirtualPositionZeroValueIsZeroZero(t *testing.T) {
	var vp VirtualPosition
	if vp.Compressed() != 0 || vp.Uncompressed() != 0 {
		t.Fatalf("zero value = (%d,%d), want (0,0)", vp.Compressed(), vp.Uncompressed())
	}
}

func TestVirtualPositionOrdersByCompressedThenUncompressed(t *testing.T) {
	a := NewVirtualPosition(100, 50)
	b := NewVirtualPosition(100, 51)
	c := NewVirtualPosition(101, 0)
	if !(a < b && b < c) {
		t.Fatalf("expected a < b < c, got a=%d b=%d c=%d", a, b, c)
	}
}

func TestEOFMarkerIs28Bytes(t *testing.T) {
	if len(EOF) != 28 {
		t.Fatalf("len(EOF) = %d, want 28", len(EOF))
	}
}
