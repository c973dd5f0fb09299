package index

import (
	"testing"

	"github.com/ga4gh/htsget-gateway/internal/bgzf"
)

func vp(compressed uint64, uncompressed uint16) bgzf.VirtualPosition {
	return bgzf.NewVirtualPosition(compressed, uncompressed)
}

func newTestIndex() *BinningIndex {
	return &BinningIndex{
		MinShift: 14,
		Depth:    5,
		References: []Reference{
			{
				Bins: map[uint32]Bin{
					0: {Chunks: []bgzf.Chunk{{Start: vp(1000, 0), End: vp(2000, 0)}}},
				},
				Intervals: []bgzf.VirtualPosition{vp(500, 0), vp(1500, 0)},
			},
		},
	}
}

func TestBinningIndexQueryPrunesChunksBelowLinearOffset(t *testing.T) {
	idx := newTestIndex()
	// A chunk ending before the linear-index offset of the query start
	// (compressed 500) cannot hold an overlapping record.
	bin := idx.References[0].Bins[0]
	bin.Chunks = append(bin.Chunks, bgzf.Chunk{Start: vp(100, 0), End: vp(400, 0)})
	idx.References[0].Bins[0] = bin
	chunks, err := idx.Query(0, 1, 1<<29)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(chunks) != 1 || chunks[0].End != vp(2000, 0) {
		t.Fatalf("expected only the bin 0 chunk ending past the linear offset, got %v", chunks)
	}
}

func TestBinningIndexQueryRejectsOutOfRangeReference(t *testing.T) {
	idx := newTestIndex()
	if _, err := idx.Query(5, 1, 100); err == nil {
		t.Fatal("expected an error for an out-of-range reference id")
	}
}

func TestBinningIndexQueryRejectsEmptyInterval(t *testing.T) {
	idx := newTestIndex()
	if _, err := idx.Query(0, 100, 100); err == nil {
		t.Fatal("expected an error for an empty interval")
	}
}

func TestBinningIndexIndexPositionsDedupsAndSorts(t *testing.T) {
	idx := newTestIndex()
	idx.References[0].Metadata = &ReferenceMetadata{Start: vp(2000, 0), End: vp(3000, 0)}
	positions := idx.IndexPositions()
	for i := 1; i < len(positions); i++ {
		if positions[i] <= positions[i-1] {
			t.Fatalf("positions not strictly ascending: %v", positions)
		}
	}
}

func TestBinningIndexLastFirstRecordStartPositionIgnoresZero(t *testing.T) {
	idx := &BinningIndex{References: []Reference{
		{Intervals: []bgzf.VirtualPosition{0, vp(500, 0), vp(300, 0)}},
	}}
	got, found := idx.LastFirstRecordStartPosition()
	if !found || got != vp(500, 0) {
		t.Fatalf("got (%v,%v), want (%v,true)", got, found, vp(500, 0))
	}
}

func TestBinningIndexLastFirstRecordStartPositionNoIntervalsNotFound(t *testing.T) {
	idx := &BinningIndex{References: []Reference{{}}}
	if _, found := idx.LastFirstRecordStartPosition(); found {
		t.Fatal("expected found=false when no reference carries a linear index")
	}
}

func TestBinningIndexIndexOfNameMissingReturnsFalse(t *testing.T) {
	idx := &BinningIndex{Names: []string{"chr1"}}
	if _, ok := idx.IndexOfName("chr9"); ok {
		t.Fatal("expected IndexOfName to report false for an unknown name")
	}
}
