package search

import (
	"testing"

	"github.com/ga4gh/htsget-gateway/internal/bgzf"
	"github.com/ga4gh/htsget-gateway/internal/index"
)

func newBAMFixture() *BAMSearch {
	idx := &index.BinningIndex{
		MinShift: 14,
		Depth:    5,
		References: []index.Reference{
			{
				Bins: map[uint32]index.Bin{
					0: {Chunks: []bgzf.Chunk{{Start: vp(1000, 0), End: vp(2000, 0)}}},
				},
				Intervals: []bgzf.VirtualPosition{vp(500, 0)},
			},
		},
	}
	return &BAMSearch{
		engine: &bgzfEngine{Index: idx, FileSize: 10028, EOFMarker: bgzf.EOF},
		index:  idx,
	}
}

func TestBAMGetByteRangesForAllSpansWholeBodyToEOF(t *testing.T) {
	s := newBAMFixture()
	positions, err := s.GetByteRangesForAll(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(positions) != 1 || *positions[0].Start != 0 {
		t.Fatalf("positions = %v, want single [0, EOF) range", positions)
	}
}

func TestBAMGetEOFDataBlockMatchesFixedMarker(t *testing.T) {
	s := newBAMFixture()
	data, ok := s.GetEOFDataBlock()
	if !ok {
		t.Fatal("expected ok=true")
	}
	if len(data) != len(bgzf.EOF) {
		t.Fatalf("eof marker length = %d, want %d", len(data), len(bgzf.EOF))
	}
}

func TestBAMGetByteRangesForUnmappedReadsUsesLastLinearIndexBin(t *testing.T) {
	s := newBAMFixture()
	positions, err := s.GetByteRangesForUnmappedReads(nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(positions) != 1 {
		t.Fatalf("expected a single position, got %d", len(positions))
	}
	if *positions[0].Start != 500 {
		t.Fatalf("start = %d, want 500 (the last linear-index bin's first record)", *positions[0].Start)
	}
	if *positions[0].End != s.engine.positionAtEOF() {
		t.Fatalf("end = %d, want position-at-EOF %d", *positions[0].End, s.engine.positionAtEOF())
	}
}

func TestBAMGetByteRangesForUnmappedReadsFallsBackToHeaderEndWithoutLinearIndex(t *testing.T) {
	s := newBAMFixture()
	s.index.References[0].Intervals = nil

	positions, err := s.GetByteRangesForUnmappedReads(nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *positions[0].Start != s.engine.GetHeaderEndOffset() {
		t.Fatalf("start = %d, want header end offset %d", *positions[0].Start, s.engine.GetHeaderEndOffset())
	}
}
