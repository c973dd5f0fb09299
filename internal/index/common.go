package index

import (
	"sort"

	"github.com/ga4gh/htsget-gateway/internal/bgzf"
	"github.com/ga4gh/htsget-gateway/internal/htserr"
)

// Bin holds the chunks recorded for one bin of a binning index, plus
// (CSI only) the bin's own linear-filtering offset.
type Bin struct {
	Chunks  []bgzf.Chunk
	Loffset bgzf.VirtualPosition // CSI only; zero for BAI/TBI
}

// ReferenceMetadata is the optional per-reference-sequence metadata
// pseudo-bin (bin 37450 in BAI/TBI): the virtual position span of the
// reference's records and its unmapped-read count.
type ReferenceMetadata struct {
	Start          bgzf.VirtualPosition
	End            bgzf.VirtualPosition
	MappedCount    uint64
	UnmappedCount  uint64
}

// Reference holds one reference sequence's bins and linear index.
type Reference struct {
	Bins      map[uint32]Bin
	Intervals []bgzf.VirtualPosition // BAI/TBI linear index; empty for CSI
	Metadata  *ReferenceMetadata
}

// BinningIndex is the shared representation produced by parsing a
// BAI, TBI, or CSI file (spec.md §4.3).
type BinningIndex struct {
	MinShift           int
	Depth              int
	References         []Reference
	Names              []string // populated for TBI; empty for BAI/CSI
	UnplacedUnmappedCount *uint64
}

// Query enumerates the bins overlapping the 1-based closed interval
// [begOneBased, endOneBased] for refSeqID, collects their chunks, prunes
// using the minimum linear/per-bin offset, and sorts by End ascending
// (spec.md §4.3 "query").
func (idx *BinningIndex) Query(refSeqID int, begOneBased, endOneBased int64) ([]bgzf.Chunk, error) {
	if refSeqID < 0 || refSeqID >= len(idx.References) {
		return nil, htserr.New(htserr.InvalidRange, "reference sequence id %d out of range", refSeqID)
	}
	beg0 := begOneBased - 1
	end0 := endOneBased
	if beg0 < 0 {
		beg0 = 0
	}
	if end0 <= beg0 {
		return nil, htserr.New(htserr.InvalidRange, "empty or invalid interval [%d,%d)", beg0, end0)
	}

	ref := idx.References[refSeqID]
	binIDs := Reg2Bins(beg0, end0, idx.MinShift, idx.Depth)

	var chunks []bgzf.Chunk
	var minOffset uint64
	haveMinOffset := false

	if len(ref.Intervals) > 0 {
		// BAI/TBI: the linear index bucket for beg0 gives the minimum
		// virtual offset any overlapping record could start at.
		bucket := beg0 >> uint(idx.MinShift)
		if bucket >= 0 && int(bucket) < len(ref.Intervals) {
			minOffset = uint64(ref.Intervals[bucket])
			haveMinOffset = true
		}
	}

	for _, id := range binIDs {
		bin, ok := ref.Bins[id]
		if !ok {
			continue
		}
		if bin.Loffset != 0 {
			// CSI: take the minimum per-bin loffset across selected bins.
			if !haveMinOffset || uint64(bin.Loffset) < minOffset {
				minOffset = uint64(bin.Loffset)
				haveMinOffset = true
			}
		}
		chunks = append(chunks, bin.Chunks...)
	}

	if haveMinOffset {
		pruned := chunks[:0]
		for _, c := range chunks {
			if uint64(c.End) > minOffset {
				pruned = append(pruned, c)
			}
		}
		chunks = pruned
	}

	sort.Slice(chunks, func(i, j int) bool {
		return chunks[i].End.Compressed() < chunks[j].End.Compressed()
	})

	return chunks, nil
}

// IndexPositions returns the union of all chunk endpoints and all
// metadata endpoints (compressed offsets only), sorted ascending, for
// use as a GZI fallback oracle (spec.md §4.3/§9).
func (idx *BinningIndex) IndexPositions() []uint64 {
	seen := map[uint64]struct{}{}
	var out []uint64
	add := func(v uint64) {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	for _, ref := range idx.References {
		for _, bin := range ref.Bins {
			for _, c := range bin.Chunks {
				add(c.Start.Compressed())
				add(c.End.Compressed())
			}
		}
		for _, vp := range ref.Intervals {
			add(vp.Compressed())
		}
		if ref.Metadata != nil {
			add(ref.Metadata.Start.Compressed())
			add(ref.Metadata.End.Compressed())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// LastFirstRecordStartPosition returns the virtual position of the
// first record of the last linear-index bin across all reference
// sequences — BAI's anchor for the start of the unplaced-unmapped
// segment (spec.md §4.3).
func (idx *BinningIndex) LastFirstRecordStartPosition() (bgzf.VirtualPosition, bool) {
	var best bgzf.VirtualPosition
	found := false
	for _, ref := range idx.References {
		for _, vp := range ref.Intervals {
			if vp == 0 {
				continue
			}
			if !found || vp > best {
				best = vp
				found = true
			}
		}
	}
	return best, found
}

// ReferenceSequenceNames returns the ordered reference sequence names
// (TBI only).
func (idx *BinningIndex) ReferenceSequenceNames() []string {
	return idx.Names
}

// IndexOfName returns the index of name within Names, if present.
func (idx *BinningIndex) IndexOfName(name string) (int, bool) {
	for i, n := range idx.Names {
		if n == name {
			return i, true
		}
	}
	return -1, false
}
