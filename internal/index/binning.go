// Package index parses the BGZF binning indices (BAI/TBI/CSI) and the
// CRAM index (CRAI) of spec.md §4.3/§4.4, and answers the chunk-overlap
// queries the search engine issues against them.
package index

// Reg2Bins enumerates the bin IDs of a hierarchical binning index (the
// UCSC/samtools scheme) that could contain a feature overlapping the
// 0-based half-open region [beg, end), for a binning index with the
// given minShift (size of the smallest bin, log2) and depth (number of
// levels above the smallest). BAI and TBI use the fixed scheme
// minShift=14, depth=5; CSI carries its own minShift/depth in its
// header.
func Reg2Bins(beg, end int64, minShift, depth int) []uint32 {
	if beg >= end {
		return nil
	}
	maxPos := int64(1) << uint(minShift+depth*3)
	if end > maxPos {
		end = maxPos
	}
	end--

	var bins []uint32
	s := minShift + depth*3
	t := int64(0)
	for l, shift := 0, s; l <= depth; l, shift = l+1, shift-3 {
		b := t + (beg >> uint(shift))
		e := t + (end >> uint(shift))
		for ; b <= e; b++ {
			bins = append(bins, uint32(b))
		}
		t += int64(1) << uint((l<<1)+l)
	}
	return bins
}
