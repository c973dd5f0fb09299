// Package container reads just enough of each htsget-supported file
// format (BAM, CRAM, VCF, BCF) to resolve reference-sequence names to
// ids and to find the exact byte/virtual-position boundary between the
// header and the first record, matching spec.md §4.5.
package container

// Header is the subset of a file's header every format exposes:
// reference sequence names in on-disk order, which line up 1:1 with
// the reference ids used by the BAI/TBI/CSI/CRAI indices.
type Header struct {
	ReferenceSequenceNames []string
}

// IndexOfName returns the 0-based reference id for name, if present.
func (h Header) IndexOfName(name string) (int, bool) {
	for i, n := range h.ReferenceSequenceNames {
		if n == name {
			return i, true
		}
	}
	return 0, false
}
