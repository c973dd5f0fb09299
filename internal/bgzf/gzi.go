package bgzf

import (
	"encoding/binary"
	"io"

	"github.com/ga4gh/htsget-gateway/internal/htserr"
)

// GZIEntry is a single (compressed, uncompressed) offset pair from a GZI
// file, used as a precise oracle for "where does the next BGZF block
// start" (spec.md §4.3/§9).
type GZIEntry struct {
	Compressed   uint64
	Uncompressed uint64
}

// ReadGZI parses a GZI auxiliary index: a uint64 count, followed by
// that many (compressed, uncompressed) uint64 pairs, all little-endian
// (spec.md §6.2). The returned slice is sorted ascending by Compressed,
// as produced by bgzip and already guaranteed by the format.
func ReadGZI(r io.Reader) ([]GZIEntry, error) {
	var count uint64
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, htserr.Wrap(htserr.ParseError, err, "reading GZI entry count")
	}
	entries := make([]GZIEntry, 0, count)
	for i := uint64(0); i < count; i++ {
		var c, u uint64
		if err := binary.Read(r, binary.LittleEndian, &c); err != nil {
			return nil, htserr.Wrap(htserr.ParseError, err, "reading GZI compressed offset %d", i)
		}
		if err := binary.Read(r, binary.LittleEndian, &u); err != nil {
			return nil, htserr.Wrap(htserr.ParseError, err, "reading GZI uncompressed offset %d", i)
		}
		entries = append(entries, GZIEntry{Compressed: c, Uncompressed: u})
	}
	return entries, nil
}

// NextBoundaryAfter returns the first compressed offset in entries
// (assumed sorted ascending) that is strictly greater than after,
// advancing cursor past any entries it skips. It is designed to be
// called repeatedly with increasing `after` values against a shared,
// monotonically advancing cursor (spec.md §4.6.1's "the positions
// iterator is shared across chunks, not reset").
func NextBoundaryAfter(entries []uint64, cursor *int, after uint64) (uint64, bool) {
	for *cursor < len(entries) {
		v := entries[*cursor]
		if v > after {
			return v, true
		}
		*cursor++
	}
	return 0, false
}
