// Package bgzf provides the BGZF container primitives of spec.md §4.3/
// §6.2: virtual positions, chunks, the BGZF EOF marker, a block reader
// built on klauspost/compress/gzip, and the GZI auxiliary index.
package bgzf

// VirtualPosition packs a compressed block offset and an uncompressed
// within-block offset into a single 64-bit value, as used throughout
// BAI/TBI/CSI and the BAM/BCF/VCF.gz container format.
type VirtualPosition uint64

// NewVirtualPosition packs compressed (48 bits) and uncompressed (16
// bits) offsets into a VirtualPosition.
func NewVirtualPosition(compressed uint64, uncompressed uint16) VirtualPosition {
	return VirtualPosition(compressed<<16 | uint64(uncompressed))
}

// Compressed returns the compressed (BGZF block start) offset.
func (v VirtualPosition) Compressed() uint64 { return uint64(v) >> 16 }

// Uncompressed returns the within-block uncompressed offset.
func (v VirtualPosition) Uncompressed() uint16 { return uint16(uint64(v) & 0xffff) }

// Chunk is a (start, end) pair of virtual positions representing the
// byte span of a region within a BGZF file, as recorded in BAI/TBI/CSI.
type Chunk struct {
	Start VirtualPosition
	End   VirtualPosition
}

// MaxBlockISize is the maximum uncompressed size of a single BGZF block
// (spec.md §3 "Max BGZF block isize").
const MaxBlockISize = 1 << 16

// EOF is the fixed 28-byte BGZF end-of-file marker (spec.md §6.2).
var EOF = []byte{
	0x1f, 0x8b, 0x08, 0x04, 0x00, 0x00, 0x00, 0x00, 0x00, 0xff, 0x06, 0x00,
	0x42, 0x43, 0x02, 0x00, 0x1b, 0x00, 0x03, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00,
}
