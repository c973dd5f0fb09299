package index

import (
	"encoding/binary"
	"io"

	"github.com/ga4gh/htsget-gateway/internal/bgzf"
	"github.com/ga4gh/htsget-gateway/internal/htserr"
)

var baiMagic = [4]byte{'B', 'A', 'I', 1}

// metadataBinID is the pseudo-bin samtools uses to carry per-reference
// metadata (mapped/unmapped counts, first/last virtual positions)
// inside an otherwise ordinary bin list.
const metadataBinID = 37450

// ReadBAI parses a BAM index (.bai). BAI files are stored uncompressed
// (unlike TBI/CSI, which are BGZF-compressed).
func ReadBAI(r io.Reader) (*BinningIndex, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, htserr.Wrap(htserr.ParseError, err, "reading BAI magic")
	}
	if magic != baiMagic {
		return nil, htserr.New(htserr.ParseError, "not a BAI file (bad magic)")
	}

	nRef, err := readI32(r)
	if err != nil {
		return nil, htserr.Wrap(htserr.ParseError, err, "reading BAI n_ref")
	}

	idx := &BinningIndex{MinShift: 14, Depth: 5, References: make([]Reference, nRef)}
	for i := int32(0); i < nRef; i++ {
		ref, err := readBAIReference(r)
		if err != nil {
			return nil, htserr.Wrap(htserr.ParseError, err, "reading BAI reference %d", i)
		}
		idx.References[i] = ref
	}

	// Trailing n_no_coor is optional (older files omit it).
	var nNoCoor uint64
	if err := binary.Read(r, binary.LittleEndian, &nNoCoor); err == nil {
		idx.UnplacedUnmappedCount = &nNoCoor
	}

	return idx, nil
}

func readBAIReference(r io.Reader) (Reference, error) {
	nBin, err := readI32(r)
	if err != nil {
		return Reference{}, err
	}

	ref := Reference{Bins: make(map[uint32]Bin, nBin)}
	for b := int32(0); b < nBin; b++ {
		binID, err := readU32(r)
		if err != nil {
			return Reference{}, err
		}
		nChunk, err := readI32(r)
		if err != nil {
			return Reference{}, err
		}

		if binID == metadataBinID && nChunk == 2 {
			// The metadata pseudo-bin packs four raw uint64 values, not
			// chunk virtual positions: ref_beg, ref_end, n_mapped, n_unmapped.
			refBeg, err := readU64(r)
			if err != nil {
				return Reference{}, err
			}
			refEnd, err := readU64(r)
			if err != nil {
				return Reference{}, err
			}
			nMapped, err := readU64(r)
			if err != nil {
				return Reference{}, err
			}
			nUnmapped, err := readU64(r)
			if err != nil {
				return Reference{}, err
			}
			ref.Metadata = &ReferenceMetadata{
				Start:         bgzf.VirtualPosition(refBeg),
				End:           bgzf.VirtualPosition(refEnd),
				MappedCount:   nMapped,
				UnmappedCount: nUnmapped,
			}
			continue
		}

		chunks := make([]bgzf.Chunk, nChunk)
		for c := int32(0); c < nChunk; c++ {
			beg, err := readU64(r)
			if err != nil {
				return Reference{}, err
			}
			end, err := readU64(r)
			if err != nil {
				return Reference{}, err
			}
			chunks[c] = bgzf.Chunk{Start: bgzf.VirtualPosition(beg), End: bgzf.VirtualPosition(end)}
		}
		ref.Bins[binID] = Bin{Chunks: chunks}
	}

	nIntv, err := readI32(r)
	if err != nil {
		return Reference{}, err
	}
	intervals := make([]bgzf.VirtualPosition, nIntv)
	for i := int32(0); i < nIntv; i++ {
		v, err := readU64(r)
		if err != nil {
			return Reference{}, err
		}
		intervals[i] = bgzf.VirtualPosition(v)
	}
	ref.Intervals = intervals

	return ref, nil
}

func readI32(r io.Reader) (int32, error) {
	var v int32
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}

func readU32(r io.Reader) (uint32, error) {
	var v uint32
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}

func readU64(r io.Reader) (uint64, error) {
	var v uint64
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}
