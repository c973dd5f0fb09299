package index

import (
	"bytes"
	"io"

	"github.com/ga4gh/htsget-gateway/internal/bgzf"
	"github.com/ga4gh/htsget-gateway/internal/htserr"
)

var csiMagic = [4]byte{'C', 'S', 'I', 1}

// ReadCSI parses a coordinate-sorted index (.csi), as used by BCF and
// optionally BAM/VCF. Unlike BAI/TBI, CSI carries its own min_shift and
// depth, and stores a linear-filtering offset per bin rather than a
// separate linear index.
func ReadCSI(r io.Reader) (*BinningIndex, error) {
	decompressed, err := decompressWhole(r)
	if err != nil {
		return nil, htserr.Wrap(htserr.ParseError, err, "decompressing CSI")
	}
	br := bytes.NewReader(decompressed)

	var magic [4]byte
	if _, err := io.ReadFull(br, magic[:]); err != nil {
		return nil, htserr.Wrap(htserr.ParseError, err, "reading CSI magic")
	}
	if magic != csiMagic {
		return nil, htserr.New(htserr.ParseError, "not a CSI file (bad magic)")
	}

	minShift, err := readI32(br)
	if err != nil {
		return nil, err
	}
	depth, err := readI32(br)
	if err != nil {
		return nil, err
	}
	lAux, err := readI32(br)
	if err != nil {
		return nil, err
	}
	aux := make([]byte, lAux)
	if _, err := io.ReadFull(br, aux); err != nil {
		return nil, err
	}
	names := parseCSIAuxNames(aux)

	nRef, err := readI32(br)
	if err != nil {
		return nil, err
	}

	idx := &BinningIndex{MinShift: int(minShift), Depth: int(depth), Names: names, References: make([]Reference, nRef)}
	for i := int32(0); i < nRef; i++ {
		ref, err := readCSIReference(br)
		if err != nil {
			return nil, htserr.Wrap(htserr.ParseError, err, "reading CSI reference %d", i)
		}
		idx.References[i] = ref
	}

	if v, err := readU64(br); err == nil {
		idx.UnplacedUnmappedCount = &v
	}

	return idx, nil
}

func readCSIReference(r io.Reader) (Reference, error) {
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
		loffset, err := readU64(r)
		if err != nil {
			return Reference{}, err
		}
		nChunk, err := readI32(r)
		if err != nil {
			return Reference{}, err
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
		ref.Bins[binID] = Bin{Chunks: chunks, Loffset: bgzf.VirtualPosition(loffset)}
	}

	return ref, nil
}

// parseCSIAuxNames parses the optional tabix-compatible auxiliary
// header BCF/CSI may embed (format, col_seq, col_beg, col_end, meta,
// skip, l_nm, names...), returning the reference sequence names if
// present, or nil if the aux block is absent or too short to hold them
// (plain samtools CSI files over BAM carry no name table; BCF's CSI
// does, mirroring TBI's layout).
func parseCSIAuxNames(aux []byte) []string {
	if len(aux) < 28 {
		return nil
	}
	br := bytes.NewReader(aux)
	for i := 0; i < 6; i++ {
		if _, err := readI32(br); err != nil {
			return nil
		}
	}
	lNm, err := readI32(br)
	if err != nil || lNm <= 0 || int(lNm) > br.Len() {
		return nil
	}
	nameBuf := make([]byte, lNm)
	if _, err := io.ReadFull(br, nameBuf); err != nil {
		return nil
	}
	return splitNullTerminated(nameBuf)
}
