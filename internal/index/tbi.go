package index

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/gzip"

	"github.com/ga4gh/htsget-gateway/internal/htserr"
)

var tbiMagic = [4]byte{'T', 'B', 'I', 1}

// TBIFormat identifies the column layout a TBI index was built for.
type TBIFormat int32

const (
	TBIFormatGeneric TBIFormat = 0
	TBIFormatSAM     TBIFormat = 1
	TBIFormatVCF     TBIFormat = 2
)

// ReadTBI parses a tabix index (.tbi). TBI files are BGZF/gzip
// compressed as a whole (unlike BAI).
func ReadTBI(r io.Reader) (*BinningIndex, error) {
	decompressed, err := decompressWhole(r)
	if err != nil {
		return nil, htserr.Wrap(htserr.ParseError, err, "decompressing TBI")
	}
	br := bytes.NewReader(decompressed)

	var magic [4]byte
	if _, err := io.ReadFull(br, magic[:]); err != nil {
		return nil, htserr.Wrap(htserr.ParseError, err, "reading TBI magic")
	}
	if magic != tbiMagic {
		return nil, htserr.New(htserr.ParseError, "not a TBI file (bad magic)")
	}

	nRef, err := readI32(br)
	if err != nil {
		return nil, err
	}
	if _, err := readI32(br); err != nil { // format
		return nil, err
	}
	if _, err := readI32(br); err != nil { // col_seq
		return nil, err
	}
	if _, err := readI32(br); err != nil { // col_beg
		return nil, err
	}
	if _, err := readI32(br); err != nil { // col_end
		return nil, err
	}
	if _, err := readI32(br); err != nil { // meta
		return nil, err
	}
	if _, err := readI32(br); err != nil { // skip
		return nil, err
	}
	lNm, err := readI32(br)
	if err != nil {
		return nil, err
	}
	nameBuf := make([]byte, lNm)
	if _, err := io.ReadFull(br, nameBuf); err != nil {
		return nil, err
	}
	names := splitNullTerminated(nameBuf)

	idx := &BinningIndex{MinShift: 14, Depth: 5, Names: names, References: make([]Reference, nRef)}
	for i := int32(0); i < nRef; i++ {
		ref, err := readBAIReference(br)
		if err != nil {
			return nil, htserr.Wrap(htserr.ParseError, err, "reading TBI reference %d", i)
		}
		idx.References[i] = ref
	}

	if v, err := readU64(br); err == nil {
		idx.UnplacedUnmappedCount = &v
	}

	return idx, nil
}

func splitNullTerminated(buf []byte) []string {
	var names []string
	start := 0
	for i, b := range buf {
		if b == 0 {
			if i > start {
				names = append(names, string(buf[start:i]))
			}
			start = i + 1
		}
	}
	if start < len(buf) {
		names = append(names, string(buf[start:]))
	}
	return names
}

// decompressWhole fully gzip-decompresses a small, whole-file index
// stream (TBI/CSI are small relative to the data they index, and are
// read fully into memory per spec.md §5 "Bounded memory").
func decompressWhole(r io.Reader) ([]byte, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer gz.Close()
	gz.Multistream(true)
	return io.ReadAll(gz)
}
