package container

import (
	"bufio"
	"io"

	"github.com/ga4gh/htsget-gateway/internal/cramformat"
)

// ReadCRAMHeader reads a CRAM file's definition and header container
// from r (a plain, uncompressed byte stream; CRAM does not use BGZF)
// and returns its reference-sequence names. Byte-range resolution for
// CRAM bodies does not need the full header boundary the way BGZF
// formats do: it is driven entirely by the CRAI index (spec.md §4.6.2).
func ReadCRAMHeader(r io.Reader) (Header, error) {
	br := bufio.NewReader(r)
	h, err := cramformat.ReadHeader(br)
	if err != nil {
		return Header{}, err
	}
	return Header{ReferenceSequenceNames: h.ReferenceSequenceNames}, nil
}
