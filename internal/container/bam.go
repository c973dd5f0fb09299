package container

import (
	"encoding/binary"
	"io"

	"github.com/ga4gh/htsget-gateway/internal/bgzf"
	"github.com/ga4gh/htsget-gateway/internal/htserr"
)

var bamMagic = [4]byte{'B', 'A', 'M', 1}

// ReadBAMHeader reads a BAM header from a positioned bgzf.Reader
// (conventionally at virtual position 0) and returns the parsed header
// together with the virtual position of the first alignment record,
// i.e. the header/body boundary spec.md §4.6.1 calls header_end.
func ReadBAMHeader(r *bgzf.Reader) (Header, bgzf.VirtualPosition, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return Header{}, 0, htserr.Wrap(htserr.ParseError, err, "reading BAM magic")
	}
	if magic != bamMagic {
		return Header{}, 0, htserr.New(htserr.ParseError, "not a BAM file (bad magic)")
	}

	lText, err := readI32LE(r)
	if err != nil {
		return Header{}, 0, err
	}
	text := make([]byte, lText)
	if _, err := io.ReadFull(r, text); err != nil {
		return Header{}, 0, err
	}

	nRef, err := readI32LE(r)
	if err != nil {
		return Header{}, 0, err
	}

	names := make([]string, 0, nRef)
	for i := int32(0); i < nRef; i++ {
		lName, err := readI32LE(r)
		if err != nil {
			return Header{}, 0, err
		}
		nameBuf := make([]byte, lName)
		if _, err := io.ReadFull(r, nameBuf); err != nil {
			return Header{}, 0, err
		}
		if lName > 0 && nameBuf[lName-1] == 0 {
			nameBuf = nameBuf[:lName-1]
		}
		if _, err := readI32LE(r); err != nil { // l_ref
			return Header{}, 0, err
		}
		names = append(names, string(nameBuf))
	}

	return Header{ReferenceSequenceNames: names}, r.VirtualPosition(), nil
}

// SkipBAMRecord advances r past one alignment record, returning false
// at end of stream.
func SkipBAMRecord(r *bgzf.Reader) (bool, error) {
	blockSize, err := readI32LE(r)
	if err == io.EOF {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if _, err := io.CopyN(io.Discard, r, int64(blockSize)); err != nil {
		return false, err
	}
	return true, nil
}

func readI32LE(r io.Reader) (int32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(buf[:])), nil
}
