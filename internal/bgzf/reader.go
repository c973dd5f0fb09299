package bgzf

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"

	"github.com/klauspost/compress/gzip"
)

// blockHeaderSize is the fixed portion of a gzip member header up to and
// including XLEN: ID1 ID2 CM FLG MTIME(4) XFL OS XLEN(2).
const blockHeaderSize = 12

// ErrNotBGZF indicates the stream's next gzip member does not carry the
// "BC" extra subfield BGZF requires to report its own size.
var ErrNotBGZF = errors.New("bgzf: block missing BC extra subfield")

// Reader decodes a BGZF stream one block at a time, exposing the
// virtual position (compressed block start, uncompressed within-block
// offset) after every read — the primitive the container readers build
// "read one record, note my virtual position" on top of.
//
// Each gzip member is read in its entirety as a contiguous byte slice
// before decompression, rather than streamed through a single
// multistream gzip.Reader, so that the compressed offset of every block
// boundary is known exactly (a buffered multistream reader may read
// ahead past a block boundary, making the boundary unrecoverable).
type Reader struct {
	src io.Reader

	compressedOffset uint64 // offset of the start of the current block
	block            []byte // decompressed content of the current block
	blockPos         int    // read position within block
	nextCompressed   uint64 // offset of the start of the *next* block

	err error
}

// NewReader wraps src, which must begin at a BGZF block boundary.
func NewReader(src io.Reader) *Reader {
	return &Reader{src: src}
}

// VirtualPosition returns the current virtual position: the start of
// the block currently being read, plus the within-block offset already
// consumed from it.
func (r *Reader) VirtualPosition() VirtualPosition {
	return NewVirtualPosition(r.compressedOffset, uint16(r.blockPos))
}

// Read implements io.Reader, pulling from the current block and
// advancing to subsequent blocks transparently.
func (r *Reader) Read(p []byte) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	total := 0
	for total < len(p) {
		if r.blockPos >= len(r.block) {
			if err := r.nextBlock(); err != nil {
				r.err = err
				if total > 0 {
					return total, nil
				}
				return 0, err
			}
		}
		n := copy(p[total:], r.block[r.blockPos:])
		r.blockPos += n
		total += n
	}
	return total, nil
}

// nextBlock reads and decompresses the next BGZF block in full.
func (r *Reader) nextBlock() error {
	r.compressedOffset = r.nextCompressed
	r.blockPos = 0

	header := make([]byte, blockHeaderSize)
	if _, err := io.ReadFull(r.src, header); err != nil {
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			return io.EOF
		}
		return err
	}
	xlen := binary.LittleEndian.Uint16(header[10:12])
	extra := make([]byte, xlen)
	if _, err := io.ReadFull(r.src, extra); err != nil {
		return err
	}

	bsize, ok := parseBSize(extra)
	if !ok {
		return ErrNotBGZF
	}

	totalBlockSize := int(bsize) + 1
	alreadyRead := blockHeaderSize + int(xlen)
	remaining := totalBlockSize - alreadyRead
	if remaining < 0 {
		return ErrNotBGZF
	}
	rest := make([]byte, remaining)
	if _, err := io.ReadFull(r.src, rest); err != nil {
		return err
	}

	full := make([]byte, 0, totalBlockSize)
	full = append(full, header...)
	full = append(full, extra...)
	full = append(full, rest...)

	r.nextCompressed = r.compressedOffset + uint64(totalBlockSize)

	// An empty final block (the BGZF EOF marker) decompresses to zero
	// bytes; treat it as end of stream for the record-walking readers.
	gz, err := gzip.NewReader(bytes.NewReader(full))
	if err != nil {
		return err
	}
	defer gz.Close()
	decoded, err := io.ReadAll(gz)
	if err != nil {
		return err
	}
	r.block = decoded
	if len(decoded) == 0 {
		return io.EOF
	}
	return nil
}

// parseBSize scans gzip extra subfields for BGZF's "BC" subfield
// (SI1=66, SI2=67, length 2) carrying BSIZE = total block size - 1.
func parseBSize(extra []byte) (uint16, bool) {
	i := 0
	for i+4 <= len(extra) {
		si1, si2 := extra[i], extra[i+1]
		slen := binary.LittleEndian.Uint16(extra[i+2 : i+4])
		if si1 == 66 && si2 == 67 && slen == 2 && i+4+2 <= len(extra) {
			return binary.LittleEndian.Uint16(extra[i+4 : i+6]), true
		}
		i += 4 + int(slen)
	}
	return 0, false
}
