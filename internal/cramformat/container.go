package cramformat

import (
	"bufio"
	"bytes"
	"compress/bzip2"
	"io"

	"github.com/klauspost/compress/gzip"

	"github.com/ga4gh/htsget-gateway/internal/htserr"
)

var fileMagic = [4]byte{'C', 'R', 'A', 'M'}

// EOF is the 38 byte CRAM end-of-file marker, a container holding no
// records (15 byte body, one block) with a fixed CRC, appended to every
// valid CRAM v3 stream.
var EOF = []byte{
	0x0f, 0x00, 0x00, 0x00, 0xff, 0xff, 0xff, 0xff, 0x0f, 0xe0, 0x45, 0x4f,
	0x46, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x05, 0xbd, 0xd9, 0x4f, 0x00,
	0x01, 0x00, 0x06, 0x06, 0x01, 0x00, 0x01, 0x00, 0x01, 0x00, 0xee, 0x63,
	0x01, 0x4b,
}

// FileDefinition is the 26 byte block at the start of every CRAM file.
type FileDefinition struct {
	MajorVersion byte
	MinorVersion byte
	FileID       [20]byte
}

// ReadFileDefinition reads and validates the CRAM file definition.
func ReadFileDefinition(r *bufio.Reader) (FileDefinition, error) {
	var def FileDefinition
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return def, htserr.Wrap(htserr.ParseError, err, "reading CRAM magic")
	}
	if magic != fileMagic {
		return def, htserr.New(htserr.ParseError, "not a CRAM file (bad magic)")
	}
	var versions [2]byte
	if _, err := io.ReadFull(r, versions[:]); err != nil {
		return def, err
	}
	def.MajorVersion, def.MinorVersion = versions[0], versions[1]
	if _, err := io.ReadFull(r, def.FileID[:]); err != nil {
		return def, err
	}
	return def, nil
}

// ContainerHeader is a CRAM container header; fields not needed for
// header extraction are parsed and discarded.
type ContainerHeader struct {
	Length        int32
	RefSeqID      int32
	RefSeqStart   int32
	RefSeqSpan    int32
	NumRecords    int32
	RecordCounter int64
	NumReadBases  int64
	NumBlocks     int32
	Landmarks     []int32
}

// IsEOF reports whether this header is an end-of-file container: the
// header of the CRAM v3 EOF marker (ref_seq_id -1, ref_seq_start
// 4542278, no records, one block; see EOF), or an empty header with
// length 0 and no blocks.
func (h ContainerHeader) IsEOF() bool {
	if h.RefSeqID == -1 && h.RefSeqStart == 4542278 && h.NumRecords == 0 && h.NumBlocks == 1 {
		return true
	}
	return h.Length == 0 && h.NumBlocks == 0
}

// ReadContainerHeader reads one container header, including its
// trailing CRC32.
func ReadContainerHeader(r *bufio.Reader) (ContainerHeader, error) {
	var h ContainerHeader

	var lengthBuf [4]byte
	if _, err := io.ReadFull(r, lengthBuf[:]); err != nil {
		return h, err
	}
	h.Length = int32(lengthBuf[0]) | int32(lengthBuf[1])<<8 | int32(lengthBuf[2])<<16 | int32(lengthBuf[3])<<24

	var err error
	if h.RefSeqID, err = ReadITF8(r); err != nil {
		return h, err
	}
	if h.RefSeqStart, err = ReadITF8(r); err != nil {
		return h, err
	}
	if h.RefSeqSpan, err = ReadITF8(r); err != nil {
		return h, err
	}
	if h.NumRecords, err = ReadITF8(r); err != nil {
		return h, err
	}
	if h.RecordCounter, err = ReadLTF8(r); err != nil {
		return h, err
	}
	if h.NumReadBases, err = ReadLTF8(r); err != nil {
		return h, err
	}
	if h.NumBlocks, err = ReadITF8(r); err != nil {
		return h, err
	}
	numLandmarks, err := ReadITF8(r)
	if err != nil {
		return h, err
	}
	h.Landmarks = make([]int32, numLandmarks)
	for i := range h.Landmarks {
		if h.Landmarks[i], err = ReadITF8(r); err != nil {
			return h, err
		}
	}
	var crc [4]byte
	if _, err := io.ReadFull(r, crc[:]); err != nil {
		return h, err
	}
	return h, nil
}

// BlockContentType enumerates the CRAM block content types relevant to
// header extraction.
type BlockContentType byte

const (
	BlockFileHeader        BlockContentType = 0
	BlockCompressionHeader BlockContentType = 1
	BlockMappedSliceHeader BlockContentType = 2
	BlockExternal          BlockContentType = 4
	BlockCore              BlockContentType = 5
)

// BlockHeader describes one CRAM block within a container.
type BlockHeader struct {
	Method      byte
	ContentType BlockContentType
	ContentID   int32
	Size        int32
	RawSize     int32
}

// ReadBlock reads one block's header and decompressed payload
// (discarding the trailing CRC32).
func ReadBlock(r *bufio.Reader) (BlockHeader, []byte, error) {
	var h BlockHeader

	method, err := r.ReadByte()
	if err != nil {
		return h, nil, err
	}
	h.Method = method

	contentType, err := r.ReadByte()
	if err != nil {
		return h, nil, err
	}
	h.ContentType = BlockContentType(contentType)

	if h.ContentID, err = ReadITF8(r); err != nil {
		return h, nil, err
	}
	if h.Size, err = ReadITF8(r); err != nil {
		return h, nil, err
	}
	if h.RawSize, err = ReadITF8(r); err != nil {
		return h, nil, err
	}

	raw := make([]byte, h.Size)
	if _, err := io.ReadFull(r, raw); err != nil {
		return h, nil, err
	}

	var crc [4]byte
	if _, err := io.ReadFull(r, crc[:]); err != nil {
		return h, nil, err
	}

	payload, err := decompressBlock(h.Method, raw, int(h.RawSize))
	if err != nil {
		return h, nil, htserr.Wrap(htserr.ParseError, err, "decompressing CRAM block")
	}
	return h, payload, nil
}

func decompressBlock(method byte, raw []byte, rawSize int) ([]byte, error) {
	switch method {
	case 0: // raw
		return raw, nil
	case 1: // gzip
		gz, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		return io.ReadAll(gz)
	case 2: // bzip2
		return io.ReadAll(bzip2.NewReader(bytes.NewReader(raw)))
	default:
		return nil, htserr.New(htserr.UnsupportedFormat, "unsupported CRAM block compression method %d", method)
	}
}
