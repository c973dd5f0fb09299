package container

import (
	"bytes"
	"encoding/binary"

	"github.com/klauspost/compress/gzip"

	"github.com/ga4gh/htsget-gateway/internal/bgzf"
)

// writeBGZFBlock and buildBGZFStream mirror the fixture helpers used in
// internal/bgzf's own tests: a gzip member carrying the "BC" extra
// subfield with the BSIZE patched in once the compressed size is known.
func writeBGZFBlock(buf *bytes.Buffer, plaintext []byte) error {
	var block bytes.Buffer
	zw, err := gzip.NewWriterLevel(&block, gzip.DefaultCompression)
	if err != nil {
		return err
	}
	zw.Extra = []byte{'B', 'C', 2, 0, 0, 0}
	if _, err := zw.Write(plaintext); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}

	data := block.Bytes()
	bsize := uint16(len(data) - 1)
	binary.LittleEndian.PutUint16(data[16:18], bsize)
	_, err = buf.Write(data)
	return err
}

func buildBGZFStream(blocks ...[]byte) ([]byte, error) {
	var buf bytes.Buffer
	for _, b := range blocks {
		if err := writeBGZFBlock(&buf, b); err != nil {
			return nil, err
		}
	}
	buf.Write(bgzf.EOF)
	return buf.Bytes(), nil
}
