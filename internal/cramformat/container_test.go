package cramformat

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"testing"
)

func TestReadFileDefinitionParsesMagicAndVersion(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("CRAM")
	buf.Write([]byte{3, 0}) // major, minor
	buf.Write(bytes.Repeat([]byte{0}, 20))

	def, err := ReadFileDefinition(bufio.NewReader(&buf))
	if err != nil {
		t.Fatalf("ReadFileDefinition: %v", err)
	}
	if def.MajorVersion != 3 || def.MinorVersion != 0 {
		t.Fatalf("version = %d.%d, want 3.0", def.MajorVersion, def.MinorVersion)
	}
}

func TestReadFileDefinitionRejectsBadMagic(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("NOPE")
	buf.Write(make([]byte, 22))
	if _, err := ReadFileDefinition(bufio.NewReader(&buf)); err == nil {
		t.Fatal("expected an error for a bad CRAM magic")
	}
}

// buildContainerHeader encodes a container header using single-byte
// ITF8/LTF8 values (all fields kept under 128 so the straightforward
// 1-byte encoding applies), matching ReadContainerHeader's field order.
func buildContainerHeader(t *testing.T, refSeqID, refSeqStart, refSeqSpan, numRecords int32, numBlocks int32, landmarks []int32) []byte {
	t.Helper()
	var buf bytes.Buffer
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], 100) // arbitrary declared length
	buf.Write(lenBuf[:])
	buf.WriteByte(byte(refSeqID))
	buf.WriteByte(byte(refSeqStart))
	buf.WriteByte(byte(refSeqSpan))
	buf.WriteByte(byte(numRecords))
	buf.WriteByte(0) // RecordCounter (LTF8, single byte 0)
	buf.WriteByte(0) // NumReadBases (LTF8, single byte 0)
	buf.WriteByte(byte(numBlocks))
	buf.WriteByte(byte(len(landmarks)))
	for _, l := range landmarks {
		buf.WriteByte(byte(l))
	}
	buf.Write([]byte{0, 0, 0, 0}) // trailing CRC32, unchecked
	return buf.Bytes()
}

func TestReadContainerHeaderParsesAllFields(t *testing.T) {
	raw := buildContainerHeader(t, 0, 1, 2, 10, 3, []int32{5, 9})
	h, err := ReadContainerHeader(bufio.NewReader(bytes.NewReader(raw)))
	if err != nil {
		t.Fatalf("ReadContainerHeader: %v", err)
	}
	if h.Length != 100 || h.RefSeqID != 0 || h.RefSeqStart != 1 || h.RefSeqSpan != 2 {
		t.Fatalf("h = %+v", h)
	}
	if h.NumRecords != 10 || h.NumBlocks != 3 {
		t.Fatalf("h = %+v", h)
	}
	if len(h.Landmarks) != 2 || h.Landmarks[0] != 5 || h.Landmarks[1] != 9 {
		t.Fatalf("Landmarks = %v", h.Landmarks)
	}
}

func TestContainerHeaderIsEOFForZeroLengthZeroBlocks(t *testing.T) {
	h := ContainerHeader{Length: 0, NumBlocks: 0}
	if !h.IsEOF() {
		t.Fatal("expected IsEOF to be true")
	}
	h.NumBlocks = 1
	if h.IsEOF() {
		t.Fatal("expected IsEOF to be false once NumBlocks is non-zero")
	}
}

func buildBlock(t *testing.T, method byte, contentType BlockContentType, payload []byte) []byte {
	t.Helper()
	var raw []byte
	switch method {
	case 0:
		raw = payload
	case 1:
		var gzBuf bytes.Buffer
		zw := gzip.NewWriter(&gzBuf)
		zw.Write(payload)
		zw.Close()
		raw = gzBuf.Bytes()
	default:
		t.Fatalf("unsupported test compression method %d", method)
	}

	var buf bytes.Buffer
	buf.WriteByte(method)
	buf.WriteByte(byte(contentType))
	buf.WriteByte(0)           // ContentID (ITF8, single byte)
	buf.WriteByte(byte(len(raw))) // Size (ITF8, single byte, assumes small payload)
	buf.WriteByte(byte(len(payload)))
	buf.Write(raw)
	buf.Write([]byte{0, 0, 0, 0}) // CRC32, unchecked
	return buf.Bytes()
}

func TestReadBlockDecompressesRawMethod(t *testing.T) {
	raw := buildBlock(t, 0, BlockFileHeader, []byte("SAM header text"))
	h, payload, err := ReadBlock(bufio.NewReader(bytes.NewReader(raw)))
	if err != nil {
		t.Fatalf("ReadBlock: %v", err)
	}
	if h.ContentType != BlockFileHeader {
		t.Fatalf("ContentType = %v, want BlockFileHeader", h.ContentType)
	}
	if string(payload) != "SAM header text" {
		t.Fatalf("payload = %q", payload)
	}
}

func TestReadBlockDecompressesGzipMethod(t *testing.T) {
	raw := buildBlock(t, 1, BlockCompressionHeader, []byte("compressed header bytes"))
	_, payload, err := ReadBlock(bufio.NewReader(bytes.NewReader(raw)))
	if err != nil {
		t.Fatalf("ReadBlock: %v", err)
	}
	if string(payload) != "compressed header bytes" {
		t.Fatalf("payload = %q", payload)
	}
}

func TestReadBlockUnsupportedCompressionMethodErrors(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteByte(99) // unsupported method
	buf.WriteByte(byte(BlockExternal))
	buf.WriteByte(0)
	buf.WriteByte(3)
	buf.WriteByte(3)
	buf.Write([]byte{1, 2, 3})
	buf.Write([]byte{0, 0, 0, 0})

	if _, _, err := ReadBlock(bufio.NewReader(bytes.NewReader(buf.Bytes()))); err == nil {
		t.Fatal("expected an error for an unsupported compression method")
	}
}
