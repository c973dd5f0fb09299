package container

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/ga4gh/htsget-gateway/internal/bgzf"
)

func buildBAMHeaderPayload(t *testing.T, text string, refs []string) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.Write(bamMagic[:])

	var lText [4]byte
	binary.LittleEndian.PutUint32(lText[:], uint32(len(text)))
	buf.Write(lText[:])
	buf.WriteString(text)

	var nRef [4]byte
	binary.LittleEndian.PutUint32(nRef[:], uint32(len(refs)))
	buf.Write(nRef[:])

	for _, name := range refs {
		nameWithNUL := append([]byte(name), 0)
		var lName [4]byte
		binary.LittleEndian.PutUint32(lName[:], uint32(len(nameWithNUL)))
		buf.Write(lName[:])
		buf.Write(nameWithNUL)
		var lRef [4]byte
		binary.LittleEndian.PutUint32(lRef[:], 1000)
		buf.Write(lRef[:])
	}
	return buf.Bytes()
}

func TestReadBAMHeaderParsesTextAndReferenceNames(t *testing.T) {
	payload := buildBAMHeaderPayload(t, "@HD\tVN:1.6\n", []string{"chr1", "chr2"})
	stream, err := buildBGZFStream(payload)
	if err != nil {
		t.Fatalf("buildBGZFStream: %v", err)
	}

	r := bgzf.NewReader(bytes.NewReader(stream))
	h, headerEnd, err := ReadBAMHeader(r)
	if err != nil {
		t.Fatalf("ReadBAMHeader: %v", err)
	}
	if len(h.ReferenceSequenceNames) != 2 || h.ReferenceSequenceNames[0] != "chr1" || h.ReferenceSequenceNames[1] != "chr2" {
		t.Fatalf("ReferenceSequenceNames = %v", h.ReferenceSequenceNames)
	}
	if headerEnd == 0 {
		t.Fatal("expected a non-zero header/body boundary")
	}
}

func TestReadBAMHeaderRejectsBadMagic(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("NOPE")
	stream, err := buildBGZFStream(buf.Bytes())
	if err != nil {
		t.Fatalf("buildBGZFStream: %v", err)
	}
	r := bgzf.NewReader(bytes.NewReader(stream))
	if _, _, err := ReadBAMHeader(r); err == nil {
		t.Fatal("expected an error for a bad BAM magic")
	}
}

func TestSkipBAMRecordAdvancesPastOneRecordThenReportsEOF(t *testing.T) {
	payload := buildBAMHeaderPayload(t, "", nil)

	var recordBuf bytes.Buffer
	var blockSize [4]byte
	recordBody := []byte("fake-alignment-record-bytes")
	binary.LittleEndian.PutUint32(blockSize[:], uint32(len(recordBody)))
	recordBuf.Write(blockSize[:])
	recordBuf.Write(recordBody)

	full := append(payload, recordBuf.Bytes()...)
	stream, err := buildBGZFStream(full)
	if err != nil {
		t.Fatalf("buildBGZFStream: %v", err)
	}

	r := bgzf.NewReader(bytes.NewReader(stream))
	if _, _, err := ReadBAMHeader(r); err != nil {
		t.Fatalf("ReadBAMHeader: %v", err)
	}

	ok, err := SkipBAMRecord(r)
	if err != nil {
		t.Fatalf("SkipBAMRecord: %v", err)
	}
	if !ok {
		t.Fatal("expected SkipBAMRecord to report a record was skipped")
	}

	ok, err = SkipBAMRecord(r)
	if err != nil {
		t.Fatalf("SkipBAMRecord at EOF: %v", err)
	}
	if ok {
		t.Fatal("expected SkipBAMRecord to report false at end of stream")
	}
}
