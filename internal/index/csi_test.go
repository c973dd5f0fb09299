package index

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"testing"
)

type csiBinFixture struct {
	ID      uint32
	Loffset uint64
	Chunks  []baiChunkFixture
}

func encodeCSIAux(names []string) []byte {
	if len(names) == 0 {
		return nil
	}
	var aux bytes.Buffer
	for i := 0; i < 6; i++ {
		binary.Write(&aux, binary.LittleEndian, int32(0))
	}
	var nameBuf bytes.Buffer
	for _, n := range names {
		nameBuf.WriteString(n)
		nameBuf.WriteByte(0)
	}
	binary.Write(&aux, binary.LittleEndian, int32(nameBuf.Len()))
	aux.Write(nameBuf.Bytes())
	return aux.Bytes()
}

func encodeCSI(t *testing.T, minShift, depth int32, names []string, refs [][]csiBinFixture) []byte {
	t.Helper()
	var inner bytes.Buffer
	inner.Write(csiMagic[:])
	binary.Write(&inner, binary.LittleEndian, minShift)
	binary.Write(&inner, binary.LittleEndian, depth)

	aux := encodeCSIAux(names)
	binary.Write(&inner, binary.LittleEndian, int32(len(aux)))
	inner.Write(aux)

	binary.Write(&inner, binary.LittleEndian, int32(len(refs)))
	for _, bins := range refs {
		binary.Write(&inner, binary.LittleEndian, int32(len(bins)))
		for _, bin := range bins {
			binary.Write(&inner, binary.LittleEndian, bin.ID)
			binary.Write(&inner, binary.LittleEndian, bin.Loffset)
			binary.Write(&inner, binary.LittleEndian, int32(len(bin.Chunks)))
			for _, c := range bin.Chunks {
				binary.Write(&inner, binary.LittleEndian, c.Beg)
				binary.Write(&inner, binary.LittleEndian, c.End)
			}
		}
	}

	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	if _, err := zw.Write(inner.Bytes()); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	return gz.Bytes()
}

func TestReadCSIParsesMinShiftDepthAndLoffset(t *testing.T) {
	raw := encodeCSI(t, 14, 5, nil, [][]csiBinFixture{
		{{ID: 0, Loffset: 777, Chunks: []baiChunkFixture{{Beg: 100, End: 200}}}},
	})
	idx, err := ReadCSI(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("ReadCSI: %v", err)
	}
	if idx.MinShift != 14 || idx.Depth != 5 {
		t.Fatalf("MinShift/Depth = %d/%d", idx.MinShift, idx.Depth)
	}
	bin := idx.References[0].Bins[0]
	if bin.Loffset.Compressed() != 0 || uint64(bin.Loffset) != 777 {
		t.Fatalf("Loffset = %v", bin.Loffset)
	}
}

func TestReadCSIParsesAuxNameTable(t *testing.T) {
	raw := encodeCSI(t, 14, 5, []string{"chr1", "chr2"}, [][]csiBinFixture{{}, {}})
	idx, err := ReadCSI(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("ReadCSI: %v", err)
	}
	if len(idx.Names) != 2 || idx.Names[0] != "chr1" {
		t.Fatalf("Names = %v", idx.Names)
	}
}

func TestReadCSIWithoutAuxNamesLeavesNamesNil(t *testing.T) {
	raw := encodeCSI(t, 14, 5, nil, [][]csiBinFixture{{}})
	idx, err := ReadCSI(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("ReadCSI: %v", err)
	}
	if len(idx.Names) != 0 {
		t.Fatalf("expected no names, got %v", idx.Names)
	}
}

func TestReadCSIRejectsBadMagic(t *testing.T) {
	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	zw.Write([]byte("NOPE"))
	zw.Close()
	if _, err := ReadCSI(bytes.NewReader(gz.Bytes())); err == nil {
		t.Fatal("expected an error for a bad CSI magic")
	}
}
