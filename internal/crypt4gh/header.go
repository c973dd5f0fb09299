// Package crypt4gh implements the optional encryption wrapper of
// spec.md §4.8: a storage.Storage decorator that transforms
// unencrypted byte positions into the encrypted data-block boundaries
// and re-assembled header an htsget client needs to decrypt exactly
// the requested region of a Crypt4GH file.
package crypt4gh

import (
	"encoding/binary"
	"io"

	"github.com/ga4gh/htsget-gateway/internal/htserr"
)

// magic is the fixed 8-byte Crypt4GH file magic.
var magic = [8]byte{'c', 'r', 'y', 'p', 't', '4', 'g', 'h'}

// NonceSize, block plaintext size, and MAC size define the fixed
// Crypt4GH data-segment layout (spec.md §4.8/§6.2).
const (
	NonceSize          = 12
	BlockPlaintextSize = 65536
	MACSize            = 16
	BlockSize          = NonceSize + BlockPlaintextSize + MACSize // 65564

	infoRecordSize = 16
	maxHeaderSize  = 8 << 20 // 8 MiB
)

// InfoRecord is the 16 byte record at the start of every Crypt4GH
// header: magic, version, and packet count.
type InfoRecord struct {
	Version      uint32
	PacketsCount uint32
}

// ReadInfoRecord reads and validates the 16 byte Crypt4GH info record.
func ReadInfoRecord(r io.Reader) (InfoRecord, error) {
	var buf [infoRecordSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return InfoRecord{}, htserr.Wrap(htserr.ParseError, err, "reading Crypt4GH info record")
	}
	var gotMagic [8]byte
	copy(gotMagic[:], buf[0:8])
	if gotMagic != magic {
		return InfoRecord{}, htserr.New(htserr.ParseError, "not a Crypt4GH file (bad magic)")
	}
	return InfoRecord{
		Version:      binary.LittleEndian.Uint32(buf[8:12]),
		PacketsCount: binary.LittleEndian.Uint32(buf[12:16]),
	}, nil
}

// Bytes renders the info record back into its 16 byte wire form.
func (info InfoRecord) Bytes() []byte {
	buf := make([]byte, infoRecordSize)
	copy(buf[0:8], magic[:])
	binary.LittleEndian.PutUint32(buf[8:12], info.Version)
	binary.LittleEndian.PutUint32(buf[12:16], info.PacketsCount)
	return buf
}

// Packet is one length-prefixed Crypt4GH header packet: the raw bytes
// include the 4 byte length prefix.
type Packet struct {
	Raw []byte
}

// ReadPackets reads count length-prefixed packets from r, bounding
// total header size at maxHeaderSize (spec.md §5 "bounded memory").
func ReadPackets(r io.Reader, count uint32) ([]Packet, error) {
	packets := make([]Packet, 0, count)
	total := infoRecordSize
	for i := uint32(0); i < count; i++ {
		var lenBuf [4]byte
		if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
			return nil, htserr.Wrap(htserr.ParseError, err, "reading packet %d length", i)
		}
		length := binary.LittleEndian.Uint32(lenBuf[:])
		total += int(length)
		if total > maxHeaderSize {
			return nil, htserr.New(htserr.ParseError, "Crypt4GH header exceeds maximum size")
		}
		if length < 4 {
			return nil, htserr.New(htserr.ParseError, "packet %d has invalid length %d", i, length)
		}
		body := make([]byte, length-4)
		if _, err := io.ReadFull(r, body); err != nil {
			return nil, htserr.Wrap(htserr.ParseError, err, "reading packet %d body", i)
		}
		raw := make([]byte, 0, length)
		raw = append(raw, lenBuf[:]...)
		raw = append(raw, body...)
		packets = append(packets, Packet{Raw: raw})
	}
	return packets, nil
}

// Header is a parsed Crypt4GH header: the info record, its packets,
// and the total on-disk size of the header (info record + all
// packets), which is the arithmetic origin for every block-boundary
// conversion in blockmath.go.
type Header struct {
	Info    InfoRecord
	Packets []Packet
	Size    uint64
}

// ReadHeader parses a full Crypt4GH header from the start of r.
func ReadHeader(r io.Reader) (Header, error) {
	info, err := ReadInfoRecord(r)
	if err != nil {
		return Header{}, err
	}
	packets, err := ReadPackets(r, info.PacketsCount)
	if err != nil {
		return Header{}, err
	}
	size := uint64(infoRecordSize)
	for _, p := range packets {
		size += uint64(len(p.Raw))
	}
	return Header{Info: info, Packets: packets, Size: size}, nil
}

// Bytes renders the full header (info record followed by every
// packet's raw bytes) back into its wire form.
func (h Header) Bytes() []byte {
	buf := make([]byte, 0, h.Size)
	buf = append(buf, h.Info.Bytes()...)
	for _, p := range h.Packets {
		buf = append(buf, p.Raw...)
	}
	return buf
}
