// Package cramformat implements the minimal slice of the CRAM v3
// container format spec.md §4.5/§6.2 needs: the file definition, the
// header container, and the embedded SAM header text inside it (used to
// resolve reference-sequence names to ids for CRAM queries). It does
// not decode alignment records — byte-range resolution for CRAM is
// driven entirely by the CRAI index (spec.md §4.6.2).
package cramformat

import (
	"bufio"
	"io"
)

// ReadITF8 decodes a CRAM ITF8 variable-length integer: 1 to 5 bytes,
// with the number of leading set bits in the first byte indicating the
// total length.
func ReadITF8(r *bufio.Reader) (int32, error) {
	b0, err := r.ReadByte()
	if err != nil {
		return 0, err
	}
	switch {
	case b0&0x80 == 0:
		return int32(b0), nil
	case b0&0x40 == 0:
		b1, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		return int32(b0&0x7f)<<8 | int32(b1), nil
	case b0&0x20 == 0:
		b1, b2, err := read2(r)
		if err != nil {
			return 0, err
		}
		return int32(b0&0x3f)<<16 | int32(b1)<<8 | int32(b2), nil
	case b0&0x10 == 0:
		b1, b2, b3, err := read3(r)
		if err != nil {
			return 0, err
		}
		return int32(b0&0x1f)<<24 | int32(b1)<<16 | int32(b2)<<8 | int32(b3), nil
	default:
		b1, b2, b3, b4, err := read4(r)
		if err != nil {
			return 0, err
		}
		return int32(b0&0x0f)<<28 | int32(b1)<<20 | int32(b2)<<12 | int32(b3)<<4 | int32(b4&0x0f), nil
	}
}

// ReadLTF8 decodes a CRAM LTF8 variable-length integer (the 64-bit
// analogue of ITF8, up to 9 bytes).
func ReadLTF8(r *bufio.Reader) (int64, error) {
	b0, err := r.ReadByte()
	if err != nil {
		return 0, err
	}
	n := 0
	switch {
	case b0&0x80 == 0:
		return int64(b0), nil
	case b0&0x40 == 0:
		n = 1
	case b0&0x20 == 0:
		n = 2
	case b0&0x10 == 0:
		n = 3
	case b0&0x08 == 0:
		n = 4
	case b0&0x04 == 0:
		n = 5
	case b0&0x02 == 0:
		n = 6
	case b0&0x01 == 0:
		n = 7
	default:
		n = 8
	}
	v := int64(b0) & (0xff >> uint(n+1))
	for i := 0; i < n; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		v = v<<8 | int64(b)
	}
	return v, nil
}

func read2(r *bufio.Reader) (byte, byte, error) {
	var buf [2]byte
	_, err := io.ReadFull(r, buf[:])
	return buf[0], buf[1], err
}

func read3(r *bufio.Reader) (byte, byte, byte, error) {
	var buf [3]byte
	_, err := io.ReadFull(r, buf[:])
	return buf[0], buf[1], buf[2], err
}

func read4(r *bufio.Reader) (byte, byte, byte, byte, error) {
	var buf [4]byte
	_, err := io.ReadFull(r, buf[:])
	return buf[0], buf[1], buf[2], buf[3], err
}
