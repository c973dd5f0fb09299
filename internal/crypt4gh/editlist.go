package crypt4gh

import (
	"encoding/binary"

	"github.com/ga4gh/htsget-gateway/internal/byterange"
	"github.com/ga4gh/htsget-gateway/internal/htserr"
)

// BuildEditList computes the skip/keep/skip/keep/... edit sequence that
// lets a client decrypting the re-sent data blocks recover exactly the
// concatenation of the requested unencrypted intervals.
//
// unencrypted and clamped must be parallel, equal-length, sorted lists:
// clamped[i] is unencrypted[i] rounded out to plaintext block
// boundaries. A trailing discard left over after the last position is
// appended as a final edit, per spec.md §4.8.
func BuildEditList(unencrypted, clamped []byterange.BytesPosition) ([]uint64, error) {
	if len(unencrypted) != len(clamped) {
		return nil, htserr.New(htserr.InternalError, "unencrypted/clamped position count mismatch")
	}

	var edits []uint64
	var carry uint64
	for i := range unencrypted {
		u, c := unencrypted[i], clamped[i]
		if u.Start == nil || u.End == nil || c.Start == nil || c.End == nil {
			return nil, htserr.New(htserr.InvalidRange, "edit list requires fully bounded positions")
		}
		leadSkip := (*u.Start - *c.Start) + carry
		keep := *u.End - *u.Start
		trailSkip := *c.End - *u.End

		edits = append(edits, leadSkip, keep)
		carry = trailSkip
	}
	if carry > 0 {
		edits = append(edits, carry)
	}
	return edits, nil
}

// EncodeEditListPayload renders an edit list into a data-edit-list
// packet's plaintext payload (packet type prefix excluded;
// encryptPacket adds that): a count followed by that many 8 byte
// little-endian lengths.
func EncodeEditListPayload(edits []uint64) []byte {
	buf := make([]byte, 4+8*len(edits))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(edits)))
	for i, e := range edits {
		binary.LittleEndian.PutUint64(buf[4+8*i:4+8*i+8], e)
	}
	return buf
}

// DecodeEditListPayload is the inverse of EncodeEditListPayload.
func DecodeEditListPayload(payload []byte) ([]uint64, error) {
	if len(payload) < 4 {
		return nil, htserr.New(htserr.ParseError, "edit list packet too short")
	}
	count := binary.LittleEndian.Uint32(payload[0:4])
	want := 4 + 8*int(count)
	if len(payload) < want {
		return nil, htserr.New(htserr.ParseError, "edit list packet truncated")
	}
	edits := make([]uint64, count)
	for i := range edits {
		edits[i] = binary.LittleEndian.Uint64(payload[4+8*i : 4+8*i+8])
	}
	return edits, nil
}
