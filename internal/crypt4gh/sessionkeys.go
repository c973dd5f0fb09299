package crypt4gh

import "github.com/ga4gh/htsget-gateway/internal/htserr"

// SessionKeys extracts every data-encryption-parameters packet's
// session key from a parsed header, decrypting each packet with
// recipient. A header may carry more than one session key (e.g. after
// key rotation); any one of them can decrypt any data block, so a
// decrypting reader tries each in turn.
func SessionKeys(h Header, recipient KeyPair) ([][]byte, error) {
	var keys [][]byte
	for i, pkt := range h.Packets {
		packetType, payload, err := decryptPacket(pkt.Raw, recipient)
		if err != nil {
			return nil, htserr.Wrap(htserr.ParseError, err, "decrypting header packet %d", i)
		}
		if packetType != packetTypeDataEncryptionParameters {
			continue
		}
		if len(payload) < 4 {
			return nil, htserr.New(htserr.ParseError, "data encryption parameters packet too short")
		}
		method := le32(payload[0:4])
		if method != dataEncryptionMethodChaCha20IETFPoly1305 {
			return nil, htserr.New(htserr.UnsupportedFormat, "unsupported data encryption method %d", method)
		}
		keys = append(keys, append([]byte(nil), payload[4:]...))
	}
	if len(keys) == 0 {
		return nil, htserr.New(htserr.ParseError, "header carries no data encryption parameters packet")
	}
	return keys, nil
}

// dataEncryptionParametersPayload renders one session key as the
// plaintext payload of a data-encryption-parameters packet (packet
// type prefix excluded; encryptPacket adds that).
func dataEncryptionParametersPayload(sessionKey []byte) []byte {
	payload := make([]byte, 0, 4+len(sessionKey))
	payload = appendLE32(payload, dataEncryptionMethodChaCha20IETFPoly1305)
	payload = append(payload, sessionKey...)
	return payload
}
