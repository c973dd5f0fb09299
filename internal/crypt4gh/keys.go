package crypt4gh

import (
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"

	"github.com/ga4gh/htsget-gateway/internal/htserr"
)

// KeyPair is a recipient's X25519 key pair, used to decode the session
// keys carried in a Crypt4GH header's data-encryption-parameters
// packets.
type KeyPair struct {
	PrivateKey [32]byte
	PublicKey  [32]byte
}

// packetEncryptionMethod identifies the public-key encryption scheme
// wrapping a header packet's plaintext.
const packetEncryptionMethodX25519ChaCha20Poly1305 = 0

// dataEncryptionMethodChaCha20IETFPoly1305 is the only data-segment
// encryption method this gateway understands.
const dataEncryptionMethodChaCha20IETFPoly1305 = 0

const (
	packetTypeDataEncryptionParameters = 0
	packetTypeDataEditList             = 1
)

// deriveSharedKey folds an X25519 shared secret and both parties'
// public keys into a 32 byte symmetric key via BLAKE2b, matching
// Crypt4GH's packet-encryption key schedule.
func deriveSharedKey(priv, peerPub [32]byte, senderPub, recipientPub [32]byte) ([]byte, error) {
	shared, err := curve25519.X25519(priv[:], peerPub[:])
	if err != nil {
		return nil, htserr.Wrap(htserr.InternalError, err, "computing X25519 shared secret")
	}
	h, err := blake2b.New256(nil)
	if err != nil {
		return nil, htserr.Wrap(htserr.InternalError, err, "initializing BLAKE2b KDF")
	}
	h.Write(shared)
	h.Write(senderPub[:])
	h.Write(recipientPub[:])
	return h.Sum(nil), nil
}

// decryptPacket decrypts one length-prefixed header packet addressed to
// recipient, returning its packet type and plaintext body.
//
// On-disk layout after the 4 byte length prefix: encryption_method(4,
// little endian) | writer_public_key(32) | nonce(12) | ciphertext+MAC.
// The plaintext recovered from the ciphertext is packet_type(4,
// little endian) followed by the packet's type-specific payload.
func decryptPacket(raw []byte, recipient KeyPair) (uint32, []byte, error) {
	body := raw[4:] // strip the 4 byte length prefix
	if len(body) < 4+32+12+chacha20poly1305.Overhead {
		return 0, nil, htserr.New(htserr.ParseError, "header packet too short")
	}
	method := le32(body[0:4])
	if method != packetEncryptionMethodX25519ChaCha20Poly1305 {
		return 0, nil, htserr.New(htserr.UnsupportedFormat, "unsupported packet encryption method %d", method)
	}
	var writerPub [32]byte
	copy(writerPub[:], body[4:36])
	nonce := body[36:48]
	ciphertext := body[48:]

	key, err := deriveSharedKey(recipient.PrivateKey, writerPub, writerPub, recipient.PublicKey)
	if err != nil {
		return 0, nil, err
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return 0, nil, htserr.Wrap(htserr.InternalError, err, "constructing AEAD cipher")
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return 0, nil, htserr.Wrap(htserr.InternalError, err, "decrypting header packet (wrong recipient key?)")
	}
	if len(plaintext) < 4 {
		return 0, nil, htserr.New(htserr.ParseError, "decrypted header packet too short")
	}
	return le32(plaintext[0:4]), plaintext[4:], nil
}

// encryptPacket is the inverse of decryptPacket: it builds a new
// length-prefixed header packet addressed to recipientPub, encrypted
// with a key derived from the sender key pair and recipientPub,
// wrapping packetType and body.
func encryptPacket(sender KeyPair, recipientPub [32]byte, packetType uint32, body []byte, nonce [12]byte) ([]byte, error) {
	key, err := deriveSharedKey(sender.PrivateKey, recipientPub, sender.PublicKey, recipientPub)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, htserr.Wrap(htserr.InternalError, err, "constructing AEAD cipher")
	}

	plaintext := make([]byte, 0, 4+len(body))
	plaintext = appendLE32(plaintext, packetType)
	plaintext = append(plaintext, body...)
	ciphertext := aead.Seal(nil, nonce[:], plaintext, nil)

	packetBody := make([]byte, 0, 4+32+12+len(ciphertext))
	packetBody = appendLE32(packetBody, packetEncryptionMethodX25519ChaCha20Poly1305)
	packetBody = append(packetBody, sender.PublicKey[:]...)
	packetBody = append(packetBody, nonce[:]...)
	packetBody = append(packetBody, ciphertext...)

	total := make([]byte, 0, 4+len(packetBody))
	total = appendLE32(total, uint32(4+len(packetBody)))
	total = append(total, packetBody...)
	return total, nil
}

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func appendLE32(dst []byte, v uint32) []byte {
	return append(dst, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}
