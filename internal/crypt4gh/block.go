package crypt4gh

import (
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/ga4gh/htsget-gateway/internal/htserr"
)

// DecryptBlock decrypts one BlockSize-or-shorter encrypted data
// segment (nonce || ciphertext || MAC) with sessionKey, trying each
// key in turn since a rotated header may carry several.
func DecryptBlock(block []byte, sessionKeys [][]byte) ([]byte, error) {
	if len(block) < NonceSize+MACSize {
		return nil, htserr.New(htserr.ParseError, "data block shorter than nonce+MAC")
	}
	nonce := block[:NonceSize]
	ciphertext := block[NonceSize:]

	var lastErr error
	for _, key := range sessionKeys {
		aead, err := chacha20poly1305.New(key)
		if err != nil {
			lastErr = err
			continue
		}
		plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
		if err == nil {
			return plaintext, nil
		}
		lastErr = err
	}
	return nil, htserr.Wrap(htserr.InternalError, lastErr, "decrypting data block with every known session key")
}

// EncryptBlock encrypts up to BlockPlaintextSize bytes of plaintext
// into a nonce || ciphertext || MAC segment under sessionKey.
func EncryptBlock(plaintext, sessionKey []byte, nonce [NonceSize]byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(sessionKey)
	if err != nil {
		return nil, htserr.Wrap(htserr.InternalError, err, "constructing AEAD cipher")
	}
	out := make([]byte, 0, NonceSize+len(plaintext)+MACSize)
	out = append(out, nonce[:]...)
	out = aead.Seal(out, nonce[:], plaintext, nil)
	return out, nil
}
