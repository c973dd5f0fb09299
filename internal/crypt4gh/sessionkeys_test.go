package crypt4gh

import (
	"bytes"
	"testing"
)

func buildTestHeader(t *testing.T, sender KeyPair, recipient KeyPair, sessionKeys ...[]byte) Header {
	t.Helper()
	var packets []Packet
	for i, sk := range sessionKeys {
		var nonce [12]byte
		nonce[0] = byte(i)
		raw, err := encryptPacket(sender, recipient.PublicKey, packetTypeDataEncryptionParameters, dataEncryptionParametersPayload(sk), nonce)
		if err != nil {
			t.Fatalf("encryptPacket: %v", err)
		}
		packets = append(packets, Packet{Raw: raw})
	}
	return Header{Info: InfoRecord{PacketsCount: uint32(len(packets))}, Packets: packets}
}

func TestSessionKeysExtractsEveryDataEncryptionParametersPacket(t *testing.T) {
	sender := generateKeyPair(t)
	recipient := generateKeyPair(t)

	key1 := bytes.Repeat([]byte{0xAA}, 32)
	key2 := bytes.Repeat([]byte{0xBB}, 32)
	h := buildTestHeader(t, sender, recipient, key1, key2)

	keys, err := SessionKeys(h, recipient)
	if err != nil {
		t.Fatalf("SessionKeys: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("expected 2 session keys, got %d", len(keys))
	}
	if !bytes.Equal(keys[0], key1) || !bytes.Equal(keys[1], key2) {
		t.Fatalf("session keys = %x, %x; want %x, %x", keys[0], keys[1], key1, key2)
	}
}

func TestSessionKeysSkipsNonDataEncryptionPackets(t *testing.T) {
	sender := generateKeyPair(t)
	recipient := generateKeyPair(t)

	var nonce [12]byte
	editListPacket, err := encryptPacket(sender, recipient.PublicKey, packetTypeDataEditList, []byte("edit list"), nonce)
	if err != nil {
		t.Fatalf("encryptPacket: %v", err)
	}
	key := bytes.Repeat([]byte{0xCC}, 32)
	h := buildTestHeader(t, sender, recipient, key)
	h.Packets = append([]Packet{{Raw: editListPacket}}, h.Packets...)

	keys, err := SessionKeys(h, recipient)
	if err != nil {
		t.Fatalf("SessionKeys: %v", err)
	}
	if len(keys) != 1 || !bytes.Equal(keys[0], key) {
		t.Fatalf("expected the single data-encryption session key, got %x", keys)
	}
}

func TestSessionKeysNoDataEncryptionPacketErrors(t *testing.T) {
	sender := generateKeyPair(t)
	recipient := generateKeyPair(t)

	var nonce [12]byte
	editListPacket, err := encryptPacket(sender, recipient.PublicKey, packetTypeDataEditList, []byte("edit list"), nonce)
	if err != nil {
		t.Fatalf("encryptPacket: %v", err)
	}
	h := Header{Packets: []Packet{{Raw: editListPacket}}}

	if _, err := SessionKeys(h, recipient); err == nil {
		t.Fatal("expected an error when the header carries no data-encryption-parameters packet")
	}
}
