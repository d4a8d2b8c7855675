package kdb

import (
	"bytes"
	"crypto/sha256"
	"testing"

	"github.com/kdbtools/kdb/kdberr"
)

func TestPaddingRoundTrip(t *testing.T) {
	cases := [][]byte{
		{},
		[]byte("short"),
		bytes.Repeat([]byte{0x41}, 16), // exactly block-aligned: full extra block
		bytes.Repeat([]byte{0x42}, 33),
	}
	for _, plain := range cases {
		padded := appendPadding(plain)
		if len(padded)%16 != 0 {
			t.Fatalf("padded length %d not block-aligned", len(padded))
		}
		if len(plain)%16 == 0 && len(padded) != len(plain)+16 {
			t.Fatalf("block-aligned input should get a full extra block: got %d extra", len(padded)-len(plain))
		}
		got, err := stripPadding(padded)
		if err != nil {
			t.Fatalf("stripPadding: %v", err)
		}
		if !bytes.Equal(got, plain) {
			t.Fatalf("round trip mismatch: want %x, got %x", plain, got)
		}
	}
}

func TestStripPaddingRejectsBadPadding(t *testing.T) {
	if _, err := stripPadding([]byte{1, 2, 3, 0}); err == nil {
		t.Fatal("expected error for padding byte 0")
	}
	if _, err := stripPadding([]byte{1, 2, 3, 200}); err == nil {
		t.Fatal("expected error for padding byte larger than buffer")
	}
	if _, err := stripPadding(nil); err == nil {
		t.Fatal("expected error for empty buffer")
	}
}

func TestEncryptDecryptPayloadRoundTrip(t *testing.T) {
	var key [32]byte
	var iv [16]byte
	for i := range key {
		key[i] = byte(i)
	}
	for i := range iv {
		iv[i] = byte(i * 2)
	}
	plain := []byte("some group and entry records go here")
	ciphertext, err := encryptPayload(key, iv, plain)
	if err != nil {
		t.Fatalf("encryptPayload: %v", err)
	}
	hash := sha256.Sum256(plain)
	got, err := decryptPayload(key, iv, ciphertext, hash, 0)
	if err != nil {
		t.Fatalf("decryptPayload: %v", err)
	}
	if !bytes.Equal(got, plain) {
		t.Fatalf("round trip mismatch: want %q, got %q", plain, got)
	}
}

func TestDecryptPayloadWrongKeyFailsIntegrity(t *testing.T) {
	var key, wrongKey [32]byte
	var iv [16]byte
	wrongKey[0] = 1
	plain := []byte("hello world, this spans a couple of blocks")
	ciphertext, err := encryptPayload(key, iv, plain)
	if err != nil {
		t.Fatalf("encryptPayload: %v", err)
	}
	hash := sha256.Sum256(plain)
	_, err = decryptPayload(wrongKey, iv, ciphertext, hash, 0)
	if !kdberr.Is(err, kdberr.CodeIntegrityCheckFailed) {
		t.Fatalf("want CodeIntegrityCheckFailed, got %v", err)
	}
}

func TestDecryptPayloadTruncatedCiphertext(t *testing.T) {
	var key [32]byte
	var iv [16]byte
	plain := bytes.Repeat([]byte{0x01}, 48)
	ciphertext, err := encryptPayload(key, iv, plain)
	if err != nil {
		t.Fatalf("encryptPayload: %v", err)
	}
	hash := sha256.Sum256(plain)
	truncated := ciphertext[:len(ciphertext)-3]
	_, err = decryptPayload(key, iv, truncated, hash, 0)
	if !kdberr.Is(err, kdberr.CodeDecryptionFailed) {
		t.Fatalf("want CodeDecryptionFailed, got %v", err)
	}
}
