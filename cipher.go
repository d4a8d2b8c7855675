package kdb

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"crypto/subtle"

	"github.com/kdbtools/kdb/kdberr"
)

// maxPlausiblePayload bounds the decrypted payload size (2^31 - 201), a
// sanity cap from spec section 4.4 that rejects corrupt ciphertexts
// before they are used to size further allocations.
const maxPlausiblePayload = 1<<31 - 201

// decryptPayload decrypts ciphertext with AES-CBC under key/iv, strips
// the trailing-byte padding, and verifies the result against
// wantHash. Both a bad key and a damaged file surface as the same
// IntegrityCheckFailed/DecryptionFailed guidance (spec section 7), and
// the hash comparison is constant-time to avoid leaking which.
func decryptPayload(key [32]byte, iv [16]byte, ciphertext []byte, wantHash [32]byte, ngroups uint32) ([]byte, error) {
	const op = "decrypt_payload"
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, kdberr.Wrap(op, kdberr.CodeDecryptionFailed, nil)
	}

	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, kdberr.Wrap(op, kdberr.CodeDecryptionFailed, err)
	}
	mode := cipher.NewCBCDecrypter(block, iv[:])

	plain := make([]byte, len(ciphertext))
	mode.CryptBlocks(plain, ciphertext)

	// Invalid padding after a well-formed decrypt is what a wrong key
	// usually produces, so it is reported as an integrity failure.
	plain, err = stripPadding(plain)
	if err != nil {
		return nil, kdberr.Wrap(op, kdberr.CodeIntegrityCheckFailed, err)
	}

	if len(plain) > maxPlausiblePayload || (len(plain) == 0 && ngroups > 0) {
		return nil, kdberr.Wrap(op, kdberr.CodeImplausiblePayload, nil)
	}

	gotHash := sha256.Sum256(plain)
	if subtle.ConstantTimeCompare(gotHash[:], wantHash[:]) != 1 {
		return nil, kdberr.Wrap(op, kdberr.CodeIntegrityCheckFailed, nil)
	}
	return plain, nil
}

// encryptPayload pads plaintext with the trailing-byte scheme and
// encrypts it with AES-CBC under key/iv.
func encryptPayload(key [32]byte, iv [16]byte, plaintext []byte) ([]byte, error) {
	const op = "encrypt_payload"
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, kdberr.Wrap(op, kdberr.CodeUnsupportedCipher, err)
	}
	mode := cipher.NewCBCEncrypter(block, iv[:])

	padded := appendPadding(plaintext)
	out := make([]byte, len(padded))
	mode.CryptBlocks(out, padded)
	return out, nil
}

// appendPadding appends 1..16 bytes, each holding the padding length,
// so the result is always a multiple of the AES block size. A
// block-aligned input gets a full extra block of padding (p == 16).
func appendPadding(plaintext []byte) []byte {
	p := aes.BlockSize - (len(plaintext) % aes.BlockSize)
	out := make([]byte, len(plaintext)+p)
	copy(out, plaintext)
	for i := len(plaintext); i < len(out); i++ {
		out[i] = byte(p)
	}
	return out
}

// stripPadding removes and validates the trailing-byte padding.
func stripPadding(plain []byte) ([]byte, error) {
	if len(plain) == 0 {
		return nil, errEmptyPlaintext
	}
	p := int(plain[len(plain)-1])
	if p < 1 || p > aes.BlockSize || p > len(plain) {
		return nil, errBadPadding
	}
	return plain[:len(plain)-p], nil
}
