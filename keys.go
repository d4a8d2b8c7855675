package kdb

import (
	"crypto/aes"
	"crypto/sha256"

	"github.com/kdbtools/kdb/kdberr"
)

// Credentials identifies the key material a caller supplies to open or
// create a database: any combination of a 32-byte key-file payload and a
// passphrase. The key-file's on-disk 64-hex-character form is decoded by
// the caller (spec section 6.2) before being passed in here.
type Credentials struct {
	Passphrase string
	FileKey    []byte // must be exactly 32 bytes if present
}

// compositeKey assembles the 32-byte composite key from whichever
// credentials are present, per spec section 4.4.
func compositeKey(creds Credentials) ([32]byte, error) {
	const op = "composite_key"
	hasFileKey := len(creds.FileKey) > 0
	hasPassphrase := creds.Passphrase != ""

	switch {
	case hasFileKey && len(creds.FileKey) != 32:
		return [32]byte{}, kdberr.Wrap(op, kdberr.CodeMissingCredentials, errFileKeySize)
	case hasFileKey && !hasPassphrase:
		var out [32]byte
		copy(out[:], creds.FileKey)
		return out, nil
	case hasPassphrase && !hasFileKey:
		return sha256.Sum256([]byte(creds.Passphrase)), nil
	case hasPassphrase && hasFileKey:
		passHash := sha256.Sum256([]byte(creds.Passphrase))
		mix := make([]byte, 0, 64)
		mix = append(mix, passHash[:]...)
		mix = append(mix, creds.FileKey...)
		return sha256.Sum256(mix), nil
	default:
		return [32]byte{}, kdberr.Wrap(op, kdberr.CodeMissingCredentials, nil)
	}
}

// transformKey applies the iterated AES-ECB key-strengthening step: the
// composite key's two 16-byte halves are each encrypted independently,
// rounds times, under transformSeed. The round count is honored
// verbatim — no upper bound is enforced here (spec section 4.4).
func transformKey(composite [32]byte, transformSeed [32]byte, rounds uint32) ([32]byte, error) {
	block, err := aes.NewCipher(transformSeed[:])
	if err != nil {
		return [32]byte{}, kdberr.Wrap("transform_key", kdberr.CodeUnsupportedCipher, err)
	}

	out := composite
	left, right := out[:16], out[16:32]
	for i := uint32(0); i < rounds; i++ {
		block.Encrypt(left, left)
		block.Encrypt(right, right)
	}
	return out, nil
}

// finalKey mixes the transformed composite key with the header's master
// seed to produce the AES-CBC key used for the payload cipher.
func finalKey(transformed [32]byte, masterSeed [16]byte) [32]byte {
	tdigest := sha256.Sum256(transformed[:])
	mix := make([]byte, 0, 16+32)
	mix = append(mix, masterSeed[:]...)
	mix = append(mix, tdigest[:]...)
	return sha256.Sum256(mix)
}

// deriveFinalKey runs the full composite -> transform -> final pipeline.
func deriveFinalKey(creds Credentials, transformSeed [32]byte, rounds uint32, masterSeed [16]byte) ([32]byte, error) {
	composite, err := compositeKey(creds)
	if err != nil {
		return [32]byte{}, err
	}
	transformed, err := transformKey(composite, transformSeed, rounds)
	if err != nil {
		return [32]byte{}, err
	}
	return finalKey(transformed, masterSeed), nil
}
