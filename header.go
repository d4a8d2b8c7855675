package kdb

import (
	"github.com/kdbtools/kdb/internal/bin"
	"github.com/kdbtools/kdb/kdberr"
)

// HeaderSize is the fixed on-disk size of a kdb database header.
const HeaderSize = 124

const (
	signature1 uint32 = 0x9AA2D903
	signature2 uint32 = 0xB54BFB65

	// versionMajorMask/versionMajorWant accept the 0x00030002 "family":
	// any minor version under major version 3.
	versionMajorMask uint32 = 0xFFFF0000
	versionMajorWant uint32 = 0x00030000

	flagRijndael uint32 = 0x00000002
	flagTwofish  uint32 = 0x00000008
)

// EncryptionType identifies the payload cipher named by Header.Flags.
type EncryptionType int

const (
	EncryptionUnknown EncryptionType = iota
	EncryptionRijndael
)

// Header is the fixed 124-byte kdb database header, laid out exactly as
// spec section 6.1 describes.
type Header struct {
	Signature1      uint32
	Signature2      uint32
	Flags           uint32
	Version         uint32
	MasterSeed      [16]byte
	EncryptionIV    [16]byte
	NGroups         uint32
	NEntries        uint32
	ContentsHash    [32]byte
	TransformSeed   [32]byte
	TransformRounds uint32
}

// EncryptionType derives the payload cipher from Flags. Only Rijndael
// (AES) is supported; any other bit (e.g. Twofish) is rejected by the
// caller, not silently ignored.
func (h Header) EncryptionType() EncryptionType {
	if h.Flags&flagRijndael != 0 {
		return EncryptionRijndael
	}
	return EncryptionUnknown
}

// decodeHeader parses the fixed 124-byte header, validating the two
// magic signatures and the version family before returning.
func decodeHeader(buf []byte) (Header, error) {
	const op = "decode_header"
	if len(buf) != HeaderSize {
		return Header{}, kdberr.Wrap(op, kdberr.CodeTruncated, nil)
	}

	var h Header
	h.Signature1 = bin.U32(buf[0:4])
	h.Signature2 = bin.U32(buf[4:8])
	h.Flags = bin.U32(buf[8:12])
	h.Version = bin.U32(buf[12:16])
	copy(h.MasterSeed[:], buf[16:32])
	copy(h.EncryptionIV[:], buf[32:48])
	h.NGroups = bin.U32(buf[48:52])
	h.NEntries = bin.U32(buf[52:56])
	copy(h.ContentsHash[:], buf[56:88])
	copy(h.TransformSeed[:], buf[88:120])
	h.TransformRounds = bin.U32(buf[120:124])

	if h.Signature1 != signature1 || h.Signature2 != signature2 {
		return Header{}, kdberr.Wrap(op, kdberr.CodeBadSignature, nil)
	}
	if h.Version&versionMajorMask != versionMajorWant {
		return Header{}, kdberr.Wrap(op, kdberr.CodeUnsupportedVersion, nil)
	}
	if h.EncryptionType() != EncryptionRijndael {
		return Header{}, kdberr.Wrap(op, kdberr.CodeUnsupportedCipher, nil)
	}
	return h, nil
}

// encodeHeader serializes h into the fixed 124-byte wire layout.
func encodeHeader(h Header) []byte {
	buf := make([]byte, HeaderSize)
	bin.PutU32(buf[0:4], signature1)
	bin.PutU32(buf[4:8], signature2)
	bin.PutU32(buf[8:12], h.Flags)
	bin.PutU32(buf[12:16], h.Version)
	copy(buf[16:32], h.MasterSeed[:])
	copy(buf[32:48], h.EncryptionIV[:])
	bin.PutU32(buf[48:52], h.NGroups)
	bin.PutU32(buf[52:56], h.NEntries)
	copy(buf[56:88], h.ContentsHash[:])
	copy(buf[88:120], h.TransformSeed[:])
	bin.PutU32(buf[120:124], h.TransformRounds)
	return buf
}
