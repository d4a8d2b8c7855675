// Package bin provides little-endian fixed-width integer helpers for the
// kdb wire format, which is defined byte-for-byte in little-endian order.
package bin

import "encoding/binary"

// PutU16 writes a uint16 in little-endian order.
func PutU16(dst []byte, v uint16) { binary.LittleEndian.PutUint16(dst, v) }

// PutU32 writes a uint32 in little-endian order.
func PutU32(dst []byte, v uint32) { binary.LittleEndian.PutUint32(dst, v) }

// U16 reads a uint16 in little-endian order.
func U16(src []byte) uint16 { return binary.LittleEndian.Uint16(src) }

// U32 reads a uint32 in little-endian order.
func U32(src []byte) uint32 { return binary.LittleEndian.Uint32(src) }
