package kdb

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/kdbtools/kdb/internal/bin"
	"github.com/kdbtools/kdb/kdberr"
)

// PackedDateTime is the 5-byte bit-packed timestamp used throughout the
// kdb wire format. It intentionally does not validate calendar
// consistency (e.g. day 31 in February) beyond each field's own natural
// range — the wire format never guarantees the bytes it carries form a
// real calendar date, and the codec's job is lossless round-trip, not
// calendar arithmetic.
type PackedDateTime struct {
	Year   int // 0..16383 (14 bits)
	Month  int // 1..12
	Day    int // 1..31
	Hour   int // 0..23
	Minute int // 0..59
	Second int // 0..59
}

const maxPackedYear = 1<<14 - 1

// decodePackedDateTime unpacks the 5-byte wire form described in spec
// section 4.1. It rejects field values outside their natural calendar
// ranges, even though every value is reachable from some 5-byte input.
func decodePackedDateTime(b []byte) (PackedDateTime, error) {
	if len(b) != 5 {
		return PackedDateTime{}, fmt.Errorf("packed datetime: want 5 bytes, got %d", len(b))
	}
	year := (int(b[0]) << 6) | (int(b[1]) >> 2)
	month := ((int(b[1]) & 0b11) << 2) | (int(b[2]) >> 6)
	day := (int(b[2]) & 0b111111) >> 1
	hour := ((int(b[2]) & 0b1) << 4) | (int(b[3]) >> 4)
	minute := ((int(b[3]) & 0b1111) << 2) | (int(b[4]) >> 6)
	second := int(b[4]) & 0b111111

	v := PackedDateTime{Year: year, Month: month, Day: day, Hour: hour, Minute: minute, Second: second}
	if err := v.validate(); err != nil {
		return PackedDateTime{}, err
	}
	return v, nil
}

// encodePackedDateTime is the inverse of decodePackedDateTime.
func encodePackedDateTime(v PackedDateTime) ([5]byte, error) {
	if err := v.validate(); err != nil {
		return [5]byte{}, err
	}
	var b [5]byte
	b[0] = byte(v.Year >> 6)
	b[1] = byte(((v.Year & 0x3F) << 2) | ((v.Month >> 2) & 0x3))
	b[2] = byte(((v.Month & 0x3) << 6) | ((v.Day & 0x1F) << 1) | ((v.Hour >> 4) & 0x1))
	b[3] = byte(((v.Hour & 0xF) << 4) | ((v.Minute >> 2) & 0xF))
	b[4] = byte(((v.Minute & 0x3) << 6) | (v.Second & 0x3F))
	return b, nil
}

func (v PackedDateTime) validate() error {
	switch {
	case v.Year < 0 || v.Year > maxPackedYear:
		return fmt.Errorf("packed datetime: year %d out of range", v.Year)
	case v.Month < 1 || v.Month > 12:
		return fmt.Errorf("packed datetime: month %d out of range", v.Month)
	case v.Day < 1 || v.Day > 31:
		return fmt.Errorf("packed datetime: day %d out of range", v.Day)
	case v.Hour < 0 || v.Hour > 23:
		return fmt.Errorf("packed datetime: hour %d out of range", v.Hour)
	case v.Minute < 0 || v.Minute > 59:
		return fmt.Errorf("packed datetime: minute %d out of range", v.Minute)
	case v.Second < 0 || v.Second > 59:
		return fmt.Errorf("packed datetime: second %d out of range", v.Second)
	}
	return nil
}

// decodeString strips all NUL bytes from the wire form, not merely a
// single trailing terminator — some real kdb files carry embedded NULs.
func decodeString(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return strings.ReplaceAll(string(b), "\x00", "")
}

// encodeString appends a single terminating NUL, per the wire format.
func encodeString(s string) []byte {
	out := make([]byte, 0, len(s)+1)
	out = append(out, s...)
	out = append(out, 0)
	return out
}

// decodeAsciiHex returns the lowercase hex encoding of raw bytes.
func decodeAsciiHex(b []byte) string {
	return hex.EncodeToString(b)
}

// encodeAsciiHex hex-decodes a lowercase (or mixed-case) hex string.
func encodeAsciiHex(s string) ([]byte, error) {
	out, err := hex.DecodeString(s)
	if err != nil {
		return nil, kdberr.Wrap("encode_ascii_hex", kdberr.CodeMalformedField, err)
	}
	return out, nil
}

func decodeU16(b []byte) (uint16, error) {
	if len(b) != 2 {
		return 0, fmt.Errorf("u16: want 2 bytes, got %d", len(b))
	}
	return bin.U16(b), nil
}

func encodeU16(v uint16) []byte {
	b := make([]byte, 2)
	bin.PutU16(b, v)
	return b
}

func decodeU32(b []byte) (uint32, error) {
	if len(b) != 4 {
		return 0, fmt.Errorf("u32: want 4 bytes, got %d", len(b))
	}
	return bin.U32(b), nil
}

func encodeU32(v uint32) []byte {
	b := make([]byte, 4)
	bin.PutU32(b, v)
	return b
}
