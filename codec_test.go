package kdb

import "testing"

func TestPackedDateTimeRoundTrip(t *testing.T) {
	cases := []PackedDateTime{
		{Year: 2004, Month: 9, Day: 15, Hour: 8, Minute: 30, Second: 0},
		{Year: 2999, Month: 12, Day: 28, Hour: 23, Minute: 59, Second: 0},
		{Year: 0, Month: 1, Day: 1, Hour: 0, Minute: 0, Second: 0},
		{Year: maxPackedYear, Month: 12, Day: 31, Hour: 23, Minute: 59, Second: 59},
	}
	for _, v := range cases {
		b, err := encodePackedDateTime(v)
		if err != nil {
			t.Fatalf("encode(%+v): %v", v, err)
		}
		got, err := decodePackedDateTime(b[:])
		if err != nil {
			t.Fatalf("decode(%x): %v", b, err)
		}
		if got != v {
			t.Fatalf("round trip mismatch: want %+v, got %+v", v, got)
		}
	}
}

func TestPackedDateTimeRejectsOutOfRange(t *testing.T) {
	_, err := encodePackedDateTime(PackedDateTime{Year: 2004, Month: 13, Day: 1})
	if err == nil {
		t.Fatal("expected error for month 13")
	}
}

func TestPackedDateTimeDecodeWrongSize(t *testing.T) {
	if _, err := decodePackedDateTime([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error for short buffer")
	}
}

func TestStringRoundTrip(t *testing.T) {
	cases := []string{"", "hello", "a whole sentence with spaces"}
	for _, s := range cases {
		got := decodeString(encodeString(s))
		if got != s {
			t.Fatalf("round trip mismatch: want %q, got %q", s, got)
		}
	}
}

func TestDecodeStringStripsEmbeddedNULs(t *testing.T) {
	got := decodeString([]byte("ab\x00cd\x00"))
	if got != "abcd" {
		t.Fatalf("want %q, got %q", "abcd", got)
	}
}

func TestAsciiHexRoundTrip(t *testing.T) {
	raw := []byte{0x01, 0x02, 0xAB, 0xCD, 0xEF, 0x00, 0x10, 0xFF,
		0x01, 0x02, 0xAB, 0xCD, 0xEF, 0x00, 0x10, 0xFF}
	s := decodeAsciiHex(raw)
	got, err := encodeAsciiHex(s)
	if err != nil {
		t.Fatalf("encodeAsciiHex: %v", err)
	}
	if len(got) != len(raw) {
		t.Fatalf("length mismatch: want %d, got %d", len(raw), len(got))
	}
	for i := range raw {
		if got[i] != raw[i] {
			t.Fatalf("byte %d mismatch: want %x, got %x", i, raw[i], got[i])
		}
	}
}

func TestU16U32RoundTrip(t *testing.T) {
	if v, err := decodeU16(encodeU16(0xBEEF)); err != nil || v != 0xBEEF {
		t.Fatalf("u16 round trip failed: v=%x err=%v", v, err)
	}
	if v, err := decodeU32(encodeU32(0xDEADBEEF)); err != nil || v != 0xDEADBEEF {
		t.Fatalf("u32 round trip failed: v=%x err=%v", v, err)
	}
}
