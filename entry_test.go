package kdb

import (
	"bytes"
	"testing"

	"github.com/kdbtools/kdb/kdberr"
)

func TestEntryRoundTrip(t *testing.T) {
	uuid, err := GenUUID()
	if err != nil {
		t.Fatalf("GenUUID: %v", err)
	}
	e := NewEntry(uuid, 9, PackedDateTime{Year: 2020, Month: 1, Day: 1})
	e.Title = "Gmail"
	e.Username = "me@example.com"
	e.Password = "s3cret"
	e.URL = "https://mail.google.com"
	e.Notes = "primary account"
	e.BinaryDesc = "attachment.bin"
	e.BinaryData = []byte{0xDE, 0xAD, 0xBE, 0xEF}

	buf := encodeEntry(e)
	got, consumed, err := decodeEntry(buf)
	if err != nil {
		t.Fatalf("decodeEntry: %v", err)
	}
	if consumed != len(buf) {
		t.Fatalf("want consumed=%d, got %d", len(buf), consumed)
	}
	if got.UUID != e.UUID || got.Title != e.Title || got.Username != e.Username ||
		got.Password != e.Password || got.URL != e.URL || got.Notes != e.Notes {
		t.Fatalf("round trip mismatch: want %+v, got %+v", e, got)
	}
	if !bytes.Equal(got.BinaryData, e.BinaryData) {
		t.Fatalf("binary data mismatch: want %x, got %x", e.BinaryData, got.BinaryData)
	}
}

func TestDecodeEntryRejectsWrongUUIDSize(t *testing.T) {
	var buf []byte
	buf = writeField(buf, entryFieldUUID, []byte{1, 2, 3})
	buf = writeTerminator(buf)
	_, _, err := decodeEntry(buf)
	if !kdberr.Is(err, kdberr.CodeMalformedField) {
		t.Fatalf("want CodeMalformedField, got %v", err)
	}
}

func TestGenUUIDIsNotConstant(t *testing.T) {
	a, err := GenUUID()
	if err != nil {
		t.Fatalf("GenUUID: %v", err)
	}
	b, err := GenUUID()
	if err != nil {
		t.Fatalf("GenUUID: %v", err)
	}
	if a == b {
		t.Fatal("GenUUID returned the same value twice; expected cryptographically random uuids")
	}
}
