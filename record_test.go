package kdb

import (
	"testing"

	"github.com/kdbtools/kdb/kdberr"
)

func TestReadFieldsTruncated(t *testing.T) {
	buf := []byte{0x01, 0x00} // type only, missing size+data
	_, _, err := readFields("test", buf)
	if !kdberr.Is(err, kdberr.CodeTruncated) {
		t.Fatalf("want CodeTruncated, got %v", err)
	}
}

func TestReadFieldsFieldTooLarge(t *testing.T) {
	var buf []byte
	buf = writeField(buf, 0x0001, make([]byte, 0))
	// Overwrite the size bytes of that field to claim an oversized payload
	// without actually allocating maxFieldSize+1 bytes of data.
	oversize := encodeU32(maxFieldSize + 1)
	copy(buf[2:6], oversize)
	_, _, err := readFields("test", buf)
	if !kdberr.Is(err, kdberr.CodeFieldTooLarge) {
		t.Fatalf("want CodeFieldTooLarge, got %v", err)
	}
}

func TestReadFieldsMalformedTerminator(t *testing.T) {
	var buf []byte
	buf = writeField(buf, terminatorType, []byte{0x01})
	_, _, err := readFields("test", buf)
	if !kdberr.Is(err, kdberr.CodeMalformedField) {
		t.Fatalf("want CodeMalformedField, got %v", err)
	}
}

func TestReadFieldsEmptyFieldRoundTrips(t *testing.T) {
	var buf []byte
	buf = writeField(buf, 0x0002, []byte{})
	buf = writeTerminator(buf)
	fields, consumed, err := readFields("test", buf)
	if err != nil {
		t.Fatalf("readFields: %v", err)
	}
	if consumed != len(buf) {
		t.Fatalf("want consumed=%d, got %d", len(buf), consumed)
	}
	if len(fields) != 2 || len(fields[0].data) != 0 {
		t.Fatalf("unexpected fields: %+v", fields)
	}
}
