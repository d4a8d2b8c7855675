package kdb

import (
	"github.com/kdbtools/kdb/internal/bin"
	"github.com/kdbtools/kdb/kdberr"
)

// maxFieldSize is the sanity cap on an individual TLV field's data size,
// enforced before any allocation of that size.
const maxFieldSize = 200_000

// terminatorType marks the end of a record's field stream.
const terminatorType uint16 = 0xFFFF

// rawField is one (type, data) pair read off the wire, prior to being
// matched against a record's schema.
type rawField struct {
	typ  uint16
	data []byte
}

// UnknownField preserves a field whose type code is not recognized by a
// record's schema, so that a decode-then-encode round trip does not
// silently drop data a future KeePass version (or another client) wrote.
type UnknownField struct {
	Type uint16
	Data []byte
}

// readFields consumes (type uint16 LE, size uint32 LE, data[size]) triples
// from buf until the 0xFFFF/size==0 terminator, returning the fields seen
// (including the terminator) and the number of bytes consumed.
func readFields(op string, buf []byte) ([]rawField, int, error) {
	var fields []rawField
	idx := 0
	for {
		if idx+6 > len(buf) {
			return nil, 0, kdberr.Wrap(op, kdberr.CodeTruncated, nil)
		}
		typ := bin.U16(buf[idx : idx+2])
		size := bin.U32(buf[idx+2 : idx+6])
		idx += 6

		if size > maxFieldSize {
			return nil, 0, kdberr.Wrap(op, kdberr.CodeFieldTooLarge, nil)
		}
		if typ == terminatorType && size != 0 {
			return nil, 0, kdberr.Wrap(op, kdberr.CodeMalformedField, nil)
		}
		if idx+int(size) > len(buf) {
			return nil, 0, kdberr.Wrap(op, kdberr.CodeTruncated, nil)
		}
		data := buf[idx : idx+int(size)]
		idx += int(size)

		fields = append(fields, rawField{typ: typ, data: data})
		if typ == terminatorType {
			break
		}
	}
	return fields, idx, nil
}

// writeField appends one (type, size, data) triple in wire form.
func writeField(dst []byte, typ uint16, data []byte) []byte {
	dst = append(dst, encodeU16(typ)...)
	dst = append(dst, encodeU32(uint32(len(data)))...)
	dst = append(dst, data...)
	return dst
}

// writeTerminator appends the 0xFFFF/size==0 record terminator.
func writeTerminator(dst []byte) []byte {
	return writeField(dst, terminatorType, nil)
}
