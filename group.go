package kdb

import (
	"fmt"

	"github.com/kdbtools/kdb/kdberr"
)

// Group field type codes, per spec section 6.1.
const (
	groupFieldIgnored      uint16 = 0x0000
	groupFieldGroupID      uint16 = 0x0001
	groupFieldName         uint16 = 0x0002
	groupFieldCreationTime uint16 = 0x0003
	groupFieldLastModTime  uint16 = 0x0004
	groupFieldLastAccTime  uint16 = 0x0005
	groupFieldExpireTime   uint16 = 0x0006
	groupFieldImageID      uint16 = 0x0007
	groupFieldLevel        uint16 = 0x0008
	groupFieldFlags        uint16 = 0x0009
)

// defaultExpireTime is the far-future sentinel KeePass v1 uses to mean
// "never expires", matched to what real clients write.
var defaultExpireTime = PackedDateTime{Year: 2999, Month: 12, Day: 28, Hour: 23, Minute: 59, Second: 0}

// Group is one node in the flat, level-annotated group sequence described
// in spec section 3. GroupID must be nonzero and not 0xFFFFFFFF.
type Group struct {
	GroupID      uint32
	GroupName    string
	CreationTime PackedDateTime
	LastModTime  PackedDateTime
	LastAccTime  PackedDateTime
	ExpireTime   PackedDateTime
	ImageID      uint32
	Level        uint16
	Flags        uint32

	// Unknown preserves field types this codec does not recognize, for a
	// lossless decode-then-encode round trip.
	Unknown []UnknownField
}

// NewGroup returns a Group with the defaults a freshly authored database
// would synthesize for a group absent any other values: the given
// GroupID, placeholder name, all timestamps set to now, and a far-future
// expiry.
func NewGroup(groupID uint32, now PackedDateTime) Group {
	return Group{
		GroupID:      groupID,
		GroupName:    "Unknown",
		CreationTime: now,
		LastModTime:  now,
		LastAccTime:  now,
		ExpireTime:   defaultExpireTime,
	}
}

// decodeGroup reads one group record from buf, returning the group and
// the number of bytes consumed.
func decodeGroup(buf []byte) (Group, int, error) {
	const op = "decode_group"
	fields, consumed, err := readFields(op, buf)
	if err != nil {
		return Group{}, 0, err
	}

	var g Group
	for _, f := range fields {
		switch f.typ {
		case groupFieldIgnored:
			// block is ignored per spec, but its bytes are not meaningful data.
		case groupFieldGroupID:
			v, derr := decodeU32(f.data)
			if derr != nil {
				return Group{}, 0, malformedField(op, f.typ, len(f.data), derr)
			}
			g.GroupID = v
		case groupFieldName:
			g.GroupName = decodeString(f.data)
		case groupFieldCreationTime:
			v, derr := decodePackedDateTime(f.data)
			if derr != nil {
				return Group{}, 0, malformedField(op, f.typ, len(f.data), derr)
			}
			g.CreationTime = v
		case groupFieldLastModTime:
			v, derr := decodePackedDateTime(f.data)
			if derr != nil {
				return Group{}, 0, malformedField(op, f.typ, len(f.data), derr)
			}
			g.LastModTime = v
		case groupFieldLastAccTime:
			v, derr := decodePackedDateTime(f.data)
			if derr != nil {
				return Group{}, 0, malformedField(op, f.typ, len(f.data), derr)
			}
			g.LastAccTime = v
		case groupFieldExpireTime:
			v, derr := decodePackedDateTime(f.data)
			if derr != nil {
				return Group{}, 0, malformedField(op, f.typ, len(f.data), derr)
			}
			g.ExpireTime = v
		case groupFieldImageID:
			v, derr := decodeU32(f.data)
			if derr != nil {
				return Group{}, 0, malformedField(op, f.typ, len(f.data), derr)
			}
			g.ImageID = v
		case groupFieldLevel:
			v, derr := decodeU16(f.data)
			if derr != nil {
				return Group{}, 0, malformedField(op, f.typ, len(f.data), derr)
			}
			g.Level = v
		case groupFieldFlags:
			v, derr := decodeU32(f.data)
			if derr != nil {
				return Group{}, 0, malformedField(op, f.typ, len(f.data), derr)
			}
			g.Flags = v
		case terminatorType:
			// end of record
		default:
			data := append([]byte(nil), f.data...)
			g.Unknown = append(g.Unknown, UnknownField{Type: f.typ, Data: data})
		}
	}
	return g, consumed, nil
}

// encodeGroup serializes g in canonical schema order, followed by any
// preserved unknown fields, then the terminator.
func encodeGroup(g Group) []byte {
	var buf []byte
	buf = writeField(buf, groupFieldGroupID, encodeU32(g.GroupID))
	buf = writeField(buf, groupFieldName, encodeString(g.GroupName))
	mustPackDT := func(v PackedDateTime) []byte {
		b, err := encodePackedDateTime(v)
		if err != nil {
			// Out-of-range values (e.g. a zero PackedDateTime) are not
			// rejected; they are written as defaultExpireTime instead.
			b, _ = encodePackedDateTime(defaultExpireTime)
		}
		return b[:]
	}
	buf = writeField(buf, groupFieldCreationTime, mustPackDT(g.CreationTime))
	buf = writeField(buf, groupFieldLastModTime, mustPackDT(g.LastModTime))
	buf = writeField(buf, groupFieldLastAccTime, mustPackDT(g.LastAccTime))
	buf = writeField(buf, groupFieldExpireTime, mustPackDT(g.ExpireTime))
	buf = writeField(buf, groupFieldImageID, encodeU32(g.ImageID))
	buf = writeField(buf, groupFieldLevel, encodeU16(g.Level))
	buf = writeField(buf, groupFieldFlags, encodeU32(g.Flags))
	for _, u := range g.Unknown {
		buf = writeField(buf, u.Type, u.Data)
	}
	buf = writeTerminator(buf)
	return buf
}

func malformedField(op string, typ uint16, size int, cause error) error {
	return kdberr.Wrap(op, kdberr.CodeMalformedField, fmt.Errorf("field type=0x%04x size=%d: %w", typ, size, cause))
}
