package kdb

// Entry field type codes, per spec section 6.1.
const (
	entryFieldIgnored        uint16 = 0x0000
	entryFieldUUID           uint16 = 0x0001
	entryFieldGroupID        uint16 = 0x0002
	entryFieldImageID        uint16 = 0x0003
	entryFieldTitle          uint16 = 0x0004
	entryFieldURL            uint16 = 0x0005
	entryFieldUsername       uint16 = 0x0006
	entryFieldPassword       uint16 = 0x0007
	entryFieldNotes          uint16 = 0x0008
	entryFieldCreationTime   uint16 = 0x0009
	entryFieldLastModTime    uint16 = 0x000A
	entryFieldLastAccTime    uint16 = 0x000B
	entryFieldExpirationTime uint16 = 0x000C
	entryFieldBinaryDesc     uint16 = 0x000D
	entryFieldBinaryData     uint16 = 0x000E
)

// MetaInfoTitle is the sentinel title KeePass uses for client-settings
// entries. Real files carry these; they must survive a round trip but
// may be hidden from user-facing listings.
const MetaInfoTitle = "Meta-Info"

// Entry is one password record, per spec section 3.
type Entry struct {
	UUID            [16]byte
	GroupID         uint32
	ImageID         uint32
	Title           string
	URL             string
	Username        string
	Password        string
	Notes           string
	CreationTime    PackedDateTime
	LastModTime     PackedDateTime
	LastAccTime     PackedDateTime
	ExpirationTime  PackedDateTime
	BinaryDesc      string
	BinaryData      []byte

	// Unknown preserves field types this codec does not recognize, for a
	// lossless decode-then-encode round trip.
	Unknown []UnknownField
}

// NewEntry returns an Entry with the given UUID and group/time defaults,
// ready to have Title/Username/Password/etc. filled in.
func NewEntry(uuid [16]byte, groupID uint32, now PackedDateTime) Entry {
	return Entry{
		UUID:           uuid,
		GroupID:        groupID,
		Title:          "Unknown",
		CreationTime:   now,
		LastModTime:    now,
		LastAccTime:    now,
		ExpirationTime: defaultExpireTime,
	}
}

// decodeEntry reads one entry record from buf, returning the entry and
// the number of bytes consumed.
func decodeEntry(buf []byte) (Entry, int, error) {
	const op = "decode_entry"
	fields, consumed, err := readFields(op, buf)
	if err != nil {
		return Entry{}, 0, err
	}

	var e Entry
	for _, f := range fields {
		switch f.typ {
		case entryFieldIgnored:
		case entryFieldUUID:
			if len(f.data) != 16 {
				return Entry{}, 0, malformedField(op, f.typ, len(f.data), errWrongUUIDSize)
			}
			copy(e.UUID[:], f.data)
		case entryFieldGroupID:
			v, derr := decodeU32(f.data)
			if derr != nil {
				return Entry{}, 0, malformedField(op, f.typ, len(f.data), derr)
			}
			e.GroupID = v
		case entryFieldImageID:
			v, derr := decodeU32(f.data)
			if derr != nil {
				return Entry{}, 0, malformedField(op, f.typ, len(f.data), derr)
			}
			e.ImageID = v
		case entryFieldTitle:
			e.Title = decodeString(f.data)
		case entryFieldURL:
			e.URL = decodeString(f.data)
		case entryFieldUsername:
			e.Username = decodeString(f.data)
		case entryFieldPassword:
			e.Password = decodeString(f.data)
		case entryFieldNotes:
			e.Notes = decodeString(f.data)
		case entryFieldCreationTime:
			v, derr := decodePackedDateTime(f.data)
			if derr != nil {
				return Entry{}, 0, malformedField(op, f.typ, len(f.data), derr)
			}
			e.CreationTime = v
		case entryFieldLastModTime:
			v, derr := decodePackedDateTime(f.data)
			if derr != nil {
				return Entry{}, 0, malformedField(op, f.typ, len(f.data), derr)
			}
			e.LastModTime = v
		case entryFieldLastAccTime:
			v, derr := decodePackedDateTime(f.data)
			if derr != nil {
				return Entry{}, 0, malformedField(op, f.typ, len(f.data), derr)
			}
			e.LastAccTime = v
		case entryFieldExpirationTime:
			v, derr := decodePackedDateTime(f.data)
			if derr != nil {
				return Entry{}, 0, malformedField(op, f.typ, len(f.data), derr)
			}
			e.ExpirationTime = v
		case entryFieldBinaryDesc:
			e.BinaryDesc = decodeString(f.data)
		case entryFieldBinaryData:
			e.BinaryData = append([]byte(nil), f.data...)
		case terminatorType:
		default:
			data := append([]byte(nil), f.data...)
			e.Unknown = append(e.Unknown, UnknownField{Type: f.typ, Data: data})
		}
	}
	return e, consumed, nil
}

// encodeEntry serializes e in canonical schema order, followed by any
// preserved unknown fields, then the terminator.
func encodeEntry(e Entry) []byte {
	var buf []byte
	buf = writeField(buf, entryFieldUUID, e.UUID[:])
	buf = writeField(buf, entryFieldGroupID, encodeU32(e.GroupID))
	buf = writeField(buf, entryFieldImageID, encodeU32(e.ImageID))
	buf = writeField(buf, entryFieldTitle, encodeString(e.Title))
	buf = writeField(buf, entryFieldURL, encodeString(e.URL))
	buf = writeField(buf, entryFieldUsername, encodeString(e.Username))
	buf = writeField(buf, entryFieldPassword, encodeString(e.Password))
	buf = writeField(buf, entryFieldNotes, encodeString(e.Notes))
	mustPackDT := func(v PackedDateTime) []byte {
		b, err := encodePackedDateTime(v)
		if err != nil {
			b, _ = encodePackedDateTime(defaultExpireTime)
		}
		return b[:]
	}
	buf = writeField(buf, entryFieldCreationTime, mustPackDT(e.CreationTime))
	buf = writeField(buf, entryFieldLastModTime, mustPackDT(e.LastModTime))
	buf = writeField(buf, entryFieldLastAccTime, mustPackDT(e.LastAccTime))
	buf = writeField(buf, entryFieldExpirationTime, mustPackDT(e.ExpirationTime))
	buf = writeField(buf, entryFieldBinaryDesc, encodeString(e.BinaryDesc))
	buf = writeField(buf, entryFieldBinaryData, e.BinaryData)
	for _, u := range e.Unknown {
		buf = writeField(buf, u.Type, u.Data)
	}
	buf = writeTerminator(buf)
	return buf
}
