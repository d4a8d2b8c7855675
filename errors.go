package kdb

import "errors"

// Internal sentinel causes, wrapped into kdberr.Error by their callers.
var (
	errWrongUUIDSize  = errors.New("uuid field must be 16 bytes")
	errFileKeySize    = errors.New("file key must be 32 bytes")
	errEmptyPlaintext    = errors.New("decrypted payload is empty")
	errBadPadding        = errors.New("invalid trailing padding")
	errUnknownGroupField = errors.New("unsupported group field")
)
