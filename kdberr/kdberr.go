// Package kdberr defines the stable, programmatic error taxonomy for the
// kdb library, the same shape the teacher's fserrors package uses for its
// own user-facing operations: a stable Code plus a wrapped cause.
package kdberr

import "fmt"

// Code is a stable, programmatic error identifier.
type Code string

const (
	CodeIO                   Code = "io"
	CodeBadSignature         Code = "bad_signature"
	CodeUnsupportedVersion   Code = "unsupported_version"
	CodeUnsupportedCipher    Code = "unsupported_cipher"
	CodeMissingCredentials   Code = "missing_credentials"
	CodeDecryptionFailed     Code = "decryption_failed"
	CodeIntegrityCheckFailed Code = "integrity_check_failed"
	CodeTruncated            Code = "truncated"
	CodeTrailingGarbage      Code = "trailing_garbage"
	CodeFieldTooLarge        Code = "field_too_large"
	CodeMalformedField       Code = "malformed_field"
	CodeMalformedHierarchy   Code = "malformed_hierarchy"
	CodeDuplicateGroupID     Code = "duplicate_group_id"
	CodeUnknownGroupID       Code = "unknown_group_id"
	CodeImplausiblePayload   Code = "implausible_payload"
	CodeNoPath               Code = "no_path"
)

// BadKeyGuidance is the single user-facing message shared by
// IntegrityCheckFailed and DecryptionFailed so a caller cannot tell from
// the message alone whether the key was wrong or the file was damaged.
const BadKeyGuidance = "wrong key or damaged file"

// Error is a structured, programmatically identifiable error.
type Error struct {
	Op   string // operation that failed, e.g. "open", "decode_group"
	Code Code
	Err error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap builds an *Error for op/code, optionally wrapping a lower-level cause.
func Wrap(op string, code Code, err error) error {
	return &Error{Op: op, Code: code, Err: err}
}

// Is reports whether err is a kdberr.Error carrying the given code.
func Is(err error, code Code) bool {
	var e *Error
	for err != nil {
		if ae, ok := err.(*Error); ok {
			e = ae
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return e != nil && e.Code == code
}
