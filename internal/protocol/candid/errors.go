package candid

import "errors"

var (
	ErrInvalidMagic       = errors.New("candid: invalid magic")
	ErrTruncated          = errors.New("candid: truncated data")
	ErrInvalidLength      = errors.New("candid: invalid length")
	ErrUnknownType        = errors.New("candid: unknown type")
	ErrTypeTableTooLarge  = errors.New("candid: type table too large")
	ErrFieldOrder         = errors.New("candid: record fields not ascending")
	ErrTooDeep            = errors.New("candid: value nesting too deep")
	ErrTrailingBytes      = errors.New("candid: trailing bytes")
	ErrArgCount           = errors.New("candid: unexpected argument count")
	ErrInvalidUTF8        = errors.New("candid: invalid utf-8 text")
	ErrTextTooLong        = errors.New("candid: text too long")
	ErrKindMismatch       = errors.New("candid: value kind mismatch")
	ErrShapeMismatch      = errors.New("candid: record does not match shape")
	ErrUnsupportedShape   = errors.New("candid: unsupported record shape")
	ErrUnrecognizedRecord = errors.New("candid: record matches no known shape")
)
