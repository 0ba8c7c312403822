package protocol

import "errors"

var (
	ErrNegativeLength  = errors.New("protocol: negative length")
	ErrValueTooLarge   = errors.New("protocol: value exceeds size limit")
	ErrStringTooLong   = errors.New("protocol: encoded string exceeds 65535 bytes")
	ErrBatchTooLarge   = errors.New("protocol: batch exceeds size limit")
	ErrInvalidStatus   = errors.New("protocol: invalid status byte")
	ErrMalformedString = errors.New("protocol: malformed modified UTF-8")
)
