package respfeed

import (
	"fmt"

	errors "golang.org/x/xerrors"
)

// Errors which may be wrapped by a ProtocolError. Use errors.Is to check for
// them.
var (
	// ErrUnknownType is used when a message starts with a byte which isn't
	// one of the RESP type prefixes.
	ErrUnknownType = errors.New("unknown type prefix")

	// ErrMalformedHeader is used when the length line of a bulk string or
	// array isn't a valid length.
	ErrMalformedHeader = errors.New("malformed length header")

	// ErrHeaderTooLong is used when no \r\n is found within the maximum header
	// length of a bulk string or array (see DecoderMaxHeaderLen).
	ErrHeaderTooLong = errors.New("length header too long")

	// ErrLineTooLong is used when no \r\n is found within the maximum line
	// length of a status, error or integer (see DecoderMaxLineLen).
	ErrLineTooLong = errors.New("line too long")

	// ErrBulkTooLarge is used when a bulk string declares a length greater
	// than the maximum (see DecoderMaxBulkLen).
	ErrBulkTooLarge = errors.New("bulk string too large")

	// ErrArrayTooLarge is used when an array declares more elements than the
	// maximum (see DecoderMaxArrayLen).
	ErrArrayTooLarge = errors.New("array too large")

	// ErrMissingDelim is used when the body of a bulk string isn't followed by
	// \r\n.
	ErrMissingDelim = errors.New("bulk string not terminated by \\r\\n")

	// ErrMaxDepth is used when arrays are nested deeper than the maximum (see
	// DecoderMaxDepth).
	ErrMaxDepth = errors.New("arrays nested too deeply")

	// ErrInvalidText is used when the Decoder is in text mode and a payload
	// can't be decoded using the configured encoding.
	ErrInvalidText = errors.New("payload could not be decoded as text")
)

// ProtocolError is returned by Decoder.Feed when the stream being decoded is
// not valid RESP. Once a ProtocolError has been returned the stream can't be
// decoded any further, and the connection it came from should be abandoned.
type ProtocolError struct {
	// Offset is the position in the stream, counting every byte ever fed to
	// the Decoder, at which the problem was found.
	Offset int64

	// Err describes the problem. It will wrap one of the Err* values in this
	// package.
	Err error
}

func (pe *ProtocolError) Error() string {
	return fmt.Sprintf("resp protocol error at offset %d: %s", pe.Offset, pe.Err)
}

// Unwrap implements the errors.Wrapper interface.
func (pe *ProtocolError) Unwrap() error {
	return pe.Err
}
