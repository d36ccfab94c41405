// Package resp contains the values produced when decoding the RESP protocol
// (the network protocol that redis uses) off of a byte stream.
package resp

import (
	"strings"

	errors "golang.org/x/xerrors"

	"github.com/mediocregopher/respfeed/internal/bytesutil"
)

// Kind describes which of the RESP reply types a Message was decoded from.
type Kind int

// All possible Kind values. The zero Kind is not a valid reply type.
const (
	Status Kind = iota + 1 // +
	Error                  // -
	Int                    // :
	Bulk                   // $
	Array                  // *
)

// Prefix returns the type-tag byte which introduces the Kind on the wire, or
// zero for an unknown Kind.
func (k Kind) Prefix() byte {
	switch k {
	case Status:
		return '+'
	case Error:
		return '-'
	case Int:
		return ':'
	case Bulk:
		return '$'
	case Array:
		return '*'
	}
	return 0
}

func (k Kind) String() string {
	switch k {
	case Status:
		return "status"
	case Error:
		return "error"
	case Int:
		return "int"
	case Bulk:
		return "bulk"
	case Array:
		return "array"
	}
	return "unknown"
}

// KindOf returns the Kind introduced by the given type-tag byte, and false if
// the byte doesn't introduce any known Kind.
func KindOf(prefix byte) (Kind, bool) {
	switch prefix {
	case '+':
		return Status, true
	case '-':
		return Error, true
	case ':':
		return Int, true
	case '$':
		return Bulk, true
	case '*':
		return Array, true
	}
	return 0, false
}

// ServerError is an error reply sent by the server, e.g. "ERR unknown command"
// or "WRONGTYPE ...". It is a successfully decoded value, not a failure of the
// stream it was read off of.
type ServerError struct {
	S string
}

func (e ServerError) Error() string {
	return e.S
}

// Prefix returns the first word of the error, which redis uses to categorize
// errors (e.g. "ERR", "WRONGTYPE", "MOVED").
func (e ServerError) Prefix() string {
	if i := strings.IndexByte(e.S, ' '); i >= 0 {
		return e.S[:i]
	}
	return e.S
}

// Message is a single fully decoded RESP reply. Which fields are filled in
// depends on Kind:
//
//	Status: Raw or Text, depending on whether the decoder is in text mode.
//	Error:  Text, always.
//	Int:    Text, always, holding the decimal integer as it was sent.
//	Bulk:   Raw or Text like Status, or Nil for a nil bulk string ($-1).
//	Array:  Elems, or Nil for a nil array (*-1).
//
// A Message never shares memory with the buffer it was decoded from, and may
// be retained for as long as necessary.
type Message struct {
	Kind  Kind
	Raw   []byte
	Text  string
	Elems []Message
	Nil   bool
}

// IsNil returns true for nil bulk strings and nil arrays.
func (m Message) IsNil() bool {
	return m.Nil
}

// Bytes returns the payload of a scalar Message as bytes, regardless of which
// of Raw or Text holds it. Arrays and nils return nil.
func (m Message) Bytes() []byte {
	if m.Nil || m.Kind == Array {
		return nil
	} else if m.Raw != nil {
		return m.Raw
	}
	return []byte(m.Text)
}

// Int64 parses the payload of a scalar Message as a base-10 signed integer.
func (m Message) Int64() (int64, error) {
	if m.Nil || m.Kind == Array {
		return 0, errors.Errorf("cannot parse %s message as integer", m.kindDesc())
	} else if m.Raw != nil {
		return bytesutil.ParseInt(m.Raw)
	}
	return bytesutil.ParseInt([]byte(m.Text))
}

// Err returns the ServerError held by an Error Message, or nil for any other
// Kind.
func (m Message) Err() error {
	if m.Kind != Error {
		return nil
	}
	return ServerError{S: m.Text}
}

func (m Message) kindDesc() string {
	if m.Nil {
		return "nil " + m.Kind.String()
	}
	return m.Kind.String()
}

// String returns the payload of scalar Messages as-is, "<nil>" for nils, and
// arrays as their elements inside square brackets.
func (m Message) String() string {
	if m.Nil {
		return "<nil>"
	} else if m.Kind != Array {
		if m.Raw != nil {
			return string(m.Raw)
		}
		return m.Text
	}

	var sb strings.Builder
	sb.WriteByte('[')
	for i := range m.Elems {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(m.Elems[i].String())
	}
	sb.WriteByte(']')
	return sb.String()
}
