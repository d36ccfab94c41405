// Package bytesutil provides utility functions for working with bytes that are
// useful when decoding the RESP protocol out of in-memory buffers.
package bytesutil

import (
	"bytes"
	"errors"
	"fmt"
)

// Delim is the two byte sequence terminating every RESP line.
var Delim = []byte{'\r', '\n'}

// DelimLen is the length of Delim.
const DelimLen = 2

// ErrOverflow is returned by ParseInt and ParseUint when the encoded value
// doesn't fit in 64 bits.
var ErrOverflow = errors.New("integer overflows 64 bits")

// ParseInt is a specialized version of strconv.ParseInt that parses a base-10
// encoded signed integer from a []byte.
//
// This can be used to avoid allocating a string, since strconv.ParseInt only
// takes a string.
func ParseInt(b []byte) (int64, error) {
	if len(b) == 0 {
		return 0, errors.New("empty slice given to parseInt")
	}

	var neg bool
	if b[0] == '-' || b[0] == '+' {
		neg = b[0] == '-'
		b = b[1:]
	}

	n, err := ParseUint(b)
	if err != nil {
		return 0, err
	}

	if neg {
		if n > 1<<63 {
			return 0, ErrOverflow
		}
		return -int64(n), nil
	} else if n > 1<<63-1 {
		return 0, ErrOverflow
	}

	return int64(n), nil
}

// ParseUint is a specialized version of strconv.ParseUint that parses a base-10
// encoded integer from a []byte.
//
// This can be used to avoid allocating a string, since strconv.ParseUint only
// takes a string.
func ParseUint(b []byte) (uint64, error) {
	if len(b) == 0 {
		return 0, errors.New("empty slice given to parseUint")
	}

	const cutoff = (1<<64-1)/10 + 1
	var n uint64

	for i, c := range b {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("invalid character %q at position %d in parseUint", c, i)
		} else if n >= cutoff {
			return 0, ErrOverflow
		}

		n *= 10
		n1 := n + uint64(c-'0')
		if n1 < n {
			return 0, ErrOverflow
		}
		n = n1
	}

	return n, nil
}

// IndexDelim returns the index of the first Delim in b, or -1 if b doesn't
// contain one.
func IndexDelim(b []byte) int {
	return bytes.Index(b, Delim)
}

// Expand expands the given byte slice to exactly n bytes. It will not return
// nil.
//
// If cap(b) < n then a new slice will be allocated and the existing contents
// of b are not kept.
func Expand(b []byte, n int) []byte {
	if n == 0 && b == nil {
		return []byte{}
	} else if cap(b) < n {
		return make([]byte, n)
	}
	return b[:n]
}

// Clone returns a copy of b which shares no memory with it. A nil b returns
// an empty, non-nil slice.
func Clone(b []byte) []byte {
	nb := Expand(nil, len(b))
	copy(nb, b)
	return nb
}
