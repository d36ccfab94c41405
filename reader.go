package respfeed

import (
	errors "golang.org/x/xerrors"

	"github.com/mediocregopher/respfeed/internal/bytesutil"
	"github.com/mediocregopher/respfeed/resp"
)

// reader is a cursor over the data being decoded during a single attempt at
// decoding a top-level message. Nothing in it is shared with the Decoder, so
// abandoning an attempt is just a matter of dropping the reader.
//
// All decoding methods return (msg, true, nil) on success and (_, false, nil)
// when there isn't enough data to finish the message. Any non-nil error is a
// *ProtocolError whose Offset is relative to the start of b.
type reader struct {
	b    []byte
	off  int
	opts *decoderOpts
}

func (r *reader) remaining() int {
	return len(r.b) - r.off
}

func (r *reader) fail(off int, err error) error {
	return &ProtocolError{Offset: int64(off), Err: err}
}

// next decodes the message starting at the cursor. depth is the number of
// arrays the message is nested within.
func (r *reader) next(depth int) (resp.Message, bool, error) {
	if r.remaining() < 1 {
		return resp.Message{}, false, nil
	}

	prefix := r.b[r.off]
	kind, ok := resp.KindOf(prefix)
	if !ok {
		return resp.Message{}, false, r.fail(r.off, errors.Errorf("%q: %w", prefix, ErrUnknownType))
	}
	r.off++

	switch kind {
	case resp.Bulk:
		return r.bulk()
	case resp.Array:
		return r.array(depth + 1)
	default:
		return r.scalar(kind)
	}
}

// line returns everything from the cursor up to the next \r\n, and moves the
// cursor past the \r\n. If more than limit bytes are available without a
// \r\n being found then tooLong is returned. A non-positive limit means no
// limit.
func (r *reader) line(limit int, tooLong error) ([]byte, bool, error) {
	rest := r.b[r.off:]
	window := rest
	if limit > 0 && len(window) > limit+bytesutil.DelimLen {
		window = window[:limit+bytesutil.DelimLen]
	}

	i := bytesutil.IndexDelim(window)
	if i < 0 {
		if limit > 0 && len(window) == limit+bytesutil.DelimLen {
			return nil, false, r.fail(r.off, tooLong)
		}
		return nil, false, nil
	}

	r.off += i + bytesutil.DelimLen
	return rest[:i], true, nil
}

func (r *reader) scalar(kind resp.Kind) (resp.Message, bool, error) {
	start := r.off
	b, ok, err := r.line(r.opts.maxLineLen, ErrLineTooLong)
	if !ok || err != nil {
		return resp.Message{}, false, err
	}

	m := resp.Message{Kind: kind}
	switch kind {
	case resp.Int:
		m.Text = string(b)
	case resp.Error:
		if m.Text, err = r.opts.text(b); err != nil {
			return resp.Message{}, false, r.fail(start, err)
		}
	default:
		if m, err = r.payload(kind, b); err != nil {
			return resp.Message{}, false, r.fail(start, err)
		}
	}
	return m, true, nil
}

// header reads the length line of a bulk string or array.
func (r *reader) header() (int64, bool, error) {
	start := r.off
	b, ok, err := r.line(r.opts.maxHeaderLen, ErrHeaderTooLong)
	if !ok || err != nil {
		return 0, false, err
	}

	n, err := bytesutil.ParseInt(b)
	if err != nil {
		return 0, false, r.fail(start, errors.Errorf("%q: %w", b, ErrMalformedHeader))
	}
	return n, true, nil
}

func (r *reader) bulk() (resp.Message, bool, error) {
	start := r.off
	n, ok, err := r.header()
	if !ok || err != nil {
		return resp.Message{}, false, err
	}

	switch {
	case n == -1:
		return resp.Message{Kind: resp.Bulk, Nil: true}, true, nil
	case n < -1:
		return resp.Message{}, false, r.fail(start, errors.Errorf("bulk length %d: %w", n, ErrMalformedHeader))
	case n > r.opts.maxBulkLen:
		return resp.Message{}, false, r.fail(start, errors.Errorf("bulk length %d: %w", n, ErrBulkTooLarge))
	case n > int64(r.remaining()-bytesutil.DelimLen):
		return resp.Message{}, false, nil
	}

	end := r.off + int(n)
	if r.b[end] != '\r' || r.b[end+1] != '\n' {
		return resp.Message{}, false, r.fail(end, ErrMissingDelim)
	}

	m, err := r.payload(resp.Bulk, r.b[r.off:end])
	if err != nil {
		return resp.Message{}, false, r.fail(r.off, err)
	}
	r.off = end + bytesutil.DelimLen
	return m, true, nil
}

func (r *reader) array(depth int) (resp.Message, bool, error) {
	start := r.off
	if depth > r.opts.maxDepth {
		return resp.Message{}, false, r.fail(start-1, errors.Errorf("depth %d: %w", depth, ErrMaxDepth))
	}

	n, ok, err := r.header()
	if !ok || err != nil {
		return resp.Message{}, false, err
	}

	switch {
	case n < 0:
		return resp.Message{Kind: resp.Array, Nil: true}, true, nil
	case n > r.opts.maxArrayLen:
		return resp.Message{}, false, r.fail(start, errors.Errorf("array length %d: %w", n, ErrArrayTooLarge))
	case int64(r.remaining()) < n:
		// every element takes up at least one byte, so there's no point
		// trying if there aren't even that many
		return resp.Message{}, false, nil
	}

	elems := make([]resp.Message, 0, int(n))
	for i := int64(0); i < n; i++ {
		m, ok, err := r.next(depth)
		if !ok || err != nil {
			return resp.Message{}, false, err
		}
		elems = append(elems, m)
	}
	return resp.Message{Kind: resp.Array, Elems: elems}, true, nil
}

// payload creates a string-bearing message out of b, using either Raw or Text
// depending on the Decoder's mode. b is never retained.
func (r *reader) payload(kind resp.Kind, b []byte) (resp.Message, error) {
	m := resp.Message{Kind: kind}
	if !r.opts.textMode {
		m.Raw = bytesutil.Clone(b)
		return m, nil
	}

	var err error
	m.Text, err = r.opts.text(b)
	return m, err
}
