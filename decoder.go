package respfeed

import (
	"math"

	"golang.org/x/text/encoding"
	errors "golang.org/x/xerrors"

	"github.com/mediocregopher/respfeed/internal/bytesutil"
	"github.com/mediocregopher/respfeed/resp"
	"github.com/mediocregopher/respfeed/trace"
)

// the smallest possible complete message, e.g. ":1\r\n"
const minMessageLen = 4

// the largest bulk length whose body and trailing \r\n can be indexed
const maxBulkLenCap = int64(math.MaxInt - bytesutil.DelimLen)

type decoderOpts struct {
	textMode     bool
	dec          *encoding.Decoder
	maxDepth     int
	maxHeaderLen int
	maxLineLen   int
	maxBulkLen   int64
	maxArrayLen  int64
	bufSize      int
	dt           trace.DecoderTrace
}

// text returns b as a string, decoded using the configured encoding if there
// is one.
func (do *decoderOpts) text(b []byte) (string, error) {
	if do.dec == nil {
		return string(b), nil
	}
	tb, err := do.dec.Bytes(b)
	if err != nil {
		return "", errors.Errorf("%s: %w", err, ErrInvalidText)
	}
	return string(tb), nil
}

// DecoderOpt is an optional behavior which can be applied to the NewDecoder
// function to effect a Decoder's behavior.
type DecoderOpt func(*decoderOpts)

// DecoderTextMode tells the Decoder to deliver the payloads of status replies
// and bulk strings as strings, using resp.Message's Text field, rather than as
// bytes in its Raw field. The payloads are decoded from the given encoding;
// if enc is nil they are assumed to already be UTF-8 and are used as-is.
//
// By default the Decoder is not in text mode.
func DecoderTextMode(enc encoding.Encoding) DecoderOpt {
	return func(do *decoderOpts) {
		do.textMode = true
		do.dec = nil
		if enc != nil {
			do.dec = enc.NewDecoder()
		}
	}
}

// DecoderMaxDepth specifies how deeply arrays may be nested within each other.
// A top-level array has a depth of 1. Streams which nest further will cause
// Feed to return a ProtocolError wrapping ErrMaxDepth.
//
// Defaults to 128.
func DecoderMaxDepth(depth int) DecoderOpt {
	return func(do *decoderOpts) {
		do.maxDepth = depth
	}
}

// DecoderMaxHeaderLen specifies how many bytes the Decoder will look at for the
// \r\n terminating the length line of a bulk string or array. If it isn't
// found within that many bytes Feed will return a ProtocolError wrapping
// ErrHeaderTooLong. A non-positive value means no limit.
//
// Defaults to 32, which is more than enough for any 64-bit integer.
func DecoderMaxHeaderLen(n int) DecoderOpt {
	return func(do *decoderOpts) {
		do.maxHeaderLen = n
	}
}

// DecoderMaxLineLen is like DecoderMaxHeaderLen, but applies to status,
// error and integer replies, and causes ErrLineTooLong to be wrapped.
//
// Defaults to 64KB.
func DecoderMaxLineLen(n int) DecoderOpt {
	return func(do *decoderOpts) {
		do.maxLineLen = n
	}
}

// DecoderMaxBulkLen specifies the largest bulk string length the Decoder will
// accept. Larger lengths cause Feed to return a ProtocolError wrapping
// ErrBulkTooLarge, rather than buffering indefinitely.
//
// Defaults to 512MB, which is the default limit redis itself uses. Values
// larger than can be held in memory are capped.
func DecoderMaxBulkLen(n int64) DecoderOpt {
	return func(do *decoderOpts) {
		if n > maxBulkLenCap {
			n = maxBulkLenCap
		}
		do.maxBulkLen = n
	}
}

// DecoderMaxArrayLen specifies the largest number of elements the Decoder will
// accept in an array. Larger counts cause Feed to return a ProtocolError
// wrapping ErrArrayTooLarge.
//
// Defaults to math.MaxInt32.
func DecoderMaxArrayLen(n int64) DecoderOpt {
	return func(do *decoderOpts) {
		do.maxArrayLen = n
	}
}

// DecoderBufSize specifies the capacity the Decoder's internal buffer is
// allowed to keep between Feed calls. If the buffer had to grow larger, for
// example to hold a large bulk string which arrived over many chunks, it will
// be re-allocated once the large message has been decoded.
//
// This should rarely if ever need to be touched. If you're not sure if it
// needs to be changed assume it doesn't.
//
// Defaults to 4096.
func DecoderBufSize(n int) DecoderOpt {
	return func(do *decoderOpts) {
		do.bufSize = n
	}
}

// DecoderWithTrace tells the Decoder to trace itself with the given
// DecoderTrace. Note that DecoderTrace will block every point that you set to
// trace.
func DecoderWithTrace(dt trace.DecoderTrace) DecoderOpt {
	return func(do *decoderOpts) {
		do.dt = dt
	}
}

////////////////////////////////////////////////////////////////////////////////

// backlog holds the bytes which have been fed to a Decoder but not yet
// consumed by a decoded message.
type backlog struct {
	buf     []byte
	owned   bool
	bufSize int
}

// feed returns the data which should be decoded next: the retained backlog
// with chunk appended, or chunk itself if nothing is retained. In the latter
// case chunk is only read, and must be released using retain before the
// Decoder returns control to the caller.
func (bl *backlog) feed(chunk []byte) []byte {
	if len(bl.buf) == 0 {
		bl.owned = false
		return chunk
	}
	bl.buf = append(bl.buf, chunk...)
	bl.owned = true
	return bl.buf
}

// retain keeps data[off:] for the next feed, copying it out of data if data
// isn't owned by the backlog.
func (bl *backlog) retain(data []byte, off int) {
	tail := data[off:]
	switch {
	case len(tail) == 0:
		bl.buf = bl.buf[:0]
	case bl.owned:
		n := copy(bl.buf, tail)
		bl.buf = bl.buf[:n]
	default:
		bl.buf = append(bl.buf[:0], tail...)
	}
	bl.owned = false

	if bl.bufSize > 0 && cap(bl.buf) > bl.bufSize && len(bl.buf) <= bl.bufSize {
		nb := make([]byte, len(bl.buf), bl.bufSize)
		copy(nb, bl.buf)
		bl.buf = nb
	}
}

func (bl *backlog) reset() {
	bl.buf = nil
	bl.owned = false
}

////////////////////////////////////////////////////////////////////////////////

// Decoder incrementally decodes RESP replies out of a stream of byte chunks.
// See the package docs for an example.
//
// A Decoder holds the state of a single stream, and must not be used
// concurrently.
type Decoder struct {
	do   decoderOpts
	bl   backlog
	base int64 // stream offset of the first byte in bl
	err  error
}

// NewDecoder initializes and returns a Decoder, ready to be fed the first chunk
// of a stream.
func NewDecoder(opts ...DecoderOpt) *Decoder {
	d := new(Decoder)
	defaultDecoderOpts := []DecoderOpt{
		DecoderMaxDepth(128),
		DecoderMaxHeaderLen(32),
		DecoderMaxLineLen(64 * 1024),
		DecoderMaxBulkLen(512 * 1024 * 1024),
		DecoderMaxArrayLen(math.MaxInt32),
		DecoderBufSize(4096),
	}

	for _, opt := range append(defaultDecoderOpts, opts...) {
		if opt != nil {
			opt(&(d.do))
		}
	}
	d.bl.bufSize = d.do.bufSize
	return d
}

// Feed appends chunk to the data being decoded, and then decodes as many
// complete replies as are available. Each is passed to h, in the order they
// arrived, before Feed returns. If the data ends part-way through a reply
// that reply is kept and decoding of it is retried in full on the next Feed.
//
// chunk is never retained by the Decoder and may be reused once Feed returns.
// If h is nil the decoded replies are discarded.
//
// If the stream turns out not to be valid RESP a *ProtocolError is returned.
// After that the Decoder stops decoding and all subsequent calls to Feed
// return the same error, until Reset is called.
func (d *Decoder) Feed(chunk []byte, h Handler) error {
	if d.err != nil {
		return d.err
	}

	data := d.bl.feed(chunk)
	if d.do.dt.Fed != nil {
		d.do.dt.Fed(trace.DecoderFed{
			DecoderCommon: d.traceCommon(data, 0),
			ChunkLen:      len(chunk),
		})
	}
	return d.decode(data, h, minMessageLen)
}

// flush makes a final attempt at decoding whatever is still buffered, without
// waiting for minMessageLen bytes. It's used once the stream has ended and no
// more data is coming.
func (d *Decoder) flush(h Handler) error {
	if d.err != nil {
		return d.err
	} else if len(d.bl.buf) == 0 {
		return nil
	}
	return d.decode(d.bl.feed(nil), h, 1)
}

// decode decodes and handles messages out of data for as long as at least
// minLen bytes remain, then retains the rest in the backlog.
func (d *Decoder) decode(data []byte, h Handler, minLen int) error {
	var off int
	for len(data)-off >= minLen {
		r := reader{b: data, off: off, opts: &d.do}
		m, ok, err := r.next(0)
		if err != nil {
			d.bl.reset()
			return d.fail(err)
		} else if !ok {
			if d.do.dt.Rewound != nil {
				d.do.dt.Rewound(trace.DecoderRewound{
					DecoderCommon: d.traceCommon(data, off),
					Prefix:        data[off],
				})
			}
			break
		}

		prefix := data[off]
		n := r.off - off
		off = r.off
		if d.do.dt.Decoded != nil {
			d.do.dt.Decoded(trace.DecoderDecoded{
				DecoderCommon: d.traceCommon(data, off),
				Prefix:        prefix,
				Len:           n,
			})
		}

		if h == nil {
			continue
		} else if m.Kind == resp.Error {
			h.ReplyError(resp.ServerError{S: m.Text})
		} else {
			h.Reply(m)
		}
	}

	d.bl.retain(data, off)
	d.base += int64(off)
	return nil
}

func (d *Decoder) fail(err error) error {
	var pe *ProtocolError
	if !errors.As(err, &pe) {
		pe = &ProtocolError{Err: err}
	}
	pe.Offset += d.base
	d.err = pe

	if d.do.dt.Failed != nil {
		d.do.dt.Failed(trace.DecoderFailed{
			DecoderCommon: trace.DecoderCommon{Offset: pe.Offset},
			Err:           pe,
		})
	}
	return pe
}

func (d *Decoder) traceCommon(data []byte, off int) trace.DecoderCommon {
	return trace.DecoderCommon{
		Offset:   d.base + int64(off),
		Buffered: len(data) - off,
	}
}

// Buffered returns the number of bytes which have been fed to the Decoder but
// not yet consumed by a decoded reply.
func (d *Decoder) Buffered() int {
	return len(d.bl.buf)
}

// Offset returns the number of bytes, counted from the start of the stream,
// which have been consumed by decoded replies.
func (d *Decoder) Offset() int64 {
	return d.base
}

// Err returns the ProtocolError which stopped the Decoder, if any.
func (d *Decoder) Err() error {
	return d.err
}

// Reset discards all buffered data and any error, so that the Decoder can be
// used for a new stream.
func (d *Decoder) Reset() {
	d.bl.reset()
	d.base = 0
	d.err = nil
}
