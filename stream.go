package respfeed

import (
	"io"
)

// FeedFrom reads chunks off of r and feeds each to the Decoder, using h as the
// Handler, until r returns io.EOF or an error, or the Decoder returns a
// ProtocolError. It returns the number of bytes read off of r.
//
// Once r returns io.EOF whatever is still buffered is decoded, even if it's
// shorter than a message usually has to be before decoding is attempted. If
// that leaves a partial reply then io.ErrUnexpectedEOF is returned, otherwise
// io.EOF is not considered an error.
func (d *Decoder) FeedFrom(r io.Reader, h Handler) (int64, error) {
	size := d.do.bufSize
	if size <= 0 {
		size = 4096
	}
	buf := make([]byte, size)

	var total int64
	for {
		n, err := r.Read(buf)
		total += int64(n)
		if n > 0 {
			if ferr := d.Feed(buf[:n], h); ferr != nil {
				return total, ferr
			}
		}

		if err == io.EOF {
			if ferr := d.flush(h); ferr != nil {
				return total, ferr
			} else if d.Buffered() > 0 {
				return total, io.ErrUnexpectedEOF
			}
			return total, nil
		} else if err != nil {
			return total, err
		}
	}
}
