// Package respfeed implements an incremental decoder for the RESP protocol
// (the network protocol that redis uses).
//
// A Decoder is fed byte chunks as they arrive off of a connection, in whatever
// sizes the network delivers them. Messages may be split across chunks, or
// many messages may arrive in a single chunk; the Decoder keeps whatever
// hasn't been fully decoded yet and hands each complete reply to a Handler in
// the order it arrived.
//
//	d := respfeed.NewDecoder()
//	h := respfeed.HandlerFuncs{
//		ReplyFunc: func(m resp.Message) {
//			fmt.Println("reply:", m)
//		},
//		ReplyErrorFunc: func(err resp.ServerError) {
//			fmt.Println("redis error:", err)
//		},
//	}
//
//	buf := make([]byte, 4096)
//	for {
//		n, err := conn.Read(buf)
//		if ferr := d.Feed(buf[:n], h); ferr != nil {
//			// the stream is corrupt, abandon the connection
//		}
//		...
//	}
//
// Error replies sent by redis (e.g. "-ERR unknown command") are not failures
// of the Decoder, they are delivered to the Handler's ReplyError method.
// Failures of the stream itself, such as an unknown type prefix, are returned
// from Feed as a *ProtocolError and end decoding of that stream.
package respfeed

import (
	"github.com/mediocregopher/respfeed/resp"
)

// Handler receives the replies decoded by a Decoder. Its methods are called
// synchronously from within Decoder.Feed, and must not call Feed on the same
// Decoder.
type Handler interface {
	// Reply is called once for every top-level reply which is not an error
	// reply. Arrays are delivered whole, with all nested elements decoded.
	Reply(resp.Message)

	// ReplyError is called once for every top-level error reply.
	ReplyError(resp.ServerError)
}

// HandlerFuncs implements Handler using a function for each of its methods.
// Either field may be nil, in which case the corresponding replies are
// discarded.
type HandlerFuncs struct {
	ReplyFunc      func(resp.Message)
	ReplyErrorFunc func(resp.ServerError)
}

var _ Handler = HandlerFuncs{}

// Reply implements the method for the Handler interface.
func (hf HandlerFuncs) Reply(m resp.Message) {
	if hf.ReplyFunc != nil {
		hf.ReplyFunc(m)
	}
}

// ReplyError implements the method for the Handler interface.
func (hf HandlerFuncs) ReplyError(err resp.ServerError) {
	if hf.ReplyErrorFunc != nil {
		hf.ReplyErrorFunc(err)
	}
}
