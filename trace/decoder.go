package trace

// DecoderTrace is passed into respfeed.NewDecoder via
// respfeed.DecoderWithTrace, and contains callbacks which can be triggered for
// specific events during the Decoder's runtime.
//
// All callbacks are called synchronously, from within the Feed call which
// triggered them. Any of them may be nil.
type DecoderTrace struct {
	// Fed is called at the start of every Feed call, once the chunk has been
	// appended to the backlog.
	Fed func(DecoderFed)

	// Decoded is called for every top-level message which is decoded, before
	// it is handed to the Handler.
	Decoded func(DecoderDecoded)

	// Rewound is called when a decode attempt ran out of data part-way
	// through a message, and the Decoder rewound to wait for more.
	Rewound func(DecoderRewound)

	// Failed is called once, when the Decoder encounters a protocol error
	// and stops decoding the stream.
	Failed func(DecoderFailed)
}

// DecoderCommon contains information which is passed into all Decoder-related
// callbacks.
type DecoderCommon struct {
	// Offset is the absolute offset into the stream, counting every byte ever
	// fed, of the next byte the Decoder will read.
	Offset int64

	// Buffered is the number of bytes currently held by the Decoder which
	// haven't been consumed by a decoded message.
	Buffered int
}

// DecoderFed is passed into the DecoderTrace.Fed callback whenever a chunk is
// fed into the Decoder.
type DecoderFed struct {
	DecoderCommon

	// ChunkLen is the length of the chunk which was fed.
	ChunkLen int
}

// DecoderDecoded is passed into the DecoderTrace.Decoded callback whenever a
// top-level message is decoded.
type DecoderDecoded struct {
	DecoderCommon

	// Prefix is the type-tag byte of the decoded message, e.g. '+' or '*'.
	Prefix byte

	// Len is the number of bytes the message took up on the wire.
	Len int
}

// DecoderRewound is passed into the DecoderTrace.Rewound callback whenever a
// decode attempt is abandoned for lack of data.
type DecoderRewound struct {
	DecoderCommon

	// Prefix is the type-tag byte of the message which couldn't be completed.
	Prefix byte
}

// DecoderFailed is passed into the DecoderTrace.Failed callback when the
// Decoder encounters a protocol error.
type DecoderFailed struct {
	DecoderCommon

	// Err is the error which stopped the Decoder. It will be a
	// *respfeed.ProtocolError.
	Err error
}
