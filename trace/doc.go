// Package trace holds the event types a respfeed.Decoder can report as it
// works through a stream. Register callbacks for the events of interest with
// respfeed.DecoderWithTrace; every callback runs synchronously inside Feed.
package trace
