// Command respdump reads a stream of RESP replies, from a redis server, a file
// or stdin, and prints each reply as it is decoded.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/alecthomas/kong"
	"github.com/lmittmann/tint"

	"github.com/mediocregopher/respfeed"
	"github.com/mediocregopher/respfeed/resp"
	"github.com/mediocregopher/respfeed/trace"
)

// CLI holds respdump's command line flags.
type CLI struct {
	Addr    string        `help:"Address of a redis server to read replies from." short:"a" xor:"source"`
	File    string        `help:"File to read replies from. Defaults to stdin." short:"f" type:"existingfile" xor:"source"`
	Send    []string      `help:"Raw data to write to the server before reading, e.g. 'PING\\r\\n'. Go escape sequences are interpreted." short:"s"`
	Count   int           `help:"Stop after this many replies. Zero means read until the stream ends." short:"n"`
	Timeout time.Duration `help:"Dial timeout, and how long to wait for data from the server before giving up." default:"5s"`

	Config    string `help:"TOML config file with decoder settings." type:"existingfile" short:"c"`
	Text      bool   `help:"Decode string payloads as text."`
	Encoding  string `help:"Text encoding of string payloads, used with --text." placeholder:"NAME"`
	ChunkSize int    `help:"Size of the chunks read off the stream."`

	MaxDepth     int   `help:"Maximum array nesting depth."`
	MaxHeaderLen int   `help:"Maximum length of a bulk string or array header."`
	MaxLineLen   int   `help:"Maximum length of a status, error or integer line."`
	MaxBulkLen   int64 `help:"Maximum bulk string length."`
	MaxArrayLen  int64 `help:"Maximum number of array elements."`

	Verbose int `help:"Log verbosity (0=warn, 1=info, 2=debug)." short:"v" type:"counter"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("respdump"),
		kong.Description("Decode and print RESP replies from a redis server, a file, or stdin."),
		kong.UsageOnError(),
	)

	logger := newLogger(os.Stderr, cli.Verbose)
	ctx.FatalIfErrorf(ctx.Run(logger))
}

func newLogger(w io.Writer, verbosity int) *slog.Logger {
	level := slog.LevelWarn
	switch verbosity {
	case 0:
	case 1:
		level = slog.LevelInfo
	default:
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05",
	}))
}

// config returns the Config given by the config file, if any, with the values
// given on the command line applied on top of it.
func (c *CLI) config() (Config, error) {
	var cfg Config
	if c.Config != "" {
		var err error
		if cfg, err = LoadConfig(c.Config); err != nil {
			return Config{}, err
		}
	}

	cfg = cfg.Merge(Config{
		Text:      c.Text,
		Encoding:  c.Encoding,
		ChunkSize: c.ChunkSize,
		Limits: Limits{
			MaxDepth:     c.MaxDepth,
			MaxHeaderLen: c.MaxHeaderLen,
			MaxLineLen:   c.MaxLineLen,
			MaxBulkLen:   c.MaxBulkLen,
			MaxArrayLen:  c.MaxArrayLen,
		},
	})
	return cfg, cfg.Validate()
}

// Run is called by kong once the flags have been parsed.
func (c *CLI) Run(logger *slog.Logger) error {
	var src io.Reader = os.Stdin
	switch {
	case c.Addr != "":
		conn, err := net.DialTimeout("tcp", c.Addr, c.Timeout)
		if err != nil {
			return fmt.Errorf("failed to connect to %s: %w", c.Addr, err)
		}
		defer conn.Close()
		logger.Info("connected", "addr", c.Addr)

		for _, s := range c.Send {
			raw, err := unescape(s)
			if err != nil {
				return err
			}
			if _, err := conn.Write([]byte(raw)); err != nil {
				return fmt.Errorf("failed to write to %s: %w", c.Addr, err)
			}
		}
		src = deadlineReader{conn: conn, timeout: c.Timeout}

	case c.File != "":
		f, err := os.Open(c.File)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", c.File, err)
		}
		defer f.Close()
		src = f
	}

	return c.dump(src, os.Stdout, logger)
}

// dump decodes src, writing every reply to out.
func (c *CLI) dump(src io.Reader, out io.Writer, logger *slog.Logger) error {
	cfg, err := c.config()
	if err != nil {
		return err
	}
	opts, err := cfg.DecoderOpts()
	if err != nil {
		return err
	}
	opts = append(opts, respfeed.DecoderWithTrace(loggingTrace(logger)))
	d := respfeed.NewDecoder(opts...)

	var n int
	var werr error
	write := func(m resp.Message) {
		if c.Count > 0 && n >= c.Count {
			return
		}
		n++
		if werr == nil {
			werr = writeReply(out, m)
		}
	}
	h := respfeed.HandlerFuncs{
		ReplyFunc: write,
		ReplyErrorFunc: func(err resp.ServerError) {
			write(resp.Message{Kind: resp.Error, Text: err.S})
		},
	}

	r := untilReader{r: src, done: func() bool {
		return werr != nil || (c.Count > 0 && n >= c.Count)
	}}
	read, err := d.FeedFrom(r, h)
	if errors.Is(err, io.ErrUnexpectedEOF) && c.Count > 0 && n >= c.Count {
		// stopped reading on purpose, the rest of the stream doesn't matter
		err = nil
	}
	if werr != nil {
		return fmt.Errorf("failed to write output: %w", werr)
	} else if err != nil {
		return fmt.Errorf("decoding failed after %d bytes: %w", read, err)
	}

	logger.Info("done", "replies", n, "bytes", read)
	return nil
}

func loggingTrace(logger *slog.Logger) trace.DecoderTrace {
	return trace.DecoderTrace{
		Fed: func(e trace.DecoderFed) {
			logger.Debug("chunk fed", "len", e.ChunkLen, "offset", e.Offset, "buffered", e.Buffered)
		},
		Decoded: func(e trace.DecoderDecoded) {
			logger.Debug("reply decoded", "type", string(e.Prefix), "len", e.Len, "offset", e.Offset)
		},
		Rewound: func(e trace.DecoderRewound) {
			logger.Debug("waiting for more data", "type", string(e.Prefix), "offset", e.Offset, "buffered", e.Buffered)
		},
		Failed: func(e trace.DecoderFailed) {
			logger.Error("stream is not valid RESP", "offset", e.Offset, "err", e.Err)
		},
	}
}

func unescape(s string) (string, error) {
	raw, err := strconv.Unquote(`"` + s + `"`)
	if err != nil {
		return "", fmt.Errorf("invalid --send value %q: %w", s, err)
	}
	return raw, nil
}

// untilReader returns io.EOF as soon as done returns true.
type untilReader struct {
	r    io.Reader
	done func() bool
}

func (ur untilReader) Read(b []byte) (int, error) {
	if ur.done() {
		return 0, io.EOF
	}
	return ur.r.Read(b)
}

// deadlineReader sets a fresh read deadline on conn before every Read.
type deadlineReader struct {
	conn    net.Conn
	timeout time.Duration
}

func (dr deadlineReader) Read(b []byte) (int, error) {
	if dr.timeout > 0 {
		if err := dr.conn.SetReadDeadline(time.Now().Add(dr.timeout)); err != nil {
			return 0, err
		}
	}
	return dr.conn.Read(b)
}
