package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/mediocregopher/respfeed"
)

// Config is the optional TOML config file respdump can be given. Values given
// on the command line override it.
type Config struct {
	Text      bool   `toml:"text"`
	Encoding  string `toml:"encoding"`
	ChunkSize int    `toml:"chunk_size"`
	Limits    Limits `toml:"limits"`
}

// Limits holds the Decoder's limits. Zero values leave the Decoder's defaults
// in place.
type Limits struct {
	MaxDepth     int   `toml:"max_depth"`
	MaxHeaderLen int   `toml:"max_header_len"`
	MaxLineLen   int   `toml:"max_line_len"`
	MaxBulkLen   int64 `toml:"max_bulk_len"`
	MaxArrayLen  int64 `toml:"max_array_len"`
}

// LoadConfig reads and validates the TOML config file at path.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config invalid (%s): %w", path, err)
	}
	return cfg, nil
}

// Validate checks that the Config's values are usable.
func (cfg Config) Validate() error {
	if cfg.ChunkSize < 0 {
		return fmt.Errorf("chunk_size must not be negative")
	}
	l := cfg.Limits
	if l.MaxDepth < 0 || l.MaxHeaderLen < 0 || l.MaxLineLen < 0 || l.MaxBulkLen < 0 || l.MaxArrayLen < 0 {
		return fmt.Errorf("limits must not be negative")
	}
	if _, err := lookupEncoding(cfg.Encoding); err != nil {
		return err
	}
	return nil
}

// Merge returns cfg with every non-zero field of override applied on top.
func (cfg Config) Merge(override Config) Config {
	if override.Text {
		cfg.Text = true
	}
	if override.Encoding != "" {
		cfg.Encoding = override.Encoding
	}
	if override.ChunkSize != 0 {
		cfg.ChunkSize = override.ChunkSize
	}

	o := override.Limits
	if o.MaxDepth != 0 {
		cfg.Limits.MaxDepth = o.MaxDepth
	}
	if o.MaxHeaderLen != 0 {
		cfg.Limits.MaxHeaderLen = o.MaxHeaderLen
	}
	if o.MaxLineLen != 0 {
		cfg.Limits.MaxLineLen = o.MaxLineLen
	}
	if o.MaxBulkLen != 0 {
		cfg.Limits.MaxBulkLen = o.MaxBulkLen
	}
	if o.MaxArrayLen != 0 {
		cfg.Limits.MaxArrayLen = o.MaxArrayLen
	}
	return cfg
}

// DecoderOpts returns the options for a Decoder configured by cfg.
func (cfg Config) DecoderOpts() ([]respfeed.DecoderOpt, error) {
	var opts []respfeed.DecoderOpt
	if cfg.Text {
		enc, err := lookupEncoding(cfg.Encoding)
		if err != nil {
			return nil, err
		}
		opts = append(opts, respfeed.DecoderTextMode(enc))
	}
	if cfg.ChunkSize > 0 {
		opts = append(opts, respfeed.DecoderBufSize(cfg.ChunkSize))
	}

	l := cfg.Limits
	if l.MaxDepth > 0 {
		opts = append(opts, respfeed.DecoderMaxDepth(l.MaxDepth))
	}
	if l.MaxHeaderLen > 0 {
		opts = append(opts, respfeed.DecoderMaxHeaderLen(l.MaxHeaderLen))
	}
	if l.MaxLineLen > 0 {
		opts = append(opts, respfeed.DecoderMaxLineLen(l.MaxLineLen))
	}
	if l.MaxBulkLen > 0 {
		opts = append(opts, respfeed.DecoderMaxBulkLen(l.MaxBulkLen))
	}
	if l.MaxArrayLen > 0 {
		opts = append(opts, respfeed.DecoderMaxArrayLen(l.MaxArrayLen))
	}
	return opts, nil
}

// lookupEncoding returns the text encoding with the given WHATWG name or
// label. UTF-8, the default, returns a nil encoding so payloads are used
// as-is.
func lookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(name) {
	case "", "utf-8", "utf8":
		return nil, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", name, err)
	}
	return enc, nil
}
