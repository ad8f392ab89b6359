// Package compression provides request-body compression for the store's
// HTTP interface. Only the algorithms the server accepts as
// Content-Encoding are offered: gzip and zstd.
package compression

import (
	"bytes"
	"io"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/clickwire/clickwire/pkg/errors"
)

// Algorithm represents a compression algorithm.
type Algorithm string

const (
	// None disables body compression
	None Algorithm = "none"
	// Gzip compresses bodies with gzip
	Gzip Algorithm = "gzip"
	// Zstd compresses bodies with zstandard
	Zstd Algorithm = "zstd"
)

// Compressor compresses and decompresses payloads with one algorithm.
// Instances are safe for concurrent use.
type Compressor struct {
	algorithm Algorithm

	gzipWriters sync.Pool
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
}

// New creates a compressor for the given algorithm.
func New(algorithm Algorithm) (*Compressor, error) {
	c := &Compressor{algorithm: algorithm}

	switch algorithm {
	case None, Gzip:
	case Zstd:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "cannot create zstd encoder")
		}
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "cannot create zstd decoder")
		}
		c.zstdEncoder = enc
		c.zstdDecoder = dec
	default:
		return nil, errors.Newf(errors.ErrorTypeConfig, "unsupported compression algorithm %q", algorithm)
	}

	c.gzipWriters = sync.Pool{
		New: func() interface{} {
			w, _ := gzip.NewWriterLevel(io.Discard, gzip.DefaultCompression)
			return w
		},
	}
	return c, nil
}

// Algorithm returns the configured algorithm.
func (c *Compressor) Algorithm() Algorithm {
	return c.algorithm
}

// ContentEncoding returns the Content-Encoding header value, or the empty
// string when compression is disabled.
func (c *Compressor) ContentEncoding() string {
	if c.algorithm == None {
		return ""
	}
	return string(c.algorithm)
}

// Compress compresses data. With algorithm None the input is returned
// unchanged.
func (c *Compressor) Compress(data []byte) ([]byte, error) {
	switch c.algorithm {
	case None:
		return data, nil
	case Gzip:
		var buf bytes.Buffer
		w := c.gzipWriters.Get().(*gzip.Writer)
		w.Reset(&buf)
		if _, err := w.Write(data); err != nil {
			c.gzipWriters.Put(w)
			return nil, errors.Wrap(err, errors.ErrorTypeInternal, "gzip compression failed")
		}
		if err := w.Close(); err != nil {
			c.gzipWriters.Put(w)
			return nil, errors.Wrap(err, errors.ErrorTypeInternal, "gzip compression failed")
		}
		c.gzipWriters.Put(w)
		return buf.Bytes(), nil
	case Zstd:
		return c.zstdEncoder.EncodeAll(data, make([]byte, 0, len(data)/2)), nil
	}
	return nil, errors.Newf(errors.ErrorTypeConfig, "unsupported compression algorithm %q", c.algorithm)
}

// Decompress reverses Compress.
func (c *Compressor) Decompress(data []byte) ([]byte, error) {
	switch c.algorithm {
	case None:
		return data, nil
	case Gzip:
		r, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeFormat, "gzip decompression failed")
		}
		defer r.Close()
		out, err := io.ReadAll(r)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeFormat, "gzip decompression failed")
		}
		return out, nil
	case Zstd:
		out, err := c.zstdDecoder.DecodeAll(data, nil)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeFormat, "zstd decompression failed")
		}
		return out, nil
	}
	return nil, errors.Newf(errors.ErrorTypeConfig, "unsupported compression algorithm %q", c.algorithm)
}
