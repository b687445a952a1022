package http

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"
)

// Compressor gzip-encodes response bodies for clients that accept it.
type Compressor struct {
	level int
	pool  sync.Pool
}

// NewCompressor creates a compressor using the given gzip level. An invalid
// level falls back to gzip.DefaultCompression.
func NewCompressor(level int) *Compressor {
	if level < gzip.HuffmanOnly || level > gzip.BestCompression {
		level = gzip.DefaultCompression
	}
	c := &Compressor{level: level}
	c.pool.New = func() interface{} {
		w, _ := gzip.NewWriterLevel(io.Discard, c.level)
		return w
	}
	return c
}

// AcceptsGzip reports whether an Accept-Encoding value lists gzip. Tokens
// are compared after trimming; parameters other than q are ignored and q=0
// refuses the coding.
func AcceptsGzip(acceptEncoding string) bool {
	for _, token := range strings.Split(acceptEncoding, ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(token), ";")
		if strings.TrimSpace(name) != EncodingGzip {
			continue
		}
		if refused(params) {
			continue
		}
		return true
	}
	return false
}

// refused reports whether the parameter list carries q=0.
func refused(params string) bool {
	for _, p := range strings.Split(params, ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(p), "=")
		if !ok || strings.TrimSpace(k) != "q" {
			continue
		}
		q, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return err == nil && q == 0
	}
	return false
}

// Apply negotiates the encoding for req and rewrites resp when gzip is
// selected. Responses for clients that did not ask for gzip are returned
// untouched. A compression failure turns into a 500.
func (c *Compressor) Apply(req *Request, resp *Response) *Response {
	if !AcceptsGzip(req.Header.Get(HeaderAcceptEncoding)) {
		return resp
	}
	compressed, err := c.compress(resp.Body())
	if err != nil {
		return Text(StatusInternalServerError, err.Error())
	}
	resp.SetBody(compressed)
	resp.Header.Set(HeaderContentEncoding, EncodingGzip)
	return resp
}

func (c *Compressor) compress(body []byte) ([]byte, error) {
	buf := getBuffer()
	defer putBuffer(buf)

	gw := c.pool.Get().(*gzip.Writer)
	defer c.pool.Put(gw)
	gw.Reset(buf)

	if _, err := gw.Write(body); err != nil {
		return nil, fmt.Errorf("gzip: write: %w", err)
	}
	if err := gw.Close(); err != nil {
		return nil, fmt.Errorf("gzip: close: %w", err)
	}
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}
