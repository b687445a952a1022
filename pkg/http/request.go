package http

import (
	"bufio"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

var errLineTooLong = &ProtocolError{"line exceeds maximum length"}

// Request represents a parsed HTTP request. Everything but the path
// parameters is fixed once the parser returns it.
type Request struct {
	Method     string
	Path       string // raw request target, not percent-decoded
	Proto      string
	Header     RequestHeader
	Body       []byte
	RemoteAddr string

	params map[string]string
}

// NewRequest creates a request with the given line fields and no headers,
// mostly useful for tests and in-process dispatch.
func NewRequest(method, path string, body []byte) *Request {
	return &Request{
		Method: method,
		Path:   path,
		Proto:  ProtocolHTTP11,
		Header: make(RequestHeader),
		Body:   body,
	}
}

// URLPath returns the request path without the query string.
func (r *Request) URLPath() string {
	if i := strings.IndexByte(r.Path, '?'); i >= 0 {
		return r.Path[:i]
	}
	return r.Path
}

// RawQuery returns the query string without the leading '?'.
func (r *Request) RawQuery() string {
	if i := strings.IndexByte(r.Path, '?'); i >= 0 {
		return r.Path[i+1:]
	}
	return ""
}

// Param returns the decoded value bound to a path wildcard, or "".
func (r *Request) Param(name string) string {
	return r.params[name]
}

// Params returns a copy of the bound path parameters.
func (r *Request) Params() map[string]string {
	out := make(map[string]string, len(r.params))
	for k, v := range r.params {
		out[k] = v
	}
	return out
}

// SetParams binds path parameters. The router calls it once, right before
// the matched handler runs.
func (r *Request) SetParams(params map[string]string) {
	r.params = params
}

// ContentLength returns the declared body length, or -1 when the header is
// absent or not a number.
func (r *Request) ContentLength() int64 {
	cl := r.Header.Get(HeaderContentLength)
	if cl == "" {
		return -1
	}
	n, err := strconv.ParseInt(cl, 10, 64)
	if err != nil {
		return -1
	}
	return n
}

// UserAgent returns the User-Agent header value.
func (r *Request) UserAgent() string {
	return r.Header.Get(HeaderUserAgent)
}

// WantsClose reports whether the client asked for the connection to be
// closed after this exchange.
func (r *Request) WantsClose() bool {
	return strings.EqualFold(r.Header.Get(HeaderConnection), ConnectionClose)
}

// KeepAlive reports whether the connection may carry another request. Only
// an explicit Connection: close ends the session, whatever the version.
func (r *Request) KeepAlive() bool {
	return !r.WantsClose()
}

// Truncated reports whether the body is shorter than its declared length,
// which happens when the peer closed the stream mid-body.
func (r *Request) Truncated() bool {
	cl := r.ContentLength()
	return cl > 0 && int64(len(r.Body)) < cl
}

// Parser reads successive requests from one stream.
type Parser struct {
	r            *bufio.Reader
	maxLineBytes int
	maxBodyBytes int64
	log          zerolog.Logger
}

// ParserOption configures a Parser.
type ParserOption func(*Parser)

// WithMaxLineBytes limits the length of the request line and of each header line.
func WithMaxLineBytes(n int) ParserOption {
	return func(p *Parser) {
		if n > 0 {
			p.maxLineBytes = n
		}
	}
}

// WithMaxBodyBytes limits the Content-Length a request may declare.
func WithMaxBodyBytes(n int64) ParserOption {
	return func(p *Parser) {
		if n > 0 {
			p.maxBodyBytes = n
		}
	}
}

// WithParserLogger sets the logger used for skipped header lines.
func WithParserLogger(l zerolog.Logger) ParserOption {
	return func(p *Parser) {
		p.log = l
	}
}

// NewParser creates a parser over r. If r is already a *bufio.Reader it is
// used directly so buffered bytes are not lost between requests.
func NewParser(r io.Reader, opts ...ParserOption) *Parser {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	p := &Parser{
		r:            br,
		maxLineBytes: DefaultMaxLineBytes,
		maxBodyBytes: DefaultMaxBodyBytes,
		log:          zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ReadRequest reads a single request from r with default limits.
func ReadRequest(r *bufio.Reader) (*Request, error) {
	return NewParser(r).Next()
}

// Next reads the next request from the stream.
//
// It returns io.EOF when the stream ended cleanly before any byte of a new
// request, and a *ProtocolError when the request line is malformed or a
// limit is exceeded. Other errors come from the underlying reader.
// A body cut short by the peer is returned as is; see Request.Truncated.
func (p *Parser) Next() (*Request, error) {
	line, err := p.readLine()
	if err == io.ErrUnexpectedEOF {
		return nil, &ProtocolError{"incomplete request line: " + line}
	}
	if err != nil {
		return nil, err
	}
	method, path, proto, err := ParseRequestLine(line)
	if err != nil {
		return nil, err
	}
	headers, err := p.readHeaders()
	if err != nil {
		return nil, err
	}
	req := &Request{
		Method: method,
		Path:   path,
		Proto:  proto,
		Header: headers,
	}
	if req.Body, err = p.readBody(req.ContentLength()); err != nil {
		return nil, err
	}
	return req, nil
}

// ParseRequestLine splits a request line into method, path and protocol.
// Tokens past the third are ignored.
func ParseRequestLine(line string) (string, string, string, error) {
	parts := strings.Split(line, " ")
	if len(parts) < 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", "", "", &ProtocolError{"malformed request line: " + line}
	}
	return parts[0], parts[1], parts[2], nil
}

// readHeaders reads header lines up to the blank line. End of stream also
// ends the block.
func (p *Parser) readHeaders() (RequestHeader, error) {
	headers := make(RequestHeader)
	for {
		line, err := p.readLine()
		if err == io.EOF {
			return headers, nil
		}
		last := err == io.ErrUnexpectedEOF
		if err != nil && !last {
			return nil, err
		}
		if line == "" {
			return headers, nil
		}
		key, value, ok := parseHeaderLine(line)
		if ok {
			headers[key] = value
		} else {
			p.log.Debug().Str("line", line).Msg("skipping malformed header line")
		}
		if last {
			return headers, nil
		}
	}
}

// parseHeaderLine splits on the first colon and lowercases the name.
func parseHeaderLine(line string) (string, string, bool) {
	idx := strings.IndexByte(line, ':')
	if idx == -1 {
		return "", "", false
	}
	key := strings.ToLower(strings.TrimSpace(line[:idx]))
	value := strings.TrimSpace(line[idx+1:])
	return key, value, true
}

func (p *Parser) readBody(length int64) ([]byte, error) {
	if length <= 0 {
		return []byte{}, nil
	}
	if length > p.maxBodyBytes {
		return nil, &ProtocolError{"request body too large: " + strconv.FormatInt(length, 10) + " bytes"}
	}
	body := make([]byte, length)
	n, err := io.ReadFull(p.r, body)
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return body[:n], nil
	}
	if err != nil {
		return nil, err
	}
	return body, nil
}

// readLine reads one line without its terminator. It returns io.EOF when
// nothing was read, and io.ErrUnexpectedEOF along with the partial line when
// the stream ended before a newline.
func (p *Parser) readLine() (string, error) {
	var line []byte
	for {
		frag, err := p.r.ReadSlice('\n')
		line = append(line, frag...)
		if len(line) > p.maxLineBytes {
			return "", errLineTooLong
		}
		if err == nil {
			break
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		if err == io.EOF && len(line) > 0 {
			return string(line), io.ErrUnexpectedEOF
		}
		return "", err
	}
	line = line[:len(line)-1]
	if n := len(line); n > 0 && line[n-1] == '\r' {
		line = line[:n-1]
	}
	return string(line), nil
}
