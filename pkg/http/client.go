package http

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DefaultClientTimeout bounds each exchange made by a Client.
const DefaultClientTimeout = 10 * time.Second

// Client speaks HTTP/1.1 over one persistent connection, one request at a
// time. It is mainly a test and tooling aid for this server.
type Client struct {
	Timeout time.Duration

	mu   sync.Mutex
	conn net.Conn
	r    *bufio.Reader
}

// Dial connects a Client to addr.
func Dial(addr string) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return NewClient(conn), nil
}

// NewClient wraps an established connection.
func NewClient(conn net.Conn) *Client {
	return &Client{
		Timeout: DefaultClientTimeout,
		conn:    conn,
		r:       bufio.NewReader(conn),
	}
}

// Do writes req and reads the response to it.
func (c *Client) Do(req *Request) (*Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.Timeout > 0 {
		c.conn.SetDeadline(time.Now().Add(c.Timeout))
	}
	if _, err := req.WriteTo(c.conn); err != nil {
		return nil, fmt.Errorf("write request: %w", err)
	}
	resp, err := ReadResponse(c.r)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return resp, nil
}

// Get sends a GET request for path.
func (c *Client) Get(path string) (*Response, error) {
	return c.Do(NewRequest(MethodGet, path, nil))
}

// Post sends body to path with the given content type.
func (c *Client) Post(path, contentType string, body []byte) (*Response, error) {
	req := NewRequest(MethodPost, path, body)
	req.Header[strings.ToLower(HeaderContentType)] = contentType
	return c.Do(req)
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// WriteTo writes the request in HTTP/1.1 wire format. Header names go out
// in their stored lowercase form; Content-Length is added for a non-empty
// body when missing.
func (r *Request) WriteTo(w io.Writer) (int64, error) {
	buf := getBuffer()
	defer putBuffer(buf)

	proto := r.Proto
	if proto == "" {
		proto = ProtocolHTTP11
	}
	buf.WriteString(r.Method + " " + r.Path + " " + proto + crlf)
	for k, v := range r.Header {
		buf.WriteString(k + ": " + v + crlf)
	}
	if len(r.Body) > 0 && !r.Header.Has(HeaderContentLength) {
		buf.WriteString(HeaderContentLength + ": " + strconv.Itoa(len(r.Body)) + crlf)
	}
	buf.WriteString(crlf)
	buf.Write(r.Body)

	n, err := w.Write(buf.Bytes())
	return int64(n), err
}

// ReadResponse reads one Content-Length framed response from r. Bodies
// longer than DefaultMaxBodyBytes are rejected before anything is allocated.
func ReadResponse(r *bufio.Reader) (*Response, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return nil, err
	}
	proto, status, ok := strings.Cut(strings.TrimRight(line, "\r\n"), " ")
	if !ok {
		return nil, &ProtocolError{"malformed status line"}
	}
	codeText, _, _ := strings.Cut(status, " ")
	code, err := strconv.Atoi(codeText)
	if err != nil {
		return nil, &ProtocolError{"malformed status code"}
	}

	resp := NewResponse(code)
	resp.Proto = proto
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		k, v, ok := strings.Cut(line, ":")
		if !ok {
			return nil, &ProtocolError{"malformed header line"}
		}
		resp.Header.Set(strings.TrimSpace(k), strings.TrimSpace(v))
	}

	n := resp.ContentLength()
	if n < 0 {
		if resp.Header.Has(HeaderContentLength) {
			return nil, &ProtocolError{"bad content length"}
		}
		n = 0
	}
	if n > DefaultMaxBodyBytes {
		return nil, &ProtocolError{"response body exceeds maximum length"}
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}
	resp.body = body
	return resp, nil
}
