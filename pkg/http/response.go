package http

import (
	"io"
	"strconv"
)

// Response is built by a handler, possibly rewritten by the compressor, and
// then written to the connection.
type Response struct {
	StatusCode int
	Proto      string
	Header     Header

	body []byte
}

// NewResponse creates a response with the given status and no body.
func NewResponse(statusCode int) *Response {
	return &Response{
		StatusCode: statusCode,
		Proto:      ProtocolHTTP11,
	}
}

// Status returns the status line text, e.g. "404 Not Found".
func (r *Response) Status() string {
	return strconv.Itoa(r.StatusCode) + " " + StatusText(r.StatusCode)
}

// Body returns the response body.
func (r *Response) Body() []byte {
	return r.body
}

// SetBody replaces the body and sets Content-Length to its length.
func (r *Response) SetBody(body []byte) *Response {
	if body == nil {
		body = []byte{}
	}
	r.body = body
	r.Header.Set(HeaderContentLength, strconv.Itoa(len(body)))
	return r
}

// SetHeader sets a header field and returns r for chaining.
func (r *Response) SetHeader(key, value string) *Response {
	r.Header.Set(key, value)
	return r
}

// ContentLength returns the Content-Length header value, or -1 if not set.
func (r *Response) ContentLength() int64 {
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

// WriteTo writes the response to w in HTTP/1.1 wire format. A response whose
// handler never set a body still carries Content-Length: 0 so the client can
// find the end of it on a persistent connection.
func (r *Response) WriteTo(w io.Writer) (int64, error) {
	buf := getBuffer()
	defer putBuffer(buf)

	proto := r.Proto
	if proto == "" {
		proto = ProtocolHTTP11
	}
	buf.WriteString(proto + " " + r.Status() + crlf)
	r.Header.WriteTo(buf)
	if !r.Header.Has(HeaderContentLength) {
		buf.WriteString(HeaderContentLength + ": " + strconv.Itoa(len(r.body)) + crlf)
	}
	buf.WriteString(crlf)
	buf.Write(r.body)

	n, err := w.Write(buf.Bytes())
	return int64(n), err
}

// Bytes returns the serialized response.
func (r *Response) Bytes() []byte {
	buf := getBuffer()
	defer putBuffer(buf)
	r.WriteTo(buf)
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out
}

// StatusText returns the reason phrase for the given status code.
func StatusText(code int) string {
	switch code {
	case StatusOK:
		return "OK"
	case StatusCreated:
		return "Created"
	case StatusBadRequest:
		return "Bad Request"
	case StatusForbidden:
		return "Forbidden"
	case StatusNotFound:
		return "Not Found"
	case StatusMethodNotAllowed:
		return "Method Not Allowed"
	case StatusInternalServerError:
		return "Internal Server Error"
	default:
		return "Unknown"
	}
}

// Text returns a text/plain response carrying msg.
func Text(statusCode int, msg string) *Response {
	return NewResponse(statusCode).
		SetHeader(HeaderContentType, ContentTypeTextPlain).
		SetBody([]byte(msg))
}

// Error returns a bodiless response for the given status.
func Error(statusCode int) *Response {
	return NewResponse(statusCode)
}
