package http

import (
	"bytes"
	"io"
	"strings"
	"sync"
	"time"
)

// Method constants for HTTP requests.
const (
	MethodGet     = "GET"
	MethodHead    = "HEAD"
	MethodPost    = "POST"
	MethodPut     = "PUT"
	MethodDelete  = "DELETE"
	MethodConnect = "CONNECT"
	MethodOptions = "OPTIONS"
	MethodTrace   = "TRACE"
	MethodPatch   = "PATCH"
)

// Status codes known to the server. Responses can only carry one of these.
const (
	StatusOK                  = 200
	StatusCreated             = 201
	StatusBadRequest          = 400
	StatusForbidden           = 403
	StatusNotFound            = 404
	StatusMethodNotAllowed    = 405
	StatusInternalServerError = 500
)

// Protocol versions.
const (
	ProtocolHTTP10 = "HTTP/1.0"
	ProtocolHTTP11 = "HTTP/1.1"
)

// Default limits and timeouts.
const (
	DefaultIdleTimeout  = 30 * time.Second
	DefaultWriteTimeout = 10 * time.Second
	DefaultMaxLineBytes = 8 << 10
	DefaultMaxBodyBytes = 10 << 20
)

// Header names.
const (
	HeaderAcceptEncoding  = "Accept-Encoding"
	HeaderAllow           = "Allow"
	HeaderConnection      = "Connection"
	HeaderContentEncoding = "Content-Encoding"
	HeaderContentLength   = "Content-Length"
	HeaderContentType     = "Content-Type"
	HeaderUserAgent       = "User-Agent"
)

// Content types set by handlers.
const (
	ContentTypeTextPlain   = "text/plain"
	ContentTypeOctetStream = "application/octet-stream"
)

// Encoding and connection tokens.
const (
	EncodingGzip        = "gzip"
	ConnectionKeepAlive = "keep-alive"
	ConnectionClose     = "close"
)

const crlf = "\r\n"

// RequestHeader holds request header fields keyed by lowercase name.
type RequestHeader map[string]string

// Get returns the value for key, matched case-insensitively.
func (h RequestHeader) Get(key string) string {
	if h == nil {
		return ""
	}
	return h[strings.ToLower(key)]
}

// Has reports whether key was present in the request.
func (h RequestHeader) Has(key string) bool {
	if h == nil {
		return false
	}
	_, ok := h[strings.ToLower(key)]
	return ok
}

// headerField is one response header line.
type headerField struct {
	name  string
	value string
}

// Header is an ordered set of response header fields. Names keep the
// spelling they were last set with; lookups ignore case.
type Header struct {
	fields []headerField
}

func (h *Header) index(key string) int {
	for i, f := range h.fields {
		if strings.EqualFold(f.name, key) {
			return i
		}
	}
	return -1
}

// Get returns the value for key, or "" when unset.
func (h *Header) Get(key string) string {
	if i := h.index(key); i >= 0 {
		return h.fields[i].value
	}
	return ""
}

// Has reports whether key is set.
func (h *Header) Has(key string) bool {
	return h.index(key) >= 0
}

// Set stores value under key. An existing field keeps its position but
// takes the new spelling and value.
func (h *Header) Set(key, value string) {
	if i := h.index(key); i >= 0 {
		h.fields[i] = headerField{name: key, value: value}
		return
	}
	h.fields = append(h.fields, headerField{name: key, value: value})
}

// Del removes key.
func (h *Header) Del(key string) {
	if i := h.index(key); i >= 0 {
		h.fields = append(h.fields[:i], h.fields[i+1:]...)
	}
}

// Len returns the number of fields.
func (h *Header) Len() int {
	return len(h.fields)
}

// Names returns field names in insertion order.
func (h *Header) Names() []string {
	names := make([]string, len(h.fields))
	for i, f := range h.fields {
		names[i] = f.name
	}
	return names
}

// WriteTo writes the fields to w in wire format.
func (h *Header) WriteTo(w io.Writer) (int64, error) {
	var n int64
	for _, f := range h.fields {
		cnt, err := io.WriteString(w, f.name+": "+f.value+crlf)
		n += int64(cnt)
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// ProtocolError represents a malformed request. The stream it came from
// cannot be trusted afterwards.
type ProtocolError struct {
	Message string
}

func (e *ProtocolError) Error() string {
	return e.Message
}

// bufferPool provides a pool of bytes.Buffer objects.
var bufferPool = sync.Pool{
	New: func() interface{} {
		return new(bytes.Buffer)
	},
}

// getBuffer gets a buffer from the pool.
func getBuffer() *bytes.Buffer {
	return bufferPool.Get().(*bytes.Buffer)
}

// putBuffer returns a buffer to the pool.
func putBuffer(b *bytes.Buffer) {
	b.Reset()
	bufferPool.Put(b)
}

// knownMethods is the set of methods the server recognizes.
var knownMethods = map[string]bool{
	MethodGet:     true,
	MethodHead:    true,
	MethodPost:    true,
	MethodPut:     true,
	MethodDelete:  true,
	MethodConnect: true,
	MethodOptions: true,
	MethodTrace:   true,
	MethodPatch:   true,
}

// IsKnownMethod reports whether method, compared case-insensitively, is one
// the server recognizes.
func IsKnownMethod(method string) bool {
	return knownMethods[strings.ToUpper(method)]
}
