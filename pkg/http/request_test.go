package http

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"testing"
)

func newTestParser(input string, opts ...ParserOption) *Parser {
	return NewParser(strings.NewReader(input), opts...)
}

// TestParseRequestLine tests request line parsing.
func TestParseRequestLine(t *testing.T) {
	tests := []struct {
		line    string
		method  string
		path    string
		proto   string
		wantErr bool
	}{
		{"GET / HTTP/1.1", "GET", "/", "HTTP/1.1", false},
		{"POST /files/a.txt HTTP/1.1", "POST", "/files/a.txt", "HTTP/1.1", false},
		{"GET / HTTP/1.0", "GET", "/", "HTTP/1.0", false},
		{"GET / HTTP/1.1 extra", "GET", "/", "HTTP/1.1", false},
		{"INVALID", "", "", "", true},
		{"GET /", "", "", "", true},
		{"GET  HTTP/1.1", "", "", "", true},
		{"", "", "", "", true},
	}
	for _, tt := range tests {
		method, path, proto, err := ParseRequestLine(tt.line)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseRequestLine(%q) expected error, got nil", tt.line)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseRequestLine(%q) unexpected error: %v", tt.line, err)
			continue
		}
		if method != tt.method || path != tt.path || proto != tt.proto {
			t.Errorf("ParseRequestLine(%q) = (%q, %q, %q), want (%q, %q, %q)",
				tt.line, method, path, proto, tt.method, tt.path, tt.proto)
		}
	}
}

func TestParserNext(t *testing.T) {
	input := "GET /user-agent HTTP/1.1\r\n" +
		"Host: localhost:4221\r\n" +
		"USER-AGENT: foo/1.2\r\n" +
		"Accept: */*\r\n" +
		"\r\n"
	req, err := newTestParser(input).Next()
	if err != nil {
		t.Fatalf("Next() error: %v", err)
	}
	if req.Method != "GET" || req.Path != "/user-agent" || req.Proto != "HTTP/1.1" {
		t.Errorf("request line = %s %s %s", req.Method, req.Path, req.Proto)
	}
	if req.Header["user-agent"] != "foo/1.2" {
		t.Errorf("header keys must be lowercased, got %v", req.Header)
	}
	if req.UserAgent() != "foo/1.2" {
		t.Errorf("UserAgent() = %q", req.UserAgent())
	}
	if len(req.Body) != 0 {
		t.Errorf("expected empty body, got %q", req.Body)
	}
	if len(req.Params()) != 0 {
		t.Errorf("params must be empty before routing, got %v", req.Params())
	}
}

func TestParserHeaders(t *testing.T) {
	input := "GET / HTTP/1.1\r\n" +
		"X-Dup: first\r\n" +
		"no colon here\r\n" +
		"  X-Spaced  :   padded value  \r\n" +
		"x-dup: second\r\n" +
		"X-Empty:\r\n" +
		"\r\n"
	req, err := newTestParser(input).Next()
	if err != nil {
		t.Fatalf("Next() error: %v", err)
	}
	tests := map[string]string{
		"x-dup":    "second",
		"x-spaced": "padded value",
		"x-empty":  "",
	}
	for k, want := range tests {
		if got, ok := req.Header[k]; !ok || got != want {
			t.Errorf("Header[%q] = %q (present %v), want %q", k, got, ok, want)
		}
	}
	if len(req.Header) != 3 {
		t.Errorf("expected 3 headers, got %v", req.Header)
	}
}

func TestParserBody(t *testing.T) {
	tests := []struct {
		name          string
		contentLength string
		rest          string
		want          string
	}{
		{"exact", "5", "hello", "hello"},
		{"absent", "", "ignored", ""},
		{"zero", "0", "ignored", ""},
		{"negative", "-3", "ignored", ""},
		{"non-numeric", "abc", "ignored", ""},
		{"shorter than declared", "10", "abc", "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := "POST /files/x HTTP/1.1\r\n"
			if tt.contentLength != "" {
				input += "Content-Length: " + tt.contentLength + "\r\n"
			}
			input += "\r\n" + tt.rest
			req, err := newTestParser(input).Next()
			if err != nil {
				t.Fatalf("Next() error: %v", err)
			}
			if string(req.Body) != tt.want {
				t.Errorf("body = %q, want %q", req.Body, tt.want)
			}
		})
	}
}

func TestParserTruncatedBody(t *testing.T) {
	req, err := newTestParser("POST /f HTTP/1.1\r\nContent-Length: 10\r\n\r\nabc").Next()
	if err != nil {
		t.Fatalf("Next() error: %v", err)
	}
	if !req.Truncated() {
		t.Error("Truncated() = false, want true")
	}
	full, _ := newTestParser("POST /f HTTP/1.1\r\nContent-Length: 3\r\n\r\nabc").Next()
	if full.Truncated() {
		t.Error("Truncated() = true for complete body")
	}
}

func TestParserBinaryBody(t *testing.T) {
	body := "\x00\xff\r\n\x1f\x8b"
	req, err := newTestParser("POST /f HTTP/1.1\r\nContent-Length: 6\r\n\r\n" + body).Next()
	if err != nil {
		t.Fatalf("Next() error: %v", err)
	}
	if string(req.Body) != body {
		t.Errorf("body = %q, want %q", req.Body, body)
	}
}

func TestParserMultipleRequests(t *testing.T) {
	input := "POST /files/a HTTP/1.1\r\nContent-Length: 3\r\n\r\nabc" +
		"GET /echo/x HTTP/1.1\r\n\r\n"
	p := newTestParser(input)

	first, err := p.Next()
	if err != nil {
		t.Fatalf("first Next() error: %v", err)
	}
	if first.Path != "/files/a" || string(first.Body) != "abc" {
		t.Errorf("first = %s %q", first.Path, first.Body)
	}
	second, err := p.Next()
	if err != nil {
		t.Fatalf("second Next() error: %v", err)
	}
	if second.Path != "/echo/x" {
		t.Errorf("second path = %q", second.Path)
	}
	if _, err := p.Next(); err != io.EOF {
		t.Errorf("third Next() error = %v, want io.EOF", err)
	}
}

func TestParserNoMoreRequests(t *testing.T) {
	if _, err := newTestParser("").Next(); err != io.EOF {
		t.Errorf("Next() on empty stream = %v, want io.EOF", err)
	}
}

func TestParserMalformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"partial line", "GET / HTT"},
		{"two tokens", "GET /\r\n\r\n"},
		{"blank line", "\r\n"},
		{"garbage", "hello\r\n\r\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestParser(tt.input).Next()
			var perr *ProtocolError
			if !errors.As(err, &perr) {
				t.Errorf("Next() error = %v, want *ProtocolError", err)
			}
		})
	}
}

func TestParserLimits(t *testing.T) {
	long := "GET /" + strings.Repeat("a", 100) + " HTTP/1.1\r\n\r\n"
	_, err := newTestParser(long, WithMaxLineBytes(32)).Next()
	var perr *ProtocolError
	if !errors.As(err, &perr) {
		t.Errorf("long line: error = %v, want *ProtocolError", err)
	}

	big := "POST /f HTTP/1.1\r\nContent-Length: 1000\r\n\r\n"
	_, err = newTestParser(big, WithMaxBodyBytes(10)).Next()
	if !errors.As(err, &perr) {
		t.Errorf("big body: error = %v, want *ProtocolError", err)
	}
}

func TestParserHeaderBlockEndsAtEOF(t *testing.T) {
	req, err := newTestParser("GET / HTTP/1.1\r\nHost: a\r\nX-Last: b").Next()
	if err != nil {
		t.Fatalf("Next() error: %v", err)
	}
	if req.Header.Get("host") != "a" || req.Header.Get("x-last") != "b" {
		t.Errorf("headers = %v", req.Header)
	}
}

func TestReadRequestKeepsBufferedBytes(t *testing.T) {
	br := bufio.NewReader(strings.NewReader("GET /a HTTP/1.1\r\n\r\nGET /b HTTP/1.1\r\n\r\n"))
	a, err := ReadRequest(br)
	if err != nil {
		t.Fatalf("ReadRequest error: %v", err)
	}
	b, err := ReadRequest(br)
	if err != nil {
		t.Fatalf("ReadRequest error: %v", err)
	}
	if a.Path != "/a" || b.Path != "/b" {
		t.Errorf("paths = %q, %q", a.Path, b.Path)
	}
}

func TestRequestHelpers(t *testing.T) {
	req := NewRequest("GET", "/echo/hi?x=1", nil)
	if req.URLPath() != "/echo/hi" {
		t.Errorf("URLPath() = %q", req.URLPath())
	}
	if req.RawQuery() != "x=1" {
		t.Errorf("RawQuery() = %q", req.RawQuery())
	}
	if req.ContentLength() != -1 {
		t.Errorf("ContentLength() = %d, want -1", req.ContentLength())
	}

	tests := []struct {
		proto      string
		connection string
		close      bool
		keepAlive  bool
	}{
		{ProtocolHTTP11, "", false, true},
		{ProtocolHTTP11, "close", true, false},
		{ProtocolHTTP11, "Close", true, false},
		{ProtocolHTTP11, "keep-alive", false, true},
		{ProtocolHTTP10, "", false, true},
		{ProtocolHTTP10, "Keep-Alive", false, true},
		{ProtocolHTTP10, "close", true, false},
	}
	for _, tt := range tests {
		r := NewRequest("GET", "/", nil)
		r.Proto = tt.proto
		if tt.connection != "" {
			r.Header["connection"] = tt.connection
		}
		if r.WantsClose() != tt.close || r.KeepAlive() != tt.keepAlive {
			t.Errorf("%s Connection=%q: WantsClose=%v KeepAlive=%v, want %v %v",
				tt.proto, tt.connection, r.WantsClose(), r.KeepAlive(), tt.close, tt.keepAlive)
		}
	}
}
