/*
Package http implements a small HTTP/1.1 server directly on top of net.Conn.

It does not use net/http. The package provides:

  - Parser, which reads successive requests from one byte stream
  - Request and Response, the values handlers consume and produce
  - Compressor, which gzip-encodes bodies for clients that accept it
  - Server, which accepts TCP connections and runs one request loop per
    connection with keep-alive and Connection: close handling
  - Client, a one-connection client used by tests and tooling

# Parsing

Next returns one of three outcomes: a request, io.EOF when the peer closed
the stream between requests, or a *ProtocolError when the bytes cannot be
parsed. After a *ProtocolError the connection is answered with a 400 and
closed, since there is no way to find the start of the next request.

Only Content-Length framed bodies are supported. A body shorter than its
declared length (peer hung up) is returned truncated; Request.Truncated
reports it.

# Usage

	srv := &http.Server{
		Addr:       ":4221",
		Handler:    routes,
		Compressor: http.NewCompressor(gzip.DefaultCompression),
		Logger:     logger,
	}
	srv.ListenAndServe()
*/
package http
