package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// ErrServerClosed is returned by Serve after Shutdown or Close.
var ErrServerClosed = errors.New("http: server closed")

// Handler turns a request into a response.
type Handler interface {
	ServeHTTP(*Request) *Response
}

// HandlerFunc is a function that implements Handler.
type HandlerFunc func(*Request) *Response

// ServeHTTP calls f(r).
func (f HandlerFunc) ServeHTTP(r *Request) *Response {
	return f(r)
}

// Server accepts connections and runs one request loop per connection.
type Server struct {
	Addr         string
	Handler      Handler
	Compressor   *Compressor
	Logger       zerolog.Logger
	IdleTimeout  time.Duration
	WriteTimeout time.Duration
	MaxLineBytes int
	MaxBodyBytes int64

	mu       sync.Mutex
	listener net.Listener
	conns    map[net.Conn]struct{}
	wg       sync.WaitGroup
	closed   atomic.Bool
}

// ListenAndServe listens on s.Addr and serves connections.
func (s *Server) ListenAndServe() error {
	addr := s.Addr
	if addr == "" {
		addr = ":http"
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return s.Serve(ln)
}

// Serve accepts incoming connections on ln and handles each one in its own
// goroutine. It returns ErrServerClosed once the server is shut down.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	if s.closed.Load() {
		s.mu.Unlock()
		ln.Close()
		return ErrServerClosed
	}
	s.listener = ln
	if s.conns == nil {
		s.conns = make(map[net.Conn]struct{})
	}
	s.mu.Unlock()
	defer ln.Close()

	if f, ok := s.Handler.(interface{ Freeze() }); ok {
		f.Freeze()
	}

	s.Logger.Info().Str("addr", ln.Addr().String()).Msg("listening")

	var backoff time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.closed.Load() {
				return ErrServerClosed
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				backoff = nextBackoff(backoff)
				s.Logger.Warn().Err(err).Dur("retry_in", backoff).Msg("accept failed")
				time.Sleep(backoff)
				continue
			}
			return fmt.Errorf("accept: %w", err)
		}
		backoff = 0
		if !s.track(conn) {
			conn.Close()
			return ErrServerClosed
		}
		go s.serveConn(conn)
	}
}

func nextBackoff(d time.Duration) time.Duration {
	if d == 0 {
		return 5 * time.Millisecond
	}
	d *= 2
	if d > time.Second {
		d = time.Second
	}
	return d
}

// track registers conn for shutdown. It reports false if the server is
// already closing.
func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return false
	}
	s.conns[conn] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	s.wg.Done()
}

// Shutdown stops accepting connections and waits for in-flight connections
// to finish. When ctx expires first the remaining connections are closed.
func (s *Server) Shutdown(ctx context.Context) error {
	s.closeListener()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.closeConns()
		<-done
		return ctx.Err()
	}
}

// Close stops accepting connections and closes all open ones.
func (s *Server) Close() error {
	err := s.closeListener()
	s.closeConns()
	return err
}

func (s *Server) closeListener() error {
	s.closed.Store(true)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

func (s *Server) closeConns() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		c.Close()
	}
}

// ListenAddr returns the address the server is listening on, or nil before
// Serve has been called.
func (s *Server) ListenAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) idleTimeout() time.Duration {
	if s.IdleTimeout > 0 {
		return s.IdleTimeout
	}
	return DefaultIdleTimeout
}

func (s *Server) writeTimeout() time.Duration {
	if s.WriteTimeout > 0 {
		return s.WriteTimeout
	}
	return DefaultWriteTimeout
}

// serveConn owns conn until it is closed: read a request, dispatch it,
// compress and write the response, then either wait for the next request
// or hang up.
func (s *Server) serveConn(conn net.Conn) {
	defer s.untrack(conn)
	defer conn.Close()

	log := s.Logger.With().Str("remote", conn.RemoteAddr().String()).Logger()
	log.Debug().Msg("connection accepted")

	parser := NewParser(conn,
		WithMaxLineBytes(s.MaxLineBytes),
		WithMaxBodyBytes(s.MaxBodyBytes),
		WithParserLogger(log),
	)
	for {
		conn.SetReadDeadline(time.Now().Add(s.idleTimeout()))
		req, err := parser.Next()
		if err != nil {
			s.endOnReadError(conn, log, err)
			return
		}
		req.RemoteAddr = conn.RemoteAddr().String()
		if req.Truncated() {
			log.Warn().
				Int64("declared", req.ContentLength()).
				Int("received", len(req.Body)).
				Msg("request body cut short by peer")
		}

		start := time.Now()
		resp := s.dispatch(log, req)
		keepAlive := req.KeepAlive()
		if !keepAlive {
			resp.Header.Set(HeaderConnection, ConnectionClose)
		}

		conn.SetWriteDeadline(time.Now().Add(s.writeTimeout()))
		if _, err := resp.WriteTo(conn); err != nil {
			log.Warn().Err(err).Msg("write response")
			return
		}
		log.Info().
			Str("method", req.Method).
			Str("path", req.Path).
			Int("status", resp.StatusCode).
			Int("bytes", len(resp.Body())).
			Dur("duration", time.Since(start)).
			Msg("request handled")

		if !keepAlive {
			closeWrite(conn)
			return
		}
	}
}

// endOnReadError decides what, if anything, to send before the connection
// is dropped after a failed read.
func (s *Server) endOnReadError(conn net.Conn, log zerolog.Logger, err error) {
	var perr *ProtocolError
	var ne net.Error
	switch {
	case errors.Is(err, io.EOF):
		log.Debug().Msg("client closed connection")
	case errors.As(err, &ne) && ne.Timeout():
		log.Debug().Msg("connection idle timeout")
	case errors.As(err, &perr):
		log.Warn().Err(err).Msg("bad request")
		resp := Text(StatusBadRequest, "400 Bad Request: "+perr.Message)
		resp.Header.Set(HeaderConnection, ConnectionClose)
		conn.SetWriteDeadline(time.Now().Add(s.writeTimeout()))
		if _, werr := resp.WriteTo(conn); werr != nil {
			log.Debug().Err(werr).Msg("write 400 response")
		}
	default:
		log.Warn().Err(err).Msg("read request")
	}
}

// dispatch runs the handler and the compressor. A panicking handler yields
// a 500 instead of taking the process down.
func (s *Server) dispatch(log zerolog.Logger, req *Request) (resp *Response) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Interface("panic", rec).Str("path", req.Path).Msg("handler panicked")
			resp = Error(StatusInternalServerError)
		}
	}()
	if s.Handler == nil {
		resp = Error(StatusNotFound)
	} else {
		resp = s.Handler.ServeHTTP(req)
	}
	if resp == nil {
		resp = Error(StatusInternalServerError)
	}
	if s.Compressor != nil {
		resp = s.Compressor.Apply(req, resp)
	}
	return resp
}

// closeWrite half-closes TCP connections so the client sees EOF right after
// the last response.
func closeWrite(conn net.Conn) {
	if cw, ok := conn.(interface{ CloseWrite() error }); ok {
		cw.CloseWrite()
	}
}
