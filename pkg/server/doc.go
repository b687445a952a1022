// Package server assembles the rawhttp application: the file store, the
// route table and its handlers, and the connection server from pkg/http.
//
// Routes, in match order:
//
//	GET  /                   200, empty body
//	GET  /echo/{str}         200, text/plain body str
//	GET  /user-agent         200, text/plain User-Agent header
//	GET  /files/{filename}   200 application/octet-stream, 404, 403
//	POST /files/{filename}   201, 403, 500
//
// Example usage:
//
//	cfg := server.DefaultConfig()
//	cfg.Directory = "/tmp/data"
//	srv := server.New(cfg)
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer stop()
//	if err := srv.Run(ctx); err != nil {
//		log.Fatal(err)
//	}
package server
