// Package router provides a method and path router for the rawhttp server.
//
// Patterns are '/'-separated. A segment written as {name} matches any run of
// characters other than '/', including the empty string, and its
// percent-decoded value is exposed as a request parameter:
//   - Exact match: /user-agent
//   - Named parameter: /echo/{str}
//   - Several parameters: /posts/{id}/comments/{commentId}
//
// Routes are tried in registration order and the first match wins.
//
// Example usage:
//
//	r := router.New()
//	r.GET("/files/{filename}", files.Get)
//	r.POST("/files/{filename}", files.Post)
//	r.Freeze()
//	srv := &http.Server{Addr: ":4221", Handler: r}
package router
