package router

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"rawhttp/pkg/http"
)

// methodOrder fixes the order of methods in Allow headers.
var methodOrder = []string{
	http.MethodGet,
	http.MethodHead,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
	http.MethodOptions,
	http.MethodConnect,
	http.MethodTrace,
}

// segment is one '/'-separated piece of a compiled pattern.
type segment struct {
	literal string
	param   string // non-empty for {name} segments
}

// Route represents a registered route.
type Route struct {
	Method  string
	Pattern string
	Handler http.Handler
	Params  []string

	segments []segment
}

// match reports whether the request path segments fit the route. Literal
// segments compare byte for byte on the raw path; wildcard values are
// form-decoded, so '+' becomes a space and "%2B" a literal plus.
func (rt *Route) match(parts []string) (Params, bool, error) {
	if len(parts) != len(rt.segments) {
		return nil, false, nil
	}
	for i, seg := range rt.segments {
		if seg.param == "" && seg.literal != parts[i] {
			return nil, false, nil
		}
	}
	params := make(Params, len(rt.Params))
	for i, seg := range rt.segments {
		if seg.param == "" {
			continue
		}
		value, err := url.QueryUnescape(parts[i])
		if err != nil {
			return nil, true, fmt.Errorf("router: decode %s: %w", seg.param, err)
		}
		params[seg.param] = value
	}
	return params, true, nil
}

// Router maps (method, pattern) pairs to handlers. Routes are tried in
// registration order and the first match wins, so specific patterns must be
// registered before wildcards that overlap them.
//
// A Router is built once and then frozen; after Freeze it is safe for
// concurrent use without locking.
type Router struct {
	routes     map[string][]*Route
	all        []*Route
	frozen     bool
	notFound   http.Handler
	notAllowed http.Handler
	badRequest http.Handler
	log        zerolog.Logger
}

// New creates a new Router instance.
func New() *Router {
	return &Router{
		routes: make(map[string][]*Route),
		notFound: http.HandlerFunc(func(*http.Request) *http.Response {
			return http.Error(http.StatusNotFound)
		}),
		notAllowed: http.HandlerFunc(func(*http.Request) *http.Response {
			return http.Error(http.StatusMethodNotAllowed)
		}),
		badRequest: http.HandlerFunc(func(*http.Request) *http.Response {
			return http.Error(http.StatusBadRequest)
		}),
		log: zerolog.Nop(),
	}
}

// SetLogger sets the logger used for registration and dispatch events.
func (r *Router) SetLogger(l zerolog.Logger) {
	r.log = l
}

// GET is a shortcut for adding a route with GET method.
func (r *Router) GET(pattern string, handler http.Handler) {
	r.Handle(http.MethodGet, pattern, handler)
}

// POST is a shortcut for adding a route with POST method.
func (r *Router) POST(pattern string, handler http.Handler) {
	r.Handle(http.MethodPost, pattern, handler)
}

// PUT is a shortcut for adding a route with PUT method.
func (r *Router) PUT(pattern string, handler http.Handler) {
	r.Handle(http.MethodPut, pattern, handler)
}

// DELETE is a shortcut for adding a route with DELETE method.
func (r *Router) DELETE(pattern string, handler http.Handler) {
	r.Handle(http.MethodDelete, pattern, handler)
}

// HandleFunc registers fn for method and pattern.
func (r *Router) HandleFunc(method, pattern string, fn func(*http.Request) *http.Response) {
	r.Handle(method, pattern, http.HandlerFunc(fn))
}

// Handle registers handler for method and pattern. It panics on an
// invalid pattern, an unknown method, a nil handler, or when the router has
// been frozen.
func (r *Router) Handle(method, pattern string, handler http.Handler) {
	if r.frozen {
		panic("router: Handle after Freeze")
	}
	if handler == nil {
		panic("router: nil handler")
	}
	method = strings.ToUpper(method)
	if !http.IsKnownMethod(method) {
		panic(fmt.Sprintf("router: unknown method %q", method))
	}
	segments, params, err := compilePattern(pattern)
	if err != nil {
		panic(fmt.Sprintf("router: invalid pattern %q: %v", pattern, err))
	}
	route := &Route{
		Method:   method,
		Pattern:  pattern,
		Handler:  handler,
		Params:   params,
		segments: segments,
	}
	r.routes[method] = append(r.routes[method], route)
	r.all = append(r.all, route)
	r.log.Debug().Str("method", method).Str("pattern", pattern).Msg("route added")
}

// compilePattern splits a pattern into literal and {name} segments.
func compilePattern(pattern string) ([]segment, []string, error) {
	if !strings.HasPrefix(pattern, "/") {
		return nil, nil, fmt.Errorf("must start with '/'")
	}
	var params []string
	seen := make(map[string]bool)
	parts := splitPath(pattern)
	segments := make([]segment, len(parts))
	for i, part := range parts {
		if strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}") && len(part) > 2 {
			name := part[1 : len(part)-1]
			if strings.ContainsAny(name, "{}") {
				return nil, nil, fmt.Errorf("bad parameter %q", part)
			}
			if seen[name] {
				return nil, nil, fmt.Errorf("duplicate parameter %q", name)
			}
			seen[name] = true
			params = append(params, name)
			segments[i] = segment{param: name}
			continue
		}
		if strings.ContainsAny(part, "{}") {
			return nil, nil, fmt.Errorf("bad segment %q", part)
		}
		segments[i] = segment{literal: part}
	}
	return segments, params, nil
}

// splitPath splits a path on '/'. "/" yields ["", ""] and "/echo/" yields
// ["", "echo", ""], so a trailing empty segment can bind a wildcard.
func splitPath(p string) []string {
	return strings.Split(p, "/")
}

// Freeze stops further registration.
func (r *Router) Freeze() {
	r.frozen = true
}

// ServeHTTP implements http.Handler. It binds the matched route's
// parameters on req before calling its handler.
func (r *Router) ServeHTTP(req *http.Request) *http.Response {
	method := strings.ToUpper(req.Method)
	if !http.IsKnownMethod(method) {
		r.log.Debug().Str("method", req.Method).Str("path", req.Path).Msg("unsupported method")
		return r.notAllowed.ServeHTTP(req)
	}

	parts := splitPath(req.URLPath())
	for _, route := range r.routes[method] {
		params, ok, err := route.match(parts)
		if !ok {
			continue
		}
		if err != nil {
			r.log.Debug().Err(err).Str("path", req.Path).Msg("bad path parameter")
			return r.badRequest.ServeHTTP(req)
		}
		req.SetParams(params)
		return route.Handler.ServeHTTP(req)
	}

	if allowed := r.allowed(parts); len(allowed) > 0 {
		resp := r.notAllowed.ServeHTTP(req)
		if resp != nil {
			resp.Header.Set(http.HeaderAllow, strings.Join(allowed, ", "))
		}
		return resp
	}
	r.log.Debug().Str("method", method).Str("path", req.Path).Msg("no route")
	return r.notFound.ServeHTTP(req)
}

// allowed lists the methods with a route matching parts.
func (r *Router) allowed(parts []string) []string {
	var methods []string
	for _, m := range methodOrder {
		for _, route := range r.routes[m] {
			if _, ok, _ := route.match(parts); ok {
				methods = append(methods, m)
				break
			}
		}
	}
	return methods
}

// SetNotFoundHandler sets the handler for routes that don't match.
func (r *Router) SetNotFoundHandler(handler http.Handler) {
	r.notFound = handler
}

// SetMethodNotAllowedHandler sets the handler for methods that don't match.
func (r *Router) SetMethodNotAllowedHandler(handler http.Handler) {
	r.notAllowed = handler
}

// Routes returns all registered routes in registration order.
func (r *Router) Routes() []Route {
	routes := make([]Route, len(r.all))
	for i, rt := range r.all {
		routes[i] = *rt
	}
	return routes
}
