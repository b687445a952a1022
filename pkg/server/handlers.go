package server

import (
	"errors"

	"github.com/rs/zerolog"

	"rawhttp/pkg/http"
	"rawhttp/pkg/router"
	"rawhttp/pkg/vfs"
)

// RootHandler answers GET / with an empty 200.
func RootHandler(*http.Request) *http.Response {
	return http.NewResponse(http.StatusOK)
}

// EchoHandler returns the decoded {str} segment as text/plain.
func EchoHandler(req *http.Request) *http.Response {
	return http.Text(http.StatusOK, req.Param("str"))
}

// UserAgentHandler reflects the User-Agent request header.
func UserAgentHandler(req *http.Request) *http.Response {
	return http.Text(http.StatusOK, req.UserAgent())
}

// FileHandler serves and stores /files/{filename} through a byte store.
type FileHandler struct {
	store vfs.Store
	log   zerolog.Logger
}

// NewFileHandler creates a file handler over store.
func NewFileHandler(store vfs.Store, log zerolog.Logger) *FileHandler {
	return &FileHandler{store: store, log: log}
}

// Get returns the named file as application/octet-stream.
func (h *FileHandler) Get(req *http.Request) *http.Response {
	name := req.Param("filename")
	if h.store == nil {
		h.log.Error().Str("file", name).Msg("file store not configured")
		return http.Error(http.StatusInternalServerError)
	}

	data, err := h.store.ReadFile(name)
	if err != nil {
		code := readStatus(err)
		ev := h.log.Debug()
		if code == http.StatusInternalServerError {
			ev = h.log.Error()
		} else if code == http.StatusForbidden {
			ev = h.log.Warn()
		}
		ev.Err(err).Str("file", name).Int("status", code).Msg("read file")
		return http.Error(code)
	}

	h.log.Debug().Str("file", name).Int("size", len(data)).Msg("served file")
	return http.NewResponse(http.StatusOK).
		SetHeader(http.HeaderContentType, http.ContentTypeOctetStream).
		SetBody(data)
}

// Post stores the request body under the named file and answers 201.
func (h *FileHandler) Post(req *http.Request) *http.Response {
	name := req.Param("filename")
	if h.store == nil {
		h.log.Error().Str("file", name).Msg("file store not configured")
		return http.Error(http.StatusInternalServerError)
	}

	if err := h.store.WriteFile(name, req.Body); err != nil {
		code := writeStatus(err)
		ev := h.log.Warn()
		if code == http.StatusInternalServerError {
			ev = h.log.Error()
		}
		ev.Err(err).Str("file", name).Int("status", code).Msg("write file")
		return http.Error(code)
	}

	h.log.Info().Str("file", name).Int("size", len(req.Body)).Msg("created file")
	return http.NewResponse(http.StatusCreated)
}

func readStatus(err error) int {
	switch {
	case errors.Is(err, vfs.ErrOutsideRoot):
		return http.StatusForbidden
	case errors.Is(err, vfs.ErrNotExist), errors.Is(err, vfs.ErrIsDir):
		return http.StatusNotFound
	case errors.Is(err, vfs.ErrInvalidPath), errors.Is(err, vfs.ErrPathTooLong):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeStatus(err error) int {
	switch {
	case errors.Is(err, vfs.ErrOutsideRoot):
		return http.StatusForbidden
	case errors.Is(err, vfs.ErrIsDir), errors.Is(err, vfs.ErrInvalidPath), errors.Is(err, vfs.ErrPathTooLong):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// NewRoutes builds the frozen route table. Registration order is match
// order.
func NewRoutes(store vfs.Store, log zerolog.Logger) *router.Router {
	files := NewFileHandler(store, log.With().Str("component", "files").Logger())

	r := router.New()
	r.SetLogger(log.With().Str("component", "router").Logger())
	r.GET("/", http.HandlerFunc(RootHandler))
	r.GET("/echo/{str}", http.HandlerFunc(EchoHandler))
	r.GET("/user-agent", http.HandlerFunc(UserAgentHandler))
	r.GET("/files/{filename}", http.HandlerFunc(files.Get))
	r.POST("/files/{filename}", http.HandlerFunc(files.Post))
	r.Freeze()
	return r
}
