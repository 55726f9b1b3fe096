package handlers

import (
	"bytes"
	"errors"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/yourusername/ember/pkg/ember/http1"
)

// FilesOptions configures a file handler.
type FilesOptions struct {
	// Index is served for directory requests.
	// Default: "index.html"
	Index string

	// CacheTTL is how long file contents stay cached.
	// Default: 30 seconds
	CacheTTL time.Duration

	// MaxFileSize is the largest file served; bigger files get 403.
	// Default: 8 MB
	MaxFileSize int64

	Logger zerolog.Logger
}

const (
	defaultIndex       = "index.html"
	defaultCacheTTL    = 30 * time.Second
	defaultMaxFileSize = 8 << 20
)

// fileEntry is a cached file body with its detected content type.
type fileEntry struct {
	body []byte
	mime string
}

// Files serves files below a root directory for the rebased request URL.
//
// Paths with ".." segments or symlinks leading outside the root are
// answered with 403 and missing files with 404. Bodies are cached by URL for CacheTTL, so edits show up once the
// entry expires.
type Files struct {
	root  string
	opts  FilesOptions
	cache *gocache.Cache
	log   zerolog.Logger
}

var (
	errTraversal = errors.New("handlers: path escapes root")
	errTooLarge  = errors.New("handlers: file too large")
)

// NewFiles creates a file handler rooted at root, which must be a directory.
func NewFiles(root string, opts FilesOptions) (*Files, error) {
	if opts.Index == "" {
		opts.Index = defaultIndex
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = defaultCacheTTL
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = defaultMaxFileSize
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if abs, err = filepath.EvalSymlinks(abs); err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, &fs.PathError{Op: "files", Path: abs, Err: errors.New("not a directory")}
	}

	return &Files{
		root:  abs,
		opts:  opts,
		cache: gocache.New(opts.CacheTTL, 2*opts.CacheTTL),
		log:   opts.Logger,
	}, nil
}

// Handle implements http1.Handler.
func (h *Files) Handle(req *http1.Request) *http1.Response {
	url := req.URL()
	if i := bytes.IndexByte(url, '?'); i >= 0 {
		url = url[:i]
	}
	key := string(url)

	if v, found := h.cache.Get(key); found {
		e := v.(*fileEntry)
		return req.Respond(http1.StatusOK, e.mime, e.body)
	}

	e, err := h.load(key)
	switch {
	case err == nil:
	case errors.Is(err, errTraversal), errors.Is(err, errTooLarge), errors.Is(err, fs.ErrPermission):
		return http1.DefaultResponse(req, http1.StatusForbidden)
	case errors.Is(err, fs.ErrNotExist):
		return http1.DefaultResponse(req, http1.StatusNotFound)
	default:
		h.log.Warn().Err(err).Str("path", key).Msg("file read failed")
		return http1.DefaultResponse(req, http1.StatusInternalServerError)
	}

	h.cache.SetDefault(key, e)
	return req.Respond(http1.StatusOK, e.mime, e.body)
}

// load resolves urlPath below the root and reads it.
func (h *Files) load(urlPath string) (*fileEntry, error) {
	rel, err := cleanPath(urlPath)
	if err != nil {
		return nil, err
	}

	name, err := h.resolve(filepath.Join(h.root, filepath.FromSlash(rel)))
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(name)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		if name, err = h.resolve(filepath.Join(name, h.opts.Index)); err != nil {
			return nil, err
		}
		if info, err = os.Stat(name); err != nil {
			return nil, err
		}
	}
	if !info.Mode().IsRegular() {
		return nil, fs.ErrNotExist
	}
	if info.Size() > h.opts.MaxFileSize {
		return nil, errTooLarge
	}

	body, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}
	return &fileEntry{body: body, mime: detectMime(name, body)}, nil
}

// resolve follows symlinks in name and rejects targets outside the root.
func (h *Files) resolve(name string) (string, error) {
	resolved, err := filepath.EvalSymlinks(name)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(h.root, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errTraversal
	}
	return resolved, nil
}

// cleanPath turns a URL path into a slash-separated path relative to the
// root. Any ".." segment is rejected before cleaning.
func cleanPath(urlPath string) (string, error) {
	for _, seg := range splitSegments(urlPath) {
		if seg == ".." {
			return "", errTraversal
		}
	}
	p := path.Clean("/" + urlPath)
	return p[1:], nil
}

func splitSegments(p string) []string {
	var segs []string
	start := 0
	for i := 0; i <= len(p); i++ {
		if i == len(p) || p[i] == '/' || p[i] == '\\' {
			if i > start {
				segs = append(segs, p[start:i])
			}
			start = i + 1
		}
	}
	return segs
}

// detectMime prefers the extension and falls back to content sniffing.
func detectMime(name string, body []byte) string {
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return mimetype.Detect(body).String()
}
