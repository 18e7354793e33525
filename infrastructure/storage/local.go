package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// URLPrefix is the route local objects are served from.
const URLPrefix = "/uploads/"

// LocalStore writes objects under a directory served by the app itself.
type LocalStore struct {
	root    string
	baseURL string
}

// NewLocalStore creates root if needed. publicBaseURL is the externally
// reachable origin of this service.
func NewLocalStore(root, publicBaseURL string) (*LocalStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve upload dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{root: abs, baseURL: strings.TrimRight(publicBaseURL, "/")}, nil
}

func (s *LocalStore) Put(ctx context.Context, objectPath, _ string, body io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	clean, err := cleanObjectPath(objectPath)
	if err != nil {
		return "", err
	}
	dst := filepath.Join(s.root, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create object dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp object: %w", err)
	}
	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close object: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("store object: %w", err)
	}
	return s.baseURL + URLPrefix + escapePath(clean), nil
}

// Open reads a stored object back.
func (s *LocalStore) Open(objectPath string) (io.ReadCloser, error) {
	clean, err := cleanObjectPath(objectPath)
	if err != nil {
		return nil, err
	}
	return os.Open(filepath.Join(s.root, filepath.FromSlash(clean)))
}

// ObjectPathFromURL maps a URL issued by Put back to its object path.
func (s *LocalStore) ObjectPathFromURL(raw string) (string, bool) {
	prefix := s.baseURL + URLPrefix
	if !strings.HasPrefix(raw, prefix) {
		return "", false
	}
	p, err := url.PathUnescape(strings.TrimPrefix(raw, prefix))
	if err != nil {
		return "", false
	}
	return p, true
}

// Handler serves stored objects under URLPrefix. Directories are not listed.
func (s *LocalStore) Handler() http.Handler {
	files := http.FileServer(http.Dir(s.root))
	return http.StripPrefix(URLPrefix, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	}))
}
