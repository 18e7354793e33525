// Package storage uploads inspection photos to a blob store and resolves them
// to public URLs.
package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
)

// BlobStore persists one object and returns the URL it can be fetched from.
type BlobStore interface {
	Put(ctx context.Context, objectPath, contentType string, body io.Reader) (string, error)
}

// cleanObjectPath rejects paths that could escape the collection.
func cleanObjectPath(p string) (string, error) {
	p = strings.TrimSpace(strings.ReplaceAll(p, "\\", "/"))
	if p == "" {
		return "", fmt.Errorf("object path is required")
	}
	cleaned := path.Clean("/" + p)[1:]
	if cleaned == "" || cleaned != strings.TrimPrefix(p, "/") || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("invalid object path %q", p)
	}
	return cleaned, nil
}

// escapePath escapes each path segment for use in a URL.
func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, s := range parts {
		parts[i] = url.PathEscape(s)
	}
	return strings.Join(parts, "/")
}
