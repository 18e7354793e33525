package report

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"qcinspect/infrastructure/storage"
)

const maxImageBytes = 25 << 20

// ImageFetcher loads the bytes behind a photo URL.
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPFetcher fetches photos over HTTP. Any non-2xx status is a failure.
type HTTPFetcher struct {
	client *http.Client
}

func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPFetcher{client: &http.Client{Timeout: timeout}}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxImageBytes {
		return nil, fmt.Errorf("fetch %s: image larger than %d bytes", url, maxImageBytes)
	}
	return data, nil
}

// LocalFirstFetcher reads photos issued by the local blob store straight from
// disk and hands every other URL to next.
type LocalFirstFetcher struct {
	local *storage.LocalStore
	next  ImageFetcher
}

func NewLocalFirstFetcher(local *storage.LocalStore, next ImageFetcher) *LocalFirstFetcher {
	return &LocalFirstFetcher{local: local, next: next}
}

func (f *LocalFirstFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if f.local != nil {
		if objectPath, ok := f.local.ObjectPathFromURL(url); ok {
			rc, err := f.local.Open(objectPath)
			if err != nil {
				return nil, err
			}
			defer rc.Close()
			return io.ReadAll(io.LimitReader(rc, maxImageBytes))
		}
	}
	return f.next.Fetch(ctx, url)
}
