package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var ErrDuplicateField = errors.New("photo field uploaded twice")

// PhotoUpload is one photo waiting to be stored.
type PhotoUpload struct {
	FieldKey    string
	Filename    string
	ContentType string
	Data        []byte
}

// UploadedPhoto is the stored location of one PhotoUpload.
type UploadedPhoto struct {
	FieldKey string
	Path     string
	URL      string
}

// UploadError reports which photo stopped the batch.
type UploadError struct {
	FieldKey string
	Err      error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %s: %v", e.FieldKey, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// Uploader stores a submission's photos with a bounded number of concurrent
// uploads. A limit of 1 uploads strictly in order.
type Uploader struct {
	store      BlobStore
	collection string
	limit      int
	now        func() time.Time
	log        zerolog.Logger
}

func NewUploader(store BlobStore, collection string, limit int, log zerolog.Logger) *Uploader {
	if limit < 1 {
		limit = 1
	}
	return &Uploader{store: store, collection: strings.Trim(collection, "/"), limit: limit, now: time.Now, log: log}
}

// ObjectPath builds {collection}/{epoch-millis}_{fieldKey}_{originalFilename}.
func ObjectPath(collection string, ts time.Time, fieldKey, filename string) string {
	return collection + "/" + strconv.FormatInt(ts.UnixMilli(), 10) + "_" + fieldKey + "_" + safeFilename(filename)
}

func safeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "photo"
	}
	return name
}

// UploadAll stores every photo and returns their locations in input order.
// All photos share one timestamp. The first failure cancels the remaining
// uploads and fails the whole batch; objects already written are left in place.
func (u *Uploader) UploadAll(ctx context.Context, photos []PhotoUpload) ([]UploadedPhoto, error) {
	seen := make(map[string]bool, len(photos))
	for _, p := range photos {
		if seen[p.FieldKey] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateField, p.FieldKey)
		}
		seen[p.FieldKey] = true
	}

	ts := u.now()
	results := make([]UploadedPhoto, len(photos))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.limit)
	for i, p := range photos {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			objectPath := ObjectPath(u.collection, ts, p.FieldKey, p.Filename)
			url, err := u.store.Put(gctx, objectPath, p.ContentType, bytes.NewReader(p.Data))
			if err != nil {
				return &UploadError{FieldKey: p.FieldKey, Err: err}
			}
			results[i] = UploadedPhoto{FieldKey: p.FieldKey, Path: objectPath, URL: url}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		u.log.Error().Err(err).Int("photos", len(photos)).Msg("photo upload aborted")
		return nil, err
	}
	u.log.Debug().Int("photos", len(photos)).Msg("photos uploaded")
	return results, nil
}
