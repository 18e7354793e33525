package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type recordingStore struct {
	mu     sync.Mutex
	paths  []string
	failOn string
}

func (s *recordingStore) Put(_ context.Context, objectPath, _ string, body io.Reader) (string, error) {
	if _, err := io.ReadAll(body); err != nil {
		return "", err
	}
	if s.failOn != "" && strings.Contains(objectPath, "_"+s.failOn+"_") {
		return "", errors.New("bucket unavailable")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paths = append(s.paths, objectPath)
	return "https://cdn.example.com/" + objectPath, nil
}

func testUploader(store BlobStore, limit int) *Uploader {
	u := NewUploader(store, "final-inspection-images", limit, zerolog.Nop())
	u.now = func() time.Time { return time.UnixMilli(1700000000123) }
	return u
}

func TestObjectPath(t *testing.T) {
	got := ObjectPath("final-inspection-images", time.UnixMilli(1700000000123), "idPhoto", `C:\photos\id card.jpg`)
	want := "final-inspection-images/1700000000123_idPhoto_id card.jpg"
	if got != want {
		t.Fatalf("ObjectPath = %q, want %q", got, want)
	}
}

func TestUploadAllSequentialKeepsOrder(t *testing.T) {
	store := &recordingStore{}
	u := testUploader(store, 1)
	photos := []PhotoUpload{
		{FieldKey: "approvedSamplePhoto", Filename: "a.jpg", Data: []byte("a")},
		{FieldKey: "other_0", Filename: "b.jpg", Data: []byte("b")},
		{FieldKey: "notok_backing", Filename: "c.jpg", Data: []byte("c")},
	}
	got, err := u.UploadAll(context.Background(), photos)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	for i, p := range photos {
		if got[i].FieldKey != p.FieldKey {
			t.Fatalf("result %d is %s, want %s", i, got[i].FieldKey, p.FieldKey)
		}
		if store.paths[i] != got[i].Path {
			t.Fatalf("upload %d happened out of order: %s", i, store.paths[i])
		}
	}
	if got[0].URL != "https://cdn.example.com/final-inspection-images/1700000000123_approvedSamplePhoto_a.jpg" {
		t.Fatalf("unexpected url %s", got[0].URL)
	}
}

func TestUploadAllConcurrentPathsAreUnique(t *testing.T) {
	store := &recordingStore{}
	u := testUploader(store, 4)
	var photos []PhotoUpload
	for i := 0; i < 12; i++ {
		photos = append(photos, PhotoUpload{FieldKey: fmt.Sprintf("other_%d", i), Filename: "same.jpg", Data: []byte{byte(i)}})
	}
	got, err := u.UploadAll(context.Background(), photos)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	seen := make(map[string]bool)
	for i, r := range got {
		if r.FieldKey != photos[i].FieldKey {
			t.Fatalf("result order changed at %d", i)
		}
		if seen[r.Path] {
			t.Fatalf("duplicate object path %s", r.Path)
		}
		seen[r.Path] = true
	}
}

func TestUploadAllAbortsOnFailure(t *testing.T) {
	store := &recordingStore{failOn: "idPhoto"}
	u := testUploader(store, 1)
	_, err := u.UploadAll(context.Background(), []PhotoUpload{
		{FieldKey: "approvedSamplePhoto", Filename: "a.jpg"},
		{FieldKey: "idPhoto", Filename: "b.jpg"},
		{FieldKey: "backPhoto", Filename: "c.jpg"},
	})
	var upErr *UploadError
	if !errors.As(err, &upErr) || upErr.FieldKey != "idPhoto" {
		t.Fatalf("expected UploadError for idPhoto, got %v", err)
	}
	if len(store.paths) != 1 {
		t.Fatalf("expected uploads to stop after the failure, stored %v", store.paths)
	}
}

func TestUploadAllRejectsDuplicateField(t *testing.T) {
	u := testUploader(&recordingStore{}, 1)
	_, err := u.UploadAll(context.Background(), []PhotoUpload{{FieldKey: "idPhoto"}, {FieldKey: "idPhoto"}})
	if !errors.Is(err, ErrDuplicateField) {
		t.Fatalf("expected ErrDuplicateField, got %v", err)
	}
}

func TestLocalStoreRoundTrip(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "http://qc.local/")
	if err != nil {
		t.Fatalf("new local store: %v", err)
	}
	url, err := store.Put(context.Background(), "final-inspection-images/1_idPhoto_id card.jpg", "image/jpeg", strings.NewReader("jpeg-bytes"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if url != "http://qc.local/uploads/final-inspection-images/1_idPhoto_id%20card.jpg" {
		t.Fatalf("unexpected url %s", url)
	}

	objectPath, ok := store.ObjectPathFromURL(url)
	if !ok || objectPath != "final-inspection-images/1_idPhoto_id card.jpg" {
		t.Fatalf("ObjectPathFromURL = %q, %v", objectPath, ok)
	}

	rec := httptest.NewRecorder()
	store.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/uploads/final-inspection-images/1_idPhoto_id%20card.jpg", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "jpeg-bytes" {
		t.Fatalf("serve object: status=%d body=%q", rec.Code, rec.Body.String())
	}
}

func TestLocalStoreDoesNotListDirectories(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "http://qc.local")
	if err != nil {
		t.Fatalf("new local store: %v", err)
	}
	if _, err := store.Put(context.Background(), "final-inspection-images/1_backPhoto_b.jpg", "image/jpeg", strings.NewReader("x")); err != nil {
		t.Fatalf("put: %v", err)
	}
	for _, path := range []string{"/uploads/", "/uploads/final-inspection-images/"} {
		rec := httptest.NewRecorder()
		store.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("GET %s: expected 404, got %d", path, rec.Code)
		}
		if strings.Contains(rec.Body.String(), "1_backPhoto_b.jpg") {
			t.Fatalf("GET %s listed stored photos", path)
		}
	}
	// Without the trailing slash the file server redirects rather than listing.
	rec := httptest.NewRecorder()
	store.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/uploads/final-inspection-images", nil))
	if strings.Contains(rec.Body.String(), "1_backPhoto_b.jpg") {
		t.Fatalf("directory without slash listed stored photos")
	}
}

func TestLocalStoreRejectsTraversal(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "http://qc.local")
	if err != nil {
		t.Fatalf("new local store: %v", err)
	}
	if _, err := store.Put(context.Background(), "../escape.jpg", "image/jpeg", strings.NewReader("x")); err == nil {
		t.Fatalf("expected traversal to be rejected")
	}
}
