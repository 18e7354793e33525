package kv

import (
	"context"
	"errors"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenInMemory()
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestGetJSONMissingKey(t *testing.T) {
	s := openTestStore(t)
	var got []string
	found, err := s.GetJSON(context.Background(), "recipients/none", &got)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if found || got != nil {
		t.Fatalf("expected missing key, found=%v got=%v", found, got)
	}
}

func TestUpdateJSONAppendsAndAborts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, v := range []string{"one", "two"} {
		if _, err := UpdateJSON(ctx, s, "options/x", func(cur []string) ([]string, error) {
			return append(cur, v), nil
		}); err != nil {
			t.Fatalf("update: %v", err)
		}
	}

	stop := errors.New("stop")
	if _, err := UpdateJSON(ctx, s, "options/x", func(cur []string) ([]string, error) {
		return nil, stop
	}); !errors.Is(err, stop) {
		t.Fatalf("expected stop error, got %v", err)
	}

	var got []string
	if _, err := s.GetJSON(ctx, "options/x", &got); err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 2 || got[0] != "one" || got[1] != "two" {
		t.Fatalf("unexpected list after aborted update: %v", got)
	}
}
