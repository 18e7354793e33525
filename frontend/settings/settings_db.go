package settings

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"qcinspect/infrastructure/kv"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func recipientsKey(station string) string {
	return "recipients/" + station
}

// Recipients keeps each station's report recipients in the local store.
type Recipients struct {
	store *kv.Store
}

func NewRecipients(store *kv.Store) *Recipients {
	return &Recipients{store: store}
}

// NormalizeRecipient trims and lowercases email and checks its shape.
func NormalizeRecipient(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !emailPattern.MatchString(email) {
		return "", fmt.Errorf("%w: %q", ErrInvalidRecipient, email)
	}
	return email, nil
}

// List returns the station's recipients in the order they were added.
func (r *Recipients) List(ctx context.Context, station string) ([]string, error) {
	var out []string
	if _, err := r.store.GetJSON(ctx, recipientsKey(station), &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

// Add appends email to the station's list.
func (r *Recipients) Add(ctx context.Context, station, email string) ([]string, error) {
	email, err := NormalizeRecipient(email)
	if err != nil {
		return nil, err
	}
	return kv.UpdateJSON(ctx, r.store, recipientsKey(station), func(current []string) ([]string, error) {
		if slices.Contains(current, email) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateRecipient, email)
		}
		return append(current, email), nil
	})
}

// Remove drops email from the station's list. Removing an absent address is a no-op.
func (r *Recipients) Remove(ctx context.Context, station, email string) ([]string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	out, err := kv.UpdateJSON(ctx, r.store, recipientsKey(station), func(current []string) ([]string, error) {
		next := slices.DeleteFunc(slices.Clone(current), func(v string) bool { return v == email })
		if next == nil {
			next = []string{}
		}
		return next, nil
	})
	return out, err
}
