package options

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"qcinspect/infrastructure/config"
)

var (
	ErrEmptyOption    = errors.New("option value is required")
	ErrReadOnlyOption = errors.New("option kind is read-only")
	ErrInvalidImport  = errors.New("invalid customer import")
)

// SharedOptionStore persists user-added options of one or more kinds.
// Implementations may be station-local or shared by every station.
type SharedOptionStore interface {
	Load(ctx context.Context, station string, kind Kind) ([]Option, error)
	Append(ctx context.Context, station string, kind Kind, opt Option) ([]Option, error)
}

// Registry merges the static catalog with the custom overlay. The store used
// for each writable kind is chosen by configuration.
type Registry struct {
	catalog *Catalog
	stores  map[Kind]SharedOptionStore
}

// NewRegistry wires stores per kind. Kinds missing from backends use local.
func NewRegistry(catalog *Catalog, local, central SharedOptionStore, backends map[string]string) (*Registry, error) {
	r := &Registry{catalog: catalog, stores: make(map[Kind]SharedOptionStore, len(WritableKinds))}
	for _, k := range WritableKinds {
		r.stores[k] = local
	}
	for name, backend := range backends {
		k, err := ParseKind(name)
		if err != nil {
			return nil, err
		}
		if !k.Writable() {
			return nil, fmt.Errorf("%w: %s", ErrReadOnlyOption, k)
		}
		switch backend {
		case config.BackendCentral:
			r.stores[k] = central
		case config.BackendLocal:
			r.stores[k] = local
		default:
			return nil, fmt.Errorf("unknown option backend %q", backend)
		}
	}
	for k, s := range r.stores {
		if s == nil {
			return nil, fmt.Errorf("no option store configured for %s", k)
		}
	}
	return r, nil
}

// Catalog returns the static catalog.
func (r *Registry) Catalog() *Catalog {
	return r.catalog
}

// List returns static options followed by custom ones, without duplicates. A
// static "Other" entry stays last.
func (r *Registry) List(ctx context.Context, station string, kind Kind) ([]Option, error) {
	static := r.catalog.Static(kind)
	var custom []Option
	if s, ok := r.stores[kind]; ok {
		var err error
		custom, err = s.Load(ctx, station, kind)
		if err != nil {
			return nil, fmt.Errorf("load %s options: %w", kind, err)
		}
	}
	return merge(static, custom), nil
}

// Add appends a custom option and returns the merged list. Adding a value that
// is already listed is a no-op.
func (r *Registry) Add(ctx context.Context, station string, kind Kind, opt Option) ([]Option, error) {
	s, ok := r.stores[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrReadOnlyOption, kind)
	}
	opt.Value = strings.TrimSpace(opt.Value)
	opt.Code = strings.TrimSpace(opt.Code)
	if opt.Value == "" {
		return nil, ErrEmptyOption
	}
	current, err := r.List(ctx, station, kind)
	if err != nil {
		return nil, err
	}
	if contains(current, opt.Value) {
		return current, nil
	}
	if _, err := s.Append(ctx, station, kind, opt); err != nil {
		return nil, fmt.Errorf("append %s option: %w", kind, err)
	}
	return r.List(ctx, station, kind)
}

func merge(static, custom []Option) []Option {
	out := make([]Option, 0, len(static)+len(custom))
	var other *Option
	for i := range static {
		if strings.EqualFold(static[i].Value, "Other") {
			other = &static[i]
			continue
		}
		out = append(out, static[i])
	}
	for _, o := range custom {
		if !contains(out, o.Value) && !strings.EqualFold(o.Value, "Other") {
			out = append(out, o)
		}
	}
	if other != nil {
		out = append(out, *other)
	}
	return out
}

func contains(list []Option, value string) bool {
	value = strings.TrimSpace(value)
	for _, o := range list {
		if strings.EqualFold(o.Value, value) {
			return true
		}
	}
	return false
}
