package options

import (
	"context"
	"strings"

	"qcinspect/infrastructure/kv"
)

// LocalStore keeps custom options on the station's own key-value store, so
// each station sees only what was added there.
type LocalStore struct {
	kv *kv.Store
}

func NewLocalStore(store *kv.Store) *LocalStore {
	return &LocalStore{kv: store}
}

func localKey(station string, kind Kind) string {
	return "options/" + station + "/" + string(kind)
}

func (s *LocalStore) Load(ctx context.Context, station string, kind Kind) ([]Option, error) {
	var out []Option
	if _, err := s.kv.GetJSON(ctx, localKey(station, kind), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *LocalStore) Append(ctx context.Context, station string, kind Kind, opt Option) ([]Option, error) {
	return kv.UpdateJSON(ctx, s.kv, localKey(station, kind), func(cur []Option) ([]Option, error) {
		for _, o := range cur {
			if strings.EqualFold(o.Value, opt.Value) {
				return cur, nil
			}
		}
		return append(cur, opt), nil
	})
}
