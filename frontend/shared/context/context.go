package context

import (
	"context"
)

type stationKey struct{}

// NewContextWithStation stores the requesting station id.
func NewContextWithStation(ctx context.Context, stationID string) context.Context {
	return context.WithValue(ctx, stationKey{}, stationID)
}

// GetStationFromContext returns the requesting station id.
func GetStationFromContext(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(stationKey{}).(string)
	return s, ok && s != ""
}
