package port

import "context"

// SeedSource provides the opening price per symbol at feed initialization.
// Implementations are expected to answer within a bounded time; callers make
// a single attempt and substitute the static fallback table on error, so
// seed unavailability is degraded gracefully, never fatal.
type SeedSource interface {
	Name() string
	FetchInitialPrices(ctx context.Context) (map[string]float64, error)
}
