package seed

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"marketsim/internal/application/port"
)

// FetchOrFallback makes one attempt against src within timeout and silently
// substitutes the static table on failure. Market data unavailability is
// degraded gracefully, never fatal and never user-facing.
func FetchOrFallback(ctx context.Context, src port.SeedSource, timeout time.Duration) map[string]float64 {
	fctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	prices, err := src.FetchInitialPrices(fctx)
	if err != nil {
		log.Warn().Err(err).Str("source", src.Name()).Msg("seed source unavailable, using fallback table")
		fallback, _ := (&StaticSource{}).FetchInitialPrices(ctx)
		return fallback
	}
	return prices
}

// Filter keeps only the listed symbols; an empty list keeps everything.
func Filter(prices map[string]float64, symbols []string) map[string]float64 {
	if len(symbols) == 0 {
		return prices
	}
	out := make(map[string]float64, len(symbols))
	for _, sym := range symbols {
		if p, ok := prices[sym]; ok {
			out[sym] = p
		}
	}
	if len(out) == 0 {
		return prices
	}
	return out
}
