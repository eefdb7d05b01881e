package seed

import (
	"context"
	"time"

	"marketsim/internal/application/port"
)

// FallbackPrices is the built-in seed table: recent real-world closing
// prices used whenever the configured seed source is unavailable.
var FallbackPrices = map[string]float64{
	"RELIANCE":   2985.45,
	"TCS":        4120.30,
	"INFY":       1875.90,
	"HDFC":       2750.00,
	"ICICI":      1105.20,
	"KOTAK":      1820.50,
	"SBIN":       840.15,
	"AXISBANK":   1250.60,
	"HDFCBANK":   1690.30,
	"BAJFINANCE": 7450.80,
}

// DisplayNames maps symbols to company names for rendering.
var DisplayNames = map[string]string{
	"RELIANCE":   "Reliance Industries",
	"TCS":        "Tata Consultancy Services",
	"INFY":       "Infosys",
	"HDFC":       "HDFC Corp",
	"ICICI":      "ICICI Bank",
	"KOTAK":      "Kotak Mahindra Bank",
	"SBIN":       "State Bank of India",
	"AXISBANK":   "Axis Bank",
	"HDFCBANK":   "HDFC Bank",
	"BAJFINANCE": "Bajaj Finance",
}

func init() {
	Register("static", func(url string, timeout time.Duration) port.SeedSource {
		return &StaticSource{}
	})
}

// StaticSource serves the built-in table. It is also the fallback target for
// every other source.
type StaticSource struct{}

func (s *StaticSource) Name() string { return "static" }

func (s *StaticSource) FetchInitialPrices(ctx context.Context) (map[string]float64, error) {
	out := make(map[string]float64, len(FallbackPrices))
	for sym, price := range FallbackPrices {
		out[sym] = price
	}
	return out, nil
}
