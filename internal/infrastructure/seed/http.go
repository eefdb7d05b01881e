package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"marketsim/internal/application/port"
)

func init() {
	Register("http", func(url string, timeout time.Duration) port.SeedSource {
		return NewHTTPSource(url, timeout)
	})
}

// HTTPSource fetches seed prices from a JSON endpoint responding with a
// symbol→price object. Single attempt, bounded timeout, no retries: the
// caller falls back to the static table on any failure.
type HTTPSource struct {
	url    string
	client *http.Client
}

func NewHTTPSource(url string, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = time.Second
	}
	return &HTTPSource{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (s *HTTPSource) Name() string { return "http" }

func (s *HTTPSource) FetchInitialPrices(ctx context.Context) (map[string]float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("seed request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("seed fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("seed fetch: unexpected status %d", resp.StatusCode)
	}

	var prices map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&prices); err != nil {
		return nil, fmt.Errorf("seed decode: %w", err)
	}
	if len(prices) == 0 {
		return nil, fmt.Errorf("seed fetch: empty price table")
	}
	for sym, p := range prices {
		if p <= 0 {
			return nil, fmt.Errorf("seed fetch: non-positive price for %s", sym)
		}
	}
	return prices, nil
}
