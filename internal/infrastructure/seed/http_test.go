package seed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPSourceFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"RELIANCE": 3000.10, "TCS": 4100.00}`))
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL, time.Second)
	prices, err := src.FetchInitialPrices(context.Background())
	if err != nil {
		t.Fatalf("FetchInitialPrices failed: %v", err)
	}
	if prices["RELIANCE"] != 3000.10 {
		t.Errorf("expected RELIANCE=3000.10, got %v", prices["RELIANCE"])
	}
	if len(prices) != 2 {
		t.Errorf("expected 2 prices, got %d", len(prices))
	}
}

func TestHTTPSourceRejectsBadResponses(t *testing.T) {
	cases := []struct {
		name string
		h    http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"empty table", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{}`))
		}},
		{"non-positive price", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"TCS": -5}`))
		}},
		{"malformed json", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`not json`))
		}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			srv := httptest.NewServer(c.h)
			defer srv.Close()

			src := NewHTTPSource(srv.URL, time.Second)
			if _, err := src.FetchInitialPrices(context.Background()); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestFetchOrFallback(t *testing.T) {
	// unreachable endpoint: the static table substitutes silently
	src := NewHTTPSource("http://127.0.0.1:1/prices", 50*time.Millisecond)
	prices := FetchOrFallback(context.Background(), src, 100*time.Millisecond)

	if len(prices) != len(FallbackPrices) {
		t.Fatalf("expected fallback table, got %d prices", len(prices))
	}
	if prices["RELIANCE"] != FallbackPrices["RELIANCE"] {
		t.Errorf("fallback mismatch for RELIANCE: %v", prices["RELIANCE"])
	}
}

func TestFilter(t *testing.T) {
	prices := map[string]float64{"A": 1, "B": 2, "C": 3}

	got := Filter(prices, []string{"A", "C"})
	if len(got) != 2 || got["A"] != 1 || got["C"] != 3 {
		t.Errorf("filter mismatch: %v", got)
	}

	// empty list keeps everything
	if got := Filter(prices, nil); len(got) != 3 {
		t.Errorf("expected full table, got %v", got)
	}

	// no overlap falls back to the full table rather than an empty feed
	if got := Filter(prices, []string{"X"}); len(got) != 3 {
		t.Errorf("expected full table on no overlap, got %v", got)
	}
}

func TestRegistry(t *testing.T) {
	for _, name := range []string{"static", "http"} {
		if _, ok := Get(name); !ok {
			t.Errorf("source %q not registered", name)
		}
	}
	if _, ok := Get("bogus"); ok {
		t.Error("unexpected source registered")
	}
}
