package domain

import (
	"math"
	"testing"
)

func TestWalkDeterministicForSeed(t *testing.T) {
	a := NewWalk(7)
	b := NewWalk(7)

	price1, price2 := 100.0, 100.0
	for i := 0; i < 1000; i++ {
		price1 = a.NextPrice(price1)
		price2 = b.NextPrice(price2)
		if price1 != price2 {
			t.Fatalf("walks diverged at step %d: %v vs %v", i, price1, price2)
		}
	}
}

func TestWalkStepBounded(t *testing.T) {
	w := NewWalk(1)

	price := 500.0
	for i := 0; i < 10000; i++ {
		next := w.NextPrice(price)

		lo := Round2(price*(1-w.Volatility)) - 0.005
		hi := Round2(price*(1+w.Volatility)+w.DriftNudge) + 0.005
		if next < lo || next > hi {
			t.Fatalf("step %d out of bounds: %v -> %v (want [%v, %v])", i, price, next, lo, hi)
		}
		price = next
	}
}

func TestWalkNeverNonPositive(t *testing.T) {
	w := NewWalk(2)

	price := 0.05
	for i := 0; i < 10000; i++ {
		price = w.NextPrice(price)
		if price < 0.01 {
			t.Fatalf("price fell below floor at step %d: %v", i, price)
		}
	}
}

func TestWalkCurrencyGranularity(t *testing.T) {
	w := NewWalk(3)

	price := 2985.45
	for i := 0; i < 1000; i++ {
		price = w.NextPrice(price)
		cents := price * 100
		if math.Abs(cents-math.Round(cents)) > 1e-9 {
			t.Fatalf("price not at 2-decimal granularity at step %d: %v", i, price)
		}
	}
}

func TestWalkSessionEnvelope(t *testing.T) {
	// a typical session: 60 ticks from a round number should stay in a
	// plausible band, not explode or collapse
	for seed := int64(0); seed < 20; seed++ {
		w := NewWalk(seed)
		price := 100.00
		for i := 0; i < 60; i++ {
			price = w.NextPrice(price)
		}
		if price < 80 || price > 125 {
			t.Errorf("seed %d: 60 ticks moved 100.00 to %v", seed, price)
		}
	}
}

func TestRound2(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		// 1.005 has no exact binary representation; it is stored as
		// 1.00499... and rounds down
		{1.005, 1.0},
		{1.0051, 1.01},
		{2985.454, 2985.45},
		{2985.455, 2985.46},
		{-0.004, 0},
		{10000, 10000},
	}
	for _, c := range cases {
		if got := Round2(c.in); got != c.want {
			t.Errorf("Round2(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}
