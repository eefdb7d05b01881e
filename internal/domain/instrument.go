package domain

import "time"

// HistoryCap bounds the per-instrument price history. One entry is appended
// per tick and the oldest is evicted, so the history is exactly the chart
// window consumers render.
const HistoryCap = 50

// PricePoint is one sampled price in an instrument's history.
type PricePoint struct {
	Time  time.Time
	Price float64
}

// Instrument is a tradable symbol with a live price and bounded history.
// Instruments are created at feed initialization and only mutated by the
// feed's tick; they are never destroyed during a session.
type Instrument struct {
	Symbol       string
	DisplayName  string
	CurrentPrice float64
	OpenPrice    float64
	History      []PricePoint
}

// Clone returns a deep copy, so snapshot holders cannot reach back into the
// feed's internal arrays.
func (in Instrument) Clone() Instrument {
	out := in
	out.History = make([]PricePoint, len(in.History))
	copy(out.History, in.History)
	return out
}

// DayChangePercent returns the percent move from the session open.
func (in Instrument) DayChangePercent() float64 {
	if in.OpenPrice == 0 {
		return 0
	}
	return (in.CurrentPrice - in.OpenPrice) / in.OpenPrice * 100
}

// FeedSnapshot is an immutable view of the feed at one tick. The snapshot a
// command receives is the price latch: whatever it holds at call time is the
// price the trade executes at.
type FeedSnapshot struct {
	Time        time.Time
	Instruments map[string]Instrument
}

// Price returns the current price for symbol, if the feed knows it.
func (s FeedSnapshot) Price(symbol string) (float64, bool) {
	in, ok := s.Instruments[symbol]
	if !ok {
		return 0, false
	}
	return in.CurrentPrice, true
}
