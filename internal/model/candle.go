package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Candle represents one OHLCV bar for a single symbol and timeframe.
// Prices are float64 quote-currency values (USDT for perp markets).
type Candle struct {
	Symbol    string    `json:"symbol"`
	Timeframe string    `json:"timeframe"`
	TS        time.Time `json:"ts"` // bar open time (UTC)
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// Key returns a unique key for this candle's market: "symbol:timeframe".
func (c *Candle) Key() string {
	return c.Symbol + ":" + c.Timeframe
}

// JSON returns the JSON-encoded candle (ignoring errors for hot-path usage).
func (c *Candle) JSON() []byte {
	b, _ := json.Marshal(c)
	return b
}

// Series is an ordered candle sequence for one (symbol, timeframe) pair.
// Ordering is significant: timestamps must be strictly increasing. Once a
// Series is handed to the indicator engine it is treated as immutable.
type Series struct {
	Symbol    string   `json:"symbol"`
	Timeframe string   `json:"timeframe"`
	Candles   []Candle `json:"candles"`
}

// Len returns the number of candles in the series.
func (s *Series) Len() int {
	return len(s.Candles)
}

// Last returns the most recent candle, or false if the series is empty.
func (s *Series) Last() (Candle, bool) {
	if len(s.Candles) == 0 {
		return Candle{}, false
	}
	return s.Candles[len(s.Candles)-1], true
}

// Validate checks the series ordering and price sanity invariants:
// strictly increasing timestamps, positive OHLC, non-negative volume,
// low ≤ high per bar.
func (s *Series) Validate() error {
	var prev time.Time
	for i, c := range s.Candles {
		if i > 0 && !c.TS.After(prev) {
			return fmt.Errorf("series %s:%s: candle %d ts %s not after previous %s",
				s.Symbol, s.Timeframe, i, c.TS.Format(time.RFC3339), prev.Format(time.RFC3339))
		}
		if c.Open <= 0 || c.High <= 0 || c.Low <= 0 || c.Close <= 0 {
			return fmt.Errorf("series %s:%s: candle %d has non-positive price", s.Symbol, s.Timeframe, i)
		}
		if c.Low > c.High {
			return fmt.Errorf("series %s:%s: candle %d low %g above high %g", s.Symbol, s.Timeframe, i, c.Low, c.High)
		}
		if c.Volume < 0 {
			return fmt.Errorf("series %s:%s: candle %d has negative volume", s.Symbol, s.Timeframe, i)
		}
		prev = c.TS
	}
	return nil
}
