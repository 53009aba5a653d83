package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Direction is the directional call of a trade signal.
// It is the single direction type used across the whole core — risk
// checks, execution and notification all take Direction, never strings.
type Direction string

const (
	Long    Direction = "LONG"
	Short   Direction = "SHORT"
	Neutral Direction = "NEUTRAL"
)

// TradeSignal is a scored directional call with ATR-derived stop/target.
// PositionSize is 0 until the risk manager sizes the trade.
//
// Invariant: for LONG, StopLoss < EntryPrice < TakeProfit; for SHORT the
// reverse. For NEUTRAL the price levels are meaningless and callers must
// not act on them.
type TradeSignal struct {
	Symbol       string    `json:"symbol"`
	Direction    Direction `json:"direction"`
	Confidence   float64   `json:"confidence"` // [0,1], fraction of max scoring points
	EntryPrice   float64   `json:"entry_price"`
	StopLoss     float64   `json:"stop_loss"`
	TakeProfit   float64   `json:"take_profit"`
	PositionSize float64   `json:"position_size"`
	Leverage     float64   `json:"leverage"`
	TS           time.Time `json:"ts"`
}

// JSON returns the JSON-encoded signal (ignoring errors for hot-path usage).
func (s *TradeSignal) JSON() []byte {
	b, _ := json.Marshal(s)
	return b
}

// Validate checks the stop/target ordering invariant for directional signals.
func (s *TradeSignal) Validate() error {
	switch s.Direction {
	case Long:
		if !(s.StopLoss < s.EntryPrice && s.EntryPrice < s.TakeProfit) {
			return fmt.Errorf("signal %s LONG: want stop %g < entry %g < target %g",
				s.Symbol, s.StopLoss, s.EntryPrice, s.TakeProfit)
		}
	case Short:
		if !(s.TakeProfit < s.EntryPrice && s.EntryPrice < s.StopLoss) {
			return fmt.Errorf("signal %s SHORT: want target %g < entry %g < stop %g",
				s.Symbol, s.TakeProfit, s.EntryPrice, s.StopLoss)
		}
	case Neutral:
		// price levels carry no meaning
	default:
		return fmt.Errorf("signal %s: unknown direction %q", s.Symbol, s.Direction)
	}
	return nil
}

// MarketSnapshot holds the live market facts used by trade validation,
// supplied by the exchange connectivity layer.
type MarketSnapshot struct {
	Symbol    string  `json:"symbol"`
	LastPrice float64 `json:"last_price"`
	Volume24h float64 `json:"volume_24h"` // 24h quote volume
	MarketCap float64 `json:"market_cap"`
}
