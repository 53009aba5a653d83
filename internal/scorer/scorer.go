// Package scorer converts the latest indicator row into a directional
// trade signal.
//
// Scoring is a fixed 7-point system evaluated factor by factor with no
// early exit. A factor whose inputs are not ready contributes nothing to
// either side — insufficient history weakens a signal, it never breaks
// the cycle.
package scorer

import (
	"math"

	"signalbotv1/internal/model"
)

// maxScore is the total number of points across all factors.
const maxScore = 7

// Config holds the scoring thresholds and the stop/target policy.
type Config struct {
	ADXThreshold        float64 `json:"adx_threshold"`
	ConfidenceThreshold float64 `json:"confidence_threshold"`
	StopATRMult         float64 `json:"stop_atr_mult"`
	TargetATRMult       float64 `json:"target_atr_mult"`
}

// DefaultConfig returns the standard thresholds: ADX gate 25, 85%
// confidence to act, stop at 2×ATR and target at 3×ATR.
func DefaultConfig() Config {
	return Config{
		ADXThreshold:        25.0,
		ConfidenceThreshold: 0.85,
		StopATRMult:         2.0,
		TargetATRMult:       3.0,
	}
}

// Scorer scores indicator rows. Stateless and safe for concurrent use.
type Scorer struct {
	cfg Config
}

// New creates a scorer with the given thresholds.
func New(cfg Config) *Scorer {
	return &Scorer{cfg: cfg}
}

// Score evaluates the five factors on a single row and returns the
// direction with its confidence (fraction of the 7 attainable points).
// NEUTRAL carries the stronger side's confidence so callers still see how
// close the market came to a call. Both thresholds are checked
// independently, LONG first.
func (s *Scorer) Score(row model.Row) (model.Direction, float64) {
	var longScore, shortScore int

	// RSI band (1 point)
	if row.RSI.Ready {
		switch {
		case row.RSI.V > 50 && row.RSI.V < 70:
			longScore++
		case row.RSI.V > 30 && row.RSI.V < 50:
			shortScore++
		}
	}

	// EMA trend (2 points)
	if row.EMAFast.Ready && row.EMASlow.Ready {
		switch {
		case row.EMAFast.V > row.EMASlow.V:
			longScore += 2
		case row.EMAFast.V < row.EMASlow.V:
			shortScore += 2
		}
	}

	// MACD momentum (1 point)
	if row.MACD.Ready && row.MACDSignal.Ready && row.MACDHist.Ready {
		switch {
		case row.MACD.V > row.MACDSignal.V && row.MACDHist.V > 0:
			longScore++
		case row.MACD.V < row.MACDSignal.V && row.MACDHist.V < 0:
			shortScore++
		}
	}

	// Bollinger breakout (1 point)
	if row.BBUpper.Ready && row.BBLower.Ready {
		switch {
		case row.Close > row.BBUpper.V:
			longScore++
		case row.Close < row.BBLower.V:
			shortScore++
		}
	}

	// ADX trend strength gating the DI direction (2 points)
	if row.ADX.Ready && row.PlusDI.Ready && row.MinusDI.Ready && row.ADX.V > s.cfg.ADXThreshold {
		switch {
		case row.PlusDI.V > row.MinusDI.V:
			longScore += 2
		case row.MinusDI.V > row.PlusDI.V:
			shortScore += 2
		}
	}

	longConf := float64(longScore) / maxScore
	shortConf := float64(shortScore) / maxScore

	switch {
	case longConf >= s.cfg.ConfidenceThreshold:
		return model.Long, longConf
	case shortConf >= s.cfg.ConfidenceThreshold:
		return model.Short, shortConf
	default:
		return model.Neutral, math.Max(longConf, shortConf)
	}
}

// Build turns a scored direction into a tentative trade signal, deriving
// stop and target from the entry row's close and ATR. PositionSize stays 0
// until the risk manager sizes the trade. If the direction is directional
// but the entry row's ATR is not ready yet, the signal degrades to NEUTRAL
// — there is no price level to protect it with.
func (s *Scorer) Build(direction model.Direction, confidence float64, entry model.Row) model.TradeSignal {
	sig := model.TradeSignal{
		Symbol:     entry.Symbol,
		Direction:  direction,
		Confidence: confidence,
		EntryPrice: entry.Close,
		TS:         entry.TS,
	}
	if direction == model.Neutral {
		return sig
	}
	if !entry.ATR.Ready {
		sig.Direction = model.Neutral
		return sig
	}

	atr := entry.ATR.V
	if direction == model.Long {
		sig.StopLoss = entry.Close - s.cfg.StopATRMult*atr
		sig.TakeProfit = entry.Close + s.cfg.TargetATRMult*atr
	} else {
		sig.StopLoss = entry.Close + s.cfg.StopATRMult*atr
		sig.TakeProfit = entry.Close - s.cfg.TargetATRMult*atr
	}
	return sig
}
