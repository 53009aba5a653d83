// Package indicator computes technical indicator columns over candle series.
//
// Compute is a pure function over an immutable input snapshot: it has no
// internal state and performs no I/O, so it is safe to call concurrently
// for distinct markets. A column whose lookback window exceeds the
// available history at a row is marked not ready instead of guessed, and
// downstream comparisons against a not-ready value never match.
package indicator

// Params holds the lookback windows for every computed column.
type Params struct {
	RSIPeriod  int     `json:"rsi_period"`
	EMAFast    int     `json:"ema_fast"`
	EMASlow    int     `json:"ema_slow"`
	MACDFast   int     `json:"macd_fast"`
	MACDSlow   int     `json:"macd_slow"`
	MACDSignal int     `json:"macd_signal"`
	BBPeriod   int     `json:"bb_period"`
	BBStd      float64 `json:"bb_std"`
	ADXPeriod  int     `json:"adx_period"`
	ATRPeriod  int     `json:"atr_period"`
}

// DefaultParams returns the standard parameter set: RSI 14, EMA 20/50,
// MACD 12/26/9, Bollinger 20 ± 2σ, ADX 14, ATR 14.
func DefaultParams() Params {
	return Params{
		RSIPeriod:  14,
		EMAFast:    20,
		EMASlow:    50,
		MACDFast:   12,
		MACDSlow:   26,
		MACDSignal: 9,
		BBPeriod:   20,
		BBStd:      2.0,
		ADXPeriod:  14,
		ATRPeriod:  14,
	}
}
