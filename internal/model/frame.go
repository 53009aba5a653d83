package model

// Value is a derived indicator value that may not be computable yet.
// A value whose lookback window exceeds the available history has
// Ready=false, and comparisons against it must evaluate to "no match".
// This replaces NaN sentinels so the undefined case is explicit.
type Value struct {
	V     float64 `json:"v"`
	Ready bool    `json:"ready"`
}

// Defined wraps a computed value.
func Defined(v float64) Value {
	return Value{V: v, Ready: true}
}

// Undefined returns the zero Value (not ready).
func Undefined() Value {
	return Value{}
}

// Row is a candle augmented with the derived indicator columns.
type Row struct {
	Candle

	RSI        Value `json:"rsi"`
	EMAFast    Value `json:"ema_fast"`
	EMASlow    Value `json:"ema_slow"`
	MACD       Value `json:"macd"`
	MACDSignal Value `json:"macd_signal"`
	MACDHist   Value `json:"macd_hist"`
	BBMiddle   Value `json:"bb_middle"`
	BBUpper    Value `json:"bb_upper"`
	BBLower    Value `json:"bb_lower"`
	ADX        Value `json:"adx"`
	PlusDI     Value `json:"plus_di"`
	MinusDI    Value `json:"minus_di"`
	ATR        Value `json:"atr"`
}

// Frame is a Series extended with indicator columns, one Row per candle.
type Frame struct {
	Symbol    string `json:"symbol"`
	Timeframe string `json:"timeframe"`
	Rows      []Row  `json:"rows"`
}

// Len returns the number of rows in the frame.
func (f *Frame) Len() int {
	return len(f.Rows)
}

// Last returns the most recent row, or false if the frame is empty.
func (f *Frame) Last() (Row, bool) {
	if len(f.Rows) == 0 {
		return Row{}, false
	}
	return f.Rows[len(f.Rows)-1], true
}
