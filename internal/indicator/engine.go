package indicator

import (
	"fmt"

	"signalbotv1/internal/model"
)

// Compute derives the full indicator frame from a candle series. The input
// is validated and never mutated; the returned frame has one row per
// candle with every derived column attached.
func Compute(s *model.Series, p Params) (*model.Frame, error) {
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("indicator: %w", err)
	}

	n := s.Len()
	high := make([]float64, n)
	low := make([]float64, n)
	closes := make([]float64, n)
	for i, c := range s.Candles {
		high[i] = c.High
		low[i] = c.Low
		closes[i] = c.Close
	}

	rsi := RSI(closes, p.RSIPeriod)
	emaFast := EMA(closes, p.EMAFast)
	emaSlow := EMA(closes, p.EMASlow)
	macd, macdSignal, macdHist := MACD(closes, p.MACDFast, p.MACDSlow, p.MACDSignal)
	bbMiddle, bbUpper, bbLower := Bollinger(closes, p.BBPeriod, p.BBStd)
	adx, plusDI, minusDI := ADX(high, low, closes, p.ADXPeriod)
	atr := ATR(high, low, closes, p.ATRPeriod)

	rows := make([]model.Row, n)
	for i := 0; i < n; i++ {
		rows[i] = model.Row{
			Candle:     s.Candles[i],
			RSI:        rsi[i],
			EMAFast:    emaFast[i],
			EMASlow:    emaSlow[i],
			MACD:       macd[i],
			MACDSignal: macdSignal[i],
			MACDHist:   macdHist[i],
			BBMiddle:   bbMiddle[i],
			BBUpper:    bbUpper[i],
			BBLower:    bbLower[i],
			ADX:        adx[i],
			PlusDI:     plusDI[i],
			MinusDI:    minusDI[i],
			ATR:        atr[i],
		}
	}

	return &model.Frame{
		Symbol:    s.Symbol,
		Timeframe: s.Timeframe,
		Rows:      rows,
	}, nil
}
