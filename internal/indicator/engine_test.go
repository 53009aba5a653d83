package indicator

import (
	"testing"
	"time"

	"signalbotv1/internal/model"
)

func makeSeries(closes []float64) *model.Series {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]model.Candle, len(closes))
	for i, c := range closes {
		candles[i] = model.Candle{
			Symbol:    "BTCUSDT",
			Timeframe: "1h",
			TS:        base.Add(time.Duration(i) * time.Hour),
			Open:      c,
			High:      c + 1,
			Low:       c - 1,
			Close:     c,
			Volume:    100,
		}
	}
	return &model.Series{Symbol: "BTCUSDT", Timeframe: "1h", Candles: candles}
}

func TestCompute_FrameShape(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + float64(i%7)
	}
	s := makeSeries(closes)

	frame, err := Compute(s, DefaultParams())
	if err != nil {
		t.Fatalf("Compute error: %v", err)
	}
	if frame.Len() != s.Len() {
		t.Fatalf("expected %d rows, got %d", s.Len(), frame.Len())
	}
	if frame.Symbol != "BTCUSDT" || frame.Timeframe != "1h" {
		t.Errorf("frame identity lost: %s:%s", frame.Symbol, frame.Timeframe)
	}
	for i, row := range frame.Rows {
		if row.Close != s.Candles[i].Close || !row.TS.Equal(s.Candles[i].TS) {
			t.Fatalf("row %d OHLCV mutated", i)
		}
	}
}

func TestCompute_DoesNotMutateInput(t *testing.T) {
	closes := []float64{100, 101, 102, 103, 104, 105}
	s := makeSeries(closes)

	if _, err := Compute(s, DefaultParams()); err != nil {
		t.Fatalf("Compute error: %v", err)
	}
	for i, c := range s.Candles {
		if c.Close != closes[i] {
			t.Fatalf("input candle %d mutated: %g", i, c.Close)
		}
	}
}

func TestCompute_RejectsOutOfOrderSeries(t *testing.T) {
	s := makeSeries([]float64{100, 101, 102})
	s.Candles[2].TS = s.Candles[0].TS // duplicate timestamp

	if _, err := Compute(s, DefaultParams()); err == nil {
		t.Fatal("expected error for non-increasing timestamps")
	}
}

// Strictly increasing prices for 20 bars with a 14-period window must push
// RSI above 70 (no losses in the window saturates RSI at 100).
func TestCompute_RisingPricesSaturateRSI(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	frame, err := Compute(makeSeries(closes), DefaultParams())
	if err != nil {
		t.Fatalf("Compute error: %v", err)
	}

	last := frame.Rows[len(frame.Rows)-1]
	if !last.RSI.Ready {
		t.Fatal("expected RSI ready after 20 bars")
	}
	if last.RSI.V <= 70 {
		t.Errorf("expected RSI > 70 for strictly rising prices, got %.2f", last.RSI.V)
	}
}

// The first `period` rows of an RSI window have too little history and
// must stay not-ready rather than produce a guess.
func TestCompute_RSIUndefinedBeforeWindow(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	p := DefaultParams()
	frame, err := Compute(makeSeries(closes), p)
	if err != nil {
		t.Fatalf("Compute error: %v", err)
	}

	for i := 0; i < p.RSIPeriod; i++ {
		if frame.Rows[i].RSI.Ready {
			t.Errorf("row %d: RSI should not be ready before %d deltas", i, p.RSIPeriod)
		}
	}
	if !frame.Rows[p.RSIPeriod].RSI.Ready {
		t.Errorf("row %d: RSI should be ready at the first full window", p.RSIPeriod)
	}
}

func TestCompute_ShortSeriesAllColumnsNotReady(t *testing.T) {
	frame, err := Compute(makeSeries([]float64{100, 101, 102}), DefaultParams())
	if err != nil {
		t.Fatalf("Compute error: %v", err)
	}
	last := frame.Rows[2]
	for name, v := range map[string]model.Value{
		"rsi": last.RSI, "bb_upper": last.BBUpper, "bb_lower": last.BBLower,
		"adx": last.ADX, "plus_di": last.PlusDI, "minus_di": last.MinusDI, "atr": last.ATR,
	} {
		if v.Ready {
			t.Errorf("%s: should not be ready with 3 bars of history", name)
		}
	}
	// EMAs and MACD are seeded with the first price and are always defined.
	if !last.EMAFast.Ready || !last.EMASlow.Ready || !last.MACD.Ready {
		t.Error("EMA/MACD columns should be defined from row 0")
	}
}
