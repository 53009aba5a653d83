package strategy

import (
	"regexp"
	"testing"
	"time"

	"signalbotv1/internal/model"
	"signalbotv1/internal/notification"
	"signalbotv1/internal/risk"
)

func testSeries(n int, closes func(i int) float64) *model.Series {
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]model.Candle, n)
	for i := 0; i < n; i++ {
		c := closes(i)
		candles[i] = model.Candle{
			Symbol:    "BTCUSDT",
			Timeframe: "4h",
			TS:        base.Add(time.Duration(i) * 4 * time.Hour),
			Open:      c, High: c + 1, Low: c - 1, Close: c, Volume: 1000,
		}
	}
	return &model.Series{Symbol: "BTCUSDT", Timeframe: "4h", Candles: candles}
}

func TestAnalyze_ShortSeriesIsNeutral(t *testing.T) {
	e := NewEngine(DefaultConfig(), 8)
	s := testSeries(5, func(i int) float64 { return 100 + float64(i) })

	sig, err := e.Analyze(s, s)
	if err != nil {
		t.Fatalf("Analyze error: %v", err)
	}
	if sig.Direction != model.Neutral {
		t.Errorf("five bars cannot clear the confidence bar, got %s", sig.Direction)
	}
	if sig.Symbol != "BTCUSDT" {
		t.Errorf("signal must carry the symbol, got %q", sig.Symbol)
	}
}

func TestAnalyze_MalformedSeriesFails(t *testing.T) {
	e := NewEngine(DefaultConfig(), 8)
	s := testSeries(10, func(i int) float64 { return 100 })
	// break ordering
	s.Candles[3].TS = s.Candles[1].TS

	if _, err := e.Analyze(s, s); err == nil {
		t.Fatal("expected error for out-of-order series")
	}
}

func TestAnalyze_EmptySeriesIsNeutral(t *testing.T) {
	e := NewEngine(DefaultConfig(), 8)
	s := &model.Series{Symbol: "ETHUSDT", Timeframe: "4h"}

	sig, err := e.Analyze(s, s)
	if err != nil {
		t.Fatalf("Analyze error: %v", err)
	}
	if sig.Direction != model.Neutral || sig.Symbol != "ETHUSDT" {
		t.Errorf("expected neutral ETHUSDT signal, got %+v", sig)
	}
}

func TestAnalyze_RecordsEntryRow(t *testing.T) {
	e := NewEngine(DefaultConfig(), 8)

	if _, ok := e.EntryRow("BTCUSDT"); ok {
		t.Fatal("no entry row expected before the first analysis")
	}

	s := testSeries(100, func(i int) float64 { return 100 + float64(i) })
	sig, err := e.Analyze(s, s)
	if err != nil {
		t.Fatalf("Analyze error: %v", err)
	}

	row, ok := e.EntryRow("BTCUSDT")
	if !ok {
		t.Fatal("expected an entry row after analysis")
	}
	if !row.RSI.Ready || !row.ATR.Ready {
		t.Errorf("100 bars must yield ready RSI and ATR, got %+v %+v", row.RSI, row.ATR)
	}

	// The row is what the alert's indicator readout renders from: a live
	// analysis must never print n/a across the board.
	alert := notification.SignalAlert(sig, row, risk.DefaultParameters())
	if !regexp.MustCompile(`- RSI: \d+\.\d{2}\n`).MatchString(alert.Message) {
		t.Errorf("alert missing numeric RSI line:\n%s", alert.Message)
	}
	if !regexp.MustCompile(`- ATR: \d+\.\d{8}\n`).MatchString(alert.Message) {
		t.Errorf("alert missing numeric ATR line:\n%s", alert.Message)
	}
}

func directional(symbol string, dir model.Direction, conf float64, ts time.Time) model.TradeSignal {
	return model.TradeSignal{
		Symbol:     symbol,
		Direction:  dir,
		Confidence: conf,
		EntryPrice: 100,
		StopLoss:   96,
		TakeProfit: 106,
		TS:         ts,
	}
}

func TestEmit_SuppressesNeutralAndLowConfidence(t *testing.T) {
	e := NewEngine(DefaultConfig(), 8)
	ts := time.Now()

	if e.emit(model.TradeSignal{Symbol: "BTCUSDT", Direction: model.Neutral, Confidence: 0.9, TS: ts}) {
		t.Error("NEUTRAL must never be emitted")
	}
	if e.emit(directional("BTCUSDT", model.Long, 0.3, ts)) {
		t.Error("signal below the confidence floor must not be emitted")
	}
	if !e.emit(directional("BTCUSDT", model.Long, 0.86, ts)) {
		t.Error("high-confidence directional signal must be emitted")
	}
}

func TestEmit_DuplicateSuppression(t *testing.T) {
	e := NewEngine(DefaultConfig(), 8)
	ts := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	if !e.emit(directional("BTCUSDT", model.Long, 0.86, ts)) {
		t.Fatal("first signal must be emitted")
	}
	if e.emit(directional("BTCUSDT", model.Long, 0.9, ts.Add(30*time.Minute))) {
		t.Error("same direction within the gap must be suppressed")
	}
	if !e.emit(directional("BTCUSDT", model.Short, 0.86, ts.Add(31*time.Minute))) {
		t.Error("direction flip must be emitted immediately")
	}
	if !e.emit(directional("BTCUSDT", model.Long, 0.86, ts.Add(2*time.Hour))) {
		t.Error("same direction after the gap elapsed must be emitted")
	}
	if !e.emit(directional("ETHUSDT", model.Long, 0.86, ts.Add(1*time.Minute))) {
		t.Error("suppression is per symbol; a different symbol must pass")
	}
}

func TestEmit_FullChannelDropsAndCallsHook(t *testing.T) {
	e := NewEngine(DefaultConfig(), 1)
	var dropped []model.TradeSignal
	e.OnDrop = func(sig model.TradeSignal) { dropped = append(dropped, sig) }

	ts := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	e.emit(directional("BTCUSDT", model.Long, 0.86, ts))
	e.emit(directional("ETHUSDT", model.Long, 0.86, ts))

	if len(dropped) != 1 || dropped[0].Symbol != "ETHUSDT" {
		t.Errorf("expected the second signal dropped, got %+v", dropped)
	}
	select {
	case sig := <-e.Signals():
		if sig.Symbol != "BTCUSDT" {
			t.Errorf("expected BTCUSDT on the channel, got %s", sig.Symbol)
		}
	default:
		t.Error("expected one buffered signal")
	}
}

func TestOnCandle_WaitsForWarmWindow(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AnalysisTimeframe = "4h"
	cfg.EntryTimeframe = "4h"
	cfg.MinHistory = 10
	e := NewEngine(cfg, 8)

	s := testSeries(9, func(i int) float64 { return 100 + float64(i) })
	for _, c := range s.Candles {
		if got := e.OnCandle(c); got != nil {
			t.Fatalf("no signal expected before MinHistory bars, got %+v", got)
		}
	}
	if e.windows["BTCUSDT:4h"].Len() != 9 {
		t.Errorf("window should hold all fed bars, got %d", e.windows["BTCUSDT:4h"].Len())
	}
}

func TestOnCandle_IgnoresStaleBars(t *testing.T) {
	e := NewEngine(DefaultConfig(), 8)
	s := testSeries(3, func(i int) float64 { return 100 })

	e.OnCandle(s.Candles[0])
	e.OnCandle(s.Candles[1])
	e.OnCandle(s.Candles[0]) // replayed bar

	if got := e.windows["BTCUSDT:4h"].Len(); got != 2 {
		t.Errorf("stale bar must not enter the window, got len %d", got)
	}
}
