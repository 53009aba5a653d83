package strategy

import (
	"testing"
	"time"

	"signalbotv1/internal/model"
)

func candleAt(i int) model.Candle {
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	c := float64(100 + i)
	return model.Candle{
		Symbol:    "BTCUSDT",
		Timeframe: "1h",
		TS:        base.Add(time.Duration(i) * time.Hour),
		Open:      c, High: c + 1, Low: c - 1, Close: c, Volume: 1000,
	}
}

func TestWindow_FillAndWrap(t *testing.T) {
	w := NewWindow(5)
	for i := 0; i < 8; i++ {
		if !w.Append(candleAt(i)) {
			t.Fatalf("append %d rejected", i)
		}
	}

	if w.Len() != 5 {
		t.Fatalf("expected len 5 after wrap, got %d", w.Len())
	}

	s := w.Series("BTCUSDT", "1h")
	if err := s.Validate(); err != nil {
		t.Fatalf("snapshot not a valid series: %v", err)
	}
	// oldest three bars evicted, snapshot holds bars 3..7 in order
	for i, c := range s.Candles {
		want := candleAt(3 + i)
		if !c.TS.Equal(want.TS) || c.Close != want.Close {
			t.Errorf("index %d: got close %g at %s, want %g at %s",
				i, c.Close, c.TS, want.Close, want.TS)
		}
	}
}

func TestWindow_RejectsNonAdvancingTimestamp(t *testing.T) {
	w := NewWindow(5)
	w.Append(candleAt(0))
	w.Append(candleAt(1))

	if w.Append(candleAt(1)) {
		t.Error("duplicate timestamp must be rejected")
	}
	if w.Append(candleAt(0)) {
		t.Error("out-of-order timestamp must be rejected")
	}
	if w.Len() != 2 {
		t.Errorf("rejected bars must not change length, got %d", w.Len())
	}
}

func TestWindow_Last(t *testing.T) {
	w := NewWindow(3)
	if _, ok := w.Last(); ok {
		t.Fatal("empty window must report no last candle")
	}
	for i := 0; i < 5; i++ {
		w.Append(candleAt(i))
	}
	last, ok := w.Last()
	if !ok || !last.TS.Equal(candleAt(4).TS) {
		t.Errorf("expected last candle at index 4, got %+v (ok=%v)", last, ok)
	}
}

func TestWindow_SnapshotIsACopy(t *testing.T) {
	w := NewWindow(4)
	for i := 0; i < 4; i++ {
		w.Append(candleAt(i))
	}
	s := w.Series("BTCUSDT", "1h")
	first := s.Candles[0].Close

	w.Append(candleAt(4)) // evicts the oldest bar in the window
	if s.Candles[0].Close != first {
		t.Error("appending to the window mutated an earlier snapshot")
	}
}
