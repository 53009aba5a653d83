package strategy

import "signalbotv1/internal/model"

// Window keeps the most recent candles for one market in a fixed-capacity
// circular buffer. Appending past capacity overwrites the oldest bar.
// Designed for single-goroutine usage — no locks needed.
type Window struct {
	buf   []model.Candle
	head  int // next write index
	count int
}

// NewWindow creates a window holding up to capacity candles (minimum 2).
func NewWindow(capacity int) *Window {
	if capacity < 2 {
		capacity = 2
	}
	return &Window{buf: make([]model.Candle, capacity)}
}

// Append adds a candle. Bars that do not advance the timestamp are
// rejected (duplicate or out-of-order delivery) so the window always
// holds a strictly increasing series.
func (w *Window) Append(c model.Candle) bool {
	if last, ok := w.Last(); ok && !c.TS.After(last.TS) {
		return false
	}
	w.buf[w.head] = c
	w.head = (w.head + 1) % len(w.buf)
	if w.count < len(w.buf) {
		w.count++
	}
	return true
}

// Len returns the number of candles currently held.
func (w *Window) Len() int {
	return w.count
}

// Cap returns the window capacity.
func (w *Window) Cap() int {
	return len(w.buf)
}

// Last returns the most recently appended candle.
func (w *Window) Last() (model.Candle, bool) {
	if w.count == 0 {
		return model.Candle{}, false
	}
	return w.buf[(w.head-1+len(w.buf))%len(w.buf)], true
}

// Series returns an ordered snapshot of the held candles, oldest first.
// The snapshot is a copy — the indicator engine may hold it while the
// window keeps appending.
func (w *Window) Series(symbol, timeframe string) *model.Series {
	out := make([]model.Candle, w.count)
	start := (w.head - w.count + len(w.buf)) % len(w.buf)
	for i := 0; i < w.count; i++ {
		out[i] = w.buf[(start+i)%len(w.buf)]
	}
	return &model.Series{Symbol: symbol, Timeframe: timeframe, Candles: out}
}
