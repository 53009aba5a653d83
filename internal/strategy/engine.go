// Package strategy runs the analysis cycle: candle series in, indicator
// frame computed, latest row scored, trade signal out.
//
// The Engine works in two modes. The poll path calls Analyze with freshly
// fetched series; the streaming path feeds closed candles through Run and
// the engine maintains rolling windows per market. Emitted signals pass
// through a confidence floor and per-symbol duplicate suppression.
package strategy

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"signalbotv1/internal/indicator"
	"signalbotv1/internal/model"
	"signalbotv1/internal/scorer"
)

// Config holds the analysis parameters for the engine.
type Config struct {
	Params indicator.Params
	Scorer scorer.Config

	// AnalysisTimeframe is scored for direction; EntryTimeframe supplies
	// the close and ATR the stop/target are derived from. They may be
	// equal.
	AnalysisTimeframe string
	EntryTimeframe    string

	// WindowSize bounds the per-market candle history kept in streaming
	// mode; MinHistory is the bar count required before a window is scored.
	WindowSize int
	MinHistory int

	// MinConfidence is the floor below which directional signals are not
	// emitted. MinSignalGap suppresses a repeat signal in the same
	// direction for a symbol within the gap.
	MinConfidence float64
	MinSignalGap  time.Duration
}

// DefaultConfig returns the standard engine configuration: analyze 4h,
// derive entry levels on 1h, 100-bar windows, at most one signal per
// direction per symbol per hour.
func DefaultConfig() Config {
	return Config{
		Params:            indicator.DefaultParams(),
		Scorer:            scorer.DefaultConfig(),
		AnalysisTimeframe: "4h",
		EntryTimeframe:    "1h",
		WindowSize:        100,
		MinHistory:        60,
		MinConfidence:     0.50,
		MinSignalGap:      time.Hour,
	}
}

// Engine scores markets and emits directional trade signals.
//
// Analyze and Run are driven from a single goroutine: the engine owns its
// windows and last-signal map without locks, matching the single-writer
// shape of the indicator pipeline.
type Engine struct {
	cfg      Config
	scorer   *scorer.Scorer
	signalCh chan model.TradeSignal

	windows     map[string]*Window           // candle key → rolling window
	lastEmitted map[string]model.TradeSignal // symbol → last emitted signal

	// lastRows holds the entry row each symbol was last scored against,
	// read by the notifier goroutine for the alert's indicator readout.
	rowMu    sync.RWMutex
	lastRows map[string]model.Row

	// OnDrop is invoked when the signal channel is full and a signal is
	// discarded. Optional metrics hook.
	OnDrop func(sig model.TradeSignal)
}

// NewEngine creates a strategy engine with the given config.
func NewEngine(cfg Config, signalBufferSize int) *Engine {
	return &Engine{
		cfg:         cfg,
		scorer:      scorer.New(cfg.Scorer),
		signalCh:    make(chan model.TradeSignal, signalBufferSize),
		windows:     make(map[string]*Window, 16),
		lastEmitted: make(map[string]model.TradeSignal, 16),
		lastRows:    make(map[string]model.Row, 16),
	}
}

// Signals returns the channel of emitted trade signals.
func (e *Engine) Signals() <-chan model.TradeSignal {
	return e.signalCh
}

// Analyze scores the latest row of the analysis series and derives entry
// levels from the latest row of the entry series. A series too short for
// any indicator yields a NEUTRAL signal, never an error — only malformed
// input fails.
func (e *Engine) Analyze(analysis, entry *model.Series) (model.TradeSignal, error) {
	frame, err := indicator.Compute(analysis, e.cfg.Params)
	if err != nil {
		return model.TradeSignal{}, fmt.Errorf("strategy: analysis frame: %w", err)
	}
	row, ok := frame.Last()
	if !ok {
		return model.TradeSignal{Symbol: analysis.Symbol, Direction: model.Neutral}, nil
	}

	direction, confidence := e.scorer.Score(row)

	entryRow := row
	if entry != analysis {
		entryFrame, err := indicator.Compute(entry, e.cfg.Params)
		if err != nil {
			return model.TradeSignal{}, fmt.Errorf("strategy: entry frame: %w", err)
		}
		if r, ok := entryFrame.Last(); ok {
			entryRow = r
		}
	}

	e.rowMu.Lock()
	e.lastRows[analysis.Symbol] = entryRow
	e.rowMu.Unlock()

	return e.scorer.Build(direction, confidence, entryRow), nil
}

// EntryRow returns the entry row symbol was last scored against, for
// alert formatting. Safe for concurrent use; ok is false before the
// first completed analysis of the symbol.
func (e *Engine) EntryRow(symbol string) (model.Row, bool) {
	e.rowMu.RLock()
	defer e.rowMu.RUnlock()
	row, ok := e.lastRows[symbol]
	return row, ok
}

// AnalyzeAndEmit runs Analyze and pushes the result through duplicate
// suppression onto the signal channel. The returned bool reports whether
// the signal was emitted.
func (e *Engine) AnalyzeAndEmit(analysis, entry *model.Series) (model.TradeSignal, bool, error) {
	sig, err := e.Analyze(analysis, entry)
	if err != nil {
		return model.TradeSignal{}, false, err
	}
	return sig, e.emit(sig), nil
}

// OnCandle feeds one closed candle into the streaming path. Bars on the
// entry timeframe only extend their window; a bar on the analysis
// timeframe re-scores the market once its window is warm. Returns the
// emitted signal, or nil.
func (e *Engine) OnCandle(c model.Candle) *model.TradeSignal {
	key := c.Key()
	w, ok := e.windows[key]
	if !ok {
		w = NewWindow(e.cfg.WindowSize)
		e.windows[key] = w
	}
	if !w.Append(c) {
		log.Printf("[strategy] %s: dropped stale candle at %s", key, c.TS.Format(time.RFC3339))
		return nil
	}

	if c.Timeframe != e.cfg.AnalysisTimeframe || w.Len() < e.cfg.MinHistory {
		return nil
	}

	analysis := w.Series(c.Symbol, c.Timeframe)
	entry := analysis
	if e.cfg.EntryTimeframe != e.cfg.AnalysisTimeframe {
		if ew, ok := e.windows[c.Symbol+":"+e.cfg.EntryTimeframe]; ok && ew.Len() >= e.cfg.MinHistory {
			entry = ew.Series(c.Symbol, e.cfg.EntryTimeframe)
		}
	}

	sig, err := e.Analyze(analysis, entry)
	if err != nil {
		log.Printf("[strategy] %s: analyze error: %v", key, err)
		return nil
	}
	if !e.emit(sig) {
		return nil
	}
	return &sig
}

// Run consumes closed candles and scores markets as bars arrive.
// Blocks until ctx is cancelled or candleCh is closed.
func (e *Engine) Run(ctx context.Context, candleCh <-chan model.Candle) {
	for {
		select {
		case <-ctx.Done():
			return
		case candle, ok := <-candleCh:
			if !ok {
				return
			}
			e.OnCandle(candle)
		}
	}
}

// emit applies the confidence floor and duplicate suppression, then pushes
// the signal onto the channel. A full channel drops the signal rather than
// stalling analysis.
func (e *Engine) emit(sig model.TradeSignal) bool {
	if sig.Direction == model.Neutral || sig.Confidence < e.cfg.MinConfidence {
		return false
	}
	if last, ok := e.lastEmitted[sig.Symbol]; ok {
		if last.Direction == sig.Direction && sig.TS.Sub(last.TS) < e.cfg.MinSignalGap {
			return false
		}
	}
	e.lastEmitted[sig.Symbol] = sig

	select {
	case e.signalCh <- sig:
	default:
		if e.OnDrop != nil {
			e.OnDrop(sig)
		} else {
			log.Printf("[strategy] signal channel full, dropping %s %s", sig.Symbol, sig.Direction)
		}
	}
	return true
}
