package execution

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"signalbotv1/internal/model"
	"signalbotv1/internal/risk"
)

// PaperExecutor simulates execution of trade signals against the risk
// manager's limits, with configurable slippage.
type PaperExecutor struct {
	mu       sync.Mutex
	fills    []Fill
	open     map[string]Fill // orderID → open fill
	orderSeq int64

	tickers  model.TickerSource
	risk     *risk.Manager
	journal  Journal
	resultCh chan OrderResult

	slippageBps     float64 // basis points (5 = 0.05%)
	defaultLeverage float64 // applied when the signal carries none
}

// NewPaperExecutor creates a paper trading executor. journal may be nil.
func NewPaperExecutor(tickers model.TickerSource, rm *risk.Manager, journal Journal, resultBufferSize int, slippageBps, defaultLeverage float64) *PaperExecutor {
	return &PaperExecutor{
		fills:           make([]Fill, 0, 1000),
		open:            make(map[string]Fill),
		tickers:         tickers,
		risk:            rm,
		journal:         journal,
		resultCh:        make(chan OrderResult, resultBufferSize),
		slippageBps:     slippageBps,
		defaultLeverage: defaultLeverage,
	}
}

// Results returns the channel of order results.
func (p *PaperExecutor) Results() <-chan OrderResult {
	return p.resultCh
}

// GetFills returns a snapshot of all fills.
func (p *PaperExecutor) GetFills() []Fill {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := make([]Fill, len(p.fills))
	copy(cp, p.fills)
	return cp
}

// OpenOrders returns the currently open paper positions.
func (p *PaperExecutor) OpenOrders() []Fill {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Fill, 0, len(p.open))
	for _, f := range p.open {
		out = append(out, f)
	}
	return out
}

// Run consumes trade signals and simulates execution.
// Blocks until ctx is cancelled or signalCh is closed.
func (p *PaperExecutor) Run(ctx context.Context, signalCh <-chan model.TradeSignal) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-signalCh:
			if !ok {
				return
			}
			p.Execute(ctx, sig)
		}
	}
}

// Execute processes one signal end to end and returns the result.
// NEUTRAL signals are ignored.
func (p *PaperExecutor) Execute(ctx context.Context, sig model.TradeSignal) OrderResult {
	if sig.Direction == model.Neutral {
		return OrderResult{Status: StatusRejected, Reason: "neutral signal", Signal: sig}
	}

	snap, err := p.tickers.Snapshot(ctx, sig.Symbol)
	if err != nil {
		log.Printf("[executor] %s: snapshot failed: %v", sig.Symbol, err)
		return p.emit(OrderResult{Status: StatusError, Reason: err.Error(), Signal: sig})
	}

	leverage := sig.Leverage
	if leverage <= 0 {
		leverage = p.defaultLeverage
	}

	size, err := p.risk.PositionSize(sig.EntryPrice, sig.StopLoss, leverage)
	if err != nil {
		p.recordSignal(sig, false, err.Error())
		return p.emit(OrderResult{Status: StatusRejected, Reason: err.Error(), Signal: sig})
	}

	ok, reason := p.risk.ValidateTrade(sig.Symbol, sig.Direction, size, leverage, snap.Volume24h, snap.MarketCap)
	p.recordSignal(sig, ok, reason)
	if !ok {
		log.Printf("[executor] %s %s rejected: %s", sig.Symbol, sig.Direction, reason)
		return p.emit(OrderResult{Status: StatusRejected, Reason: reason, Signal: sig})
	}

	fill := p.fill(sig, size)
	p.risk.IncrementOpenTrades()
	if p.journal != nil {
		if err := p.journal.RecordFill(fill); err != nil {
			log.Printf("[executor] journal fill: %v", err)
		}
	}

	log.Printf("[executor] %s %s size=%.6f entry=%.4f fill=%.4f (slip=%.4f) order=%s",
		sig.Direction, sig.Symbol, fill.Size, sig.EntryPrice, fill.FillPrice, fill.Slippage, fill.OrderID)

	return p.emit(OrderResult{
		OrderID: fill.OrderID,
		Status:  StatusFilled,
		Reason:  fmt.Sprintf("paper filled at %.4f", fill.FillPrice),
		Signal:  sig,
	})
}

// CloseOrder closes an open paper position at exitPrice, feeds the
// realized P&L into the risk manager, and frees the open-trade slot.
func (p *PaperExecutor) CloseOrder(orderID string, exitPrice float64) (float64, error) {
	p.mu.Lock()
	fill, ok := p.open[orderID]
	if !ok {
		p.mu.Unlock()
		return 0, fmt.Errorf("execution: unknown order %s", orderID)
	}
	delete(p.open, orderID)
	p.mu.Unlock()

	pnl := (exitPrice - fill.FillPrice) * fill.Size
	if fill.Signal.Direction == model.Short {
		pnl = -pnl
	}
	p.risk.UpdateDailyPnL(pnl)
	p.risk.DecrementOpenTrades()

	log.Printf("[executor] closed %s %s at %.4f pnl=%.4f", fill.Signal.Symbol, orderID, exitPrice, pnl)
	return pnl, nil
}

// fill applies slippage against the trade direction and records the open
// position.
func (p *PaperExecutor) fill(sig model.TradeSignal, size float64) Fill {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.orderSeq++
	orderID := fmt.Sprintf("PAPER-%d", p.orderSeq)

	slip := sig.EntryPrice * p.slippageBps / 10000
	fillPrice := sig.EntryPrice
	if sig.Direction == model.Long {
		fillPrice += slip // buy higher
	} else {
		fillPrice -= slip // sell lower
	}

	f := Fill{
		OrderID:   orderID,
		Signal:    sig,
		FillPrice: fillPrice,
		Size:      size,
		Slippage:  slip,
		FilledAt:  time.Now().UTC(),
	}
	p.fills = append(p.fills, f)
	p.open[orderID] = f
	return f
}

func (p *PaperExecutor) recordSignal(sig model.TradeSignal, accepted bool, reason string) {
	if p.journal == nil {
		return
	}
	if err := p.journal.RecordSignal(sig, accepted, reason); err != nil {
		log.Printf("[executor] journal signal: %v", err)
	}
}

// emit pushes the result without blocking; a full channel drops it.
func (p *PaperExecutor) emit(res OrderResult) OrderResult {
	select {
	case p.resultCh <- res:
	default:
		log.Printf("[executor] result channel full, dropping %s %s", res.Status, res.Signal.Symbol)
	}
	return res
}
