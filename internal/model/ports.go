package model

import (
	"context"
)

// ── Collaborator Port Interfaces ──
// These interfaces decouple the signal/risk core from concrete collaborators
// (exchange connectivity, storage, notification). Each implementation
// satisfies one or more of these interfaces.

// CandleSource fetches OHLCV history for a market.
type CandleSource interface {
	// Klines returns up to limit most recent candles, oldest first.
	Klines(ctx context.Context, symbol, timeframe string, limit int) (*Series, error)
}

// TickerSource supplies the live market facts consumed by trade validation.
type TickerSource interface {
	// Snapshot returns the current 24h volume, market cap and last price.
	Snapshot(ctx context.Context, symbol string) (MarketSnapshot, error)
}

// SignalJournal persists emitted signals and simulated trades for audit.
type SignalJournal interface {
	// RecordSignal persists a signal together with its validation outcome.
	RecordSignal(sig TradeSignal, accepted bool, reason string) error

	// Close releases underlying resources.
	Close() error
}

// SignalCache publishes the latest signal per symbol for fast reads.
type SignalCache interface {
	// PublishSignal stores and broadcasts the latest signal for its symbol.
	PublishSignal(ctx context.Context, sig TradeSignal) error

	// Close releases underlying resources.
	Close() error
}
