// Package risk validates trades against account-level limits and sizes
// positions from a fixed fractional risk per trade.
//
// The Manager is the only mutable state in the signal core. All access
// goes through its methods under one mutex: a validation check and a
// counter mutation can never interleave, so two trades cannot both read
// open_trades below the limit and both be accepted.
package risk

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"signalbotv1/internal/model"
)

// ErrZeroPriceRisk is returned when entry equals stop — the caller built a
// degenerate signal and must not size it.
var ErrZeroPriceRisk = errors.New("risk: entry price equals stop loss")

// Parameters are the immutable per-run risk limits.
type Parameters struct {
	RiskPerTrade    float64 `json:"risk_per_trade"`    // fraction of balance risked per trade
	MaxPositionSize float64 `json:"max_position_size"` // in base currency
	MaxLeverage     float64 `json:"max_leverage"`
	MaxDailyLoss    float64 `json:"max_daily_loss"` // fraction of balance
	MaxOpenTrades   int     `json:"max_open_trades"`
	MinVolume24h    float64 `json:"min_volume_24h"` // quote currency
	MinMarketCap    float64 `json:"min_market_cap"`
}

// DefaultParameters returns the standard limit set.
func DefaultParameters() Parameters {
	return Parameters{
		RiskPerTrade:    0.02,
		MaxPositionSize: 1.0,
		MaxLeverage:     25.0,
		MaxDailyLoss:    0.05,
		MaxOpenTrades:   3,
		MinVolume24h:    1_000_000,
		MinMarketCap:    100_000_000,
	}
}

// Manager tracks daily P&L and open trades for one account and validates
// every trade against the configured limits. One instance per account.
type Manager struct {
	mu     sync.Mutex
	params Parameters

	accountBalance float64
	dailyPnL       float64
	openTrades     int
}

// Status is a read-only snapshot of the manager state.
type Status struct {
	AccountBalance float64    `json:"account_balance"`
	DailyPnL       float64    `json:"daily_pnl"`
	OpenTrades     int        `json:"open_trades"`
	Params         Parameters `json:"params"`
}

// NewManager creates a risk manager with the starting balance and limits.
func NewManager(accountBalance float64, params Parameters) *Manager {
	return &Manager{
		params:         params,
		accountBalance: accountBalance,
	}
}

// PositionSize sizes a trade from the fractional risk per trade:
//
//	riskAmount = balance × riskPerTrade
//	baseSize   = riskAmount / |entry − stop|
//	result     = min(baseSize × leverage, maxPositionSize)
//
// The result never exceeds MaxPositionSize and is 0 only when riskAmount
// is 0. A zero price risk is a caller error, not a division.
func (m *Manager) PositionSize(entryPrice, stopLoss, leverage float64) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	priceRisk := math.Abs(entryPrice - stopLoss)
	if priceRisk == 0 {
		return 0, ErrZeroPriceRisk
	}

	riskAmount := m.accountBalance * m.params.RiskPerTrade
	size := riskAmount / priceRisk * leverage
	return math.Min(size, m.params.MaxPositionSize), nil
}

// ValidateTrade runs the six limit checks in their fixed order and returns
// the first failure with a human-readable reason. Failure is an expected
// outcome, never an error: the caller decides whether to skip the cycle.
func (m *Manager) ValidateTrade(symbol string, direction model.Direction, positionSize, leverage, volume24h, marketCap float64) (bool, string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if leverage > m.params.MaxLeverage {
		return false, fmt.Sprintf("leverage %gx exceeds maximum %gx", leverage, m.params.MaxLeverage)
	}
	if positionSize > m.params.MaxPositionSize {
		return false, fmt.Sprintf("position size %g exceeds maximum %g", positionSize, m.params.MaxPositionSize)
	}
	if m.openTrades >= m.params.MaxOpenTrades {
		return false, fmt.Sprintf("maximum open trades (%d) reached", m.params.MaxOpenTrades)
	}
	if m.dailyPnL <= -m.accountBalance*m.params.MaxDailyLoss {
		return false, "daily loss limit reached"
	}
	if volume24h < m.params.MinVolume24h {
		return false, fmt.Sprintf("24h volume %g below minimum %g", volume24h, m.params.MinVolume24h)
	}
	if marketCap < m.params.MinMarketCap {
		return false, fmt.Sprintf("market cap %g below minimum %g", marketCap, m.params.MinMarketCap)
	}
	return true, ""
}

// UpdateDailyPnL accumulates signed realized P&L into the daily total.
func (m *Manager) UpdateDailyPnL(pnl float64) {
	m.mu.Lock()
	m.dailyPnL += pnl
	m.mu.Unlock()
}

// IncrementOpenTrades records an accepted trade open.
func (m *Manager) IncrementOpenTrades() {
	m.mu.Lock()
	m.openTrades++
	m.mu.Unlock()
}

// DecrementOpenTrades records a trade close or cancel. The counter floors
// at 0 — a spurious extra decrement is clamped, not fatal.
func (m *Manager) DecrementOpenTrades() {
	m.mu.Lock()
	if m.openTrades > 0 {
		m.openTrades--
	}
	m.mu.Unlock()
}

// SetAccountBalance applies an external balance update.
func (m *Manager) SetAccountBalance(balance float64) {
	m.mu.Lock()
	m.accountBalance = balance
	m.mu.Unlock()
}

// ResetDailyStats zeroes the daily P&L and the open-trade counter.
// The call site and cadence belong to an external scheduling boundary
// (see schedule.RunDailyReset); the manager never resets itself.
func (m *Manager) ResetDailyStats() {
	m.mu.Lock()
	m.dailyPnL = 0
	m.openTrades = 0
	m.mu.Unlock()
}

// GetStatus returns a snapshot of the manager state.
func (m *Manager) GetStatus() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{
		AccountBalance: m.accountBalance,
		DailyPnL:       m.dailyPnL,
		OpenTrades:     m.openTrades,
		Params:         m.params,
	}
}
