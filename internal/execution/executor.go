// Package execution turns trade signals into simulated fills.
//
// The PaperExecutor is the full downstream of a signal: it fetches the
// market snapshot, sizes the position through the risk manager, runs the
// limit checks, and either fills the trade on paper or records the
// rejection. No real orders are placed.
package execution

import (
	"time"

	"signalbotv1/internal/model"
)

// OrderResult represents the outcome of processing one signal.
type OrderResult struct {
	OrderID string            `json:"order_id"`
	Status  string            `json:"status"` // FILLED, REJECTED, ERROR
	Reason  string            `json:"reason,omitempty"`
	Signal  model.TradeSignal `json:"signal"`
}

// Result statuses.
const (
	StatusFilled   = "FILLED"
	StatusRejected = "REJECTED"
	StatusError    = "ERROR"
)

// Fill represents a simulated order fill.
type Fill struct {
	OrderID   string            `json:"order_id"`
	Signal    model.TradeSignal `json:"signal"`
	FillPrice float64           `json:"fill_price"`
	Size      float64           `json:"size"`
	Slippage  float64           `json:"slippage"` // simulated, in price units
	FilledAt  time.Time         `json:"filled_at"`
}

// Journal receives the audit trail of processed signals and fills.
// The SQLite journal implements it; a nil journal disables persistence.
type Journal interface {
	RecordSignal(sig model.TradeSignal, accepted bool, reason string) error
	RecordFill(fill Fill) error
}
