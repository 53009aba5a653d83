// Package notification delivers trade signal alerts to external channels
// (Telegram, webhooks).
package notification

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"signalbotv1/internal/model"
	"signalbotv1/internal/risk"
)

// AlertLevel represents the severity of an alert.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "INFO"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

// Alert represents a notification to be sent. Signal carries the
// structured trade signal for machine consumers (webhooks); text channels
// only use Message.
type Alert struct {
	Level   AlertLevel         `json:"level"`
	Title   string             `json:"title"`
	Message string             `json:"message"`
	Signal  *model.TradeSignal `json:"signal,omitempty"`
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Send delivers an alert. Returns error if delivery fails.
	Send(ctx context.Context, alert Alert) error
}

// LogNotifier logs alerts instead of delivering them (development mode).
type LogNotifier struct{}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(ctx context.Context, alert Alert) error {
	log.Printf("[notify] [%s] %s: %s", alert.Level, alert.Title, alert.Message)
	return nil
}

// MultiNotifier fans one alert out to several backends. Delivery errors
// are collected, not short-circuited — one dead channel must not silence
// the others.
type MultiNotifier struct {
	backends []Notifier
}

// NewMultiNotifier creates a notifier sending to all given backends.
func NewMultiNotifier(backends ...Notifier) *MultiNotifier {
	return &MultiNotifier{backends: backends}
}

func (m *MultiNotifier) Send(ctx context.Context, alert Alert) error {
	var errs []string
	for _, b := range m.backends {
		if err := b.Send(ctx, alert); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("notification: %s", strings.Join(errs, "; "))
	}
	return nil
}

// SignalAlert formats a trade signal into an alert, including the
// indicator readout from the entry row and the active risk limits.
func SignalAlert(sig model.TradeSignal, row model.Row, params risk.Parameters) Alert {
	var b strings.Builder
	fmt.Fprintf(&b, "Symbol: %s\n", sig.Symbol)
	fmt.Fprintf(&b, "Direction: %s\n", sig.Direction)
	fmt.Fprintf(&b, "Confidence: %.2f%%\n", sig.Confidence*100)
	fmt.Fprintf(&b, "Entry Price: %.8f\n", sig.EntryPrice)
	fmt.Fprintf(&b, "Stop Loss: %.8f\n", sig.StopLoss)
	fmt.Fprintf(&b, "Take Profit: %.8f\n", sig.TakeProfit)
	fmt.Fprintf(&b, "Time: %s\n\n", sig.TS.UTC().Format(time.RFC3339))

	b.WriteString("Technical Analysis:\n")
	writeIndicator(&b, "RSI", row.RSI, "%.2f")
	writeIndicator(&b, "MACD", row.MACD, "%.2f")
	writeIndicator(&b, "ADX", row.ADX, "%.2f")
	writeIndicator(&b, "ATR", row.ATR, "%.8f")
	b.WriteString("\n")

	b.WriteString("Risk Management:\n")
	fmt.Fprintf(&b, "- Risk per trade: %.1f%%\n", params.RiskPerTrade*100)
	fmt.Fprintf(&b, "- Max position size: %g USDT\n", params.MaxPositionSize)
	fmt.Fprintf(&b, "- Max daily loss: %.1f%%\n", params.MaxDailyLoss*100)

	return Alert{
		Level:   AlertInfo,
		Title:   "Trading Signal Alert",
		Message: b.String(),
		Signal:  &sig,
	}
}

func writeIndicator(b *strings.Builder, name string, v model.Value, format string) {
	if v.Ready {
		fmt.Fprintf(b, "- %s: "+format+"\n", name, v.V)
	} else {
		fmt.Fprintf(b, "- %s: n/a\n", name)
	}
}

// Run consumes trade signals and sends an alert per signal, using format
// to build the alert (SignalAlert with whatever row context the caller
// keeps). onError is an optional metrics hook; delivery errors never stop
// the loop.
func Run(ctx context.Context, n Notifier, sigCh <-chan model.TradeSignal, format func(model.TradeSignal) Alert, onError func(error)) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-sigCh:
			if !ok {
				return
			}
			sendCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := n.Send(sendCtx, format(sig))
			cancel()
			if err != nil {
				log.Printf("[notify] send failed for %s: %v", sig.Symbol, err)
				if onError != nil {
					onError(err)
				}
			}
		}
	}
}
