package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"signalbotv1/internal/execution"
	"signalbotv1/internal/model"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := NewJournal(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("NewJournal: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func sampleSignal() model.TradeSignal {
	return model.TradeSignal{
		Symbol:     "BTCUSDT",
		Direction:  model.Long,
		Confidence: 0.857,
		EntryPrice: 50000,
		StopLoss:   49000,
		TakeProfit: 51500,
		TS:         time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestJournal_RecordAndReadSignals(t *testing.T) {
	j := openTestJournal(t)

	if err := j.RecordSignal(sampleSignal(), true, ""); err != nil {
		t.Fatalf("RecordSignal: %v", err)
	}
	rejected := sampleSignal()
	rejected.Direction = model.Short
	if err := j.RecordSignal(rejected, false, "daily loss limit reached"); err != nil {
		t.Fatalf("RecordSignal: %v", err)
	}

	recs, err := j.RecentSignals(10)
	if err != nil {
		t.Fatalf("RecentSignals: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 signals, got %d", len(recs))
	}

	// newest first
	if recs[0].Direction != "SHORT" || recs[0].Accepted {
		t.Errorf("row 0: %+v", recs[0])
	}
	if recs[0].Reason != "daily loss limit reached" {
		t.Errorf("reason not persisted: %q", recs[0].Reason)
	}
	if recs[1].Direction != "LONG" || !recs[1].Accepted {
		t.Errorf("row 1: %+v", recs[1])
	}
	if recs[1].Confidence != 0.857 {
		t.Errorf("confidence %.4f", recs[1].Confidence)
	}
}

func TestJournal_RecordAndReadFills(t *testing.T) {
	j := openTestJournal(t)

	fill := execution.Fill{
		OrderID:   "PAPER-1",
		Signal:    sampleSignal(),
		FillPrice: 50025,
		Size:      0.4,
		Slippage:  25,
		FilledAt:  time.Date(2024, 6, 1, 12, 0, 5, 0, time.UTC),
	}
	if err := j.RecordFill(fill); err != nil {
		t.Fatalf("RecordFill: %v", err)
	}

	trades, err := j.RecentTrades(10)
	if err != nil {
		t.Fatalf("RecentTrades: %v", err)
	}
	if len(trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(trades))
	}
	got := trades[0]
	if got.OrderID != "PAPER-1" || got.Symbol != "BTCUSDT" || got.Direction != "LONG" {
		t.Errorf("trade identity: %+v", got)
	}
	if got.FillPrice != 50025 || got.Size != 0.4 {
		t.Errorf("trade values: %+v", got)
	}
}

func TestJournal_LimitAndOrder(t *testing.T) {
	j := openTestJournal(t)

	for i := 0; i < 5; i++ {
		sig := sampleSignal()
		sig.TS = sig.TS.Add(time.Duration(i) * time.Hour)
		if err := j.RecordSignal(sig, true, ""); err != nil {
			t.Fatalf("RecordSignal %d: %v", i, err)
		}
	}

	recs, err := j.RecentSignals(3)
	if err != nil {
		t.Fatalf("RecentSignals: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("expected 3, got %d", len(recs))
	}
	if recs[0].ID <= recs[1].ID || recs[1].ID <= recs[2].ID {
		t.Errorf("not newest first: ids %d %d %d", recs[0].ID, recs[1].ID, recs[2].ID)
	}
}
