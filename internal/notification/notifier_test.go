package notification

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"signalbotv1/internal/model"
	"signalbotv1/internal/risk"
)

func sampleSignal() model.TradeSignal {
	return model.TradeSignal{
		Symbol:     "BTCUSDT",
		Direction:  model.Long,
		Confidence: 6.0 / 7.0,
		EntryPrice: 50000,
		StopLoss:   49000,
		TakeProfit: 51500,
		TS:         time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestSignalAlert_Format(t *testing.T) {
	row := model.Row{
		RSI:  model.Defined(61.5),
		MACD: model.Defined(0.82),
		ADX:  model.Defined(31.2),
		ATR:  model.Defined(412.5),
	}
	alert := SignalAlert(sampleSignal(), row, risk.DefaultParameters())

	if alert.Title != "Trading Signal Alert" {
		t.Errorf("title %q", alert.Title)
	}
	for _, want := range []string{
		"Symbol: BTCUSDT",
		"Direction: LONG",
		"Confidence: 85.71%",
		"Stop Loss: 49000.00000000",
		"- RSI: 61.50",
		"- ATR: 412.50000000",
		"- Risk per trade: 2.0%",
	} {
		if !strings.Contains(alert.Message, want) {
			t.Errorf("message missing %q:\n%s", want, alert.Message)
		}
	}
}

func TestSignalAlert_UnreadyIndicatorsShowNA(t *testing.T) {
	alert := SignalAlert(sampleSignal(), model.Row{}, risk.DefaultParameters())
	if !strings.Contains(alert.Message, "- RSI: n/a") {
		t.Errorf("expected n/a for unready RSI:\n%s", alert.Message)
	}
}

func TestTelegramNotifier_Send(t *testing.T) {
	var got struct {
		ChatID    string `json:"chat_id"`
		Text      string `json:"text"`
		ParseMode string `json:"parse_mode"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/botTOKEN/") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := NewTelegramNotifier("TOKEN", "42")
	n.SetAPIBase(srv.URL)

	err := n.Send(context.Background(), Alert{Level: AlertInfo, Title: "Hello", Message: "body.text"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got.ChatID != "42" || got.ParseMode != "MarkdownV2" {
		t.Errorf("payload: %+v", got)
	}
	// MarkdownV2 escaping
	if !strings.Contains(got.Text, `body\.text`) {
		t.Errorf("dot not escaped: %q", got.Text)
	}
}

func TestTelegramNotifier_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"ok":false}`, http.StatusForbidden)
	}))
	defer srv.Close()

	n := NewTelegramNotifier("TOKEN", "42")
	n.SetAPIBase(srv.URL)

	if err := n.Send(context.Background(), Alert{Title: "x"}); err == nil {
		t.Fatal("expected error for HTTP 403")
	}
}

func TestWebhookNotifier_Send(t *testing.T) {
	var got webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL)
	sig := sampleSignal()
	err := n.Send(context.Background(), Alert{Level: AlertWarning, Title: "t", Message: "m", Signal: &sig})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got.Event != "trade_signal" || got.Alert.Level != AlertWarning || got.Alert.Title != "t" {
		t.Errorf("payload: %+v", got)
	}
	if got.Alert.Signal == nil || got.Alert.Signal.Symbol != "BTCUSDT" {
		t.Errorf("structured signal lost: %+v", got.Alert.Signal)
	}
}

func TestWebhookNotifier_PlainAlertEvent(t *testing.T) {
	var got webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL)
	if err := n.Send(context.Background(), Alert{Level: AlertCritical, Title: "redis down"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got.Event != "alert" {
		t.Errorf("event %q for alert without signal", got.Event)
	}
}

type failingNotifier struct{ err error }

func (f *failingNotifier) Send(ctx context.Context, alert Alert) error { return f.err }

func TestMultiNotifier_CollectsErrors(t *testing.T) {
	ok := NewLogNotifier()
	bad := &failingNotifier{err: errors.New("boom")}

	m := NewMultiNotifier(ok, bad)
	err := m.Send(context.Background(), Alert{Title: "x"})
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Errorf("expected collected error, got %v", err)
	}
}

func TestRun_DeliversAndSurvivesErrors(t *testing.T) {
	bad := &failingNotifier{err: errors.New("down")}
	var errCount int

	ch := make(chan model.TradeSignal, 2)
	ch <- sampleSignal()
	ch <- sampleSignal()
	close(ch)

	Run(context.Background(), bad, ch,
		func(sig model.TradeSignal) Alert { return SignalAlert(sig, model.Row{}, risk.DefaultParameters()) },
		func(error) { errCount++ })

	if errCount != 2 {
		t.Errorf("expected 2 delivery errors, got %d", errCount)
	}
}
