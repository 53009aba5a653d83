package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"signalbotv1/internal/model"
)

const defaultStreamURL = "wss://fstream.binance.com/stream"

// Stream consumes the Binance futures combined kline stream and forwards
// CLOSED candles to an output channel. It reconnects with exponential
// backoff; in-progress bars are dropped so downstream only ever sees
// final OHLCV.
type Stream struct {
	url        string
	symbols    []string
	timeframes []string

	// OnReconnect is called after each successful (re)connect. Optional;
	// used for metrics and for REST backfill of bars missed while down.
	OnReconnect func()
}

// NewStream creates a stream over the given markets. Symbols and
// timeframes are combined pairwise into one multiplexed connection.
func NewStream(symbols, timeframes []string, opts ...StreamOption) *Stream {
	s := &Stream{
		url:        defaultStreamURL,
		symbols:    symbols,
		timeframes: timeframes,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StreamOption configures a Stream.
type StreamOption func(*Stream)

// WithStreamURL overrides the WebSocket endpoint, primarily for tests.
func WithStreamURL(u string) StreamOption {
	return func(s *Stream) { s.url = u }
}

// Run connects and forwards closed candles onto out until ctx is
// cancelled. The out channel is closed on return.
func (s *Stream) Run(ctx context.Context, out chan<- model.Candle) {
	defer close(out)

	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}
		err := s.connectAndRead(ctx, out)
		if ctx.Err() != nil {
			return
		}
		log.Printf("[binance-ws] session ended: %v — reconnecting in %v", err, backoff)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func (s *Stream) connectAndRead(ctx context.Context, out chan<- model.Candle) error {
	streams := make([]string, 0, len(s.symbols)*len(s.timeframes))
	for _, sym := range s.symbols {
		for _, tf := range s.timeframes {
			streams = append(streams, strings.ToLower(sym)+"@kline_"+tf)
		}
	}
	u := s.url + "?streams=" + strings.Join(streams, "/")

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	if s.OnReconnect != nil {
		s.OnReconnect()
	}
	log.Printf("[binance-ws] connected: %d streams", len(streams))

	// Unblock ReadMessage on cancellation.
	go func() {
		<-ctx.Done()
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}

		candle, closed, err := parseStreamKline(msg)
		if err != nil {
			log.Printf("[binance-ws] parse error: %v", err)
			continue
		}
		if !closed {
			continue
		}

		select {
		case out <- candle:
		case <-ctx.Done():
			return nil
		}
	}
}

// streamEnvelope is the combined-stream wrapper around each event.
type streamEnvelope struct {
	Stream string `json:"stream"`
	Data   struct {
		EventType string `json:"e"`
		Symbol    string `json:"s"`
		Kline     struct {
			OpenTime int64  `json:"t"`
			Interval string `json:"i"`
			Open     string `json:"o"`
			High     string `json:"h"`
			Low      string `json:"l"`
			Close    string `json:"c"`
			Volume   string `json:"v"`
			IsClosed bool   `json:"x"`
		} `json:"k"`
	} `json:"data"`
}

func parseStreamKline(msg []byte) (model.Candle, bool, error) {
	var env streamEnvelope
	if err := json.Unmarshal(msg, &env); err != nil {
		return model.Candle{}, false, err
	}
	if env.Data.EventType != "kline" {
		return model.Candle{}, false, fmt.Errorf("unexpected event type %q", env.Data.EventType)
	}
	k := env.Data.Kline

	var c model.Candle
	var err error
	if c.Open, err = parseDecimal(k.Open); err != nil {
		return model.Candle{}, false, fmt.Errorf("open: %w", err)
	}
	if c.High, err = parseDecimal(k.High); err != nil {
		return model.Candle{}, false, fmt.Errorf("high: %w", err)
	}
	if c.Low, err = parseDecimal(k.Low); err != nil {
		return model.Candle{}, false, fmt.Errorf("low: %w", err)
	}
	if c.Close, err = parseDecimal(k.Close); err != nil {
		return model.Candle{}, false, fmt.Errorf("close: %w", err)
	}
	if c.Volume, err = parseDecimal(k.Volume); err != nil {
		return model.Candle{}, false, fmt.Errorf("volume: %w", err)
	}
	c.Symbol = env.Data.Symbol
	c.Timeframe = k.Interval
	c.TS = time.UnixMilli(k.OpenTime).UTC()
	return c, k.IsClosed, nil
}

func parseDecimal(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}
