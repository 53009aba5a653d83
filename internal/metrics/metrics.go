package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the signal bot.
type Metrics struct {
	// Market data
	CandlesFetched prometheus.Counter
	KlineFetchDur  prometheus.Histogram
	WSReconnects   prometheus.Counter
	StaleCandles   prometheus.Counter

	// Analysis
	AnalysisCycles      prometheus.Counter
	IndicatorComputeDur prometheus.Histogram
	SignalsTotal        *prometheus.CounterVec // labels: symbol, direction
	SignalsSuppressed   prometheus.Counter
	SignalDrops         prometheus.Counter

	// Risk & execution
	TradesValidated  *prometheus.CounterVec // labels: outcome=accepted|rejected
	RejectionsByRule *prometheus.CounterVec // labels: rule
	OpenTrades       prometheus.Gauge
	DailyPnL         prometheus.Gauge

	// Downstream
	NotifyErrors      prometheus.Counter
	RedisBreakerState prometheus.Gauge       // 0=closed, 1=open, 2=half-open
	FanoutDropsTotal  *prometheus.CounterVec // labels: subscriber
}

// NewMetrics registers and returns all Prometheus metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		CandlesFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signalbot_candles_fetched_total",
			Help: "Total candles received from the exchange (REST and WebSocket)",
		}),
		KlineFetchDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "signalbot_kline_fetch_duration_seconds",
			Help:    "REST kline request latency",
			Buckets: prometheus.DefBuckets,
		}),
		WSReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signalbot_ws_reconnects_total",
			Help: "Total WebSocket reconnection attempts",
		}),
		StaleCandles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signalbot_stale_candles_total",
			Help: "Candles rejected for non-advancing timestamps",
		}),

		AnalysisCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signalbot_analysis_cycles_total",
			Help: "Completed market analysis cycles",
		}),
		IndicatorComputeDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "signalbot_indicator_compute_duration_seconds",
			Help:    "Indicator frame compute latency per series",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
		SignalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalbot_signals_total",
			Help: "Trade signals emitted (by symbol and direction)",
		}, []string{"symbol", "direction"}),
		SignalsSuppressed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signalbot_signals_suppressed_total",
			Help: "Signals suppressed by duplicate or confidence filtering",
		}),
		SignalDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signalbot_signal_drops_total",
			Help: "Signals dropped because the signal channel was full",
		}),

		TradesValidated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalbot_trades_validated_total",
			Help: "Trade validations by outcome",
		}, []string{"outcome"}),
		RejectionsByRule: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalbot_rejections_by_rule_total",
			Help: "Trade rejections by the limit rule that fired",
		}, []string{"rule"}),
		OpenTrades: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signalbot_open_trades",
			Help: "Currently open paper trades",
		}),
		DailyPnL: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signalbot_daily_pnl",
			Help: "Accumulated realized P&L for the current UTC day",
		}),

		NotifyErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signalbot_notify_errors_total",
			Help: "Failed alert deliveries",
		}),
		RedisBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signalbot_redis_circuit_breaker_state",
			Help: "Redis circuit breaker state (0=closed, 1=open, 2=half-open)",
		}),
		FanoutDropsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalbot_fanout_drops_total",
			Help: "Signals dropped by the fan-out bus per subscriber",
		}, []string{"subscriber"}),
	}

	prometheus.MustRegister(
		m.CandlesFetched,
		m.KlineFetchDur,
		m.WSReconnects,
		m.StaleCandles,
		m.AnalysisCycles,
		m.IndicatorComputeDur,
		m.SignalsTotal,
		m.SignalsSuppressed,
		m.SignalDrops,
		m.TradesValidated,
		m.RejectionsByRule,
		m.OpenTrades,
		m.DailyPnL,
		m.NotifyErrors,
		m.RedisBreakerState,
		m.FanoutDropsTotal,
	)

	return m
}

// HealthStatus represents the bot health.
type HealthStatus struct {
	mu sync.RWMutex

	ExchangeOK     bool      `json:"exchange_ok"`
	LastCandleTime time.Time `json:"last_candle_time"`
	RedisConnected bool      `json:"redis_connected"`
	SQLiteOK       bool      `json:"sqlite_ok"`

	RedisLatencyMs  float64   `json:"redis_latency_ms"`
	SQLiteLatencyMs float64   `json:"sqlite_latency_ms"`
	LastCheckAt     time.Time `json:"last_check_at"`
	StartedAt       time.Time `json:"started_at"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{
		StartedAt: time.Now(),
	}
}

func (h *HealthStatus) SetExchangeOK(v bool) {
	h.mu.Lock()
	h.ExchangeOK = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetLastCandleTime(t time.Time) {
	h.mu.Lock()
	h.LastCandleTime = t
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckSQLite pings the journal database and records latency + health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.SQLiteOK = err == nil
	h.SQLiteLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, sqlDB *sql.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				if rdb != nil {
					h.CheckRedis(probeCtx, rdb)
				}
				if sqlDB != nil {
					h.CheckSQLite(probeCtx, sqlDB)
				}
				cancel()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overallStatus := "healthy"
	httpCode := http.StatusOK

	if !h.ExchangeOK || !h.RedisConnected || !h.SQLiteOK {
		overallStatus = "degraded"
		httpCode = http.StatusServiceUnavailable
	}
	if !h.ExchangeOK && !h.SQLiteOK {
		overallStatus = "unhealthy"
	}

	candleAge := ""
	if !h.LastCandleTime.IsZero() {
		candleAge = time.Since(h.LastCandleTime).Round(time.Millisecond).String()
	}

	status := struct {
		Status          string  `json:"status"`
		Uptime          string  `json:"uptime"`
		ExchangeOK      bool    `json:"exchange_ok"`
		LastCandleTime  string  `json:"last_candle_time"`
		CandleAge       string  `json:"candle_age"`
		RedisConnected  bool    `json:"redis_connected"`
		RedisLatencyMs  float64 `json:"redis_latency_ms"`
		SQLiteOK        bool    `json:"sqlite_ok"`
		SQLiteLatencyMs float64 `json:"sqlite_latency_ms"`
		LastCheckAt     string  `json:"last_check_at"`
	}{
		Status:          overallStatus,
		Uptime:          time.Since(h.StartedAt).Round(time.Second).String(),
		ExchangeOK:      h.ExchangeOK,
		LastCandleTime:  h.LastCandleTime.Format(time.RFC3339),
		CandleAge:       candleAge,
		RedisConnected:  h.RedisConnected,
		RedisLatencyMs:  h.RedisLatencyMs,
		SQLiteOK:        h.SQLiteOK,
		SQLiteLatencyMs: h.SQLiteLatencyMs,
		LastCheckAt:     h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	health *HealthStatus
	addr   string
	srv    *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		health: health,
		addr:   addr,
		srv: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
