package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"signalbotv1/config"
	"signalbotv1/internal/api"
	"signalbotv1/internal/execution"
	"signalbotv1/internal/logger"
	"signalbotv1/internal/marketdata/binance"
	"signalbotv1/internal/metrics"
	"signalbotv1/internal/model"
	"signalbotv1/internal/notification"
	"signalbotv1/internal/risk"
	"signalbotv1/internal/schedule"
	"signalbotv1/internal/signalbus"
	redisstore "signalbotv1/internal/store/redis"
	sqlitestore "signalbotv1/internal/store/sqlite"
	"signalbotv1/internal/strategy"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	log.Println("[signalbot] starting...")

	// ---- Load config (preset + env overrides) ----
	cfg := config.Load()

	if cfg.LogFile != "" {
		logger.InitWithFile("signalbot", slog.LevelInfo, cfg.LogFile)
	} else {
		logger.Init("signalbot", slog.LevelInfo)
	}

	log.Printf("[signalbot] markets: %v, timeframes: %v (analysis=%s entry=%s)",
		cfg.Symbols, cfg.Timeframes, cfg.AnalysisTimeframe(), cfg.EntryTimeframe())

	// ---- Setup metrics & health ----
	prom := metrics.NewMetrics()
	health := metrics.NewHealthStatus()
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)
	metricsSrv.Start()

	// ---- Setup context for graceful shutdown ----
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	// ---- Signal journal (SQLite, off hot path) ----
	if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
		os.MkdirAll(dir, 0o755)
	}
	journal, err := sqlitestore.NewJournal(cfg.SQLitePath)
	if err != nil {
		log.Fatalf("[signalbot] sqlite init failed: %v", err)
	}
	defer journal.Close()
	log.Println("[signalbot] signal journal ready")

	// ---- Redis cache (optional — the bot keeps running without it) ----
	var cache *redisstore.Cache
	cache, err = redisstore.NewCache(redisstore.CacheConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		OnBreakerChange: func(to redisstore.State) {
			prom.RedisBreakerState.Set(breakerStateValue(to))
		},
	})
	if err != nil {
		log.Printf("[signalbot] WARNING: redis init failed: %v (continuing without cache)", err)
		cache = nil
	}

	// ---- Risk manager, restored from cache when same UTC day ----
	rm := risk.NewManager(cfg.AccountBalance, cfg.Risk)
	if cache != nil {
		restoreRiskState(ctx, cache, rm)
	}

	// ---- Periodic liveness checks ----
	if cache != nil {
		health.StartLivenessChecker(ctx, cache.Client(), journal.DB(), 10*time.Second)
	} else {
		health.StartLivenessChecker(ctx, nil, journal.DB(), 10*time.Second)
	}

	// ---- Exchange client ----
	client := binance.NewClient(binance.WithMarketCaps(cfg.MarketCaps))

	// ---- Strategy engine ----
	engineCfg := strategy.DefaultConfig()
	engineCfg.Params = cfg.Indicator
	engineCfg.Scorer = cfg.Scorer
	engineCfg.AnalysisTimeframe = cfg.AnalysisTimeframe()
	engineCfg.EntryTimeframe = cfg.EntryTimeframe()
	if cfg.KlineLimit > engineCfg.WindowSize {
		engineCfg.WindowSize = cfg.KlineLimit
	}
	engine := strategy.NewEngine(engineCfg, 256)
	engine.OnDrop = func(sig model.TradeSignal) {
		prom.SignalDrops.Inc()
	}

	// ---- Count every emitted signal before fan-out ----
	meteredSignals := make(chan model.TradeSignal, 64)
	go func() {
		defer close(meteredSignals)
		for {
			select {
			case <-ctx.Done():
				return
			case sig, ok := <-engine.Signals():
				if !ok {
					return
				}
				prom.SignalsTotal.WithLabelValues(sig.Symbol, string(sig.Direction)).Inc()
				select {
				case meteredSignals <- sig:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	// ---- Fan-out signals to executor / notifier / cache ----
	fanout := signalbus.New(256)
	fanout.OnDrop = func(subscriberIdx int, sig model.TradeSignal) {
		prom.FanoutDropsTotal.WithLabelValues(strconv.Itoa(subscriberIdx)).Inc()
	}

	execCh := fanout.Subscribe()
	notifyCh := fanout.Subscribe()
	var cacheCh <-chan model.TradeSignal
	if cache != nil {
		cacheCh = fanout.Subscribe()
	}
	go fanout.Run(ctx, meteredSignals)

	// ---- Paper executor ----
	executor := execution.NewPaperExecutor(client, rm, journal, 256, cfg.SlippageBps, cfg.DefaultLeverage)
	go executor.Run(ctx, execCh)
	go consumeResults(ctx, executor, prom)

	// ---- Notifier ----
	notifier := buildNotifier(cfg)
	go notification.Run(ctx, notifier, notifyCh,
		func(sig model.TradeSignal) notification.Alert {
			row, _ := engine.EntryRow(sig.Symbol)
			return notification.SignalAlert(sig, row, cfg.Risk)
		},
		func(error) { prom.NotifyErrors.Inc() },
	)

	// ---- Redis signal cache ----
	if cache != nil {
		go cache.Run(ctx, cacheCh)
	}

	// ---- Daily risk reset at 00:00 UTC ----
	go schedule.RunDailyReset(ctx, func() {
		rm.ResetDailyStats()
		if cache != nil {
			saveRiskState(ctx, cache, rm)
		}
	})

	// ---- Periodic risk gauges + state persistence ----
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				st := rm.GetStatus()
				prom.OpenTrades.Set(float64(st.OpenTrades))
				prom.DailyPnL.Set(st.DailyPnL)
				if cache != nil {
					saveRiskState(ctx, cache, rm)
				}
			}
		}
	}()

	// ---- REST API ----
	apiSrv := &http.Server{
		Addr:    cfg.APIAddr,
		Handler: api.NewRouter(api.Deps{Journal: journal, Risk: rm, Config: cfg}),
	}
	go func() {
		log.Printf("[signalbot] api listening on %s", cfg.APIAddr)
		if err := apiSrv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[signalbot] api server error: %v", err)
		}
	}()

	// ---- Market data: poll (REST) or stream (WebSocket) ----
	switch cfg.MarketDataMode {
	case "stream":
		runStreamMode(ctx, cfg, client, engine, prom, health)
	default:
		go pollLoop(ctx, cfg, client, engine, prom, health)
	}

	pad := 32 - len(cfg.MarketDataMode)
	if pad < 1 {
		pad = 1
	}
	log.Println("[signalbot] ╔══════════════════════════════════════════════════════════╗")
	log.Printf("[signalbot] ║  Perp Signal Bot — %s mode%s║", cfg.MarketDataMode, strings.Repeat(" ", pad))
	log.Println("[signalbot] ║                                                          ║")
	log.Println("[signalbot] ║  [Binance] → [Indicators] → [Scorer] → [Risk] → [Paper]  ║")
	log.Println("[signalbot] ║  Alerts: Telegram/webhook · Cache: Redis · Audit: SQLite ║")
	log.Println("[signalbot] ╚══════════════════════════════════════════════════════════╝")
	log.Printf("[signalbot] %s", schedule.StatusString(time.Now()))

	// ---- Wait for shutdown signal ----
	<-stopCh
	log.Println("[signalbot] shutdown signal received, cleaning up...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	apiSrv.Shutdown(shutdownCtx)
	metricsSrv.Stop(shutdownCtx)

	if cache != nil {
		saveRiskState(shutdownCtx, cache, rm)
		cache.Close()
	}

	log.Println("[signalbot] shutdown complete.")
}

// pollLoop fetches klines for every market each interval and runs a full
// analysis cycle. The first cycle fires immediately.
func pollLoop(ctx context.Context, cfg *config.Config, client *binance.Client, engine *strategy.Engine, prom *metrics.Metrics, health *metrics.HealthStatus) {
	interval := time.Duration(cfg.PollIntervalS) * time.Second
	log.Printf("[signalbot] polling every %s", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	pollOnce(ctx, cfg, client, engine, prom, health)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pollOnce(ctx, cfg, client, engine, prom, health)
		}
	}
}

func pollOnce(ctx context.Context, cfg *config.Config, client *binance.Client, engine *strategy.Engine, prom *metrics.Metrics, health *metrics.HealthStatus) {
	for _, symbol := range cfg.Symbols {
		analysis, err := fetchSeries(ctx, client, symbol, cfg.AnalysisTimeframe(), cfg.KlineLimit, prom)
		if err != nil {
			log.Printf("[signalbot] %s %s klines: %v", symbol, cfg.AnalysisTimeframe(), err)
			health.SetExchangeOK(false)
			continue
		}

		entry := analysis
		if cfg.EntryTimeframe() != cfg.AnalysisTimeframe() {
			entry, err = fetchSeries(ctx, client, symbol, cfg.EntryTimeframe(), cfg.KlineLimit, prom)
			if err != nil {
				log.Printf("[signalbot] %s %s klines: %v", symbol, cfg.EntryTimeframe(), err)
				health.SetExchangeOK(false)
				continue
			}
		}

		health.SetExchangeOK(true)
		if last, ok := analysis.Last(); ok {
			health.SetLastCandleTime(last.TS)
		}

		start := time.Now()
		sig, emitted, err := engine.AnalyzeAndEmit(analysis, entry)
		prom.IndicatorComputeDur.Observe(time.Since(start).Seconds())
		prom.AnalysisCycles.Inc()
		if err != nil {
			log.Printf("[signalbot] %s analysis: %v", symbol, err)
			continue
		}
		if !emitted && sig.Direction != model.Neutral {
			prom.SignalsSuppressed.Inc()
		}
	}
}

func fetchSeries(ctx context.Context, client *binance.Client, symbol, timeframe string, limit int, prom *metrics.Metrics) (*model.Series, error) {
	start := time.Now()
	s, err := client.Klines(ctx, symbol, timeframe, limit)
	prom.KlineFetchDur.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	prom.CandlesFetched.Add(float64(s.Len()))
	return s, nil
}

// runStreamMode backfills the engine windows over REST, then feeds closed
// candles from the combined WebSocket stream.
func runStreamMode(ctx context.Context, cfg *config.Config, client *binance.Client, engine *strategy.Engine, prom *metrics.Metrics, health *metrics.HealthStatus) {
	tfs := []string{cfg.EntryTimeframe()}
	if cfg.AnalysisTimeframe() != cfg.EntryTimeframe() {
		tfs = append(tfs, cfg.AnalysisTimeframe())
	}

	for _, symbol := range cfg.Symbols {
		for _, tf := range tfs {
			s, err := fetchSeries(ctx, client, symbol, tf, cfg.KlineLimit, prom)
			if err != nil {
				log.Printf("[signalbot] backfill %s %s: %v", symbol, tf, err)
				continue
			}
			for _, c := range s.Candles {
				engine.OnCandle(c)
			}
			log.Printf("[signalbot] backfilled %s %s: %d bars", symbol, tf, s.Len())
		}
	}

	stream := binance.NewStream(cfg.Symbols, tfs)
	stream.OnReconnect = func() {
		prom.WSReconnects.Inc()
		health.SetExchangeOK(true)
	}

	wsCandleCh := make(chan model.Candle, 1024)
	candleCh := make(chan model.Candle, 1024)
	go stream.Run(ctx, wsCandleCh)

	// Meter candles and reject non-advancing bars before they reach the
	// engine windows.
	go func() {
		defer close(candleCh)
		lastTS := make(map[string]time.Time)
		for {
			select {
			case <-ctx.Done():
				return
			case c, ok := <-wsCandleCh:
				if !ok {
					return
				}
				key := c.Key()
				if prev, seen := lastTS[key]; seen && !c.TS.After(prev) {
					prom.StaleCandles.Inc()
					continue
				}
				lastTS[key] = c.TS
				prom.CandlesFetched.Inc()
				health.SetLastCandleTime(c.TS)
				select {
				case candleCh <- c:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	go engine.Run(ctx, candleCh)
}

// consumeResults drains order results into the validation metrics.
func consumeResults(ctx context.Context, executor *execution.PaperExecutor, prom *metrics.Metrics) {
	for {
		select {
		case <-ctx.Done():
			return
		case res, ok := <-executor.Results():
			if !ok {
				return
			}
			switch res.Status {
			case execution.StatusFilled:
				prom.TradesValidated.WithLabelValues("accepted").Inc()
			case execution.StatusRejected:
				prom.TradesValidated.WithLabelValues("rejected").Inc()
				prom.RejectionsByRule.WithLabelValues(ruleForReason(res.Reason)).Inc()
			}
		}
	}
}

// breakerStateValue maps a breaker state to its gauge encoding
// (0=closed, 1=open, 2=half-open).
func breakerStateValue(s redisstore.State) float64 {
	switch s {
	case redisstore.StateOpen:
		return 1
	case redisstore.StateHalfOpen:
		return 2
	default:
		return 0
	}
}

// ruleForReason maps a rejection reason to a bounded metric label. The
// reasons embed live numbers, which must never become label values.
func ruleForReason(reason string) string {
	switch {
	case strings.HasPrefix(reason, "leverage"):
		return "max_leverage"
	case strings.HasPrefix(reason, "position size"):
		return "max_position_size"
	case strings.HasPrefix(reason, "maximum open trades"):
		return "max_open_trades"
	case strings.HasPrefix(reason, "daily loss"):
		return "max_daily_loss"
	case strings.HasPrefix(reason, "24h volume"):
		return "min_volume_24h"
	case strings.HasPrefix(reason, "market cap"):
		return "min_market_cap"
	default:
		return "other"
	}
}

// buildNotifier assembles the alert backends from config. With no
// configured channel, alerts go to the log.
func buildNotifier(cfg *config.Config) notification.Notifier {
	var backends []notification.Notifier
	if cfg.TelegramToken != "" && cfg.TelegramChatID != "" {
		backends = append(backends, notification.NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramChatID))
		log.Println("[signalbot] telegram alerts enabled")
	}
	if cfg.WebhookURL != "" {
		backends = append(backends, notification.NewWebhookNotifier(cfg.WebhookURL))
		log.Println("[signalbot] webhook alerts enabled")
	}
	if len(backends) == 0 {
		return notification.NewLogNotifier()
	}
	return notification.NewMultiNotifier(backends...)
}

// restoreRiskState reloads the daily counters from Redis when the saved
// state is from the same UTC day; a stale state is discarded because the
// daily reset would have zeroed it anyway.
func restoreRiskState(ctx context.Context, cache *redisstore.Cache, rm *risk.Manager) {
	st, err := cache.LoadRiskState(ctx)
	if err != nil {
		log.Printf("[signalbot] load risk state: %v", err)
		return
	}
	if st == nil {
		return
	}
	if !schedule.SameUTCDay(st.SavedAt, time.Now()) {
		log.Printf("[signalbot] discarding risk state from %s (previous UTC day)", st.SavedAt.Format(time.RFC3339))
		return
	}

	rm.SetAccountBalance(st.AccountBalance)
	rm.UpdateDailyPnL(st.DailyPnL)
	for i := 0; i < st.OpenTrades; i++ {
		rm.IncrementOpenTrades()
	}
	log.Printf("[signalbot] restored risk state: pnl=%.2f open=%d (saved %s)",
		st.DailyPnL, st.OpenTrades, st.SavedAt.Format(time.RFC3339))
}

func saveRiskState(ctx context.Context, cache *redisstore.Cache, rm *risk.Manager) {
	st := rm.GetStatus()
	err := cache.SaveRiskState(ctx, redisstore.RiskState{
		AccountBalance: st.AccountBalance,
		DailyPnL:       st.DailyPnL,
		OpenTrades:     st.OpenTrades,
	})
	if err != nil && err != redisstore.ErrCircuitOpen {
		log.Printf("[signalbot] save risk state: %v", err)
	}
}
