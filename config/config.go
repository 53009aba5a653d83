// Package config loads the bot configuration from environment variables
// on top of a named preset (default, production, aggressive).
package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"signalbotv1/internal/indicator"
	"signalbotv1/internal/risk"
	"signalbotv1/internal/scorer"
)

// Config holds all application configuration.
type Config struct {
	// Markets
	Symbols    []string `json:"symbols"`
	Timeframes []string `json:"timeframes"` // lowest first; last is analyzed, first sets entry levels

	// MarketCaps overrides the exchange client's per-symbol market caps
	// for the min-market-cap check. Symbols not listed keep the client's
	// default.
	MarketCaps map[string]float64 `json:"market_caps,omitempty"`

	// Market data mode: "poll" (REST every PollInterval) or "stream" (WebSocket)
	MarketDataMode string `json:"market_data_mode"`
	PollIntervalS  int    `json:"poll_interval_s"`
	KlineLimit     int    `json:"kline_limit"`

	// Strategy
	Indicator indicator.Params `json:"indicator"`
	Scorer    scorer.Config    `json:"scorer"`

	// Risk
	Risk            risk.Parameters `json:"risk"`
	AccountBalance  float64         `json:"account_balance"`
	DefaultLeverage float64         `json:"default_leverage"`
	SlippageBps     float64         `json:"slippage_bps"`

	// Alerts (credentials are not serialized)
	TelegramToken  string `json:"-"`
	TelegramChatID string `json:"-"`
	WebhookURL     string `json:"webhook_url,omitempty"`

	// Infrastructure
	RedisAddr     string `json:"redis_addr"`
	RedisPassword string `json:"-"`
	SQLitePath    string `json:"sqlite_path"`
	MetricsAddr   string `json:"metrics_addr"`
	APIAddr       string `json:"api_addr"`
	LogFile       string `json:"log_file,omitempty"`
}

// Load builds the config from the SIGNALBOT_PRESET preset overlaid with
// environment variables.
func Load() *Config {
	cfg := Preset(getEnv("SIGNALBOT_PRESET", "default"))

	if v := getEnv("SYMBOLS", ""); v != "" {
		cfg.Symbols = splitList(v)
	}
	if v := getEnv("TIMEFRAMES", ""); v != "" {
		cfg.Timeframes = splitList(v)
	}
	if v := getEnv("MARKET_CAPS", ""); v != "" {
		cfg.MarketCaps = parseMarketCaps(v)
	}
	cfg.MarketDataMode = getEnv("MARKET_DATA_MODE", cfg.MarketDataMode)
	cfg.PollIntervalS = getEnvInt("POLL_INTERVAL_S", cfg.PollIntervalS)
	cfg.KlineLimit = getEnvInt("KLINE_LIMIT", cfg.KlineLimit)

	cfg.Risk.RiskPerTrade = getEnvFloat("RISK_PER_TRADE", cfg.Risk.RiskPerTrade)
	cfg.Risk.MaxPositionSize = getEnvFloat("MAX_POSITION_SIZE", cfg.Risk.MaxPositionSize)
	cfg.Risk.MaxLeverage = getEnvFloat("MAX_LEVERAGE", cfg.Risk.MaxLeverage)
	cfg.Risk.MaxDailyLoss = getEnvFloat("MAX_DAILY_LOSS", cfg.Risk.MaxDailyLoss)
	cfg.Risk.MaxOpenTrades = getEnvInt("MAX_OPEN_TRADES", cfg.Risk.MaxOpenTrades)
	cfg.Risk.MinVolume24h = getEnvFloat("MIN_VOLUME_24H", cfg.Risk.MinVolume24h)
	cfg.Risk.MinMarketCap = getEnvFloat("MIN_MARKET_CAP", cfg.Risk.MinMarketCap)
	cfg.AccountBalance = getEnvFloat("ACCOUNT_BALANCE", cfg.AccountBalance)
	cfg.DefaultLeverage = getEnvFloat("DEFAULT_LEVERAGE", cfg.DefaultLeverage)
	cfg.SlippageBps = getEnvFloat("SLIPPAGE_BPS", cfg.SlippageBps)

	cfg.TelegramToken = getEnv("TELEGRAM_BOT_TOKEN", "")
	cfg.TelegramChatID = getEnv("TELEGRAM_CHAT_ID", "")
	cfg.WebhookURL = getEnv("WEBHOOK_URL", "")

	cfg.RedisAddr = getEnv("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.SQLitePath = getEnv("SQLITE_PATH", cfg.SQLitePath)
	cfg.MetricsAddr = getEnv("METRICS_ADDR", cfg.MetricsAddr)
	cfg.APIAddr = getEnv("API_ADDR", cfg.APIAddr)
	cfg.LogFile = getEnv("LOG_FILE", cfg.LogFile)

	return cfg
}

// Preset returns the named base configuration. Unknown names fall back to
// the default preset with a warning.
func Preset(name string) *Config {
	cfg := &Config{
		Symbols:    []string{"BTCUSDT", "ETHUSDT", "BNBUSDT", "SOLUSDT", "ADAUSDT"},
		Timeframes: []string{"1h", "4h", "1d"},

		MarketDataMode: "poll",
		PollIntervalS:  60,
		KlineLimit:     100,

		Indicator: indicator.DefaultParams(),
		Scorer:    scorer.DefaultConfig(),

		Risk:            risk.DefaultParameters(),
		AccountBalance:  10000,
		DefaultLeverage: 15,
		SlippageBps:     10, // 0.1%

		RedisAddr:   "localhost:6379",
		SQLitePath:  "data/signals.db",
		MetricsAddr: ":9090",
		APIAddr:     ":8080",
	}

	switch strings.ToLower(name) {
	case "", "default":

	case "production":
		cfg.Risk.RiskPerTrade = 0.01
		cfg.Risk.MaxLeverage = 15
		cfg.Risk.MaxDailyLoss = 0.03
		cfg.Risk.MaxOpenTrades = 2
		cfg.Risk.MinVolume24h = 5_000_000
		cfg.Risk.MinMarketCap = 500_000_000
		cfg.DefaultLeverage = 10

	case "aggressive":
		cfg.Risk.RiskPerTrade = 0.03
		cfg.Risk.MaxLeverage = 25
		cfg.Risk.MaxDailyLoss = 0.07
		cfg.Risk.MaxOpenTrades = 4
		cfg.Risk.MinVolume24h = 500_000
		cfg.Risk.MinMarketCap = 50_000_000
		cfg.DefaultLeverage = 20

	default:
		log.Printf("[config] unknown preset %q, using default", name)
	}

	return cfg
}

// AnalysisTimeframe returns the highest configured timeframe (trend is
// confirmed on it). EntryTimeframe returns the lowest (entry levels come
// from it).
func (c *Config) AnalysisTimeframe() string {
	if len(c.Timeframes) == 0 {
		return "4h"
	}
	return c.Timeframes[len(c.Timeframes)-1]
}

func (c *Config) EntryTimeframe() string {
	if len(c.Timeframes) == 0 {
		return "1h"
	}
	return c.Timeframes[0]
}

// parseMarketCaps parses "SYMBOL:CAP,SYMBOL:CAP" pairs, e.g.
// "BTCUSDT:8e11,ETHUSDT:4.5e11". Invalid entries are logged and skipped.
func parseMarketCaps(s string) map[string]float64 {
	caps := make(map[string]float64)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		sym, val, ok := strings.Cut(pair, ":")
		if !ok {
			log.Printf("[config] invalid MARKET_CAPS entry %q, skipping", pair)
			continue
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil || f <= 0 {
			log.Printf("[config] invalid MARKET_CAPS entry %q, skipping", pair)
			continue
		}
		caps[strings.ToUpper(strings.TrimSpace(sym))] = f
	}
	if len(caps) == 0 {
		return nil
	}
	return caps
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %g", key, v, fallback)
		return fallback
	}
	return f
}
