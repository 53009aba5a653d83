// Package redis caches the latest signal per symbol and the risk state so
// dashboards and restarts can pick them up without replaying the journal.
//
// All Redis calls go through a circuit breaker: when the server is down
// the bot keeps scoring and trading on paper, it just stops caching.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"signalbotv1/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

const (
	defaultSignalTTL = 24 * time.Hour
	riskStateKey     = "risk:state"
)

// CacheConfig configures the Redis cache.
type CacheConfig struct {
	Addr     string // e.g. "localhost:6379"
	Password string
	DB       int

	// OnBreakerChange is invoked with the new state on every circuit
	// breaker transition. Optional metrics hook.
	OnBreakerChange func(to State)
}

// Cache writes signals and risk state to Redis.
type Cache struct {
	client  *goredis.Client
	breaker *CircuitBreaker
}

// Client returns the underlying Redis client for health checks.
func (c *Cache) Client() *goredis.Client { return c.client }

// NewCache connects to Redis and pings the server.
func NewCache(cfg CacheConfig) (*Cache, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return &Cache{client: client, breaker: newCacheBreaker(cfg.OnBreakerChange)}, nil
}

// newCacheBreaker builds the breaker guarding all cache calls: 5
// consecutive failures open it, probes resume after 10s. Transitions are
// logged and forwarded to the optional hook.
func newCacheBreaker(onChange func(to State)) *CircuitBreaker {
	breaker := NewCircuitBreaker(5, 10*time.Second)
	breaker.OnStateChange = func(from, to State) {
		log.Printf("[redis] circuit breaker %s -> %s", from, to)
		if onChange != nil {
			onChange(to)
		}
	}
	return breaker
}

// PublishSignal caches the signal under latest:signal:{symbol} and
// publishes it on pub:signal:{symbol} for live subscribers. Both writes
// share one pipeline round trip.
func (c *Cache) PublishSignal(ctx context.Context, sig model.TradeSignal) error {
	data := string(sig.JSON())
	latestKey := "latest:signal:" + sig.Symbol
	pubsubCh := "pub:signal:" + sig.Symbol

	return c.breaker.Execute(func() error {
		pipe := c.client.Pipeline()
		pipe.Set(ctx, latestKey, data, defaultSignalTTL)
		pipe.Publish(ctx, pubsubCh, data)
		_, err := pipe.Exec(ctx)
		return err
	})
}

// LatestSignal reads the cached signal for a symbol. Returns (nil, nil)
// when no signal is cached.
func (c *Cache) LatestSignal(ctx context.Context, symbol string) (*model.TradeSignal, error) {
	var data string
	err := c.breaker.Execute(func() error {
		var err error
		data, err = c.client.Get(ctx, "latest:signal:"+symbol).Result()
		return err
	})
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get latest signal: %w", err)
	}

	var sig model.TradeSignal
	if err := json.Unmarshal([]byte(data), &sig); err != nil {
		return nil, fmt.Errorf("redis unmarshal signal: %w", err)
	}
	return &sig, nil
}

// RiskState is the persisted slice of risk manager state that survives a
// restart within the same trading day.
type RiskState struct {
	AccountBalance float64   `json:"account_balance"`
	DailyPnL       float64   `json:"daily_pnl"`
	OpenTrades     int       `json:"open_trades"`
	SavedAt        time.Time `json:"saved_at"`
}

// SaveRiskState persists the risk state with a 48h TTL.
func (c *Cache) SaveRiskState(ctx context.Context, st RiskState) error {
	st.SavedAt = time.Now().UTC()
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("redis marshal risk state: %w", err)
	}
	return c.breaker.Execute(func() error {
		return c.client.Set(ctx, riskStateKey, data, 48*time.Hour).Err()
	})
}

// LoadRiskState reads the persisted risk state. Returns (nil, nil) when
// none is stored.
func (c *Cache) LoadRiskState(ctx context.Context) (*RiskState, error) {
	var data string
	err := c.breaker.Execute(func() error {
		var err error
		data, err = c.client.Get(ctx, riskStateKey).Result()
		return err
	})
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get risk state: %w", err)
	}

	var st RiskState
	if err := json.Unmarshal([]byte(data), &st); err != nil {
		return nil, fmt.Errorf("redis unmarshal risk state: %w", err)
	}
	return &st, nil
}

// Run consumes signals and caches them. Errors are logged, never fatal —
// the breaker handles a dead Redis. Blocks until ctx is cancelled or
// sigCh is closed.
func (c *Cache) Run(ctx context.Context, sigCh <-chan model.TradeSignal) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-sigCh:
			if !ok {
				return
			}
			if err := c.PublishSignal(ctx, sig); err != nil && err != ErrCircuitOpen {
				log.Printf("[redis] publish signal %s: %v", sig.Symbol, err)
			}
		}
	}
}

// Close closes the Redis client.
func (c *Cache) Close() error {
	return c.client.Close()
}
