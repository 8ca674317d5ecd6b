package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnv             = "development"
	defaultHTTPHost        = "0.0.0.0"
	defaultHTTPPort        = 8080
	defaultRedisAddr       = "localhost:6379"
	defaultRedisDB         = 0
	defaultCacheTTLSeconds = 5

	defaultFeedURL               = "wss://ws-feed.exchange.coinbase.com"
	defaultReconnectDelaySeconds = 5
	defaultSweepIntervalSeconds  = 30
	defaultLookbackHours         = 24
	defaultSpotBaseURL           = "https://api.coinbase.com/v2"
	defaultSpotIntervalSeconds   = 10
	defaultSubscriberBuffer      = 64

	defaultTickersExchange = "marketdata.tickers"
	defaultTradesExchange  = "marketdata.trades"
)

var defaultSymbols = []string{
	"BTC-USD", "ETH-USD", "SOL-USD", "LINK-USD",
	"MATIC-USD", "AVAX-USD", "DOT-USD", "ADA-USD",
}

// Config keeps the runtime configuration for the service.
type Config struct {
	Env        string
	HTTP       HTTPConfig
	Postgres   PostgresConfig
	Redis      RedisConfig
	Cache      CacheConfig
	Feed       FeedConfig
	Aggregator AggregatorConfig
	Spot       SpotConfig
	Hub        HubConfig
	Rabbit     RabbitConfig
}

// HTTPConfig holds HTTP server related settings.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr renders the listen address in host:port form.
func (h HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", h.Host, h.Port)
}

// PostgresConfig stores database connection parameters.
type PostgresConfig struct {
	DSN string
}

// RedisConfig stores Redis connection parameters.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// CacheConfig stores cache behavior.
type CacheConfig struct {
	TTLSeconds int
}

// TTL renders the configured cache duration.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// FeedConfig holds the upstream websocket feed settings.
type FeedConfig struct {
	URL            string
	Symbols        []string
	ReconnectDelay time.Duration
}

// AggregatorConfig holds the candle sweep settings.
type AggregatorConfig struct {
	SweepInterval time.Duration
	Lookback      time.Duration
}

// SpotConfig holds the REST spot price poller settings.
type SpotConfig struct {
	Enabled  bool
	BaseURL  string
	Interval time.Duration
}

// HubConfig holds fanout tuning.
type HubConfig struct {
	SubscriberBuffer int
}

// RabbitConfig holds the optional RabbitMQ relay settings. The relay is
// disabled when URL is empty.
type RabbitConfig struct {
	URL             string
	TickersExchange string
	TradesExchange  string
}

// Load builds Config from environment variables.
func Load() (*Config, error) {
	host := getString("HTTP_HOST", defaultHTTPHost)
	port, err := getInt("HTTP_PORT", defaultHTTPPort)
	if err != nil {
		return nil, fmt.Errorf("parse HTTP_PORT: %w", err)
	}

	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		return nil, errors.New("DATABASE_DSN is required")
	}

	redisDB, err := getInt("REDIS_DB", defaultRedisDB)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_DB: %w", err)
	}

	cacheTTL, err := getInt("CACHE_TTL_SECONDS", defaultCacheTTLSeconds)
	if err != nil {
		return nil, fmt.Errorf("parse CACHE_TTL_SECONDS: %w", err)
	}

	symbols, err := getSymbols("SYMBOLS")
	if err != nil {
		return nil, err
	}

	reconnectSeconds, err := getInt("FEED_RECONNECT_DELAY_SECONDS", defaultReconnectDelaySeconds)
	if err != nil {
		return nil, fmt.Errorf("parse FEED_RECONNECT_DELAY_SECONDS: %w", err)
	}

	sweepSeconds, err := getInt("CANDLE_SWEEP_INTERVAL_SECONDS", defaultSweepIntervalSeconds)
	if err != nil {
		return nil, fmt.Errorf("parse CANDLE_SWEEP_INTERVAL_SECONDS: %w", err)
	}

	lookbackHours, err := getInt("CANDLE_LOOKBACK_HOURS", defaultLookbackHours)
	if err != nil {
		return nil, fmt.Errorf("parse CANDLE_LOOKBACK_HOURS: %w", err)
	}

	spotSeconds, err := getInt("SPOT_POLL_INTERVAL_SECONDS", defaultSpotIntervalSeconds)
	if err != nil {
		return nil, fmt.Errorf("parse SPOT_POLL_INTERVAL_SECONDS: %w", err)
	}

	spotEnabled, err := getBool("SPOT_POLL_ENABLED", true)
	if err != nil {
		return nil, fmt.Errorf("parse SPOT_POLL_ENABLED: %w", err)
	}

	subscriberBuffer, err := getInt("HUB_SUBSCRIBER_BUFFER", defaultSubscriberBuffer)
	if err != nil {
		return nil, fmt.Errorf("parse HUB_SUBSCRIBER_BUFFER: %w", err)
	}

	return &Config{
		Env:  getString("APP_ENV", defaultEnv),
		HTTP: HTTPConfig{Host: host, Port: port},
		Postgres: PostgresConfig{
			DSN: dsn,
		},
		Redis: RedisConfig{
			Addr:     getString("REDIS_ADDR", defaultRedisAddr),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Cache: CacheConfig{
			TTLSeconds: cacheTTL,
		},
		Feed: FeedConfig{
			URL:            getString("FEED_WS_URL", defaultFeedURL),
			Symbols:        symbols,
			ReconnectDelay: time.Duration(reconnectSeconds) * time.Second,
		},
		Aggregator: AggregatorConfig{
			SweepInterval: time.Duration(sweepSeconds) * time.Second,
			Lookback:      time.Duration(lookbackHours) * time.Hour,
		},
		Spot: SpotConfig{
			Enabled:  spotEnabled,
			BaseURL:  getString("SPOT_API_BASE_URL", defaultSpotBaseURL),
			Interval: time.Duration(spotSeconds) * time.Second,
		},
		Hub: HubConfig{
			SubscriberBuffer: subscriberBuffer,
		},
		Rabbit: RabbitConfig{
			URL:             os.Getenv("RABBITMQ_URL"),
			TickersExchange: getString("RABBITMQ_TICKERS_EXCHANGE", defaultTickersExchange),
			TradesExchange:  getString("RABBITMQ_TRADES_EXCHANGE", defaultTradesExchange),
		},
	}, nil
}

func getString(key, fallback string) string {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	return value
}

func getInt(key string, fallback int) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback, nil
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("convert %s value %q to int: %w", key, value, err)
	}
	return parsed, nil
}

func getBool(key string, fallback bool) (bool, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback, nil
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("convert %s value %q to bool: %w", key, value, err)
	}
	return parsed, nil
}

func getSymbols(key string) ([]string, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return append([]string(nil), defaultSymbols...), nil
	}
	var symbols []string
	for _, part := range strings.Split(raw, ",") {
		symbol := strings.ToUpper(strings.TrimSpace(part))
		if symbol == "" {
			continue
		}
		if !strings.Contains(symbol, "-") {
			return nil, fmt.Errorf("symbol %q must be in BASE-QUOTE form", symbol)
		}
		symbols = append(symbols, symbol)
	}
	if len(symbols) == 0 {
		return nil, fmt.Errorf("%s contains no usable symbols", key)
	}
	return symbols, nil
}
