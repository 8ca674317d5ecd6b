package marketdata

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	domain "main/internal/domain/entity/marketdata"
	"main/internal/domain/interfaces"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const latestPriceWindow = 5 * time.Minute

type Repository struct {
	pool *pgxpool.Pool
}

var _ interfaces.MarketDataRepository = (*Repository)(nil)

func NewRepository(ctx context.Context, dsn string) (*Repository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pgx config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	return &Repository{pool: pool}, nil
}

func (r *Repository) Close() {
	if r == nil || r.pool == nil {
		return
	}
	r.pool.Close()
}

// Schema

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS tickers (
		ticker_id   UUID PRIMARY KEY,
		symbol      TEXT NOT NULL,
		best_bid    DOUBLE PRECISION NOT NULL,
		best_ask    DOUBLE PRECISION NOT NULL,
		last_price  DOUBLE PRECISION NOT NULL,
		spread      DOUBLE PRECISION NOT NULL,
		volume_24h  DOUBLE PRECISION NOT NULL,
		observed_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tickers_symbol_observed
		ON tickers (symbol, observed_at DESC)`,
	`CREATE TABLE IF NOT EXISTS trades (
		trade_id      UUID PRIMARY KEY,
		symbol        TEXT NOT NULL,
		price         DOUBLE PRECISION NOT NULL,
		size          DOUBLE PRECISION NOT NULL,
		side          TEXT NOT NULL,
		feed_trade_id BIGINT NOT NULL,
		executed_at   TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_trades_executed
		ON trades (executed_at)`,
	`CREATE INDEX IF NOT EXISTS idx_trades_symbol_executed
		ON trades (symbol, executed_at DESC)`,
	`CREATE TABLE IF NOT EXISTS candles (
		candle_id    UUID PRIMARY KEY,
		symbol       TEXT NOT NULL,
		bucket_start TIMESTAMPTZ NOT NULL,
		open         DOUBLE PRECISION NOT NULL,
		high         DOUBLE PRECISION NOT NULL,
		low          DOUBLE PRECISION NOT NULL,
		close        DOUBLE PRECISION NOT NULL,
		volume       DOUBLE PRECISION NOT NULL,
		sample_count BIGINT NOT NULL,
		UNIQUE (symbol, bucket_start)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_candles_bucket
		ON candles (bucket_start)`,
	`CREATE TABLE IF NOT EXISTS spot_prices (
		spot_id    UUID PRIMARY KEY,
		base       TEXT NOT NULL,
		currency   TEXT NOT NULL,
		amount     DOUBLE PRECISION NOT NULL,
		fetched_at TIMESTAMPTZ NOT NULL
	)`,
}

func (r *Repository) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// Tickers

const insertTickerQuery = `
	INSERT INTO tickers (ticker_id, symbol, best_bid, best_ask, last_price, spread, volume_24h, observed_at)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`

func (r *Repository) AddTicker(ctx context.Context, ticker *domain.TickerUpdate) error {
	if ticker == nil {
		return errors.New("nil ticker")
	}
	if ticker.ID == uuid.Nil {
		ticker.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx, insertTickerQuery,
		ticker.ID,
		ticker.Symbol,
		ticker.BestBid,
		ticker.BestAsk,
		ticker.LastPrice,
		ticker.Spread(),
		ticker.Volume24h,
		ticker.ObservedAt,
	)
	return err
}

// Trades

const insertTradeQuery = `
	INSERT INTO trades (trade_id, symbol, price, size, side, feed_trade_id, executed_at)
	VALUES ($1,$2,$3,$4,$5,$6,$7)`

func (r *Repository) AddTrade(ctx context.Context, trade *domain.TradeExecution) error {
	if trade == nil {
		return errors.New("nil trade")
	}
	if trade.ID == uuid.Nil {
		trade.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx, insertTradeQuery,
		trade.ID,
		trade.Symbol,
		trade.Price,
		trade.Size,
		trade.Side,
		trade.TradeID,
		trade.ExecutedAt,
	)
	return err
}

func (r *Repository) TradesSince(ctx context.Context, since time.Time) ([]domain.TradeExecution, error) {
	const query = `
		SELECT trade_id, symbol, price, size, side, feed_trade_id, executed_at
		FROM trades
		WHERE executed_at >= $1
		ORDER BY executed_at ASC, feed_trade_id ASC`
	rows, err := r.pool.Query(ctx, query, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []domain.TradeExecution
	for rows.Next() {
		var trade domain.TradeExecution
		if err := rows.Scan(
			&trade.ID,
			&trade.Symbol,
			&trade.Price,
			&trade.Size,
			&trade.Side,
			&trade.TradeID,
			&trade.ExecutedAt,
		); err != nil {
			return nil, err
		}
		trade.ExecutedAt = trade.ExecutedAt.UTC()
		trades = append(trades, trade)
	}
	return trades, rows.Err()
}

// Candles

func (r *Repository) AddCandles(ctx context.Context, candles []domain.Candle) error {
	if len(candles) == 0 {
		return nil
	}
	rows := make([][]interface{}, 0, len(candles))
	for i := range candles {
		if candles[i].ID == uuid.Nil {
			candles[i].ID = uuid.New()
		}
		rows = append(rows, []interface{}{
			candles[i].ID,
			candles[i].Symbol,
			candles[i].BucketStart,
			candles[i].Open,
			candles[i].High,
			candles[i].Low,
			candles[i].Close,
			candles[i].Volume,
			candles[i].SampleCount,
		})
	}
	_, err := r.pool.CopyFrom(
		ctx,
		pgx.Identifier{"candles"},
		[]string{"candle_id", "symbol", "bucket_start", "open", "high", "low", "close", "volume", "sample_count"},
		pgx.CopyFromRows(rows),
	)
	return err
}

func (r *Repository) CandleBucketsSince(ctx context.Context, since time.Time) (map[domain.BucketKey]struct{}, error) {
	const query = `
		SELECT symbol, bucket_start
		FROM candles
		WHERE bucket_start >= $1`
	rows, err := r.pool.Query(ctx, query, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	buckets := make(map[domain.BucketKey]struct{})
	for rows.Next() {
		var (
			symbol string
			start  time.Time
		)
		if err := rows.Scan(&symbol, &start); err != nil {
			return nil, err
		}
		buckets[domain.BucketKey{Symbol: symbol, Start: start.UTC()}] = struct{}{}
	}
	return buckets, rows.Err()
}

func (r *Repository) RecentCandles(ctx context.Context, symbol string, limit int) ([]domain.Candle, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be positive")
	}
	const query = `
		SELECT candle_id, symbol, bucket_start, open, high, low, close, volume, sample_count
		FROM candles
		WHERE symbol = $1
		ORDER BY bucket_start DESC
		LIMIT $2`
	rows, err := r.pool.Query(ctx, query, symbol, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candles []domain.Candle
	for rows.Next() {
		var candle domain.Candle
		if err := rows.Scan(
			&candle.ID,
			&candle.Symbol,
			&candle.BucketStart,
			&candle.Open,
			&candle.High,
			&candle.Low,
			&candle.Close,
			&candle.Volume,
			&candle.SampleCount,
		); err != nil {
			return nil, err
		}
		candle.BucketStart = candle.BucketStart.UTC()
		candles = append(candles, candle)
	}
	return candles, rows.Err()
}

// Spot prices

const insertSpotPriceQuery = `
	INSERT INTO spot_prices (spot_id, base, currency, amount, fetched_at)
	VALUES ($1,$2,$3,$4,$5)`

func (r *Repository) AddSpotPrice(ctx context.Context, spot *domain.SpotPrice) error {
	if spot == nil {
		return errors.New("nil spot price")
	}
	if spot.ID == uuid.Nil {
		spot.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx, insertSpotPriceQuery,
		spot.ID,
		spot.Base,
		spot.Currency,
		spot.Amount,
		spot.FetchedAt,
	)
	return err
}

// Queries

func (r *Repository) LatestPrices(ctx context.Context) (map[string]float64, error) {
	const query = `
		SELECT DISTINCT ON (symbol) symbol, last_price
		FROM tickers
		WHERE observed_at > $1
		ORDER BY symbol, observed_at DESC`
	rows, err := r.pool.Query(ctx, query, time.Now().UTC().Add(-latestPriceWindow))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	prices := make(map[string]float64)
	for rows.Next() {
		var (
			symbol string
			price  float64
		)
		if err := rows.Scan(&symbol, &price); err != nil {
			return nil, err
		}
		prices[symbol] = price
	}
	return prices, rows.Err()
}

func (r *Repository) MarketStats(ctx context.Context) ([]domain.MarketStat, error) {
	now := time.Now().UTC()

	current, err := r.currentTickers(ctx, now)
	if err != nil {
		return nil, err
	}
	if len(current) == 0 {
		return nil, nil
	}
	hourAgo, err := r.referencePrices(ctx, now.Add(-65*time.Minute), now.Add(-time.Hour))
	if err != nil {
		return nil, err
	}
	dayAgo, err := r.referencePrices(ctx, now.Add(-1445*time.Minute), now.Add(-24*time.Hour))
	if err != nil {
		return nil, err
	}
	highLow, err := r.dayHighLow(ctx, now.Add(-24*time.Hour))
	if err != nil {
		return nil, err
	}
	tradeCounts, err := r.tradeCounts(ctx, now.Add(-24*time.Hour))
	if err != nil {
		return nil, err
	}

	stats := make([]domain.MarketStat, 0, len(current))
	for _, tick := range current {
		stat := domain.MarketStat{
			Symbol:       tick.symbol,
			CurrentPrice: tick.price,
			Volume24h:    tick.volume,
			High24h:      tick.price,
			Low24h:       tick.price,
			TradeCount:   tradeCounts[tick.symbol],
		}
		if ref, ok := hourAgo[tick.symbol]; ok && ref != 0 {
			stat.Change1h = (tick.price - ref) / ref * 100
		}
		if ref, ok := dayAgo[tick.symbol]; ok && ref != 0 {
			stat.Change24h = (tick.price - ref) / ref * 100
		}
		if hl, ok := highLow[tick.symbol]; ok {
			stat.High24h = hl.high
			stat.Low24h = hl.low
		}
		stats = append(stats, stat)
	}
	// Most active symbols first.
	sort.Slice(stats, func(i, j int) bool {
		return stats[i].Volume24h > stats[j].Volume24h
	})
	return stats, nil
}

type currentTicker struct {
	symbol string
	price  float64
	volume float64
}

func (r *Repository) currentTickers(ctx context.Context, now time.Time) ([]currentTicker, error) {
	const query = `
		SELECT DISTINCT ON (symbol) symbol, last_price, volume_24h
		FROM tickers
		WHERE observed_at > $1
		ORDER BY symbol, observed_at DESC`
	rows, err := r.pool.Query(ctx, query, now.Add(-latestPriceWindow))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var current []currentTicker
	for rows.Next() {
		var tick currentTicker
		if err := rows.Scan(&tick.symbol, &tick.price, &tick.volume); err != nil {
			return nil, err
		}
		current = append(current, tick)
	}
	return current, rows.Err()
}

// referencePrices returns the earliest last_price per symbol inside [from, to].
func (r *Repository) referencePrices(ctx context.Context, from, to time.Time) (map[string]float64, error) {
	const query = `
		SELECT DISTINCT ON (symbol) symbol, last_price
		FROM tickers
		WHERE observed_at BETWEEN $1 AND $2
		ORDER BY symbol, observed_at ASC`
	rows, err := r.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	prices := make(map[string]float64)
	for rows.Next() {
		var (
			symbol string
			price  float64
		)
		if err := rows.Scan(&symbol, &price); err != nil {
			return nil, err
		}
		prices[symbol] = price
	}
	return prices, rows.Err()
}

type highLow struct {
	high float64
	low  float64
}

func (r *Repository) dayHighLow(ctx context.Context, since time.Time) (map[string]highLow, error) {
	const query = `
		SELECT symbol, max(last_price), min(last_price)
		FROM tickers
		WHERE observed_at > $1
		GROUP BY symbol`
	rows, err := r.pool.Query(ctx, query, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]highLow)
	for rows.Next() {
		var (
			symbol string
			hl     highLow
		)
		if err := rows.Scan(&symbol, &hl.high, &hl.low); err != nil {
			return nil, err
		}
		result[symbol] = hl
	}
	return result, rows.Err()
}

func (r *Repository) tradeCounts(ctx context.Context, since time.Time) (map[string]int64, error) {
	const query = `
		SELECT symbol, count(*)
		FROM trades
		WHERE executed_at > $1
		GROUP BY symbol`
	rows, err := r.pool.Query(ctx, query, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var (
			symbol string
			count  int64
		)
		if err := rows.Scan(&symbol, &count); err != nil {
			return nil, err
		}
		counts[symbol] = count
	}
	return counts, rows.Err()
}

func (r *Repository) DataPointCount(ctx context.Context) (int64, error) {
	var total int64
	for _, table := range []string{"tickers", "trades", "candles"} {
		var count int64
		if err := r.pool.QueryRow(ctx, "SELECT count(*) FROM "+table).Scan(&count); err != nil {
			return 0, fmt.Errorf("count %s: %w", table, err)
		}
		total += count
	}
	return total, nil
}
