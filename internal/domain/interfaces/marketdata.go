package interfaces

import (
	"context"
	"time"

	marketdata "main/internal/domain/entity/marketdata"
)

// MarketDataRepository is the narrow store surface the pipeline consumes.
// Every call may fail; callers treat failures per the recovery policy of
// their loop (drop and log, never crash the process).
type MarketDataRepository interface {
	EnsureSchema(ctx context.Context) error

	AddTicker(ctx context.Context, ticker *marketdata.TickerUpdate) error
	AddTrade(ctx context.Context, trade *marketdata.TradeExecution) error
	AddCandles(ctx context.Context, candles []marketdata.Candle) error
	AddSpotPrice(ctx context.Context, spot *marketdata.SpotPrice) error

	TradesSince(ctx context.Context, since time.Time) ([]marketdata.TradeExecution, error)
	CandleBucketsSince(ctx context.Context, since time.Time) (map[marketdata.BucketKey]struct{}, error)
	RecentCandles(ctx context.Context, symbol string, limit int) ([]marketdata.Candle, error)
	LatestPrices(ctx context.Context) (map[string]float64, error)
	MarketStats(ctx context.Context) ([]marketdata.MarketStat, error)
	DataPointCount(ctx context.Context) (int64, error)

	Close()
}
