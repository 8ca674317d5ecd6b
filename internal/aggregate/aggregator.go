package aggregate

import (
	"context"
	"fmt"
	"sort"
	"time"

	marketdata "main/internal/domain/entity/marketdata"

	"github.com/sirupsen/logrus"
)

const (
	defaultSweepInterval = 30 * time.Second
	defaultLookback      = 24 * time.Hour
)

// Store is the slice of the repository the aggregator consumes.
type Store interface {
	TradesSince(ctx context.Context, since time.Time) ([]marketdata.TradeExecution, error)
	CandleBucketsSince(ctx context.Context, since time.Time) (map[marketdata.BucketKey]struct{}, error)
	AddCandles(ctx context.Context, candles []marketdata.Candle) error
}

// Config controls sweep cadence and the trailing trade window.
type Config struct {
	SweepInterval time.Duration
	Lookback      time.Duration
}

// Aggregator periodically materializes 1-minute OHLCV candles from raw
// trades. Sweeps are idempotent: buckets already stored are excluded before
// insert, and the still-open bucket is never materialized, so repeating a
// sweep over an unchanged window writes nothing.
type Aggregator struct {
	cfg    Config
	store  Store
	logger *logrus.Entry
	now    func() time.Time
}

func New(cfg Config, store Store, logger *logrus.Logger) *Aggregator {
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaultSweepInterval
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = defaultLookback
	}
	return &Aggregator{
		cfg:    cfg,
		store:  store,
		logger: logger.WithField("component", "aggregator"),
		now:    time.Now,
	}
}

// Run executes sweeps on a fixed timer until ctx ends. A failed sweep logs
// and is retried on the next tick; each sweep is bounded by the tick
// interval so it can never stall the loop.
func (a *Aggregator) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			sweepCtx, cancel := context.WithTimeout(ctx, a.cfg.SweepInterval)
			if err := a.Sweep(sweepCtx); err != nil {
				a.logger.WithError(err).Error("candle sweep failed")
			}
			cancel()
		}
	}
}

// Sweep materializes candles for every closed, not-yet-stored bucket inside
// the trailing lookback window. The window start is rounded up to the next
// bucket boundary so a bucket whose opening trades fall outside the window
// is never materialized from its tail alone.
func (a *Aggregator) Sweep(ctx context.Context) error {
	now := a.now().UTC()
	since := now.Add(-a.cfg.Lookback)
	if aligned := marketdata.BucketStartFor(since); aligned.Before(since) {
		since = aligned.Add(marketdata.BucketWidth)
	}

	trades, err := a.store.TradesSince(ctx, since)
	if err != nil {
		return fmt.Errorf("load trades: %w", err)
	}
	if len(trades) == 0 {
		return nil
	}

	existing, err := a.store.CandleBucketsSince(ctx, since)
	if err != nil {
		return fmt.Errorf("load existing buckets: %w", err)
	}

	candles := BuildCandles(trades, existing, now)
	if len(candles) == 0 {
		return nil
	}
	if err := a.store.AddCandles(ctx, candles); err != nil {
		return fmt.Errorf("store candles: %w", err)
	}
	a.logger.WithField("candles", len(candles)).Info("materialized candles")
	return nil
}

type candleAcc struct {
	open, high, low, close float64
	volume                 float64
	count                  int64
}

// BuildCandles groups trades into (symbol, bucket) windows and computes
// OHLCV per window. Trades must arrive in ascending execution order; open is
// the first sample, close the last. Buckets listed in existing and the
// bucket still open at now are skipped.
func BuildCandles(trades []marketdata.TradeExecution, existing map[marketdata.BucketKey]struct{}, now time.Time) []marketdata.Candle {
	accs := make(map[marketdata.BucketKey]*candleAcc)
	for i := range trades {
		trade := &trades[i]
		key := marketdata.BucketKey{
			Symbol: trade.Symbol,
			Start:  marketdata.BucketStartFor(trade.ExecutedAt),
		}
		if key.Start.Add(marketdata.BucketWidth).After(now) {
			continue
		}
		if _, done := existing[key]; done {
			continue
		}
		acc, ok := accs[key]
		if !ok {
			acc = &candleAcc{
				open: trade.Price,
				high: trade.Price,
				low:  trade.Price,
			}
			accs[key] = acc
		}
		if trade.Price > acc.high {
			acc.high = trade.Price
		}
		if trade.Price < acc.low {
			acc.low = trade.Price
		}
		acc.close = trade.Price
		acc.volume += trade.Size
		acc.count++
	}

	if len(accs) == 0 {
		return nil
	}
	candles := make([]marketdata.Candle, 0, len(accs))
	for key, acc := range accs {
		candles = append(candles, marketdata.Candle{
			Symbol:      key.Symbol,
			BucketStart: key.Start,
			Open:        acc.open,
			High:        acc.high,
			Low:         acc.low,
			Close:       acc.close,
			Volume:      acc.volume,
			SampleCount: acc.count,
		})
	}
	sort.Slice(candles, func(i, j int) bool {
		if candles[i].Symbol != candles[j].Symbol {
			return candles[i].Symbol < candles[j].Symbol
		}
		return candles[i].BucketStart.Before(candles[j].BucketStart)
	})
	return candles
}
