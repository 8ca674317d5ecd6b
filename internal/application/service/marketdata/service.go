package marketdata

import (
	"context"
	"errors"
	"time"

	marketdata "main/internal/domain/entity/marketdata"
	interfaces "main/internal/domain/interfaces"
)

var (
	ErrNilTicker    = errors.New("ticker is nil")
	ErrNilTrade     = errors.New("trade is nil")
	ErrNilSpotPrice = errors.New("spot price is nil")
	ErrEmptySymbol  = errors.New("symbol is required")
	ErrInvalidLimit = errors.New("limit must be positive")
)

// Service validates market data operations and delegates to the repository.
// It is the persistence owner: the feed connection manager consumes it
// through the Sink interface.
type Service struct {
	repo interfaces.MarketDataRepository
}

var _ interfaces.Sink = (*Service)(nil)

func NewService(repo interfaces.MarketDataRepository) *Service {
	return &Service{repo: repo}
}

// Sink

func (s *Service) OnTicker(ctx context.Context, ticker *marketdata.TickerUpdate) error {
	if ticker == nil {
		return ErrNilTicker
	}
	if ticker.Symbol == "" {
		return ErrEmptySymbol
	}
	return s.repo.AddTicker(ctx, ticker)
}

func (s *Service) OnTrade(ctx context.Context, trade *marketdata.TradeExecution) error {
	if trade == nil {
		return ErrNilTrade
	}
	if trade.Symbol == "" {
		return ErrEmptySymbol
	}
	return s.repo.AddTrade(ctx, trade)
}

// Candles

func (s *Service) AddCandles(ctx context.Context, candles []marketdata.Candle) error {
	if len(candles) == 0 {
		return nil
	}
	return s.repo.AddCandles(ctx, candles)
}

func (s *Service) TradesSince(ctx context.Context, since time.Time) ([]marketdata.TradeExecution, error) {
	return s.repo.TradesSince(ctx, since)
}

func (s *Service) CandleBucketsSince(ctx context.Context, since time.Time) (map[marketdata.BucketKey]struct{}, error) {
	return s.repo.CandleBucketsSince(ctx, since)
}

func (s *Service) RecentCandles(ctx context.Context, symbol string, limit int) ([]marketdata.Candle, error) {
	if symbol == "" {
		return nil, ErrEmptySymbol
	}
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	return s.repo.RecentCandles(ctx, symbol, limit)
}

// Spot prices

func (s *Service) AddSpotPrice(ctx context.Context, spot *marketdata.SpotPrice) error {
	if spot == nil {
		return ErrNilSpotPrice
	}
	return s.repo.AddSpotPrice(ctx, spot)
}

// Queries

func (s *Service) LatestPrices(ctx context.Context) (map[string]float64, error) {
	return s.repo.LatestPrices(ctx)
}

func (s *Service) MarketStats(ctx context.Context) ([]marketdata.MarketStat, error) {
	return s.repo.MarketStats(ctx)
}

func (s *Service) DataPointCount(ctx context.Context) (int64, error) {
	return s.repo.DataPointCount(ctx)
}

func (s *Service) Close() {
	s.repo.Close()
}
