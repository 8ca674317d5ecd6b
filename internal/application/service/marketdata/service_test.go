package marketdata

import (
	"context"
	"testing"
	"time"

	marketdata "main/internal/domain/entity/marketdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRepo records calls; every method succeeds.
type fakeRepo struct {
	tickers []marketdata.TickerUpdate
	trades  []marketdata.TradeExecution
	candles []marketdata.Candle
	spots   []marketdata.SpotPrice
	closed  bool
}

func (f *fakeRepo) EnsureSchema(ctx context.Context) error { return nil }

func (f *fakeRepo) AddTicker(ctx context.Context, ticker *marketdata.TickerUpdate) error {
	f.tickers = append(f.tickers, *ticker)
	return nil
}

func (f *fakeRepo) AddTrade(ctx context.Context, trade *marketdata.TradeExecution) error {
	f.trades = append(f.trades, *trade)
	return nil
}

func (f *fakeRepo) AddCandles(ctx context.Context, candles []marketdata.Candle) error {
	f.candles = append(f.candles, candles...)
	return nil
}

func (f *fakeRepo) AddSpotPrice(ctx context.Context, spot *marketdata.SpotPrice) error {
	f.spots = append(f.spots, *spot)
	return nil
}

func (f *fakeRepo) TradesSince(ctx context.Context, since time.Time) ([]marketdata.TradeExecution, error) {
	return f.trades, nil
}

func (f *fakeRepo) CandleBucketsSince(ctx context.Context, since time.Time) (map[marketdata.BucketKey]struct{}, error) {
	return nil, nil
}

func (f *fakeRepo) RecentCandles(ctx context.Context, symbol string, limit int) ([]marketdata.Candle, error) {
	return f.candles, nil
}

func (f *fakeRepo) LatestPrices(ctx context.Context) (map[string]float64, error) {
	return nil, nil
}

func (f *fakeRepo) MarketStats(ctx context.Context) ([]marketdata.MarketStat, error) {
	return nil, nil
}

func (f *fakeRepo) DataPointCount(ctx context.Context) (int64, error) { return 0, nil }

func (f *fakeRepo) Close() { f.closed = true }

func TestOnTickerValidation(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)
	ctx := context.Background()

	assert.ErrorIs(t, svc.OnTicker(ctx, nil), ErrNilTicker)
	assert.ErrorIs(t, svc.OnTicker(ctx, &marketdata.TickerUpdate{}), ErrEmptySymbol)
	assert.Empty(t, repo.tickers)

	require.NoError(t, svc.OnTicker(ctx, &marketdata.TickerUpdate{Symbol: "BTC-USD", LastPrice: 50000}))
	require.Len(t, repo.tickers, 1)
}

func TestOnTradeValidation(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)
	ctx := context.Background()

	assert.ErrorIs(t, svc.OnTrade(ctx, nil), ErrNilTrade)
	assert.ErrorIs(t, svc.OnTrade(ctx, &marketdata.TradeExecution{}), ErrEmptySymbol)

	require.NoError(t, svc.OnTrade(ctx, &marketdata.TradeExecution{
		Symbol: "ETH-USD",
		Side:   marketdata.TradeSideSell,
	}))
	require.Len(t, repo.trades, 1)
}

func TestAddCandlesEmptyIsNoop(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)

	require.NoError(t, svc.AddCandles(context.Background(), nil))
	assert.Empty(t, repo.candles)

	require.NoError(t, svc.AddCandles(context.Background(), []marketdata.Candle{{Symbol: "BTC-USD"}}))
	assert.Len(t, repo.candles, 1)
}

func TestRecentCandlesValidation(t *testing.T) {
	svc := NewService(&fakeRepo{})
	ctx := context.Background()

	_, err := svc.RecentCandles(ctx, "", 10)
	assert.ErrorIs(t, err, ErrEmptySymbol)

	_, err = svc.RecentCandles(ctx, "BTC-USD", 0)
	assert.ErrorIs(t, err, ErrInvalidLimit)

	_, err = svc.RecentCandles(ctx, "BTC-USD", 10)
	assert.NoError(t, err)
}

func TestAddSpotPriceValidation(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)

	assert.ErrorIs(t, svc.AddSpotPrice(context.Background(), nil), ErrNilSpotPrice)
	require.NoError(t, svc.AddSpotPrice(context.Background(), &marketdata.SpotPrice{Base: "BTC"}))
	assert.Len(t, repo.spots, 1)
}

func TestCloseDelegates(t *testing.T) {
	repo := &fakeRepo{}
	NewService(repo).Close()
	assert.True(t, repo.closed)
}
