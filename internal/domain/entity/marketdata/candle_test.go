package marketdata

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucketStartFor(t *testing.T) {
	cases := []struct {
		at   time.Time
		want time.Time
	}{
		{
			at:   time.Date(2026, 3, 1, 12, 30, 59, 999999999, time.UTC),
			want: time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC),
		},
		{
			at:   time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC),
			want: time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC),
		},
		{
			// Zoned instants normalize to UTC before truncation.
			at:   time.Date(2026, 3, 1, 14, 30, 30, 0, time.FixedZone("CEST", 2*3600)),
			want: time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC),
		},
	}
	for _, tc := range cases {
		got := BucketStartFor(tc.at)
		assert.True(t, got.Equal(tc.want), "at %s: got %s", tc.at, got)
		assert.Equal(t, time.UTC, got.Location())
	}
}

func TestBucketStartForIsStable(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 30, 45, 0, time.UTC)
	assert.Equal(t, BucketStartFor(at), BucketStartFor(BucketStartFor(at)))
}

func TestTradeSide(t *testing.T) {
	side, err := NewTradeSide("buy")
	require.NoError(t, err)
	assert.Equal(t, TradeSideBuy, side)

	side, err = NewTradeSide("sell")
	require.NoError(t, err)
	assert.Equal(t, TradeSideSell, side)

	for _, value := range []string{"", "Buy", "hold"} {
		_, err := NewTradeSide(value)
		assert.Error(t, err, "value %q", value)
	}
}

func TestTickerSpread(t *testing.T) {
	ticker := TickerUpdate{BestBid: 50000.10, BestAsk: 50002.40}
	assert.InDelta(t, 2.30, ticker.Spread(), 1e-9)
}
