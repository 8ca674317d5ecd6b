package marketdata

import (
	"time"

	"github.com/google/uuid"
)

// BucketWidth is the fixed aggregation interval for candles.
const BucketWidth = time.Minute

// Candle is a derived OHLCV aggregate over one bucket. It is recomputable
// from the underlying trades: regenerating it from the same samples must
// yield the same values.
type Candle struct {
	ID          uuid.UUID `json:"id"`
	Symbol      string    `json:"symbol"`
	BucketStart time.Time `json:"bucket_start"`
	Open        float64   `json:"open"`
	High        float64   `json:"high"`
	Low         float64   `json:"low"`
	Close       float64   `json:"close"`
	Volume      float64   `json:"volume"`
	SampleCount int64     `json:"sample_count"`
}

// BucketKey identifies one (symbol, bucket) aggregation window.
type BucketKey struct {
	Symbol string
	Start  time.Time
}

// BucketStartFor truncates an instant to its bucket boundary.
func BucketStartFor(at time.Time) time.Time {
	return at.UTC().Truncate(BucketWidth)
}
