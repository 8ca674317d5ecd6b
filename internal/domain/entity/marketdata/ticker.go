package marketdata

import (
	"time"

	"github.com/google/uuid"
)

// TickerUpdate is a best bid/ask quote snapshot received from the upstream feed.
// Instances are immutable once constructed.
type TickerUpdate struct {
	ID         uuid.UUID `json:"id"`
	Symbol     string    `json:"symbol"`
	BestBid    float64   `json:"best_bid"`
	BestAsk    float64   `json:"best_ask"`
	LastPrice  float64   `json:"last_price"`
	Volume24h  float64   `json:"volume_24h"`
	ObservedAt time.Time `json:"observed_at"`
}

// Spread returns best ask minus best bid. Derived on read, never a source of truth.
func (t TickerUpdate) Spread() float64 {
	return t.BestAsk - t.BestBid
}
