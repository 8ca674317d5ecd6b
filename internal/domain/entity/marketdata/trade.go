package marketdata

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TradeSide represents the taker side of an executed trade.
type TradeSide string

const (
	TradeSideBuy  TradeSide = "buy"
	TradeSideSell TradeSide = "sell"
)

func (s TradeSide) String() string {
	return string(s)
}

func (s TradeSide) IsValid() bool {
	switch s {
	case TradeSideBuy, TradeSideSell:
		return true
	default:
		return false
	}
}

func NewTradeSide(value string) (TradeSide, error) {
	side := TradeSide(value)
	if !side.IsValid() {
		return "", fmt.Errorf("invalid trade side: %s", value)
	}
	return side, nil
}

// TradeExecution models a single matched trade from the upstream feed.
// TradeID is assigned upstream and is not globally unique across reconnects;
// duplicates are possible and acceptable. Immutable once constructed.
type TradeExecution struct {
	ID         uuid.UUID `json:"id"`
	Symbol     string    `json:"symbol"`
	Price      float64   `json:"price"`
	Size       float64   `json:"size"`
	Side       TradeSide `json:"side"`
	TradeID    int64     `json:"trade_id"`
	ExecutedAt time.Time `json:"executed_at"`
}
