package interfaces

import (
	"context"

	marketdata "main/internal/domain/entity/marketdata"
)

// Sink consumes decoded feed events. The feed connection manager calls it
// once per event, in arrival order; an error means that single event failed
// and must not abort the stream.
type Sink interface {
	OnTicker(ctx context.Context, ticker *marketdata.TickerUpdate) error
	OnTrade(ctx context.Context, trade *marketdata.TradeExecution) error
}
