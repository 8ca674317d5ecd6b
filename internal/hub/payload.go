package hub

import (
	marketdata "main/internal/domain/entity/marketdata"
)

// Message is the envelope delivered to subscribers.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// TickerData is the normalized ticker projection pushed to subscribers.
type TickerData struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
	Bid    float64 `json:"bid"`
	Ask    float64 `json:"ask"`
	Volume float64 `json:"volume"`
	Spread float64 `json:"spread"`
}

// TradeData is the normalized trade projection pushed to subscribers.
type TradeData struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
	Size   float64 `json:"size"`
	Side   string  `json:"side"`
	Time   string  `json:"time"`
}

// ConnectedData greets a freshly registered subscriber.
type ConnectedData struct {
	Message string             `json:"message"`
	Prices  map[string]float64 `json:"prices"`
}

const payloadTimeLayout = "2006-01-02T15:04:05.999999"

func NewTickerMessage(ticker *marketdata.TickerUpdate) Message {
	return Message{
		Type: "ticker",
		Data: TickerData{
			Symbol: ticker.Symbol,
			Price:  ticker.LastPrice,
			Bid:    ticker.BestBid,
			Ask:    ticker.BestAsk,
			Volume: ticker.Volume24h,
			Spread: ticker.Spread(),
		},
	}
}

func NewTradeMessage(trade *marketdata.TradeExecution) Message {
	return Message{
		Type: "trade",
		Data: TradeData{
			Symbol: trade.Symbol,
			Price:  trade.Price,
			Size:   trade.Size,
			Side:   trade.Side.String(),
			Time:   trade.ExecutedAt.UTC().Format(payloadTimeLayout),
		},
	}
}

func NewConnectedMessage(message string, prices map[string]float64) Message {
	if prices == nil {
		prices = map[string]float64{}
	}
	return Message{
		Type: "connected",
		Data: ConnectedData{Message: message, Prices: prices},
	}
}
