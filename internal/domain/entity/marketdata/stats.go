package marketdata

// MarketStat summarizes recent activity for one symbol.
type MarketStat struct {
	Symbol       string  `json:"symbol"`
	CurrentPrice float64 `json:"current_price"`
	Change1h     float64 `json:"change_1h"`
	Change24h    float64 `json:"change_24h"`
	Volume24h    float64 `json:"volume_24h"`
	High24h      float64 `json:"high_24h"`
	Low24h       float64 `json:"low_24h"`
	TradeCount   int64   `json:"trades_count"`
}
