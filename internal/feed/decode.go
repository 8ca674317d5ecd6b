package feed

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	marketdata "main/internal/domain/entity/marketdata"
)

// DecodeReason classifies why a frame was rejected.
type DecodeReason string

const (
	ReasonBadJSON      DecodeReason = "bad_json"
	ReasonMissingField DecodeReason = "missing_field"
	ReasonTypeMismatch DecodeReason = "type_mismatch"
)

// DecodeError reports a single dropped frame. The stream continues.
type DecodeError struct {
	Reason DecodeReason
	Field  string
}

func (e *DecodeError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("decode frame: %s", e.Reason)
	}
	return fmt.Sprintf("decode frame: %s (%s)", e.Reason, e.Field)
}

// Event holds at most one decoded feed message.
type Event struct {
	Ticker *marketdata.TickerUpdate
	Trade  *marketdata.TradeExecution
}

// rawFrame is the union of fields across the upstream message kinds. Numeric
// fields stay raw because the feed sends them as either numbers or strings.
type rawFrame struct {
	Type      string          `json:"type"`
	ProductID string          `json:"product_id"`
	Price     json.RawMessage `json:"price"`
	BestBid   json.RawMessage `json:"best_bid"`
	BestAsk   json.RawMessage `json:"best_ask"`
	Volume24h json.RawMessage `json:"volume_24h"`
	Size      json.RawMessage `json:"size"`
	Side      string          `json:"side"`
	TradeID   json.RawMessage `json:"trade_id"`
	Time      string          `json:"time"`
}

// Decode converts one raw frame into an Event. A nil Event with nil error
// means the frame carried an unrecognized discriminant and was ignored,
// which keeps the client forward-compatible with new upstream channels.
func Decode(payload []byte) (*Event, error) {
	var frame rawFrame
	if err := json.Unmarshal(payload, &frame); err != nil {
		return nil, &DecodeError{Reason: ReasonBadJSON}
	}

	switch frame.Type {
	case "ticker":
		ticker, err := decodeTicker(&frame)
		if err != nil {
			return nil, err
		}
		return &Event{Ticker: ticker}, nil
	case "match":
		trade, err := decodeTrade(&frame)
		if err != nil {
			return nil, err
		}
		return &Event{Trade: trade}, nil
	default:
		return nil, nil
	}
}

func decodeTicker(frame *rawFrame) (*marketdata.TickerUpdate, error) {
	if frame.ProductID == "" {
		return nil, &DecodeError{Reason: ReasonMissingField, Field: "product_id"}
	}
	bid, err := numericField("best_bid", frame.BestBid)
	if err != nil {
		return nil, err
	}
	ask, err := numericField("best_ask", frame.BestAsk)
	if err != nil {
		return nil, err
	}
	price, err := numericField("price", frame.Price)
	if err != nil {
		return nil, err
	}
	volume, err := numericField("volume_24h", frame.Volume24h)
	if err != nil {
		return nil, err
	}
	observedAt, err := timeField(frame.Time)
	if err != nil {
		return nil, err
	}
	return &marketdata.TickerUpdate{
		Symbol:     frame.ProductID,
		BestBid:    bid,
		BestAsk:    ask,
		LastPrice:  price,
		Volume24h:  volume,
		ObservedAt: observedAt,
	}, nil
}

func decodeTrade(frame *rawFrame) (*marketdata.TradeExecution, error) {
	if frame.ProductID == "" {
		return nil, &DecodeError{Reason: ReasonMissingField, Field: "product_id"}
	}
	price, err := numericField("price", frame.Price)
	if err != nil {
		return nil, err
	}
	size, err := numericField("size", frame.Size)
	if err != nil {
		return nil, err
	}
	tradeID, err := integerField("trade_id", frame.TradeID)
	if err != nil {
		return nil, err
	}
	if frame.Side == "" {
		return nil, &DecodeError{Reason: ReasonMissingField, Field: "side"}
	}
	side, err := marketdata.NewTradeSide(frame.Side)
	if err != nil {
		return nil, &DecodeError{Reason: ReasonTypeMismatch, Field: "side"}
	}
	executedAt, err := timeField(frame.Time)
	if err != nil {
		return nil, err
	}
	return &marketdata.TradeExecution{
		Symbol:     frame.ProductID,
		Price:      price,
		Size:       size,
		Side:       side,
		TradeID:    tradeID,
		ExecutedAt: executedAt,
	}, nil
}

func numericField(name string, raw json.RawMessage) (float64, error) {
	text, err := rawText(name, raw)
	if err != nil {
		return 0, err
	}
	value, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, &DecodeError{Reason: ReasonTypeMismatch, Field: name}
	}
	return value, nil
}

func integerField(name string, raw json.RawMessage) (int64, error) {
	text, err := rawText(name, raw)
	if err != nil {
		return 0, err
	}
	value, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, &DecodeError{Reason: ReasonTypeMismatch, Field: name}
	}
	return value, nil
}

// rawText unwraps a raw JSON scalar, tolerating both quoted and bare forms.
func rawText(name string, raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", &DecodeError{Reason: ReasonMissingField, Field: name}
	}
	if raw[0] == '"' {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return "", &DecodeError{Reason: ReasonTypeMismatch, Field: name}
		}
		return strings.TrimSpace(text), nil
	}
	return string(raw), nil
}

func timeField(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, &DecodeError{Reason: ReasonMissingField, Field: "time"}
	}
	at, err := ParseTime(value)
	if err != nil {
		return time.Time{}, &DecodeError{Reason: ReasonTypeMismatch, Field: "time"}
	}
	return at, nil
}
