package symbols

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Pair is a trading pair from the fixed symbol set, e.g. "BTC-USD".
type Pair struct {
	UID       uuid.UUID
	Symbol    string
	Base      string
	Quote     string
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// NewPair builds a Pair from its feed identifier ("BASE-QUOTE").
func NewPair(symbol string) (*Pair, error) {
	symbol = strings.TrimSpace(strings.ToUpper(symbol))
	base, quote, ok := strings.Cut(symbol, "-")
	if !ok || base == "" || quote == "" {
		return nil, fmt.Errorf("invalid trading pair: %q", symbol)
	}
	return &Pair{
		UID:    uuid.New(),
		Symbol: symbol,
		Base:   base,
		Quote:  quote,
	}, nil
}
