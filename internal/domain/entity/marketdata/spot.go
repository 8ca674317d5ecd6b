package marketdata

import (
	"time"

	"github.com/google/uuid"
)

// SpotPrice is one exchange-rate sample fetched from the REST API.
type SpotPrice struct {
	ID        uuid.UUID `json:"id"`
	Base      string    `json:"base"`
	Currency  string    `json:"currency"`
	Amount    float64   `json:"amount"`
	FetchedAt time.Time `json:"fetched_at"`
}
