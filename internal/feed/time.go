package feed

import (
	"errors"
	"fmt"
	"time"
)

// ErrMalformedTimestamp reports a feed timestamp that is not a recognizable
// ISO-8601 instant.
var ErrMalformedTimestamp = errors.New("malformed feed timestamp")

// layout for instants without an explicit zone marker, interpreted as UTC.
const naiveLayout = "2006-01-02T15:04:05.999999999"

// ParseTime normalizes a feed timestamp into a UTC instant. Both explicit-UTC
// ("...Z"), offset ("...+00:00") and zone-less forms are accepted; zone-less
// values are treated as already UTC so every downstream comparison uses one
// consistent clock.
func ParseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrMalformedTimestamp)
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.ParseInLocation(naiveLayout, value, time.UTC); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedTimestamp, value)
}

// FormatTime renders a UTC instant in the zone-less feed form.
func FormatTime(t time.Time) string {
	return t.UTC().Format(naiveLayout)
}
