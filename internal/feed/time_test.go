package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeExplicitUTC(t *testing.T) {
	got, err := ParseTime("2026-03-01T12:30:45.123456Z")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 12, 30, 45, 123456000, time.UTC), got)
	assert.Equal(t, time.UTC, got.Location())
}

func TestParseTimeOffset(t *testing.T) {
	got, err := ParseTime("2026-03-01T14:30:45+02:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 12, 30, 45, 0, time.UTC), got)
}

func TestParseTimeNaiveTreatedAsUTC(t *testing.T) {
	got, err := ParseTime("2026-03-01T12:30:45.123456")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 12, 30, 45, 123456000, time.UTC), got)
}

func TestParseTimeMalformed(t *testing.T) {
	for _, value := range []string{"", "not-a-time", "2026-13-01T00:00:00Z", "12:30:45"} {
		_, err := ParseTime(value)
		assert.ErrorIs(t, err, ErrMalformedTimestamp, "value %q", value)
	}
}

func TestFormatTimeZoneless(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 30, 45, 123456000, time.UTC)
	assert.Equal(t, "2026-03-01T12:30:45.123456", FormatTime(at))

	// Round-trips through ParseTime.
	back, err := ParseTime(FormatTime(at))
	require.NoError(t, err)
	assert.True(t, back.Equal(at))
}
