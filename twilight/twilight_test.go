package twilight

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(h, m int) time.Time {
	return time.Date(2024, 6, 21, h, m, 0, 0, time.UTC)
}

func TestIsDay(t *testing.T) {
	tests := []struct {
		name    string
		now     time.Time
		sunrise time.Time
		sunset  time.Time
		want    bool
	}{
		{"midday", at(12, 0), at(6, 0), at(20, 0), true},
		{"at sunrise", at(6, 0), at(6, 0), at(20, 0), true},
		{"at sunset", at(20, 0), at(6, 0), at(20, 0), true},
		{"before sunrise", at(5, 59), at(6, 0), at(20, 0), false},
		{"night", at(23, 0), at(6, 0), at(20, 0), false},
		{"wrapped window evening", at(23, 0), at(20, 0), at(8, 0), true},
		{"wrapped window early morning", at(2, 0), at(20, 0), at(8, 0), true},
		{"wrapped window midday", at(12, 0), at(20, 0), at(8, 0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsDay(tt.now, tt.sunrise, tt.sunset))
		})
	}
}

func TestSunTimesHelsinkiMidsummer(t *testing.T) {
	c := NewCalculator(60.1699, 24.9384)
	date := time.Date(2024, 6, 21, 0, 0, 0, 0, time.UTC)

	times, err := c.SunTimes(date)
	require.NoError(t, err)
	assert.False(t, times.Sunrise.IsZero())
	assert.True(t, times.Sunrise.Before(times.Sunset))
	// Helsinki midsummer sunrise is just before 01:00 UTC
	assert.Equal(t, 0, times.Sunrise.Hour())

	cached, err := c.SunTimes(date)
	require.NoError(t, err)
	assert.Equal(t, times, cached)
}

func TestIsDaylight(t *testing.T) {
	c := NewCalculator(60.1699, 24.9384)

	day, err := c.IsDaylight(time.Date(2024, 6, 21, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, day)

	night, err := c.IsDaylight(time.Date(2024, 12, 21, 22, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, night)
}
