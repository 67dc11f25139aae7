package reportmail

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestShouldSendUsesExactDurations(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		freq Frequency
		gap  time.Duration
		want bool
	}{
		{"daily one second short", Daily, 24*time.Hour - time.Second, false},
		{"daily just under a day", Daily, 23*time.Hour + 59*time.Minute, false},
		{"daily exactly 24h", Daily, 24 * time.Hour, true},
		{"daily over", Daily, 25 * time.Hour, true},
		{"every 3 days short", Every3Days, 71 * time.Hour, false},
		{"every 3 days exact", Every3Days, 72 * time.Hour, true},
		{"weekly short", Weekly, 167*time.Hour + 59*time.Minute + 59*time.Second, false},
		{"weekly exact", Weekly, 168 * time.Hour, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, tc.freq.ShouldSend(now.Add(-tc.gap), now))
		})
	}
}

func TestShouldSendNeverSentBefore(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	require.True(t, Daily.ShouldSend(time.Time{}, now))
	require.True(t, Weekly.ShouldSend(time.Time{}, now))
}

func TestShouldSendUnknownFrequency(t *testing.T) {
	now := time.Now()
	require.False(t, Frequency("hourly").ShouldSend(now.Add(-time.Hour), now))
}

func TestPeriodWindows(t *testing.T) {
	ref := time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)

	start, end := Daily.Period(ref)
	require.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), start)
	require.Equal(t, time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), end)

	start, _ = Every3Days.Period(ref)
	require.Equal(t, time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC), start)

	start, _ = Weekly.Period(ref)
	require.Equal(t, time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC), start)
}
