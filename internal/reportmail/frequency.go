package reportmail

import (
	"fmt"
	"time"
)

// Frequency controls how often the automated report goes out.
type Frequency string

const (
	Daily      Frequency = "daily"
	Every3Days Frequency = "every_3_days"
	Weekly     Frequency = "weekly"
)

// Interval returns the minimum gap between two sends.
func (f Frequency) Interval() (time.Duration, error) {
	switch f {
	case Daily:
		return 24 * time.Hour, nil
	case Every3Days:
		return 72 * time.Hour, nil
	case Weekly:
		return 168 * time.Hour, nil
	}
	return 0, fmt.Errorf("unknown report frequency %q", f)
}

// Period returns the reporting window ending at the reference day. Daily
// covers the reference day itself, every-3-days the last three days and
// weekly the last seven. The end is exclusive at the following midnight.
func (f Frequency) Period(ref time.Time) (time.Time, time.Time) {
	day := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, ref.Location())
	end := day.AddDate(0, 0, 1)
	switch f {
	case Every3Days:
		return day.AddDate(0, 0, -2), end
	case Weekly:
		return day.AddDate(0, 0, -6), end
	default:
		return day, end
	}
}

// ShouldSend reports whether enough time has passed since the last send.
// The comparison uses the full duration rather than whole days, so a gap
// of 23h59m59s under a daily frequency holds the send while exactly 24h
// releases it. A zero lastSentAt means the report never went out.
func (f Frequency) ShouldSend(lastSentAt, now time.Time) bool {
	if lastSentAt.IsZero() {
		return true
	}
	interval, err := f.Interval()
	if err != nil {
		return false
	}
	return now.Sub(lastSentAt) >= interval
}
