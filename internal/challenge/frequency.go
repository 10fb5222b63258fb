package challenge

import (
	"fmt"
	"time"
)

// Frequency is a renewal tier. Each guild config belongs to exactly one tier.
type Frequency string

const (
	FreqHourly   Frequency = "hourly"
	FreqEvery3h  Frequency = "every3h"
	FreqEvery6h  Frequency = "every6h"
	FreqEvery12h Frequency = "every12h"
	FreqDaily    Frequency = "daily"
)

// Frequencies lists the content tiers in ascending interval order.
func Frequencies() []Frequency {
	return []Frequency{FreqHourly, FreqEvery3h, FreqEvery6h, FreqEvery12h, FreqDaily}
}

func ParseFrequency(value string) (Frequency, error) {
	switch Frequency(value) {
	case FreqHourly, FreqEvery3h, FreqEvery6h, FreqEvery12h, FreqDaily:
		return Frequency(value), nil
	default:
		return "", fmt.Errorf("unknown renewal frequency %q", value)
	}
}

// Interval returns the fixed renewal interval, or zero for the daily tier,
// which is driven by hour-of-day matching instead.
func (f Frequency) Interval() time.Duration {
	switch f {
	case FreqHourly:
		return time.Hour
	case FreqEvery3h:
		return 3 * time.Hour
	case FreqEvery6h:
		return 6 * time.Hour
	case FreqEvery12h:
		return 12 * time.Hour
	default:
		return 0
	}
}

func (f Frequency) Label() string {
	switch f {
	case FreqHourly:
		return "Every hour"
	case FreqEvery3h:
		return "Every 3 hours"
	case FreqEvery6h:
		return "Every 6 hours"
	case FreqEvery12h:
		return "Every 12 hours"
	case FreqDaily:
		return "Daily"
	default:
		return string(f)
	}
}

// cronSpec returns the tick schedule for the tier. The daily tier probes at
// the top of every hour so the configured hour is never skipped.
func (f Frequency) cronSpec() string {
	switch f {
	case FreqHourly:
		return "0 * * * *"
	case FreqEvery3h:
		return "0 */3 * * *"
	case FreqEvery6h:
		return "0 */6 * * *"
	case FreqEvery12h:
		return "0 */12 * * *"
	case FreqDaily:
		return "0 * * * *"
	default:
		return "0 * * * *"
	}
}

// NextRenewal computes when the tier will next consider the guild, from the
// scheduler's own tick boundaries: hour-aligned for interval tiers, the next
// occurrence of customHour for daily.
func (f Frequency) NextRenewal(now time.Time, customHour int) time.Time {
	if f == FreqDaily {
		next := time.Date(now.Year(), now.Month(), now.Day(), customHour, 0, 0, 0, now.Location())
		if !next.After(now) {
			next = next.AddDate(0, 0, 1)
		}
		return next
	}
	interval := f.Interval()
	return now.Truncate(interval).Add(interval)
}
