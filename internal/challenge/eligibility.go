package challenge

import (
	"time"

	"spectral-companion/internal/storage"
)

// Eligible reports whether a guild is due for a new challenge. It is a pure
// function of its inputs so the tier ticks stay testable in isolation.
//
// Interval tiers are due once the elapsed time since the last renewal reaches
// the tier interval. The daily tier is due only when the current hour matches
// the configured hour and the last renewal happened on an earlier calendar
// date; the date check stops double-sends when a tick fires twice inside the
// target hour.
func Eligible(cfg storage.ChallengeConfig, freq Frequency, now time.Time) bool {
	if freq == FreqDaily {
		if now.Hour() != cfg.CustomHour {
			return false
		}
		if cfg.LastRenewal == nil {
			return true
		}
		return calendarDate(*cfg.LastRenewal).Before(calendarDate(now))
	}

	if cfg.LastRenewal == nil {
		return true
	}
	return now.Sub(*cfg.LastRenewal) >= freq.Interval()
}

func calendarDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
