package challenge

import (
	"testing"
	"time"

	"spectral-companion/internal/storage"
)

func timePtr(t time.Time) *time.Time { return &t }

func TestEligibleIntervalTiers(t *testing.T) {
	now := time.Date(2025, 6, 10, 14, 30, 0, 0, time.UTC)

	cases := []struct {
		name     string
		freq     Frequency
		last     *time.Time
		eligible bool
	}{
		{"hourly first run", FreqHourly, nil, true},
		{"hourly 90min ago", FreqHourly, timePtr(now.Add(-90 * time.Minute)), true},
		{"hourly exactly 1h ago", FreqHourly, timePtr(now.Add(-time.Hour)), true},
		{"hourly 30min ago", FreqHourly, timePtr(now.Add(-30 * time.Minute)), false},
		{"every3h 2h ago", FreqEvery3h, timePtr(now.Add(-2 * time.Hour)), false},
		{"every3h 3h ago", FreqEvery3h, timePtr(now.Add(-3 * time.Hour)), true},
		{"every6h 5h59m ago", FreqEvery6h, timePtr(now.Add(-6*time.Hour + time.Minute)), false},
		{"every12h 13h ago", FreqEvery12h, timePtr(now.Add(-13 * time.Hour)), true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := storage.ChallengeConfig{GuildID: "g1", LastRenewal: tc.last}
			if got := Eligible(cfg, tc.freq, now); got != tc.eligible {
				t.Fatalf("Eligible = %t, want %t", got, tc.eligible)
			}
		})
	}
}

func TestEligibleDailyHourMustMatch(t *testing.T) {
	cfg := storage.ChallengeConfig{GuildID: "g1", CustomHour: 8}
	// Many days elapsed but the hour is wrong.
	cfg.LastRenewal = timePtr(time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC))
	now := time.Date(2025, 6, 10, 14, 0, 0, 0, time.UTC)
	if Eligible(cfg, FreqDaily, now) {
		t.Fatalf("daily should not be eligible outside the configured hour")
	}
}

func TestEligibleDailySameCalendarDate(t *testing.T) {
	cfg := storage.ChallengeConfig{GuildID: "g1", CustomHour: 8}
	cfg.LastRenewal = timePtr(time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC))
	now := time.Date(2025, 6, 10, 8, 30, 0, 0, time.UTC)
	if Eligible(cfg, FreqDaily, now) {
		t.Fatalf("daily should not fire twice on the same calendar date")
	}
}

func TestEligibleDailyNextDay(t *testing.T) {
	cfg := storage.ChallengeConfig{GuildID: "g1", CustomHour: 8}
	cfg.LastRenewal = timePtr(time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC))
	now := time.Date(2025, 6, 11, 8, 0, 0, 0, time.UTC)
	if !Eligible(cfg, FreqDaily, now) {
		t.Fatalf("daily should be eligible at the configured hour on the next date")
	}
}

func TestEligibleDailyFirstRun(t *testing.T) {
	cfg := storage.ChallengeConfig{GuildID: "g1", CustomHour: 8}
	if Eligible(cfg, FreqDaily, time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("first run still requires the hour match")
	}
	if !Eligible(cfg, FreqDaily, time.Date(2025, 6, 10, 8, 15, 0, 0, time.UTC)) {
		t.Fatalf("first run at the configured hour should be eligible")
	}
}

func TestNextRenewalHourAligned(t *testing.T) {
	now := time.Date(2025, 6, 10, 14, 30, 0, 0, time.UTC)
	next := FreqHourly.NextRenewal(now, 8)
	want := time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("hourly next = %v, want %v", next, want)
	}
}

func TestNextRenewalDaily(t *testing.T) {
	now := time.Date(2025, 6, 10, 14, 30, 0, 0, time.UTC)
	next := FreqDaily.NextRenewal(now, 8)
	want := time.Date(2025, 6, 11, 8, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("daily next = %v, want %v", next, want)
	}

	earlier := time.Date(2025, 6, 10, 6, 0, 0, 0, time.UTC)
	next = FreqDaily.NextRenewal(earlier, 8)
	want = time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("daily next before hour = %v, want %v", next, want)
	}
}

func TestParseFrequency(t *testing.T) {
	if _, err := ParseFrequency("every3h"); err != nil {
		t.Fatalf("valid frequency rejected: %v", err)
	}
	if _, err := ParseFrequency("fortnightly"); err == nil {
		t.Fatalf("expected error for unknown frequency")
	}
}
