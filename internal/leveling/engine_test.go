package leveling

import (
	"testing"
	"time"

	"spectral-companion/internal/config"
)

type stubClock struct {
	now time.Time
}

func (c *stubClock) Now() time.Time { return c.now }

func TestAwardAndDecay(t *testing.T) {
	clock := &stubClock{now: time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)}
	engine := NewEngine(config.LevelingConfig{MessageXP: 2, DecayPerDay: 10, TTLDays: 30})
	engine.WithClock(clock)

	if got := engine.Award("g1", "u1", 100); got != 100 {
		t.Fatalf("expected 100 XP, got %.1f", got)
	}

	clock.now = clock.now.Add(48 * time.Hour)
	if got := engine.XP("g1", "u1"); got != 80 {
		t.Fatalf("expected 80 XP after two days of decay, got %.1f", got)
	}
}

func TestTTLEviction(t *testing.T) {
	clock := &stubClock{now: time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)}
	engine := NewEngine(config.LevelingConfig{DecayPerDay: 0, TTLDays: 7})
	engine.WithClock(clock)

	engine.Award("g1", "u1", 50)
	clock.now = clock.now.Add(8 * 24 * time.Hour)
	if got := engine.XP("g1", "u1"); got != 0 {
		t.Fatalf("expected expired entry, got %.1f", got)
	}
}

func TestTopIsGuildScoped(t *testing.T) {
	engine := NewEngine(config.LevelingConfig{})
	engine.Award("g1", "u1", 30)
	engine.Award("g1", "u2", 60)
	engine.Award("g2", "u3", 90)

	top := engine.Top("g1", 5)
	if len(top) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(top))
	}
	if top[0].UserID != "u2" || top[1].UserID != "u1" {
		t.Fatalf("unexpected order: %+v", top)
	}
}

func TestLevelCurve(t *testing.T) {
	cases := []struct {
		xp    float64
		level int
	}{
		{0, 0}, {50, 0}, {100, 1}, {399, 1}, {400, 2}, {900, 3},
	}
	for _, tc := range cases {
		if got := Level(tc.xp); got != tc.level {
			t.Fatalf("Level(%.0f) = %d, want %d", tc.xp, got, tc.level)
		}
	}
}
