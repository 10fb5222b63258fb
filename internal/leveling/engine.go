package leveling

import (
	"math"
	"sort"
	"sync"
	"time"

	"spectral-companion/internal/config"
)

type entry struct {
	xp         float64
	lastUpdate time.Time
}

// Engine tracks per-guild, per-user message XP in memory. Scores decay slowly
// so inactive members drift down the leaderboard, and entries past the TTL
// are evicted on access.
type Engine struct {
	mu      sync.Mutex
	cfg     config.LevelingConfig
	clock   Clock
	entries map[string]*entry
}

type RankEntry struct {
	UserID string
	XP     float64
}

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func NewEngine(cfg config.LevelingConfig) *Engine {
	return &Engine{
		cfg:     cfg,
		clock:   realClock{},
		entries: make(map[string]*entry),
	}
}

func (e *Engine) WithClock(clock Clock) {
	e.clock = clock
}

func (e *Engine) Award(guildID, userID string, delta float64) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	key := guildID + ":" + userID
	now := e.clock.Now()

	item := e.entries[key]
	if item == nil {
		item = &entry{xp: 0, lastUpdate: now}
		e.entries[key] = item
	}

	item.xp = e.decay(item.xp, item.lastUpdate, now)
	item.xp = math.Max(0, item.xp+delta)
	item.lastUpdate = now
	return item.xp
}

func (e *Engine) XP(guildID, userID string) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	key := guildID + ":" + userID
	item := e.entries[key]
	if item == nil {
		return 0
	}

	now := e.clock.Now()
	if e.isExpired(item.lastUpdate, now) {
		delete(e.entries, key)
		return 0
	}

	item.xp = e.decay(item.xp, item.lastUpdate, now)
	item.lastUpdate = now
	return item.xp
}

// Level maps XP to a display level. 100 XP to reach level 1, quadratic after.
func Level(xp float64) int {
	if xp <= 0 {
		return 0
	}
	return int(math.Sqrt(xp / 100))
}

func (e *Engine) Top(guildID string, limit int) []RankEntry {
	if limit <= 0 {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	prefix := guildID + ":"
	entries := make([]RankEntry, 0, limit)
	for key, item := range e.entries {
		if len(key) <= len(prefix) || key[:len(prefix)] != prefix {
			continue
		}
		if e.isExpired(item.lastUpdate, now) {
			delete(e.entries, key)
			continue
		}
		item.xp = e.decay(item.xp, item.lastUpdate, now)
		item.lastUpdate = now
		entries = append(entries, RankEntry{UserID: key[len(prefix):], XP: item.xp})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].XP > entries[j].XP })
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

func (e *Engine) decay(xp float64, lastUpdate, now time.Time) float64 {
	if e.cfg.DecayPerDay <= 0 {
		return xp
	}
	days := now.Sub(lastUpdate).Hours() / 24
	if days <= 0 {
		return xp
	}
	decayed := xp - (days * e.cfg.DecayPerDay)
	if decayed < 0 {
		return 0
	}
	return decayed
}

func (e *Engine) isExpired(lastUpdate, now time.Time) bool {
	if e.cfg.TTLDays <= 0 {
		return false
	}
	return now.Sub(lastUpdate) > (time.Duration(e.cfg.TTLDays) * 24 * time.Hour)
}
