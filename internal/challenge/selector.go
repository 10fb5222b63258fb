package challenge

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"spectral-companion/internal/catalog"
)

// Selection is one rendered challenge ready for delivery. ID embeds the
// category key and a uniqueness token; only the category prefix is ever
// parsed back, as the repeat exclusion for the next pick.
type Selection struct {
	ID           string
	CategoryKey  string
	CategoryName string
	Icon         string
	Task         string
	Bonus        bool
	BonusGhost   string
}

// Selector picks catalog categories per guild while avoiding recent repeats.
// The per-guild used sets are process-local and may be lost on restart; that
// only weakens short-term repetition avoidance, never correctness.
type Selector struct {
	mu      sync.Mutex
	catalog *catalog.Catalog
	used    map[string]map[string]struct{}
	rng     *rand.Rand
	now     func() time.Time
}

func NewSelector(cat *catalog.Catalog) *Selector {
	return &Selector{
		catalog: cat,
		used:    make(map[string]map[string]struct{}),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		now:     time.Now,
	}
}

// WithRand replaces the randomness source, for tests.
func (s *Selector) WithRand(rng *rand.Rand) {
	s.rng = rng
}

// WithNow replaces the identifier timestamp source, for tests.
func (s *Selector) WithNow(now func() time.Time) {
	s.now = now
}

// Pick chooses a category and task for the guild. lastChallengeID is the
// previously stored identifier, excluded alongside the used set; when the
// exclusions empty the available set the full catalog is used instead, so
// Pick always returns a choice.
func (s *Selector) Pick(guildID, lastChallengeID string) Selection {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := s.catalog.Keys()
	used := s.used[guildID]
	if used == nil {
		used = make(map[string]struct{})
		s.used[guildID] = used
	}
	if len(used) >= len(keys) {
		clear(used)
	}

	lastCategory := CategoryOf(lastChallengeID)
	available := make([]string, 0, len(keys))
	for _, key := range keys {
		if _, ok := used[key]; ok {
			continue
		}
		if key == lastCategory {
			continue
		}
		available = append(available, key)
	}
	if len(available) == 0 {
		available = keys
	}

	key := available[s.rng.Intn(len(available))]
	category, _ := s.catalog.Category(key)
	task := category.Tasks[s.rng.Intn(len(category.Tasks))]
	used[key] = struct{}{}

	selection := Selection{
		CategoryKey:  key,
		CategoryName: category.Name,
		Icon:         category.Icon,
		Task:         task,
	}

	id := fmt.Sprintf("%s:%d", key, s.now().Unix())
	ghosts := s.catalog.Ghosts()
	if len(ghosts) > 0 && s.rng.Intn(3) == 0 {
		ghost := ghosts[s.rng.Intn(len(ghosts))]
		selection.Bonus = true
		selection.BonusGhost = ghost
		selection.Task = fmt.Sprintf("%s Bonus: pull it off on a contract where the ghost turns out to be a %s.", task, ghost)
		id += ":bonus"
	}
	selection.ID = id
	return selection
}

// ActiveGuilds returns how many guilds currently hold in-memory selection
// history. Operational signal only.
func (s *Selector) ActiveGuilds() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.used)
}

// Forget drops the selection history for a guild.
func (s *Selector) Forget(guildID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.used, guildID)
}

// CategoryOf extracts the category key from a stored challenge identifier.
func CategoryOf(challengeID string) string {
	if challengeID == "" {
		return ""
	}
	if idx := strings.IndexByte(challengeID, ':'); idx >= 0 {
		return challengeID[:idx]
	}
	return challengeID
}
