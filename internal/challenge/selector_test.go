package challenge

import (
	"math/rand"
	"strings"
	"testing"
	"time"

	"spectral-companion/internal/catalog"
)

func testCatalog(keys ...string) *catalog.Catalog {
	categories := make([]catalog.Category, 0, len(keys))
	for _, key := range keys {
		categories = append(categories, catalog.Category{
			Key:   key,
			Name:  strings.ToUpper(key),
			Icon:  "👻",
			Tasks: []string{"task one for " + key, "task two for " + key},
		})
	}
	return catalog.New(categories, nil)
}

func newTestSelector(cat *catalog.Catalog) *Selector {
	s := NewSelector(cat)
	s.WithRand(rand.New(rand.NewSource(1)))
	s.WithNow(func() time.Time { return time.Unix(1700000000, 0) })
	return s
}

func TestPickNeverRepeatsImmediately(t *testing.T) {
	s := newTestSelector(testCatalog("a", "b", "c"))

	last := ""
	for i := 0; i < 50; i++ {
		sel := s.Pick("g1", last)
		if CategoryOf(sel.ID) != sel.CategoryKey {
			t.Fatalf("identifier %q does not embed category %q", sel.ID, sel.CategoryKey)
		}
		if last != "" && sel.CategoryKey == CategoryOf(last) {
			t.Fatalf("iteration %d repeated category %q", i, sel.CategoryKey)
		}
		last = sel.ID
	}
}

func TestPickCyclesThroughAllCategories(t *testing.T) {
	s := newTestSelector(testCatalog("a", "b", "c", "d"))

	seen := make(map[string]int)
	last := ""
	for i := 0; i < 8; i++ {
		sel := s.Pick("g1", last)
		seen[sel.CategoryKey]++
		last = sel.ID
	}
	for _, key := range []string{"a", "b", "c", "d"} {
		if seen[key] == 0 {
			t.Fatalf("category %q never selected across two full cycles: %v", key, seen)
		}
	}
}

func TestPickSingleCategoryNeverStalls(t *testing.T) {
	s := newTestSelector(testCatalog("only"))

	last := ""
	for i := 0; i < 10; i++ {
		sel := s.Pick("g1", last)
		if sel.CategoryKey != "only" {
			t.Fatalf("unexpected category %q", sel.CategoryKey)
		}
		last = sel.ID
	}
}

func TestPickFallbackWhenExclusionsCollapse(t *testing.T) {
	// used = {a, b}, last = c: the available set is empty, so the fallback
	// must return some category rather than fail.
	s := newTestSelector(testCatalog("a", "b", "c"))
	s.Pick("g1", "")       // consumes one of a/b/c
	s.Pick("g1", "")       // consumes another
	sel := s.Pick("g1", "c:1")
	if sel.CategoryKey == "" {
		t.Fatalf("fallback returned no category")
	}
}

func TestPickBonusRate(t *testing.T) {
	cat := catalog.New([]catalog.Category{
		{Key: "a", Name: "A", Icon: "👻", Tasks: []string{"t"}},
		{Key: "b", Name: "B", Icon: "👻", Tasks: []string{"t"}},
	}, []string{"Banshee", "Demon"})
	s := NewSelector(cat)
	s.WithRand(rand.New(rand.NewSource(7)))

	bonus := 0
	const picks = 3000
	last := ""
	for i := 0; i < picks; i++ {
		sel := s.Pick("g1", last)
		if sel.Bonus {
			bonus++
			if !strings.HasSuffix(sel.ID, ":bonus") {
				t.Fatalf("bonus selection missing identifier suffix: %q", sel.ID)
			}
			if sel.BonusGhost == "" || !strings.Contains(sel.Task, sel.BonusGhost) {
				t.Fatalf("bonus selection missing ghost clause: %+v", sel)
			}
		}
		last = sel.ID
	}

	rate := float64(bonus) / picks
	if rate < 0.28 || rate > 0.39 {
		t.Fatalf("bonus rate %.3f outside the expected one-in-three band", rate)
	}
}

func TestPickNoBonusWithoutGhostPool(t *testing.T) {
	s := newTestSelector(testCatalog("a", "b"))
	last := ""
	for i := 0; i < 100; i++ {
		sel := s.Pick("g1", last)
		if sel.Bonus {
			t.Fatalf("bonus produced with empty ghost pool")
		}
		last = sel.ID
	}
}

func TestSelectorHistoryIsPerGuild(t *testing.T) {
	s := newTestSelector(testCatalog("a", "b"))
	s.Pick("g1", "")
	if s.ActiveGuilds() != 1 {
		t.Fatalf("expected one active guild")
	}
	s.Pick("g2", "")
	if s.ActiveGuilds() != 2 {
		t.Fatalf("expected two active guilds")
	}
	s.Forget("g1")
	if s.ActiveGuilds() != 1 {
		t.Fatalf("expected one active guild after forget")
	}
}
