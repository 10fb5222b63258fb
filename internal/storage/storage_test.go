package storage

import (
	"context"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func TestUpsertChallengeConfig(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cfg := ChallengeConfig{
		GuildID:    "g1",
		ChannelID:  "c1",
		Enabled:    true,
		Frequency:  "hourly",
		CustomHour: 8,
	}
	if err := store.UpsertChallengeConfig(ctx, cfg); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	cfg.ChannelID = "c2"
	cfg.Frequency = "daily"
	if err := store.UpsertChallengeConfig(ctx, cfg); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	got, found, err := store.GetChallengeConfig(ctx, "g1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !found {
		t.Fatalf("expected config to exist")
	}
	if got.ChannelID != "c2" || got.Frequency != "daily" {
		t.Fatalf("unexpected config: %+v", got)
	}
	if got.LastRenewal != nil {
		t.Fatalf("fresh config should have no last renewal")
	}
}

func TestUpsertPreservesRenewalState(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cfg := ChallengeConfig{GuildID: "g1", ChannelID: "c1", Enabled: true, Frequency: "hourly", CustomHour: 8}
	if err := store.UpsertChallengeConfig(ctx, cfg); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	renewed := time.Now().Add(-time.Hour).Truncate(time.Second)
	if err := store.MarkChallengeRenewed(ctx, "g1", "evidence:123", renewed); err != nil {
		t.Fatalf("mark renewed: %v", err)
	}

	cfg.ChannelID = "c9"
	if err := store.UpsertChallengeConfig(ctx, cfg); err != nil {
		t.Fatalf("re-upsert: %v", err)
	}

	got, _, err := store.GetChallengeConfig(ctx, "g1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.LastChallengeID != "evidence:123" {
		t.Fatalf("setup overwrote last challenge id: %q", got.LastChallengeID)
	}
	if got.LastRenewal == nil || !got.LastRenewal.Equal(renewed) {
		t.Fatalf("setup overwrote last renewal: %v", got.LastRenewal)
	}
}

func TestMarkChallengeRenewedMissingGuild(t *testing.T) {
	store := newTestStore(t)
	if err := store.MarkChallengeRenewed(context.Background(), "missing", "x:1", time.Now()); err == nil {
		t.Fatalf("expected error for missing config")
	}
}

func TestListChallengeConfigsFiltersByTier(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	configs := []ChallengeConfig{
		{GuildID: "g1", ChannelID: "c1", Enabled: true, Frequency: "hourly", CustomHour: 8},
		{GuildID: "g2", ChannelID: "c2", Enabled: true, Frequency: "daily", CustomHour: 8},
		{GuildID: "g3", ChannelID: "c3", Enabled: false, Frequency: "hourly", CustomHour: 8},
	}
	for _, cfg := range configs {
		if err := store.UpsertChallengeConfig(ctx, cfg); err != nil {
			t.Fatalf("upsert %s: %v", cfg.GuildID, err)
		}
	}
	if _, err := store.SetChallengeEnabled(ctx, "g3", false); err != nil {
		t.Fatalf("disable g3: %v", err)
	}

	hourly, err := store.ListChallengeConfigs(ctx, "hourly")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(hourly) != 1 || hourly[0].GuildID != "g1" {
		t.Fatalf("expected only g1, got %+v", hourly)
	}
}

func TestVerificationChallengeReplacement(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().Truncate(time.Second)

	first := VerificationChallenge{
		UserID: "u1", GuildID: "g1", QuestionID: "q1",
		CorrectIndex: 2, IssuedAt: now, ExpiresAt: now.Add(time.Minute),
	}
	if err := store.CreateVerificationChallenge(ctx, first); err != nil {
		t.Fatalf("create: %v", err)
	}

	second := first
	second.QuestionID = "q2"
	second.CorrectIndex = 0
	if err := store.CreateVerificationChallenge(ctx, second); err != nil {
		t.Fatalf("replace: %v", err)
	}

	got, found, err := store.GetVerificationChallenge(ctx, "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !found || got.QuestionID != "q2" {
		t.Fatalf("expected replaced challenge, got %+v found=%t", got, found)
	}

	deleted, err := store.DeleteVerificationChallenge(ctx, "u1")
	if err != nil || !deleted {
		t.Fatalf("delete: deleted=%t err=%v", deleted, err)
	}
	deleted, err = store.DeleteVerificationChallenge(ctx, "u1")
	if err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if deleted {
		t.Fatalf("second delete should be a no-op")
	}
}

func TestActivityLogRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	entry := ActivityLog{
		GuildID: "g1", UserID: "u1", Level: "INFO",
		Event: "challenge_renewed", Details: "category=evidence",
		CreatedAt: time.Now(),
	}
	if err := store.AddActivityLog(ctx, entry); err != nil {
		t.Fatalf("add: %v", err)
	}

	logs, err := store.ListActivityLogs(ctx, "g1", time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(logs) != 1 || logs[0].Event != "challenge_renewed" {
		t.Fatalf("unexpected logs: %+v", logs)
	}
}
