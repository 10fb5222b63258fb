package challenge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"spectral-companion/internal/modules/activity"
	"spectral-companion/internal/storage"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var (
	// ErrNotInitialized is returned by Start when Initialize was never called.
	ErrNotInitialized = errors.New("challenge scheduler not initialized")
	// ErrNotConfigured is returned by ManualRenewal for guilds without a
	// challenge config.
	ErrNotConfigured = errors.New("guild has no challenge configuration")
)

const tickTimeout = 2 * time.Minute

// Store is the subset of the storage layer the scheduler needs.
type Store interface {
	ListChallengeConfigs(ctx context.Context, frequency string) ([]storage.ChallengeConfig, error)
	GetChallengeConfig(ctx context.Context, guildID string) (storage.ChallengeConfig, bool, error)
	MarkChallengeRenewed(ctx context.Context, guildID, challengeID string, at time.Time) error
}

// Sink delivers a rendered challenge into a guild channel.
type Sink interface {
	SendChallenge(ctx context.Context, channelID string, announcement Announcement) error
}

// Announcement carries everything the sink needs to render one challenge.
type Announcement struct {
	GuildID        string
	CategoryName   string
	Icon           string
	Task           string
	Bonus          bool
	FrequencyLabel string
	NextRenewal    time.Time
	TraceID        string
}

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type TierStatus struct {
	Running   bool
	Scheduled bool
	Next      time.Time
}

type Status struct {
	Initialized  bool
	Tiers        map[string]TierStatus
	ActiveGuilds int
}

// Scheduler drives per-guild challenge renewals. One cron entry per content
// tier plus one cleanup entry; each tier re-evaluates its guilds on every
// tick and renews the eligible ones.
type Scheduler struct {
	logger   *zap.Logger
	store    Store
	sink     Sink
	selector *Selector
	clock    Clock
	activity *activity.Logger

	cron        *cron.Cron
	entries     map[Frequency]cron.EntryID
	cleanupID   cron.EntryID
	cleanups    []func(context.Context)
	initialized bool
	started     bool
}

func NewScheduler(logger *zap.Logger, store Store, sink Sink, selector *Selector) *Scheduler {
	return &Scheduler{
		logger:   logger,
		store:    store,
		sink:     sink,
		selector: selector,
		clock:    realClock{},
		entries:  make(map[Frequency]cron.EntryID),
	}
}

func (s *Scheduler) WithClock(clock Clock) {
	s.clock = clock
}

// WithActivity mirrors renewal outcomes into the guild activity log.
func (s *Scheduler) WithActivity(logger *activity.Logger) {
	s.activity = logger
}

// AddCleanup registers a task for the cleanup tier. Must be called before
// Initialize.
func (s *Scheduler) AddCleanup(fn func(context.Context)) {
	s.cleanups = append(s.cleanups, fn)
}

// Initialize builds the tier timers without starting them. Calling it twice
// is a warning no-op.
func (s *Scheduler) Initialize() {
	if s.initialized {
		s.logger.Warn("challenge scheduler already initialized")
		return
	}

	s.cron = cron.New()
	for _, freq := range Frequencies() {
		tier := freq
		id, err := s.cron.AddFunc(tier.cronSpec(), func() {
			ctx, cancel := context.WithTimeout(context.Background(), tickTimeout)
			defer cancel()
			s.tick(ctx, tier)
		})
		if err != nil {
			s.logger.Error("tier schedule rejected", zap.String("tier", string(tier)), zap.Error(err))
			continue
		}
		s.entries[tier] = id
	}

	id, err := s.cron.AddFunc("30 4 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), tickTimeout)
		defer cancel()
		for _, fn := range s.cleanups {
			fn(ctx)
		}
	})
	if err != nil {
		s.logger.Error("cleanup schedule rejected", zap.Error(err))
	} else {
		s.cleanupID = id
	}

	s.initialized = true
	s.logger.Info("challenge scheduler initialized", zap.Int("tiers", len(s.entries)))
}

// Start activates all timers. Using the scheduler before Initialize is a
// configuration error.
func (s *Scheduler) Start() error {
	if !s.initialized {
		return ErrNotInitialized
	}
	if s.started {
		return nil
	}
	s.cron.Start()
	s.started = true
	s.logger.Info("challenge scheduler started")
	return nil
}

// Stop deactivates all timers. Safe to call at any point; in-flight ticks
// finish their current guild update before the returned context resolves.
func (s *Scheduler) Stop() {
	if s.cron == nil || !s.started {
		return
	}
	<-s.cron.Stop().Done()
	s.started = false
	s.logger.Info("challenge scheduler stopped")
}

func (s *Scheduler) tick(ctx context.Context, freq Frequency) {
	now := s.clock.Now()
	configs, err := s.store.ListChallengeConfigs(ctx, string(freq))
	if err != nil {
		s.logger.Error("tier config load failed", zap.String("tier", string(freq)), zap.Error(err))
		return
	}

	renewed, failed := 0, 0
	for _, cfg := range configs {
		if !Eligible(cfg, freq, now) {
			continue
		}
		if err := s.renew(ctx, cfg, freq); err != nil {
			failed++
			s.logger.Warn("guild renewal failed",
				zap.String("guild_id", cfg.GuildID),
				zap.String("tier", string(freq)),
				zap.Error(err))
			continue
		}
		renewed++
	}
	if renewed > 0 || failed > 0 {
		s.logger.Info("tier tick complete",
			zap.String("tier", string(freq)),
			zap.Int("renewed", renewed),
			zap.Int("failed", failed))
	}
}

// ManualRenewal renews one guild immediately, skipping the eligibility check.
// Unlike scheduled renewals, failures propagate to the caller.
func (s *Scheduler) ManualRenewal(ctx context.Context, guildID string) error {
	cfg, found, err := s.store.GetChallengeConfig(ctx, guildID)
	if err != nil {
		return fmt.Errorf("load challenge config: %w", err)
	}
	if !found {
		return ErrNotConfigured
	}
	freq, err := ParseFrequency(cfg.Frequency)
	if err != nil {
		return err
	}
	return s.renew(ctx, cfg, freq)
}

// renew performs one guild's selection, delivery and write-back. The renewal
// timestamp is persisted only after the send succeeds, so a failed delivery
// leaves the guild eligible for the next tick.
func (s *Scheduler) renew(ctx context.Context, cfg storage.ChallengeConfig, freq Frequency) error {
	now := s.clock.Now()
	selection := s.selector.Pick(cfg.GuildID, cfg.LastChallengeID)

	announcement := Announcement{
		GuildID:        cfg.GuildID,
		CategoryName:   selection.CategoryName,
		Icon:           selection.Icon,
		Task:           selection.Task,
		Bonus:          selection.Bonus,
		FrequencyLabel: freq.Label(),
		NextRenewal:    freq.NextRenewal(now, cfg.CustomHour),
		TraceID:        uuid.NewString(),
	}

	if err := s.sink.SendChallenge(ctx, cfg.ChannelID, announcement); err != nil {
		s.logActivity(ctx, cfg.GuildID, activity.EventChallengeFailed, fmt.Sprintf("tier=%s category=%s", freq, selection.CategoryKey))
		return fmt.Errorf("deliver challenge: %w", err)
	}
	if err := s.store.MarkChallengeRenewed(ctx, cfg.GuildID, selection.ID, now); err != nil {
		// Delivery succeeded but the write-back did not. The guild stays
		// eligible and may receive a duplicate next tick.
		return fmt.Errorf("persist renewal: %w", err)
	}
	s.logActivity(ctx, cfg.GuildID, activity.EventChallengeRenewed, fmt.Sprintf("tier=%s challenge=%s", freq, selection.ID))
	return nil
}

func (s *Scheduler) logActivity(ctx context.Context, guildID, event, details string) {
	if s.activity == nil {
		return
	}
	s.activity.Log(ctx, activity.LevelInfo, guildID, "", event, details)
}

// Status reports the scheduler's operational state.
func (s *Scheduler) Status() Status {
	status := Status{
		Initialized:  s.initialized,
		Tiers:        make(map[string]TierStatus, len(s.entries)),
		ActiveGuilds: s.selector.ActiveGuilds(),
	}
	for freq, id := range s.entries {
		entry := s.cron.Entry(id)
		status.Tiers[string(freq)] = TierStatus{
			Running:   s.started,
			Scheduled: entry.ID != 0,
			Next:      entry.Next,
		}
	}
	return status
}
