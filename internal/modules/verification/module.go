package verification

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"spectral-companion/internal/config"
	"spectral-companion/internal/modules/activity"
	"spectral-companion/internal/storage"
	"spectral-companion/internal/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrNoPending is returned when a user answers without an open challenge,
	// or when the challenge resolved (timed out) just before the answer.
	ErrNoPending = errors.New("no pending verification challenge")
	// ErrRateLimited is returned when a user starts challenges too quickly.
	ErrRateLimited = errors.New("verification rate limit reached")
)

// Store is the subset of the storage layer the module needs.
type Store interface {
	CreateVerificationChallenge(ctx context.Context, challenge storage.VerificationChallenge) error
	GetVerificationChallenge(ctx context.Context, userID string) (storage.VerificationChallenge, bool, error)
	DeleteVerificationChallenge(ctx context.Context, userID string) (bool, error)
}

type Question struct {
	ID      string
	Prompt  string
	Options []string
	Correct int
}

// Challenge is what the bot renders back to the user.
type Challenge struct {
	Question  Question
	ExpiresAt time.Time
}

type Result struct {
	Correct       bool
	Elapsed       time.Duration
	TimedOut      bool
	CorrectOption string
}

type DayStats struct {
	Started  int
	Passed   int
	Failed   int
	TimedOut int
}

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Module runs the verification quiz flow: one pending challenge per user,
// resolved exactly once, either by an answer or by the expiry timer. The
// pending row is the single source of truth; whichever of answer/timeout
// deletes it first wins, the other becomes a no-op.
type Module struct {
	mu        sync.Mutex
	store     Store
	activity  *activity.Logger
	logger    *zap.Logger
	clock     Clock
	timeout   time.Duration
	maxStarts int
	window    time.Duration
	questions []Question
	rng       *rand.Rand
	timers    map[string]*time.Timer
	limiters  map[string]*utils.SlidingWindow
	daily     map[string]map[string]*DayStats
}

func New(cfg config.VerificationConfig, store Store, activityLogger *activity.Logger, logger *zap.Logger) *Module {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = time.Minute
	}
	window := time.Duration(cfg.WindowMinutes) * time.Minute
	if window <= 0 {
		window = 10 * time.Minute
	}
	maxStarts := cfg.MaxStarts
	if maxStarts <= 0 {
		maxStarts = 3
	}
	return &Module{
		store:     store,
		activity:  activityLogger,
		logger:    logger,
		clock:     realClock{},
		timeout:   timeout,
		maxStarts: maxStarts,
		window:    window,
		questions: defaultQuestions(),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		timers:    make(map[string]*time.Timer),
		limiters:  make(map[string]*utils.SlidingWindow),
		daily:     make(map[string]map[string]*DayStats),
	}
}

func (m *Module) WithClock(clock Clock) {
	m.clock = clock
}

func (m *Module) WithQuestions(questions []Question) {
	m.questions = questions
}

func (m *Module) WithTimeout(timeout time.Duration) {
	m.timeout = timeout
}

// Start opens a challenge for the user, replacing any pending one.
func (m *Module) Start(ctx context.Context, guildID, userID string) (Challenge, error) {
	m.mu.Lock()
	limiter := m.limiters[userID]
	if limiter == nil {
		limiter = utils.NewSlidingWindow(m.window)
		m.limiters[userID] = limiter
	}
	now := m.clock.Now()
	if limiter.Count(now) >= m.maxStarts {
		m.mu.Unlock()
		return Challenge{}, ErrRateLimited
	}
	limiter.Add(now)

	question := m.questions[m.rng.Intn(len(m.questions))]
	if timer := m.timers[userID]; timer != nil {
		timer.Stop()
		delete(m.timers, userID)
	}
	m.mu.Unlock()

	record := storage.VerificationChallenge{
		UserID:       userID,
		GuildID:      guildID,
		QuestionID:   question.ID,
		CorrectIndex: question.Correct,
		IssuedAt:     now,
		ExpiresAt:    now.Add(m.timeout),
	}
	if err := m.store.CreateVerificationChallenge(ctx, record); err != nil {
		return Challenge{}, fmt.Errorf("create verification challenge: %w", err)
	}

	m.mu.Lock()
	m.timers[userID] = time.AfterFunc(m.timeout, func() {
		m.expire(userID)
	})
	m.mu.Unlock()

	m.bump(guildID, now, func(stats *DayStats) { stats.Started++ })
	m.activity.Log(ctx, activity.LevelInfo, guildID, userID, activity.EventVerifyStarted, "question="+question.ID)

	return Challenge{Question: question, ExpiresAt: record.ExpiresAt}, nil
}

// Answer resolves the user's pending challenge. A record that already
// expired but whose timer was lost (process restart) resolves as a timeout.
func (m *Module) Answer(ctx context.Context, userID string, index int) (Result, error) {
	record, found, err := m.store.GetVerificationChallenge(ctx, userID)
	if err != nil {
		return Result{}, fmt.Errorf("load verification challenge: %w", err)
	}
	if !found {
		return Result{}, ErrNoPending
	}

	deleted, err := m.store.DeleteVerificationChallenge(ctx, userID)
	if err != nil {
		return Result{}, fmt.Errorf("resolve verification challenge: %w", err)
	}
	if !deleted {
		return Result{}, ErrNoPending
	}

	m.mu.Lock()
	if timer := m.timers[userID]; timer != nil {
		timer.Stop()
		delete(m.timers, userID)
	}
	m.mu.Unlock()

	now := m.clock.Now()
	elapsed := now.Sub(record.IssuedAt)
	correctOption := m.optionText(record.QuestionID, record.CorrectIndex)

	if now.After(record.ExpiresAt) {
		m.bump(record.GuildID, now, func(stats *DayStats) { stats.TimedOut++ })
		m.activity.Log(ctx, activity.LevelInfo, record.GuildID, userID, activity.EventVerifyTimeout, "question="+record.QuestionID)
		return Result{TimedOut: true, Elapsed: elapsed, CorrectOption: correctOption}, nil
	}

	result := Result{
		Correct:       index == record.CorrectIndex,
		Elapsed:       elapsed,
		CorrectOption: correctOption,
	}
	if result.Correct {
		m.bump(record.GuildID, now, func(stats *DayStats) { stats.Passed++ })
		m.activity.Log(ctx, activity.LevelInfo, record.GuildID, userID, activity.EventVerifyPassed, fmt.Sprintf("question=%s elapsed=%s", record.QuestionID, elapsed.Round(time.Millisecond)))
	} else {
		m.bump(record.GuildID, now, func(stats *DayStats) { stats.Failed++ })
		m.activity.Log(ctx, activity.LevelWarn, record.GuildID, userID, activity.EventVerifyFailed, "question="+record.QuestionID)
	}
	return result, nil
}

// expire fires at the challenge deadline. If the record was already resolved
// by an answer, or replaced by a newer challenge, the delete comes back false
// (or the deadline check fails) and this is a no-op.
func (m *Module) expire(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	record, found, err := m.store.GetVerificationChallenge(ctx, userID)
	if err != nil || !found {
		return
	}
	now := m.clock.Now()
	if now.Before(record.ExpiresAt) {
		return
	}

	deleted, err := m.store.DeleteVerificationChallenge(ctx, userID)
	if err != nil || !deleted {
		return
	}

	m.mu.Lock()
	delete(m.timers, userID)
	m.mu.Unlock()

	m.bump(record.GuildID, now, func(stats *DayStats) { stats.TimedOut++ })
	m.activity.Log(ctx, activity.LevelInfo, record.GuildID, userID, activity.EventVerifyTimeout, "question="+record.QuestionID)
	m.logger.Debug("verification challenge expired", zap.String("user_id", userID))
}

// GuildStats sums the retained daily counters for a guild.
func (m *Module) GuildStats(guildID string) DayStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	var total DayStats
	for _, stats := range m.daily[guildID] {
		total.Started += stats.Started
		total.Passed += stats.Passed
		total.Failed += stats.Failed
		total.TimedOut += stats.TimedOut
	}
	return total
}

// EvictStale drops daily counters older than the retention window.
func (m *Module) EvictStale(retentionDays int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.clock.Now().AddDate(0, 0, -retentionDays).Format(dateLayout)
	for guildID, days := range m.daily {
		for date := range days {
			if date < cutoff {
				delete(days, date)
			}
		}
		if len(days) == 0 {
			delete(m.daily, guildID)
		}
	}
}

const dateLayout = "2006-01-02"

func (m *Module) bump(guildID string, now time.Time, fn func(*DayStats)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	days := m.daily[guildID]
	if days == nil {
		days = make(map[string]*DayStats)
		m.daily[guildID] = days
	}
	date := now.Format(dateLayout)
	stats := days[date]
	if stats == nil {
		stats = &DayStats{}
		days[date] = stats
	}
	fn(stats)
}

func (m *Module) optionText(questionID string, index int) string {
	for _, question := range m.questions {
		if question.ID == questionID {
			if index >= 0 && index < len(question.Options) {
				return question.Options[index]
			}
			return ""
		}
	}
	return ""
}

func defaultQuestions() []Question {
	return []Question{
		{
			ID:      uuid.NewString(),
			Prompt:  "Which ghost gets faster the longer it hunts?",
			Options: []string{"Revenant", "Moroi", "Jinn", "Hantu"},
			Correct: 1,
		},
		{
			ID:      uuid.NewString(),
			Prompt:  "Which piece of evidence does a Banshee always show?",
			Options: []string{"Freezing Temperatures", "Ghost Orb", "Spirit Box", "EMF Level 5"},
			Correct: 1,
		},
		{
			ID:      uuid.NewString(),
			Prompt:  "What does smudging near the ghost prevent?",
			Options: []string{"Ghost Events", "Sanity Drain", "Hunts", "Interactions"},
			Correct: 2,
		},
		{
			ID:      uuid.NewString(),
			Prompt:  "Which cursed possession lets you ask the ghost questions?",
			Options: []string{"Tarot Cards", "Music Box", "Ouija Board", "Haunted Mirror"},
			Correct: 2,
		},
		{
			ID:      uuid.NewString(),
			Prompt:  "Which ghost cannot turn off a breaker-powered light?",
			Options: []string{"Mare", "Jinn", "Yokai", "Shade"},
			Correct: 1,
		},
		{
			ID:      uuid.NewString(),
			Prompt:  "At what average sanity can a Demon start hunting?",
			Options: []string{"50%", "70%", "Any sanity", "40%"},
			Correct: 1,
		},
	}
}
