package activity

import (
	"context"
	"time"

	"spectral-companion/internal/storage"

	"go.uber.org/zap"
)

const (
	LevelInfo = "INFO"
	LevelWarn = "WARN"
)

// Event names recorded by the bot's modules.
const (
	EventChallengeRenewed = "challenge_renewed"
	EventChallengeFailed  = "challenge_failed"
	EventVerifyStarted    = "verify_started"
	EventVerifyPassed     = "verify_passed"
	EventVerifyFailed     = "verify_failed"
	EventVerifyTimeout    = "verify_timeout"
)

// Logger persists activity events and mirrors them to the structured log. An
// optional notifier lets the bot forward entries to a guild channel.
type Logger struct {
	store  *storage.Store
	logger *zap.Logger
	notify func(context.Context, storage.ActivityLog)
}

func NewLogger(store *storage.Store, logger *zap.Logger) *Logger {
	return &Logger{store: store, logger: logger}
}

func (l *Logger) SetNotifier(notify func(context.Context, storage.ActivityLog)) {
	l.notify = notify
}

func (l *Logger) Log(ctx context.Context, level, guildID, userID, event, details string) {
	entry := storage.ActivityLog{
		GuildID:   guildID,
		UserID:    userID,
		Level:     level,
		Event:     event,
		Details:   details,
		CreatedAt: time.Now(),
	}
	if l.store != nil {
		_ = l.store.AddActivityLog(ctx, entry)
	}
	if l.notify != nil {
		l.notify(ctx, entry)
	}
	l.logger.Info("activity", zap.String("level", level), zap.String("guild_id", guildID), zap.String("user_id", userID), zap.String("event", event), zap.String("details", details))
}
