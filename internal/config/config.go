package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DiscordToken  string             `yaml:"discord_token"`
	DatabasePath  string             `yaml:"database_path"`
	LogLevel      string             `yaml:"log_level"`
	RetentionDays int                `yaml:"retention_days"`
	Health        HealthConfig       `yaml:"health"`
	Challenge     ChallengeConfig    `yaml:"challenge"`
	Verification  VerificationConfig `yaml:"verification"`
	Leveling      LevelingConfig     `yaml:"leveling"`
	EmbedColors   EmbedColors        `yaml:"embed_colors"`
}

type HealthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type ChallengeConfig struct {
	DefaultHour        int `yaml:"default_hour"`
	StatsRetentionDays int `yaml:"stats_retention_days"`
}

type VerificationConfig struct {
	TimeoutSeconds int `yaml:"timeout_seconds"`
	MaxStarts      int `yaml:"max_starts"`
	WindowMinutes  int `yaml:"window_minutes"`
}

type LevelingConfig struct {
	MessageXP   float64 `yaml:"message_xp"`
	DecayPerDay float64 `yaml:"decay_per_day"`
	TTLDays     int     `yaml:"ttl_days"`
}

type EmbedColors struct {
	Action  int `yaml:"action"`
	Warning int `yaml:"warning"`
	Error   int `yaml:"error"`
}

func DefaultConfig() Config {
	return Config{
		DatabasePath:  "/data/spectral.db",
		LogLevel:      "info",
		RetentionDays: 30,
		Health:        HealthConfig{Enabled: false, Addr: ":8080"},
		Challenge: ChallengeConfig{
			DefaultHour:        8,
			StatsRetentionDays: 30,
		},
		Verification: VerificationConfig{
			TimeoutSeconds: 60,
			MaxStarts:      3,
			WindowMinutes:  10,
		},
		Leveling: LevelingConfig{
			MessageXP:   2,
			DecayPerDay: 5,
			TTLDays:     30,
		},
		EmbedColors: EmbedColors{
			Action:  0x7C3AED,
			Warning: 0xF59E0B,
			Error:   0xEF4444,
		},
	}
}

func Load() (Config, error) {
	cfg := DefaultConfig()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)
	if cfg.DiscordToken == "" {
		return Config{}, errors.New("DISCORD_TOKEN is required")
	}
	if cfg.Challenge.DefaultHour < 0 || cfg.Challenge.DefaultHour > 23 {
		cfg.Challenge.DefaultHour = 8
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.DiscordToken = envString("DISCORD_TOKEN", cfg.DiscordToken)
	cfg.DatabasePath = envString("DATABASE_PATH", cfg.DatabasePath)
	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)
	cfg.RetentionDays = envInt("RETENTION_DAYS", cfg.RetentionDays)
	cfg.Health.Enabled = envBool("HEALTH_ENABLED", cfg.Health.Enabled)
	cfg.Health.Addr = envString("HEALTH_ADDR", cfg.Health.Addr)
	cfg.Challenge.DefaultHour = envInt("CHALLENGE_DEFAULT_HOUR", cfg.Challenge.DefaultHour)
	cfg.Challenge.StatsRetentionDays = envInt("CHALLENGE_STATS_RETENTION_DAYS", cfg.Challenge.StatsRetentionDays)
	cfg.Verification.TimeoutSeconds = envInt("VERIFICATION_TIMEOUT_SECONDS", cfg.Verification.TimeoutSeconds)
	cfg.Verification.MaxStarts = envInt("VERIFICATION_MAX_STARTS", cfg.Verification.MaxStarts)
	cfg.Verification.WindowMinutes = envInt("VERIFICATION_WINDOW_MINUTES", cfg.Verification.WindowMinutes)
	cfg.Leveling.MessageXP = envFloat("LEVELING_MESSAGE_XP", cfg.Leveling.MessageXP)
	cfg.Leveling.DecayPerDay = envFloat("LEVELING_DECAY_PER_DAY", cfg.Leveling.DecayPerDay)
	cfg.Leveling.TTLDays = envInt("LEVELING_TTL_DAYS", cfg.Leveling.TTLDays)
	cfg.EmbedColors.Action = envInt("EMBED_COLOR_ACTION", cfg.EmbedColors.Action)
	cfg.EmbedColors.Warning = envInt("EMBED_COLOR_WARNING", cfg.EmbedColors.Warning)
	cfg.EmbedColors.Error = envInt("EMBED_COLOR_ERROR", cfg.EmbedColors.Error)
}

func BuildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	lvl := strings.ToLower(level)
	switch lvl {
	case "debug", "info", "warn", "error":
		cfg.Level = zap.NewAtomicLevelAt(parseLevel(lvl))
	default:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	return cfg.Build()
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		lower := strings.ToLower(value)
		return lower == "1" || lower == "true" || lower == "yes"
	}
	return fallback
}
