package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// ChallengeConfig is the per-guild challenge delivery configuration. The
// scheduler reads it and writes back only LastRenewal and LastChallengeID.
type ChallengeConfig struct {
	GuildID         string
	ChannelID       string
	Enabled         bool
	Frequency       string
	CustomHour      int
	LastRenewal     *time.Time
	LastChallengeID string
}

func (s *Store) GetChallengeConfig(ctx context.Context, guildID string) (ChallengeConfig, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT guild_id, channel_id, enabled, renewal_frequency, custom_hour,
		last_renewal, COALESCE(last_challenge_id, '')
		FROM challenge_configs WHERE guild_id = ?`, guildID)

	cfg, err := scanChallengeConfig(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ChallengeConfig{}, false, nil
		}
		return ChallengeConfig{}, false, err
	}
	return cfg, true, nil
}

func (s *Store) UpsertChallengeConfig(ctx context.Context, cfg ChallengeConfig) error {
	var lastRenewal any
	if cfg.LastRenewal != nil {
		lastRenewal = cfg.LastRenewal.Unix()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO challenge_configs (
			guild_id, channel_id, enabled, renewal_frequency, custom_hour,
			last_renewal, last_challenge_id
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET
			channel_id = excluded.channel_id,
			enabled = excluded.enabled,
			renewal_frequency = excluded.renewal_frequency,
			custom_hour = excluded.custom_hour
	`,
		cfg.GuildID,
		cfg.ChannelID,
		boolToInt(cfg.Enabled),
		cfg.Frequency,
		cfg.CustomHour,
		lastRenewal,
		cfg.LastChallengeID,
	)
	return err
}

func (s *Store) SetChallengeEnabled(ctx context.Context, guildID string, enabled bool) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE challenge_configs SET enabled = ? WHERE guild_id = ?
	`, boolToInt(enabled), guildID)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (s *Store) ListChallengeConfigs(ctx context.Context, frequency string) ([]ChallengeConfig, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT guild_id, channel_id, enabled, renewal_frequency, custom_hour,
		last_renewal, COALESCE(last_challenge_id, '')
		FROM challenge_configs
		WHERE enabled = 1 AND renewal_frequency = ?
		ORDER BY guild_id
	`, frequency)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []ChallengeConfig
	for rows.Next() {
		cfg, err := scanChallengeConfig(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	return configs, rows.Err()
}

// MarkChallengeRenewed records a successful delivery. It is the only write the
// scheduler performs against a config, and it happens strictly after the send.
func (s *Store) MarkChallengeRenewed(ctx context.Context, guildID, challengeID string, at time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE challenge_configs
		SET last_challenge_id = ?, last_renewal = ?
		WHERE guild_id = ?
	`, challengeID, at.Unix(), guildID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return errors.New("challenge config not found")
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChallengeConfig(row rowScanner) (ChallengeConfig, error) {
	var cfg ChallengeConfig
	var enabled int
	var lastRenewal sql.NullInt64
	err := row.Scan(
		&cfg.GuildID,
		&cfg.ChannelID,
		&enabled,
		&cfg.Frequency,
		&cfg.CustomHour,
		&lastRenewal,
		&cfg.LastChallengeID,
	)
	if err != nil {
		return ChallengeConfig{}, err
	}
	cfg.Enabled = enabled == 1
	if lastRenewal.Valid {
		value := time.Unix(lastRenewal.Int64, 0)
		cfg.LastRenewal = &value
	}
	return cfg, nil
}
