package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type VerificationChallenge struct {
	UserID       string
	GuildID      string
	QuestionID   string
	CorrectIndex int
	IssuedAt     time.Time
	ExpiresAt    time.Time
}

// CreateVerificationChallenge stores a pending challenge for the user,
// replacing any prior one. The delete-then-insert runs in one transaction so
// two pending rows can never coexist for a user.
func (s *Store) CreateVerificationChallenge(ctx context.Context, challenge VerificationChallenge) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM verification_challenges WHERE user_id = ?`, challenge.UserID); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO verification_challenges (user_id, guild_id, question_id, correct_index, issued_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		challenge.UserID,
		challenge.GuildID,
		challenge.QuestionID,
		challenge.CorrectIndex,
		challenge.IssuedAt.Unix(),
		challenge.ExpiresAt.Unix(),
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) GetVerificationChallenge(ctx context.Context, userID string) (VerificationChallenge, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT user_id, guild_id, question_id, correct_index, issued_at, expires_at
		FROM verification_challenges WHERE user_id = ?
	`, userID)

	var challenge VerificationChallenge
	var issued, expires int64
	err := row.Scan(&challenge.UserID, &challenge.GuildID, &challenge.QuestionID, &challenge.CorrectIndex, &issued, &expires)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return VerificationChallenge{}, false, nil
		}
		return VerificationChallenge{}, false, err
	}
	challenge.IssuedAt = time.Unix(issued, 0)
	challenge.ExpiresAt = time.Unix(expires, 0)
	return challenge, true, nil
}

// DeleteVerificationChallenge removes the pending challenge and reports
// whether a row was actually deleted. Answer and timeout both resolve through
// this, so whichever runs second sees false and becomes a no-op.
func (s *Store) DeleteVerificationChallenge(ctx context.Context, userID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM verification_challenges WHERE user_id = ?`, userID)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
