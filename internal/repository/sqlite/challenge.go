package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/sakif/meetsync/internal/model"
	"github.com/sakif/meetsync/internal/repository"
)

type challengeStore struct {
	q querier
}

var _ repository.ChallengeRepository = (*challengeStore)(nil)

// Put stores a pending challenge for the (user, device) pair. INSERT OR
// REPLACE rides the UNIQUE(user_id, device_id) index: issuing a new
// challenge discards any unanswered one, so at most one is ever open.
func (s *challengeStore) Put(ctx context.Context, c *model.BiometricChallenge) error {
	now := time.Now().UTC()
	c.ID = newID()
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err := s.q.ExecContext(ctx,
		`INSERT OR REPLACE INTO biometric_challenges
			(id, user_id, device_id, challenge, expires_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID,
		c.UserID,
		c.DeviceID,
		c.Challenge,
		c.ExpiresAt.UTC(),
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: storing biometric challenge: %w", err)
	}
	return nil
}

// Consume deletes the matching unexpired challenge in one statement and
// reports whether a row went away. The delete IS the single-use check:
// two verifications racing on the same challenge cannot both see a row
// removed.
func (s *challengeStore) Consume(ctx context.Context, userID, deviceID, challenge string, now time.Time) (bool, error) {
	res, err := s.q.ExecContext(ctx,
		`DELETE FROM biometric_challenges
		 WHERE user_id = ? AND device_id = ? AND challenge = ? AND expires_at > ?`,
		userID, deviceID, challenge, now.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: consuming biometric challenge: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: consuming biometric challenge: %w", err)
	}
	return n > 0, nil
}

func (s *challengeStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.q.ExecContext(ctx,
		`DELETE FROM biometric_challenges WHERE expires_at <= ?`, now.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: deleting expired challenges: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: deleting expired challenges: %w", err)
	}
	return n, nil
}
