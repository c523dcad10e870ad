package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/meetsync/internal/apperror"
	"github.com/sakif/meetsync/internal/model"
	"github.com/sakif/meetsync/internal/repository"
)

type tokenStore struct {
	q querier
}

var _ repository.TokenRepository = (*tokenStore)(nil)

const tokenColumns = `id, user_id, token_hash, device_id, is_active,
	expires_at, last_used, created_at, updated_at`

func (s *tokenStore) Create(ctx context.Context, token *model.RefreshToken) error {
	now := time.Now().UTC()
	token.ID = newID()
	token.CreatedAt = now
	token.UpdatedAt = now

	_, err := s.q.ExecContext(ctx,
		`INSERT INTO refresh_tokens (`+tokenColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		token.ID,
		token.UserID,
		token.TokenHash,
		token.DeviceID,
		token.IsActive,
		token.ExpiresAt.UTC(),
		nullTime(token.LastUsed),
		token.CreatedAt,
		token.UpdatedAt,
	)
	if err != nil {
		// token_hash is UNIQUE; a duplicate means a hash collision or,
		// far more likely, a replayed insert.
		return conflictOr(err, "refresh token", "token hash", "inserting refresh token")
	}
	return nil
}

func (s *tokenStore) GetActive(ctx context.Context, tokenHash, deviceID string, now time.Time) (*model.RefreshToken, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+tokenColumns+` FROM refresh_tokens
		 WHERE token_hash = ? AND device_id = ? AND is_active = 1 AND expires_at > ?`,
		tokenHash, deviceID, now.UTC(),
	)
	token, err := scanToken(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("sqlite: %w", apperror.NotFound("refresh token", "hash"))
		}
		return nil, fmt.Errorf("sqlite: getting refresh token: %w", err)
	}
	return token, nil
}

func (s *tokenStore) TouchLastUsed(ctx context.Context, id string, at time.Time) error {
	_, err := s.q.ExecContext(ctx,
		`UPDATE refresh_tokens SET last_used = ?, updated_at = ? WHERE id = ?`,
		at.UTC(), time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: touching refresh token %s: %w", id, err)
	}
	return nil
}

func (s *tokenStore) Deactivate(ctx context.Context, tokenHash string) (bool, error) {
	res, err := s.q.ExecContext(ctx,
		`UPDATE refresh_tokens SET is_active = 0, updated_at = ?
		 WHERE token_hash = ? AND is_active = 1`,
		time.Now().UTC(), tokenHash,
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: revoking refresh token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: revoking refresh token: %w", err)
	}
	return n > 0, nil
}

func (s *tokenStore) DeactivateAllForUser(ctx context.Context, userID, excludeDeviceID string) (int64, error) {
	query := `UPDATE refresh_tokens SET is_active = 0, updated_at = ?
		 WHERE user_id = ? AND is_active = 1`
	args := []any{time.Now().UTC(), userID}
	if excludeDeviceID != "" {
		query += ` AND device_id != ?`
		args = append(args, excludeDeviceID)
	}

	res, err := s.q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("sqlite: revoking tokens for user %s: %w", userID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: revoking tokens for user %s: %w", userID, err)
	}
	return n, nil
}

func (s *tokenStore) DeactivateAllForDevice(ctx context.Context, userID, deviceID string) (int64, error) {
	res, err := s.q.ExecContext(ctx,
		`UPDATE refresh_tokens SET is_active = 0, updated_at = ?
		 WHERE user_id = ? AND device_id = ? AND is_active = 1`,
		time.Now().UTC(), userID, deviceID)
	if err != nil {
		return 0, fmt.Errorf("sqlite: revoking tokens for device %s: %w", deviceID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: revoking tokens for device %s: %w", deviceID, err)
	}
	return n, nil
}

// EnforceLimit keeps at most max active grants per user by deactivating
// the least recently used beyond the cap. A grant that was never
// refreshed counts from its issuance time. LIMIT -1 OFFSET n is the
// SQLite idiom for "everything after the first n".
func (s *tokenStore) EnforceLimit(ctx context.Context, userID string, max int) (int64, error) {
	res, err := s.q.ExecContext(ctx,
		`UPDATE refresh_tokens SET is_active = 0, updated_at = ?
		 WHERE id IN (
			SELECT id FROM refresh_tokens
			WHERE user_id = ? AND is_active = 1
			ORDER BY COALESCE(last_used, created_at) DESC
			LIMIT -1 OFFSET ?
		 )`,
		time.Now().UTC(), userID, max,
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: enforcing token limit for user %s: %w", userID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: enforcing token limit for user %s: %w", userID, err)
	}
	return n, nil
}

// DeleteExpired physically removes rows past expiry. Expired rows are
// unusable by every read path, so this is safe against live traffic.
func (s *tokenStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.q.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE expires_at <= ?`, now.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: deleting expired refresh tokens: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: deleting expired refresh tokens: %w", err)
	}
	return n, nil
}

func scanToken(row scanner) (*model.RefreshToken, error) {
	var (
		t        model.RefreshToken
		lastUsed sql.NullTime
	)

	err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.TokenHash,
		&t.DeviceID,
		&t.IsActive,
		&t.ExpiresAt,
		&lastUsed,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.LastUsed = timePtr(lastUsed)
	return &t, nil
}
