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

type userStore struct {
	q querier
}

var _ repository.UserRepository = (*userStore)(nil)

const userColumns = `id, email, username, full_name, password_hash,
	is_active, is_verified, role, google_id, apple_id,
	biometric_enabled, biometric_public_key, avatar_url, phone_number,
	last_login, created_at, updated_at`

func (s *userStore) Create(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	user.ID = newID()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := s.q.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Email,
		nullString(user.Username),
		user.FullName,
		nullString(user.PasswordHash),
		user.IsActive,
		user.IsVerified,
		string(user.Role),
		nullString(user.GoogleID),
		nullString(user.AppleID),
		user.BiometricEnabled,
		nullString(user.BiometricPublicKey),
		user.AvatarURL,
		user.PhoneNumber,
		nullTime(user.LastLogin),
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return conflictOr(err, "user", user.Email, "inserting user")
	}
	return nil
}

func (s *userStore) GetByID(ctx context.Context, id string) (*model.User, error) {
	return s.getBy(ctx, "id = ?", id)
}

func (s *userStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.getBy(ctx, "email = ?", email)
}

func (s *userStore) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.getBy(ctx, "username = ?", username)
}

func (s *userStore) GetByProviderID(ctx context.Context, p model.Provider, providerUserID string) (*model.User, error) {
	switch p {
	case model.ProviderGoogle:
		return s.getBy(ctx, "google_id = ?", providerUserID)
	case model.ProviderApple:
		return s.getBy(ctx, "apple_id = ?", providerUserID)
	}
	return nil, fmt.Errorf("sqlite: unknown provider %q", p)
}

func (s *userStore) getBy(ctx context.Context, where string, arg any) (*model.User, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+where, arg,
	)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("sqlite: %w", apperror.NotFound("user", fmt.Sprint(arg)))
		}
		return nil, fmt.Errorf("sqlite: getting user: %w", err)
	}
	return user, nil
}

func (s *userStore) Update(ctx context.Context, user *model.User) error {
	user.UpdatedAt = time.Now().UTC()

	res, err := s.q.ExecContext(ctx,
		`UPDATE users SET
			email = ?, username = ?, full_name = ?, password_hash = ?,
			is_active = ?, is_verified = ?, role = ?,
			google_id = ?, apple_id = ?,
			biometric_enabled = ?, biometric_public_key = ?,
			avatar_url = ?, phone_number = ?, last_login = ?, updated_at = ?
		 WHERE id = ?`,
		user.Email,
		nullString(user.Username),
		user.FullName,
		nullString(user.PasswordHash),
		user.IsActive,
		user.IsVerified,
		string(user.Role),
		nullString(user.GoogleID),
		nullString(user.AppleID),
		user.BiometricEnabled,
		nullString(user.BiometricPublicKey),
		user.AvatarURL,
		user.PhoneNumber,
		nullTime(user.LastLogin),
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		return conflictOr(err, "user", user.Email, "updating user")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("sqlite: %w", apperror.NotFound("user", user.ID))
	}
	return nil
}

func (s *userStore) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	_, err := s.q.ExecContext(ctx,
		`UPDATE users SET last_login = ?, updated_at = ? WHERE id = ?`,
		at.UTC(), time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating last login for user %s: %w", id, err)
	}
	return nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*model.User, error) {
	var (
		u            model.User
		username     sql.NullString
		passwordHash sql.NullString
		role         string
		googleID     sql.NullString
		appleID      sql.NullString
		publicKey    sql.NullString
		lastLogin    sql.NullTime
	)

	err := row.Scan(
		&u.ID,
		&u.Email,
		&username,
		&u.FullName,
		&passwordHash,
		&u.IsActive,
		&u.IsVerified,
		&role,
		&googleID,
		&appleID,
		&u.BiometricEnabled,
		&publicKey,
		&u.AvatarURL,
		&u.PhoneNumber,
		&lastLogin,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	u.Username = stringPtr(username)
	u.PasswordHash = stringPtr(passwordHash)
	u.Role = model.Role(role)
	u.GoogleID = stringPtr(googleID)
	u.AppleID = stringPtr(appleID)
	u.BiometricPublicKey = stringPtr(publicKey)
	u.LastLogin = timePtr(lastLogin)
	return &u, nil
}
