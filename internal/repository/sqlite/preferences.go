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

type preferencesStore struct {
	q querier
}

var _ repository.PreferencesRepository = (*preferencesStore)(nil)

func (s *preferencesStore) Create(ctx context.Context, p *model.Preferences) error {
	now := time.Now().UTC()
	p.ID = newID()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := s.q.ExecContext(ctx,
		`INSERT INTO user_preferences
			(id, user_id, theme_mode, language, timezone,
			 push_notifications, email_notifications, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID,
		p.UserID,
		p.ThemeMode,
		p.Language,
		p.Timezone,
		p.PushNotifications,
		p.EmailNotifications,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return conflictOr(err, "preferences", p.UserID, "inserting preferences")
	}
	return nil
}

func (s *preferencesStore) GetByUser(ctx context.Context, userID string) (*model.Preferences, error) {
	var p model.Preferences
	err := s.q.QueryRowContext(ctx,
		`SELECT id, user_id, theme_mode, language, timezone,
			push_notifications, email_notifications, created_at, updated_at
		 FROM user_preferences WHERE user_id = ?`,
		userID,
	).Scan(
		&p.ID,
		&p.UserID,
		&p.ThemeMode,
		&p.Language,
		&p.Timezone,
		&p.PushNotifications,
		&p.EmailNotifications,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("sqlite: %w", apperror.NotFound("preferences", userID))
		}
		return nil, fmt.Errorf("sqlite: getting preferences for user %s: %w", userID, err)
	}
	return &p, nil
}

func (s *preferencesStore) Update(ctx context.Context, p *model.Preferences) error {
	p.UpdatedAt = time.Now().UTC()

	res, err := s.q.ExecContext(ctx,
		`UPDATE user_preferences SET
			theme_mode = ?, language = ?, timezone = ?,
			push_notifications = ?, email_notifications = ?, updated_at = ?
		 WHERE user_id = ?`,
		p.ThemeMode,
		p.Language,
		p.Timezone,
		p.PushNotifications,
		p.EmailNotifications,
		p.UpdatedAt,
		p.UserID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating preferences for user %s: %w", p.UserID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("sqlite: %w", apperror.NotFound("preferences", p.UserID))
	}
	return nil
}
