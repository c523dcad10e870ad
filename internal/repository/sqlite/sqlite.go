// Package sqlite implements the repository interfaces on SQLite.
//
// modernc.org/sqlite is a pure-Go translation of SQLite. No CGo, so the
// binary cross-compiles anywhere Go runs, and tests get a real database
// with ":memory:". WAL mode lets reads proceed while a write commits,
// which matters for a server where every request touches the store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	sqlite3 "modernc.org/sqlite"

	"github.com/sakif/meetsync/internal/apperror"
	"github.com/sakif/meetsync/internal/repository"
)

// querier is the subset of database/sql shared by *sql.DB and *sql.Tx.
// Every store runs its statements through one, so the same code serves
// both autocommit calls and WithTx transactions.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB implements repository.Store over a SQLite connection pool. A DB
// returned by WithTx shares the pool but routes statements through the
// open transaction.
type DB struct {
	conn *sql.DB
	q    querier
}

var _ repository.Store = (*DB)(nil)

// New opens (or creates) the database at dbPath and runs migrations.
// Use ":memory:" for an in-memory database in tests.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// An in-memory database exists per connection; with more than one
	// pooled connection each would see its own empty schema.
	if strings.Contains(dbPath, ":memory:") {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}
	db.q = conn

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the connection pool. Defer it next to New.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) Users() repository.UserRepository              { return &userStore{q: db.q} }
func (db *DB) Devices() repository.DeviceRepository          { return &deviceStore{q: db.q} }
func (db *DB) Tokens() repository.TokenRepository            { return &tokenStore{q: db.q} }
func (db *DB) Challenges() repository.ChallengeRepository    { return &challengeStore{q: db.q} }
func (db *DB) Preferences() repository.PreferencesRepository { return &preferencesStore{q: db.q} }

// WithTx runs fn inside one transaction. The Store passed to fn routes
// every repository call through that transaction; fn returning an error
// (or a panic) rolls it back.
func (db *DB) WithTx(ctx context.Context, fn func(ctx context.Context, tx repository.Store) error) error {
	if _, ok := db.q.(*sql.Tx); ok {
		return errors.New("sqlite: nested transaction")
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}

	txDB := &DB{conn: db.conn, q: tx}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, txDB); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("sqlite: rollback after %w: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing transaction: %w", err)
	}
	return nil
}

// migrate creates the schema. CREATE TABLE IF NOT EXISTS keeps it safe
// to run on every start.
func (db *DB) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id                   TEXT PRIMARY KEY,
			email                TEXT NOT NULL UNIQUE,
			username             TEXT UNIQUE,
			full_name            TEXT NOT NULL DEFAULT '',
			password_hash        TEXT,
			is_active            INTEGER NOT NULL DEFAULT 1,
			is_verified          INTEGER NOT NULL DEFAULT 0,
			role                 TEXT NOT NULL DEFAULT 'attendee',
			google_id            TEXT UNIQUE,
			apple_id             TEXT UNIQUE,
			biometric_enabled    INTEGER NOT NULL DEFAULT 0,
			biometric_public_key TEXT,
			avatar_url           TEXT NOT NULL DEFAULT '',
			phone_number         TEXT NOT NULL DEFAULT '',
			last_login           DATETIME,
			created_at           DATETIME NOT NULL,
			updated_at           DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS devices (
			id                 TEXT PRIMARY KEY,
			user_id            TEXT NOT NULL REFERENCES users(id),
			device_id          TEXT NOT NULL,
			device_name        TEXT NOT NULL DEFAULT '',
			device_type        TEXT NOT NULL,
			platform_version   TEXT NOT NULL DEFAULT '',
			app_version        TEXT NOT NULL DEFAULT '',
			fcm_token          TEXT NOT NULL DEFAULT '',
			apns_token         TEXT NOT NULL DEFAULT '',
			supports_biometric INTEGER NOT NULL DEFAULT 0,
			biometric_type     TEXT NOT NULL DEFAULT '',
			is_active          INTEGER NOT NULL DEFAULT 1,
			last_active        DATETIME,
			created_at         DATETIME NOT NULL,
			updated_at         DATETIME NOT NULL,
			UNIQUE(user_id, device_id)
		)`,
		`CREATE TABLE IF NOT EXISTS refresh_tokens (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL REFERENCES users(id),
			token_hash TEXT NOT NULL UNIQUE,
			device_id  TEXT NOT NULL,
			is_active  INTEGER NOT NULL DEFAULT 1,
			expires_at DATETIME NOT NULL,
			last_used  DATETIME,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_refresh_tokens_user_id ON refresh_tokens(user_id)`,
		`CREATE TABLE IF NOT EXISTS biometric_challenges (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL REFERENCES users(id),
			device_id  TEXT NOT NULL,
			challenge  TEXT NOT NULL,
			expires_at DATETIME NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			UNIQUE(user_id, device_id)
		)`,
		`CREATE TABLE IF NOT EXISTS user_preferences (
			id                  TEXT PRIMARY KEY,
			user_id             TEXT NOT NULL UNIQUE REFERENCES users(id),
			theme_mode          TEXT NOT NULL DEFAULT 'system',
			language            TEXT NOT NULL DEFAULT 'en',
			timezone            TEXT NOT NULL DEFAULT 'UTC',
			push_notifications  INTEGER NOT NULL DEFAULT 1,
			email_notifications INTEGER NOT NULL DEFAULT 1,
			created_at          DATETIME NOT NULL,
			updated_at          DATETIME NOT NULL
		)`,
	}

	for _, stmt := range stmts {
		if _, err := db.conn.Exec(stmt); err != nil {
			return fmt.Errorf("migrating schema: %w", err)
		}
	}
	return nil
}

// newID generates a sortable unique id for a new row.
func newID() string {
	return xid.New().String()
}

// isUniqueViolation reports whether err is a UNIQUE or PRIMARY KEY
// constraint failure.
func isUniqueViolation(err error) bool {
	var se *sqlite3.Error
	if errors.As(err, &se) {
		// SQLITE_CONSTRAINT_UNIQUE and SQLITE_CONSTRAINT_PRIMARYKEY
		return se.Code() == 2067 || se.Code() == 1555
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// conflictOr maps a unique violation to apperror.Conflict and wraps
// anything else with context.
func conflictOr(err error, resource, key, wrap string) error {
	if isUniqueViolation(err) {
		return fmt.Errorf("sqlite: %s: %w", wrap, apperror.Conflict(resource, key))
	}
	return fmt.Errorf("sqlite: %s: %w", wrap, err)
}

// nullTime converts a *time.Time to its sql representation.
func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// timePtr converts a scanned sql.NullTime back to a *time.Time.
func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

// nullString converts a *string to its sql representation.
func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// stringPtr converts a scanned sql.NullString back to a *string.
func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
