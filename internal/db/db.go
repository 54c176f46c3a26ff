// Package db provides the SQLite reference implementation of the
// conversation store.
package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// DB wraps the SQLite connection with migrations and a logger.
type DB struct {
	*sql.DB
	logger zerolog.Logger
}

// Option configures a DB.
type Option func(*DB)

// WithLogger attaches a logger to the database.
func WithLogger(logger zerolog.Logger) Option {
	return func(db *DB) {
		db.logger = logger
	}
}

// Open opens (creating if needed) the SQLite database at path.
func Open(path string, opts ...Option) (*DB, error) {
	if path == "" {
		return nil, fmt.Errorf("database path required")
	}
	return open("file:"+path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)", opts...)
}

// OpenInMemory opens a private in-memory database, used by tests.
func OpenInMemory(opts ...Option) (*DB, error) {
	return open("file::memory:?_pragma=foreign_keys(ON)", opts...)
}

func open(dsn string, opts ...Option) (*DB, error) {
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// modernc's driver multiplexes poorly across connections for
	// in-memory databases and WAL writers alike.
	conn.SetMaxOpenConns(1)

	db := &DB{DB: conn, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(db)
	}
	return db, nil
}

// migrations are applied in order; each entry runs at most once.
var migrations = []string{
	`CREATE TABLE conversations (
		id              TEXT PRIMARY KEY,
		org_id          TEXT NOT NULL,
		category        TEXT NOT NULL,
		subject         TEXT NOT NULL DEFAULT '',
		created_at      TEXT NOT NULL,
		updated_at      TEXT NOT NULL,
		last_message_at TEXT
	)`,
	// No uniqueness constraint on the participant pair: conversation
	// de-duplication is a lookup-before-create check in the messaging
	// layer, and concurrent creators can race.
	`CREATE TABLE conversation_members (
		conversation_id TEXT NOT NULL REFERENCES conversations(id),
		user_id         TEXT NOT NULL,
		member_type     TEXT NOT NULL,
		club_id         TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (conversation_id, user_id)
	)`,
	`CREATE INDEX idx_members_user ON conversation_members(user_id)`,
	`CREATE TABLE messages (
		id              TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL REFERENCES conversations(id),
		org_id          TEXT NOT NULL,
		sender_id       TEXT NOT NULL,
		sender_type     TEXT NOT NULL,
		body            TEXT NOT NULL,
		created_at      TEXT NOT NULL,
		edited_at       TEXT
	)`,
	`CREATE INDEX idx_messages_conversation ON messages(conversation_id, created_at DESC, id DESC)`,
	`CREATE TABLE message_reads (
		conversation_id TEXT NOT NULL REFERENCES conversations(id),
		user_id         TEXT NOT NULL,
		last_read_at    TEXT NOT NULL,
		PRIMARY KEY (conversation_id, user_id)
	)`,
	`CREATE TABLE clubs (
		id              TEXT PRIMARY KEY,
		org_id          TEXT NOT NULL,
		name            TEXT NOT NULL,
		avatar_url      TEXT NOT NULL DEFAULT '',
		primary_user_id TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE profiles (
		id           TEXT PRIMARY KEY,
		org_id       TEXT NOT NULL DEFAULT '',
		display_name TEXT NOT NULL,
		avatar_url   TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE officers (
		id       TEXT PRIMARY KEY,
		club_id  TEXT NOT NULL REFERENCES clubs(id),
		user_id  TEXT NOT NULL,
		position TEXT NOT NULL DEFAULT '',
		rank     INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX idx_officers_club ON officers(club_id, rank)`,
}

// MigrateUp applies pending migrations. Returns the number applied.
func (db *DB) MigrateUp(ctx context.Context) (int, error) {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL
		)
	`); err != nil {
		return 0, fmt.Errorf("create schema_migrations: %w", err)
	}

	var current int
	if err := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}

	applied := 0
	for i := current; i < len(migrations); i++ {
		version := i + 1
		err := db.Transaction(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, migrations[i]); err != nil {
				return fmt.Errorf("apply migration %d: %w", version, err)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO schema_migrations (version, applied_at) VALUES (?, datetime('now'))`,
				version,
			); err != nil {
				return fmt.Errorf("record migration %d: %w", version, err)
			}
			return nil
		})
		if err != nil {
			return applied, err
		}
		applied++
		db.logger.Debug().Int("version", version).Msg("applied migration")
	}

	return applied, nil
}

// Transaction runs fn inside a transaction, committing on nil and rolling
// back on error.
func (db *DB) Transaction(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			db.logger.Warn().Err(rbErr).Msg("rollback failed")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
