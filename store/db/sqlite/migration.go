package sqlite

import (
	"context"

	"github.com/pkg/errors"
)

// Migrate applies the idempotent schema.
func (d *DB) Migrate(ctx context.Context) error {
	for _, stmt := range migrationStatements {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "failed to apply migration")
		}
	}
	return nil
}

var migrationStatements = []string{
	`CREATE TABLE IF NOT EXISTS strikes (
		user_id TEXT PRIMARY KEY,
		count INTEGER NOT NULL DEFAULT 0,
		updated_ts INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS game_recommendations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		added_by TEXT NOT NULL DEFAULT '',
		created_ts INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS played_games (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		canonical_name TEXT NOT NULL UNIQUE,
		alternative_names TEXT NOT NULL DEFAULT '{}',
		series_name TEXT NOT NULL DEFAULT '',
		genre TEXT NOT NULL DEFAULT '',
		release_year INTEGER,
		completion_status TEXT NOT NULL DEFAULT 'unknown',
		total_episodes INTEGER NOT NULL DEFAULT 0,
		total_playtime_minutes INTEGER NOT NULL DEFAULT 0,
		external_id INTEGER,
		confidence REAL NOT NULL DEFAULT 0,
		needs_review INTEGER NOT NULL DEFAULT 0,
		last_validated_ts INTEGER NOT NULL DEFAULT 0,
		playlist_url TEXT NOT NULL DEFAULT '',
		stream_urls TEXT NOT NULL DEFAULT '{}',
		first_played_ts INTEGER NOT NULL DEFAULT 0,
		created_ts INTEGER NOT NULL DEFAULT 0,
		updated_ts INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS reminders (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		text TEXT NOT NULL,
		scheduled_ts INTEGER NOT NULL,
		delivery_kind TEXT NOT NULL,
		channel_id TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'pending',
		auto_action TEXT NOT NULL DEFAULT '',
		auto_action_payload TEXT NOT NULL DEFAULT '',
		delivered_ts INTEGER,
		cancelled_ts INTEGER,
		fail_reason TEXT NOT NULL DEFAULT '',
		created_by TEXT NOT NULL DEFAULT '',
		created_ts INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reminders_due ON reminders (status, scheduled_ts)`,
	`CREATE TABLE IF NOT EXISTS trivia_questions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		text TEXT NOT NULL,
		type TEXT NOT NULL DEFAULT 'single_answer',
		correct_answer TEXT NOT NULL,
		choices TEXT NOT NULL DEFAULT '{}',
		submitted_by TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'pending',
		category TEXT NOT NULL DEFAULT '',
		created_ts INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS trivia_sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		uid TEXT NOT NULL UNIQUE,
		question_id INTEGER NOT NULL,
		state TEXT NOT NULL DEFAULT 'active',
		channel_id TEXT NOT NULL DEFAULT '',
		question_message_id TEXT NOT NULL DEFAULT '',
		started_ts INTEGER NOT NULL DEFAULT 0,
		ended_ts INTEGER
	)`,
	`CREATE TABLE IF NOT EXISTS trivia_answers (
		session_id INTEGER NOT NULL,
		user_id TEXT NOT NULL,
		text TEXT NOT NULL,
		score REAL NOT NULL DEFAULT 0,
		match_kind TEXT NOT NULL DEFAULT '',
		ordinal INTEGER NOT NULL,
		created_ts INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS config (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL DEFAULT ''
	)`,
}
