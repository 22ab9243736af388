package postgres

import (
	"context"

	"github.com/pkg/errors"
)

// Migrate applies the idempotent schema. Statements are ordered so foreign
// keys resolve on a fresh database.
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
		count INTEGER NOT NULL DEFAULT 0 CHECK (count >= 0),
		updated_ts BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS game_recommendations (
		id SERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		added_by TEXT NOT NULL DEFAULT '',
		created_ts BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS played_games (
		id SERIAL PRIMARY KEY,
		canonical_name TEXT NOT NULL UNIQUE,
		alternative_names TEXT[] NOT NULL DEFAULT '{}',
		series_name TEXT NOT NULL DEFAULT '',
		genre TEXT NOT NULL DEFAULT '',
		release_year INTEGER,
		completion_status TEXT NOT NULL DEFAULT 'unknown',
		total_episodes INTEGER NOT NULL DEFAULT 0 CHECK (total_episodes >= 0),
		total_playtime_minutes INTEGER NOT NULL DEFAULT 0 CHECK (total_playtime_minutes >= 0),
		external_id BIGINT,
		confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
		needs_review BOOLEAN NOT NULL DEFAULT FALSE,
		last_validated_ts BIGINT NOT NULL DEFAULT 0,
		playlist_url TEXT NOT NULL DEFAULT '',
		stream_urls TEXT[] NOT NULL DEFAULT '{}',
		first_played_ts BIGINT NOT NULL DEFAULT 0,
		created_ts BIGINT NOT NULL DEFAULT 0,
		updated_ts BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_played_games_external_id ON played_games (external_id)`,
	`CREATE TABLE IF NOT EXISTS reminders (
		id SERIAL PRIMARY KEY,
		user_id TEXT NOT NULL,
		text TEXT NOT NULL,
		scheduled_ts BIGINT NOT NULL,
		delivery_kind TEXT NOT NULL,
		channel_id TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'pending',
		auto_action TEXT NOT NULL DEFAULT '',
		auto_action_payload TEXT NOT NULL DEFAULT '',
		delivered_ts BIGINT,
		cancelled_ts BIGINT,
		fail_reason TEXT NOT NULL DEFAULT '',
		created_by TEXT NOT NULL DEFAULT '',
		created_ts BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reminders_due ON reminders (status, scheduled_ts)`,
	`CREATE TABLE IF NOT EXISTS trivia_questions (
		id SERIAL PRIMARY KEY,
		text TEXT NOT NULL,
		type TEXT NOT NULL DEFAULT 'single_answer',
		correct_answer TEXT NOT NULL,
		choices TEXT[] NOT NULL DEFAULT '{}',
		submitted_by TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'pending',
		category TEXT NOT NULL DEFAULT '',
		created_ts BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS trivia_sessions (
		id SERIAL PRIMARY KEY,
		uid TEXT NOT NULL UNIQUE,
		question_id INTEGER NOT NULL REFERENCES trivia_questions (id),
		state TEXT NOT NULL DEFAULT 'active',
		channel_id TEXT NOT NULL DEFAULT '',
		question_message_id TEXT NOT NULL DEFAULT '',
		started_ts BIGINT NOT NULL DEFAULT 0,
		ended_ts BIGINT
	)`,
	`CREATE TABLE IF NOT EXISTS trivia_answers (
		session_id INTEGER NOT NULL REFERENCES trivia_sessions (id),
		user_id TEXT NOT NULL,
		text TEXT NOT NULL,
		score DOUBLE PRECISION NOT NULL DEFAULT 0,
		match_kind TEXT NOT NULL DEFAULT '',
		ordinal INTEGER NOT NULL,
		created_ts BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_trivia_answers_session ON trivia_answers (session_id, ordinal)`,
	`CREATE TABLE IF NOT EXISTS config (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL DEFAULT ''
	)`,
}
