// Package sqlite implements the store driver for SQLite.
//
// SQLite is supported on a best-effort basis for development and testing.
// Production deployments should use the postgres driver; SQLite does not
// handle concurrent writers and stores array columns as text literals.
package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"

	// Import the SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/jonesycrew/ashbot/internal/profile"
	"github.com/jonesycrew/ashbot/store"
)

const callTimeout = 10 * time.Second

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens the SQLite database at the profile DSN.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	// WAL journal mode avoids writer starvation; busy_timeout covers the
	// scheduler and handler writing concurrently.
	sqliteDB, err := sql.Open("sqlite", profile.DSN+"?_pragma=foreign_keys(0)&_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}

	return &DB{db: sqliteDB, profile: profile}, nil
}

func (d *DB) GetDB() any {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, callTimeout)
}

func joinAnd(where []string) string {
	return strings.Join(where, " AND ")
}

// Array columns are persisted as brace-delimited text literals; decoding is
// defensive because early releases wrote escaped and nested forms.
func encodeList(list []string) string {
	return store.FormatArrayLiteral(list)
}

func decodeList(raw string) []string {
	return store.ParseArrayLiteral(raw)
}
