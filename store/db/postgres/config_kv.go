package postgres

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
)

func (d *DB) GetConfig(ctx context.Context, key string) (string, bool, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var value string
	err := d.db.QueryRowContext(ctx, `SELECT value FROM config WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(err, "failed to get config")
	}
	return value, true, nil
}

func (d *DB) UpsertConfig(ctx context.Context, key, value string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := d.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`, key, value)
	if err != nil {
		return errors.Wrap(err, "failed to upsert config")
	}
	return nil
}
