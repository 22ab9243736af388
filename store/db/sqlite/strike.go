package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/jonesycrew/ashbot/store"
)

func (d *DB) GetStrike(ctx context.Context, userID string) (*store.Strike, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	s := &store.Strike{}
	err := d.db.QueryRowContext(ctx,
		`SELECT user_id, count, updated_ts FROM strikes WHERE user_id = ?`, userID,
	).Scan(&s.UserID, &s.Count, &s.UpdatedTs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get strike")
	}
	return s, nil
}

func (d *DB) SetStrike(ctx context.Context, userID string, count int) (*store.Strike, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	now := time.Now().Unix()
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO strikes (user_id, count, updated_ts) VALUES (?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET count = excluded.count, updated_ts = excluded.updated_ts`,
		userID, count, now)
	if err != nil {
		return nil, errors.Wrap(err, "failed to set strike")
	}
	return &store.Strike{UserID: userID, Count: count, UpdatedTs: now}, nil
}

func (d *DB) IncrementStrike(ctx context.Context, userID string) (*store.Strike, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	now := time.Now().Unix()
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO strikes (user_id, count, updated_ts) VALUES (?, 1, ?)
		ON CONFLICT (user_id) DO UPDATE SET count = strikes.count + 1, updated_ts = excluded.updated_ts`,
		userID, now)
	if err != nil {
		return nil, errors.Wrap(err, "failed to increment strike")
	}
	return d.GetStrike(ctx, userID)
}

func (d *DB) ListStrikes(ctx context.Context, find *store.FindStrike) ([]*store.Strike, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	where, args := []string{"1 = 1"}, []any{}
	if find.UserID != nil {
		where, args = append(where, "user_id = ?"), append(args, *find.UserID)
	}
	if find.NonZero {
		where = append(where, "count > 0")
	}

	rows, err := d.db.QueryContext(ctx, `
		SELECT user_id, count, updated_ts FROM strikes
		WHERE `+joinAnd(where)+`
		ORDER BY count DESC, user_id ASC`, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list strikes")
	}
	defer rows.Close()

	list := make([]*store.Strike, 0)
	for rows.Next() {
		s := &store.Strike{}
		if err := rows.Scan(&s.UserID, &s.Count, &s.UpdatedTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan strike")
		}
		list = append(list, s)
	}
	return list, rows.Err()
}
