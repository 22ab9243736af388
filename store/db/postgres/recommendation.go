package postgres

import (
	"context"

	"github.com/pkg/errors"

	"github.com/jonesycrew/ashbot/store"
)

func (d *DB) CreateRecommendation(ctx context.Context, create *store.Recommendation) (*store.Recommendation, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	err := d.db.QueryRowContext(ctx, `
		INSERT INTO game_recommendations (name, reason, added_by, created_ts)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		create.Name, create.Reason, create.AddedBy, create.CreatedTs,
	).Scan(&create.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create recommendation")
	}
	return create, nil
}

func (d *DB) ListRecommendations(ctx context.Context, find *store.FindRecommendation) ([]*store.Recommendation, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	where, args := []string{"1 = 1"}, []any{}
	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.Name != nil {
		where, args = append(where, "LOWER(name) = LOWER("+placeholder(len(args)+1)+")"), append(args, *find.Name)
	}

	rows, err := d.db.QueryContext(ctx, `
		SELECT id, name, reason, added_by, created_ts FROM game_recommendations
		WHERE `+joinAnd(where)+`
		ORDER BY id ASC`, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list recommendations")
	}
	defer rows.Close()

	list := make([]*store.Recommendation, 0)
	for rows.Next() {
		r := &store.Recommendation{}
		if err := rows.Scan(&r.ID, &r.Name, &r.Reason, &r.AddedBy, &r.CreatedTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan recommendation")
		}
		list = append(list, r)
	}
	return list, rows.Err()
}

func (d *DB) DeleteRecommendation(ctx context.Context, id int32) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if _, err := d.db.ExecContext(ctx, `DELETE FROM game_recommendations WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "failed to delete recommendation")
	}
	return nil
}
