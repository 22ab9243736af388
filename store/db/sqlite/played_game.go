package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"

	"github.com/jonesycrew/ashbot/store"
)

const playedGameColumns = `id, canonical_name, alternative_names, series_name, genre,
	release_year, completion_status, total_episodes, total_playtime_minutes,
	external_id, confidence, needs_review, last_validated_ts,
	playlist_url, stream_urls, first_played_ts, created_ts, updated_ts`

func scanPlayedGame(scan func(dest ...any) error) (*store.PlayedGame, error) {
	g := &store.PlayedGame{}
	var altNames, streamURLs, status string
	if err := scan(
		&g.ID, &g.CanonicalName, &altNames, &g.SeriesName, &g.Genre,
		&g.ReleaseYear, &status, &g.TotalEpisodes, &g.TotalPlaytimeMinutes,
		&g.ExternalID, &g.Confidence, &g.NeedsReview, &g.LastValidatedTs,
		&g.PlaylistURL, &streamURLs, &g.FirstPlayedTs, &g.CreatedTs, &g.UpdatedTs,
	); err != nil {
		return nil, err
	}
	g.AlternativeNames = decodeList(altNames)
	g.StreamURLs = decodeList(streamURLs)
	g.CompletionStatus = store.CompletionStatus(status)
	return g, nil
}

func (d *DB) CreatePlayedGame(ctx context.Context, create *store.PlayedGame) (*store.PlayedGame, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	result, err := d.db.ExecContext(ctx, `
		INSERT INTO played_games (
			canonical_name, alternative_names, series_name, genre, release_year,
			completion_status, total_episodes, total_playtime_minutes, external_id,
			confidence, needs_review, last_validated_ts, playlist_url, stream_urls,
			first_played_ts, created_ts, updated_ts
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		create.CanonicalName, encodeList(create.AlternativeNames), create.SeriesName,
		create.Genre, create.ReleaseYear, string(create.CompletionStatus),
		create.TotalEpisodes, create.TotalPlaytimeMinutes, create.ExternalID,
		create.Confidence, create.NeedsReview, create.LastValidatedTs,
		create.PlaylistURL, encodeList(create.StreamURLs), create.FirstPlayedTs,
		create.CreatedTs, create.UpdatedTs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create played game")
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read insert id")
	}
	create.ID = int32(id)
	return create, nil
}

func (d *DB) ListPlayedGames(ctx context.Context, find *store.FindPlayedGame) ([]*store.PlayedGame, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	where, args := []string{"1 = 1"}, []any{}
	if find.ID != nil {
		where, args = append(where, "id = ?"), append(args, *find.ID)
	}
	if find.CanonicalName != nil {
		where, args = append(where, "LOWER(canonical_name) = LOWER(?)"), append(args, *find.CanonicalName)
	}
	if find.ExternalID != nil {
		where, args = append(where, "external_id = ?"), append(args, *find.ExternalID)
	}
	if find.CompletionStatus != nil {
		where, args = append(where, "completion_status = ?"), append(args, string(*find.CompletionStatus))
	}
	if find.Genre != nil {
		where, args = append(where, "LOWER(genre) = LOWER(?)"), append(args, *find.Genre)
	}
	if find.ReleaseYear != nil {
		where, args = append(where, "release_year = ?"), append(args, *find.ReleaseYear)
	}
	if find.NeedsReview != nil {
		where, args = append(where, "needs_review = ?"), append(args, *find.NeedsReview)
	}

	rows, err := d.db.QueryContext(ctx, `
		SELECT `+playedGameColumns+` FROM played_games
		WHERE `+joinAnd(where)+`
		ORDER BY canonical_name ASC`, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list played games")
	}
	defer rows.Close()

	list := make([]*store.PlayedGame, 0)
	for rows.Next() {
		g, err := scanPlayedGame(rows.Scan)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan played game")
		}
		list = append(list, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Alternative-name membership is filtered in Go: the text-literal array
	// column cannot be unnested in SQLite.
	if find.AlternativeName != nil {
		target := strings.ToLower(*find.AlternativeName)
		filtered := list[:0]
		for _, g := range list {
			for _, alt := range g.AlternativeNames {
				if strings.ToLower(alt) == target {
					filtered = append(filtered, g)
					break
				}
			}
		}
		list = filtered
	}
	return list, nil
}

func (d *DB) UpdatePlayedGame(ctx context.Context, update *store.UpdatePlayedGame) (*store.PlayedGame, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	set, args := []string{}, []any{}
	if update.CanonicalName != nil {
		set, args = append(set, "canonical_name = ?"), append(args, *update.CanonicalName)
	}
	if update.AlternativeNames != nil {
		set, args = append(set, "alternative_names = ?"), append(args, encodeList(*update.AlternativeNames))
	}
	if update.SeriesName != nil {
		set, args = append(set, "series_name = ?"), append(args, *update.SeriesName)
	}
	if update.Genre != nil {
		set, args = append(set, "genre = ?"), append(args, *update.Genre)
	}
	if update.ReleaseYear != nil {
		set, args = append(set, "release_year = ?"), append(args, *update.ReleaseYear)
	}
	if update.CompletionStatus != nil {
		set, args = append(set, "completion_status = ?"), append(args, string(*update.CompletionStatus))
	}
	if update.TotalEpisodes != nil {
		set, args = append(set, "total_episodes = ?"), append(args, *update.TotalEpisodes)
	}
	if update.TotalPlaytimeMinutes != nil {
		set, args = append(set, "total_playtime_minutes = ?"), append(args, *update.TotalPlaytimeMinutes)
	}
	if update.ExternalID != nil {
		set, args = append(set, "external_id = ?"), append(args, *update.ExternalID)
	}
	if update.Confidence != nil {
		set, args = append(set, "confidence = ?"), append(args, *update.Confidence)
	}
	if update.NeedsReview != nil {
		set, args = append(set, "needs_review = ?"), append(args, *update.NeedsReview)
	}
	if update.LastValidatedTs != nil {
		set, args = append(set, "last_validated_ts = ?"), append(args, *update.LastValidatedTs)
	}
	if update.PlaylistURL != nil {
		set, args = append(set, "playlist_url = ?"), append(args, *update.PlaylistURL)
	}
	if update.StreamURLs != nil {
		set, args = append(set, "stream_urls = ?"), append(args, encodeList(*update.StreamURLs))
	}
	if update.FirstPlayedTs != nil {
		set, args = append(set, "first_played_ts = ?"), append(args, *update.FirstPlayedTs)
	}
	if update.UpdatedTs != nil {
		set, args = append(set, "updated_ts = ?"), append(args, *update.UpdatedTs)
	}
	if len(set) == 0 {
		return nil, errors.New("no fields to update")
	}

	args = append(args, update.ID)
	if _, err := d.db.ExecContext(ctx, `
		UPDATE played_games SET `+strings.Join(set, ", ")+` WHERE id = ?`, args...); err != nil {
		return nil, errors.Wrap(err, "failed to update played game")
	}

	row := d.db.QueryRowContext(ctx, `SELECT `+playedGameColumns+` FROM played_games WHERE id = ?`, update.ID)
	g, err := scanPlayedGame(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Errorf("played game %d not found", update.ID)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to reload played game")
	}
	return g, nil
}

func (d *DB) DeletePlayedGame(ctx context.Context, id int32) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if _, err := d.db.ExecContext(ctx, `DELETE FROM played_games WHERE id = ?`, id); err != nil {
		return errors.Wrap(err, "failed to delete played game")
	}
	return nil
}
