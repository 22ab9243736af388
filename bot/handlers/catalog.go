package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/jonesycrew/ashbot/bot/discord"
	"github.com/jonesycrew/ashbot/store"
)

// playedGameOptions are the recognized key:value pairs of the catalog edit
// commands. Unknown keys are rejected rather than ignored so typos do not
// silently drop data.
type playedGameOptions struct {
	Series   *string
	Year     *int
	Status   *store.CompletionStatus
	Episodes *int
	Playtime *int
}

// parsePlayedGameArgs splits `<name> [| key:value]*` into the name and typed
// options. Values may contain spaces; segments are pipe-delimited.
func parsePlayedGameArgs(args string) (string, *playedGameOptions, error) {
	opts := &playedGameOptions{}
	segments := strings.Split(args, "|")
	name := strings.TrimSpace(segments[0])

	for _, segment := range segments[1:] {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		key, value, found := strings.Cut(segment, ":")
		if !found {
			return "", nil, errors.Errorf("expected key:value, got %q", segment)
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		switch key {
		case "series":
			opts.Series = &value
		case "year":
			n, err := strconv.Atoi(value)
			if err != nil {
				return "", nil, errors.Errorf("year must be a number, got %q", value)
			}
			opts.Year = &n
		case "status":
			status := store.CompletionStatus(strings.ToLower(value))
			if !status.Valid() {
				return "", nil, errors.Errorf("unknown status %q", value)
			}
			opts.Status = &status
		case "episodes":
			n, err := strconv.Atoi(value)
			if err != nil {
				return "", nil, errors.Errorf("episodes must be a number, got %q", value)
			}
			opts.Episodes = &n
		case "playtime":
			n, err := strconv.Atoi(value)
			if err != nil {
				return "", nil, errors.Errorf("playtime must be minutes as a number, got %q", value)
			}
			opts.Playtime = &n
		default:
			return "", nil, errors.Errorf("unknown key %q (valid: series, year, status, episodes, playtime)", key)
		}
	}
	return name, opts, nil
}

func (h *Handlers) cmdAddPlayedGame(ctx context.Context, msg *discord.Message, args string) error {
	name, opts, err := parsePlayedGameArgs(args)
	if err != nil {
		h.reply(ctx, msg, fmt.Sprintf("Cannot parse that: %v.", err))
		return nil
	}
	if name == "" {
		h.reply(ctx, msg, "Format: `!addplayedgame <name> [| series:X] [| year:N] [| status:S] [| episodes:N] [| playtime:N]`.")
		return nil
	}

	// Manual entries carry no metadata identifier, so confidence stays just
	// below the validated threshold.
	game := &store.PlayedGame{
		CanonicalName:    name,
		CompletionStatus: store.CompletionUnknown,
		Confidence:       0.75,
	}
	if opts.Series != nil {
		game.SeriesName = *opts.Series
	}
	if opts.Year != nil {
		game.ReleaseYear = opts.Year
	}
	if opts.Status != nil {
		game.CompletionStatus = *opts.Status
	}
	if opts.Episodes != nil {
		game.TotalEpisodes = *opts.Episodes
	}
	if opts.Playtime != nil {
		game.TotalPlaytimeMinutes = *opts.Playtime
	}

	created, err := h.store.CreatePlayedGame(ctx, game)
	if errors.Is(err, store.ErrInvalidGame) {
		h.reply(ctx, msg, fmt.Sprintf("Catalog entry rejected: %v.", err))
		return nil
	}
	if err != nil {
		return err
	}
	h.reply(ctx, msg, fmt.Sprintf("Catalog entry #%d created for %s.", created.ID, created.CanonicalName))
	return nil
}

func (h *Handlers) cmdGameInfo(ctx context.Context, msg *discord.Message, args string) error {
	args = strings.TrimSpace(args)
	if args == "" {
		h.reply(ctx, msg, "Format: `!gameinfo <name or id>`.")
		return nil
	}

	game, err := h.lookupPlayedGame(ctx, args)
	if err != nil {
		return err
	}
	if game == nil {
		h.reply(ctx, msg, fmt.Sprintf("No catalog entry matches %q.", args))
		return nil
	}
	h.reply(ctx, msg, formatGameInfo(game))
	return nil
}

func (h *Handlers) cmdUpdatePlayedGame(ctx context.Context, msg *discord.Message, args string) error {
	name, opts, err := parsePlayedGameArgs(args)
	if err != nil {
		h.reply(ctx, msg, fmt.Sprintf("Cannot parse that: %v.", err))
		return nil
	}
	if name == "" {
		h.reply(ctx, msg, "Format: `!updateplayedgame <name or id> | key:value`.")
		return nil
	}

	game, err := h.lookupPlayedGame(ctx, name)
	if err != nil {
		return err
	}
	if game == nil {
		h.reply(ctx, msg, fmt.Sprintf("No catalog entry matches %q.", name))
		return nil
	}

	update := &store.UpdatePlayedGame{ID: game.ID}
	changed := false
	if opts.Series != nil {
		update.SeriesName = opts.Series
		changed = true
	}
	if opts.Year != nil {
		update.ReleaseYear = opts.Year
		changed = true
	}
	if opts.Status != nil {
		update.CompletionStatus = opts.Status
		changed = true
	}
	if opts.Episodes != nil {
		update.TotalEpisodes = opts.Episodes
		changed = true
	}
	if opts.Playtime != nil {
		update.TotalPlaytimeMinutes = opts.Playtime
		changed = true
	}
	if !changed {
		h.reply(ctx, msg, "Nothing to change. Supply at least one key:value pair.")
		return nil
	}

	updated, err := h.store.UpdatePlayedGame(ctx, update)
	if err != nil {
		return err
	}
	h.reply(ctx, msg, fmt.Sprintf("Catalog entry #%d (%s) updated.", updated.ID, updated.CanonicalName))
	return nil
}

func (h *Handlers) cmdBulkImport(ctx context.Context, msg *discord.Message, _ string) error {
	if h.ingest == nil {
		h.reply(ctx, msg, "Catalog import is not configured on this deployment.")
		return nil
	}
	h.reply(ctx, msg, "Commencing catalog import. This takes a while; I will report when complete.")

	summary, err := h.ingest(ctx)
	if err != nil {
		h.reply(ctx, msg, fmt.Sprintf("Catalog import aborted: %v.", err))
		return nil
	}
	h.reply(ctx, msg, fmt.Sprintf(
		"Catalog import complete. Processed %d records: %d created, %d merged, %d flagged for review, %d failed.",
		summary.Processed, summary.Created, summary.Updated, summary.Flagged, summary.Failed))
	return nil
}

// lookupPlayedGame resolves a numeric id, canonical name, or alternative name
// to a catalog entry. Nil means no match.
func (h *Handlers) lookupPlayedGame(ctx context.Context, key string) (*store.PlayedGame, error) {
	if id, err := strconv.Atoi(strings.TrimPrefix(key, "#")); err == nil {
		id32 := int32(id)
		game, err := h.store.GetPlayedGame(ctx, &store.FindPlayedGame{ID: &id32})
		if err != nil {
			return nil, err
		}
		return game, nil
	}
	game, err := h.store.GetPlayedGame(ctx, &store.FindPlayedGame{CanonicalName: &key})
	if err != nil {
		return nil, err
	}
	if game != nil {
		return game, nil
	}
	return h.store.GetPlayedGame(ctx, &store.FindPlayedGame{AlternativeName: &key})
}

func formatGameInfo(g *store.PlayedGame) string {
	lines := []string{fmt.Sprintf("**%s** (catalog #%d)", g.CanonicalName, g.ID)}
	if g.SeriesName != "" {
		lines = append(lines, "Series: "+g.SeriesName)
	}
	if g.Genre != "" {
		lines = append(lines, "Genre: "+g.Genre)
	}
	if g.ReleaseYear != nil {
		lines = append(lines, fmt.Sprintf("Released: %d", *g.ReleaseYear))
	}
	lines = append(lines, "Status: "+string(g.CompletionStatus))
	if g.TotalEpisodes > 0 {
		lines = append(lines, fmt.Sprintf("Episodes: %d", g.TotalEpisodes))
	}
	if g.TotalPlaytimeMinutes > 0 {
		lines = append(lines, fmt.Sprintf("Playtime: %s", formatPlaytime(g.TotalPlaytimeMinutes)))
	}
	if g.PlaylistURL != "" {
		lines = append(lines, "Playlist: "+g.PlaylistURL)
	}
	if g.NeedsReview {
		lines = append(lines, "Note: entry is flagged for review; details may be incomplete.")
	}
	return strings.Join(lines, "\n")
}

func formatPlaytime(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}
