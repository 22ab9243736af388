// Package ingest reconciles stream and video records with the played-game
// catalog.
package ingest

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/jonesycrew/ashbot/ai/metrics"
	"github.com/jonesycrew/ashbot/catalog/titleextract"
	"github.com/jonesycrew/ashbot/internal/fuzzy"
	"github.com/jonesycrew/ashbot/store"
)

// reviewConfidence is stored when the extraction cannot be trusted.
const reviewConfidence = 0.5

// dedupThreshold is the canonical-name similarity at which two entries are
// treated as the same game.
const dedupThreshold = 0.92

// abortFailureRate aborts a run when more than this fraction of records fail.
const abortFailureRate = 0.2

// Record is one source item to reconcile. Video-service items carry playlist
// fields; stream-service items carry a stream URL and optionally a
// platform-native game identifier.
type Record struct {
	Title           string
	PlaylistID      string
	PlaylistURL     string
	PlaylistTitle   string
	StreamURL       string
	Episodes        int
	PlaytimeMinutes int
	ViewCount       int64

	// PlatformGameID is the stream platform's own classification. When
	// present it wins over title extraction.
	PlatformGameID string
}

// Completed reports whether the playlist title carries the completion tag.
func (r Record) Completed() bool {
	return strings.Contains(strings.ToUpper(r.PlaylistTitle), "[COMPLETED]")
}

// TitleResolver turns a title into a scored game identity.
type TitleResolver interface {
	Extract(ctx context.Context, title string) (titleextract.Result, bool)
}

// GameNamer resolves a platform game identifier to a display name.
type GameNamer interface {
	GameName(ctx context.Context, gameID string) (string, error)
}

// Summary reports one ingestion run.
type Summary struct {
	Processed int
	Created   int
	Updated   int
	Flagged   int
	Failed    int
}

// Ingestor merges source records into the catalog.
type Ingestor struct {
	store     *store.Store
	extractor TitleResolver
	games     GameNamer
	metadata  titleextract.Metadata
	metrics   *metrics.Exporter
}

// New creates an ingestor. games, metadata, and exporter may be nil.
func New(st *store.Store, extractor TitleResolver, games GameNamer, metadata titleextract.Metadata, exporter *metrics.Exporter) *Ingestor {
	return &Ingestor{
		store:     st,
		extractor: extractor,
		games:     games,
		metadata:  metadata,
		metrics:   exporter,
	}
}

// Run processes records in order. Individual failures are logged and
// counted; a failure rate above 20% aborts the run.
func (ing *Ingestor) Run(ctx context.Context, records []Record) (Summary, error) {
	var sum Summary
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		outcome, err := ing.ingestRecord(ctx, rec)
		sum.Processed++
		if err != nil {
			sum.Failed++
			slog.Warn("catalog ingest: record failed", "title", rec.Title, "error", err)
			ing.record("failed")
			if sum.Processed >= 5 && float64(sum.Failed)/float64(sum.Processed) > abortFailureRate {
				return sum, errors.Errorf("ingestion aborted: %d of %d records failed", sum.Failed, sum.Processed)
			}
			continue
		}

		switch outcome {
		case "created":
			sum.Created++
		case "updated":
			sum.Updated++
		case "flagged":
			sum.Flagged++
		}
		ing.record(outcome)
	}

	slog.Info("catalog ingest: run finished",
		"processed", sum.Processed,
		"created", sum.Created,
		"updated", sum.Updated,
		"flagged", sum.Flagged,
		"failed", sum.Failed,
	)
	return sum, nil
}

// identity is the resolved (name, confidence) for a record.
type identity struct {
	name       string
	confidence float64
	game       *titleextractGame
}

// titleextractGame narrows the metadata fields the merge rules consume.
type titleextractGame struct {
	externalID int64
	altNames   []string
	genre      string
	series     string
	year       int
}

func (ing *Ingestor) ingestRecord(ctx context.Context, rec Record) (string, error) {
	id, err := ing.resolveIdentity(ctx, rec)
	if err != nil {
		return "", err
	}

	existing, err := ing.findExisting(ctx, id)
	if err != nil {
		return "", err
	}

	if existing == nil {
		game := ing.buildEntry(rec, id)
		if _, err := ing.store.CreatePlayedGame(ctx, game); err != nil {
			return "", err
		}
		if game.NeedsReview {
			return "flagged", nil
		}
		return "created", nil
	}

	if err := ing.mergeEntry(ctx, existing, rec, id); err != nil {
		return "", err
	}
	return "updated", nil
}

func (ing *Ingestor) resolveIdentity(ctx context.Context, rec Record) (identity, error) {
	// Primary path: the platform already classified the stream.
	if rec.PlatformGameID != "" && ing.games != nil {
		name, err := ing.games.GameName(ctx, rec.PlatformGameID)
		if err == nil {
			id := identity{name: name, confidence: 1.0}
			ing.enrich(ctx, &id)
			return id, nil
		}
		slog.Warn("catalog ingest: platform game lookup failed, falling back to extraction",
			"game_id", rec.PlatformGameID, "error", err)
	}

	// Fallback path: extract from the title and validate.
	result, ok := ing.extractor.Extract(ctx, rec.Title)
	if !ok {
		return identity{}, errors.Errorf("no game name extractable from title %q", rec.Title)
	}

	id := identity{name: result.Name, confidence: result.Confidence}
	if result.Game != nil {
		id.game = &titleextractGame{
			externalID: result.Game.ID,
			altNames:   result.Game.AlternativeNames,
			genre:      result.Game.PrimaryGenre(),
			series:     result.Game.Series,
			year:       result.Game.ReleaseYear,
		}
		// Empty alternative-name lists correlate strongly with
		// wrong-franchise matches.
		if len(result.Game.AlternativeNames) == 0 && id.confidence >= titleextract.AcceptConfidence {
			id.confidence = reviewConfidence
		}
	}
	if id.confidence < titleextract.AcceptConfidence && id.confidence < reviewConfidence {
		id.confidence = reviewConfidence
	}
	return id, nil
}

// enrich fills metadata for a platform-classified name without touching the
// verbatim name or its confidence.
func (ing *Ingestor) enrich(ctx context.Context, id *identity) {
	if ing.metadata == nil {
		return
	}
	game, err := ing.metadata.SearchGame(ctx, id.name)
	if err != nil || game == nil {
		return
	}
	if titleextract.Confidence(id.name, game) < titleextract.AcceptConfidence {
		return
	}
	id.game = &titleextractGame{
		externalID: game.ID,
		altNames:   game.AlternativeNames,
		genre:      game.PrimaryGenre(),
		series:     game.Series,
		year:       game.ReleaseYear,
	}
}

func (ing *Ingestor) findExisting(ctx context.Context, id identity) (*store.PlayedGame, error) {
	if id.game != nil && id.game.externalID != 0 {
		games, err := ing.store.ListPlayedGames(ctx, &store.FindPlayedGame{ExternalID: &id.game.externalID})
		if err != nil {
			return nil, err
		}
		if len(games) > 0 {
			return games[0], nil
		}
	}

	games, err := ing.store.ListPlayedGames(ctx, &store.FindPlayedGame{CanonicalName: &id.name})
	if err != nil {
		return nil, err
	}
	if len(games) > 0 {
		return games[0], nil
	}

	games, err = ing.store.ListPlayedGames(ctx, &store.FindPlayedGame{AlternativeName: &id.name})
	if err != nil {
		return nil, err
	}
	if len(games) > 0 {
		return games[0], nil
	}
	return nil, nil
}

func (ing *Ingestor) buildEntry(rec Record, id identity) *store.PlayedGame {
	now := time.Now().Unix()
	accepted := id.confidence >= titleextract.AcceptConfidence

	game := &store.PlayedGame{
		CanonicalName:        id.name,
		CompletionStatus:     store.CompletionInProgress,
		TotalEpisodes:        rec.Episodes,
		TotalPlaytimeMinutes: rec.PlaytimeMinutes,
		Confidence:           id.confidence,
		NeedsReview:          !accepted,
		PlaylistURL:          rec.PlaylistURL,
		CreatedTs:            now,
		UpdatedTs:            now,
	}
	if rec.Completed() {
		game.CompletionStatus = store.CompletionCompleted
	}
	if rec.StreamURL != "" {
		game.StreamURLs = []string{rec.StreamURL}
	}
	if id.game != nil {
		game.AlternativeNames = id.game.altNames
		if accepted {
			game.Genre = id.game.genre
			game.SeriesName = id.game.series
			if id.game.year > 0 {
				year := id.game.year
				game.ReleaseYear = &year
			}
		}
		if id.game.externalID != 0 {
			externalID := id.game.externalID
			game.ExternalID = &externalID
			game.LastValidatedTs = now
		}
	}
	return game
}

func (ing *Ingestor) mergeEntry(ctx context.Context, existing *store.PlayedGame, rec Record, id identity) error {
	now := time.Now().Unix()
	accepted := id.confidence >= titleextract.AcceptConfidence
	update := &store.UpdatePlayedGame{ID: existing.ID, UpdatedTs: &now}

	// Episode and playtime counters only move forward; partial fetches must
	// not shrink them.
	if rec.Episodes > existing.TotalEpisodes {
		episodes := rec.Episodes
		update.TotalEpisodes = &episodes
	}
	if rec.PlaytimeMinutes > existing.TotalPlaytimeMinutes {
		playtime := rec.PlaytimeMinutes
		update.TotalPlaytimeMinutes = &playtime
	}

	var incomingAlts []string
	if id.game != nil {
		incomingAlts = id.game.altNames
	}
	if !strings.EqualFold(id.name, existing.CanonicalName) {
		incomingAlts = append(incomingAlts, id.name)
	}
	if merged := store.SanitizeAltNames(append(append([]string{}, existing.AlternativeNames...), incomingAlts...)); len(merged) != len(existing.AlternativeNames) {
		update.AlternativeNames = &merged
	}

	// [COMPLETED] upgrades in-progress entries; the reverse never happens
	// automatically.
	if rec.Completed() && existing.CompletionStatus != store.CompletionCompleted {
		completed := store.CompletionCompleted
		update.CompletionStatus = &completed
	}

	if accepted && id.game != nil {
		if id.game.genre != "" && id.game.genre != existing.Genre {
			update.Genre = &id.game.genre
		}
		if id.game.series != "" && id.game.series != existing.SeriesName {
			update.SeriesName = &id.game.series
		}
		if id.game.externalID != 0 && existing.ExternalID == nil {
			externalID := id.game.externalID
			update.ExternalID = &externalID
			update.LastValidatedTs = &now
		}
	}

	if id.confidence > existing.Confidence {
		confidence := id.confidence
		update.Confidence = &confidence
		if accepted && existing.NeedsReview {
			review := false
			update.NeedsReview = &review
		}
	}

	if rec.PlaylistURL != "" && existing.PlaylistURL == "" {
		update.PlaylistURL = &rec.PlaylistURL
	}
	if rec.StreamURL != "" && !containsFold(existing.StreamURLs, rec.StreamURL) {
		urls := append(append([]string{}, existing.StreamURLs...), rec.StreamURL)
		update.StreamURLs = &urls
	}

	_, err := ing.store.UpdatePlayedGame(ctx, update)
	return err
}

// DedupSweep merges near-duplicate canonical names. Episode and playtime
// counters are summed because the duplicates are disjoint records; the
// external identifier follows the higher-confidence side.
func (ing *Ingestor) DedupSweep(ctx context.Context) (int, error) {
	games, err := ing.store.ListPlayedGames(ctx, &store.FindPlayedGame{})
	if err != nil {
		return 0, err
	}

	merged := 0
	removed := make(map[int32]bool)
	for i := 0; i < len(games); i++ {
		if removed[games[i].ID] {
			continue
		}
		for j := i + 1; j < len(games); j++ {
			if removed[games[j].ID] {
				continue
			}
			if fuzzy.RatioFold(games[i].CanonicalName, games[j].CanonicalName) < dedupThreshold {
				continue
			}

			keep, drop := games[i], games[j]
			if drop.Confidence > keep.Confidence {
				keep, drop = drop, keep
			}
			if err := ing.mergeDuplicate(ctx, keep, drop); err != nil {
				return merged, err
			}
			removed[drop.ID] = true
			merged++
			slog.Info("catalog dedup: merged entries",
				"kept", keep.CanonicalName,
				"dropped", drop.CanonicalName,
			)
		}
	}
	return merged, nil
}

func (ing *Ingestor) mergeDuplicate(ctx context.Context, keep, drop *store.PlayedGame) error {
	now := time.Now().Unix()

	episodes := keep.TotalEpisodes + drop.TotalEpisodes
	playtime := keep.TotalPlaytimeMinutes + drop.TotalPlaytimeMinutes
	alts := store.SanitizeAltNames(append(
		append(append([]string{}, keep.AlternativeNames...), drop.AlternativeNames...),
		drop.CanonicalName,
	))

	update := &store.UpdatePlayedGame{
		ID:                   keep.ID,
		TotalEpisodes:        &episodes,
		TotalPlaytimeMinutes: &playtime,
		AlternativeNames:     &alts,
		UpdatedTs:            &now,
	}
	if keep.ExternalID == nil && drop.ExternalID != nil {
		update.ExternalID = drop.ExternalID
	}
	if len(drop.StreamURLs) > 0 {
		urls := append(append([]string{}, keep.StreamURLs...), drop.StreamURLs...)
		update.StreamURLs = &urls
	}

	if _, err := ing.store.UpdatePlayedGame(ctx, update); err != nil {
		return err
	}
	return ing.store.DeletePlayedGame(ctx, drop.ID)
}

func (ing *Ingestor) record(outcome string) {
	if ing.metrics != nil {
		ing.metrics.RecordCatalogRecord(outcome)
	}
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
