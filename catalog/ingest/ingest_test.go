package ingest

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesycrew/ashbot/catalog/igdb"
	"github.com/jonesycrew/ashbot/catalog/titleextract"
	"github.com/jonesycrew/ashbot/internal/profile"
	"github.com/jonesycrew/ashbot/store"
	"github.com/jonesycrew/ashbot/store/storetest"
)

type fakeResolver struct {
	results map[string]titleextract.Result
}

func (f *fakeResolver) Extract(_ context.Context, title string) (titleextract.Result, bool) {
	r, ok := f.results[title]
	return r, ok
}

type fakeNamer struct {
	names map[string]string
}

func (f *fakeNamer) GameName(_ context.Context, gameID string) (string, error) {
	if name, ok := f.names[gameID]; ok {
		return name, nil
	}
	return "", errors.Errorf("unknown game id %q", gameID)
}

type fakeMetadata struct {
	games map[string]*igdb.Game
}

func (f *fakeMetadata) SearchGame(_ context.Context, title string) (*igdb.Game, error) {
	if g, ok := f.games[title]; ok {
		return g, nil
	}
	return nil, igdb.ErrNotFound
}

func newTestStore() *store.Store {
	return store.New(storetest.NewMemory(), &profile.Profile{})
}

func mustGame(t *testing.T, st *store.Store, name string) *store.PlayedGame {
	t.Helper()
	g, err := st.GetPlayedGame(context.Background(), &store.FindPlayedGame{CanonicalName: &name})
	require.NoError(t, err)
	require.NotNil(t, g, "expected catalog entry %q", name)
	return g
}

func TestRun_CreatesAcceptedEntry(t *testing.T) {
	st := newTestStore()
	resolver := &fakeResolver{results: map[string]titleextract.Result{
		"Pest Control - Zombie Army 4 (day7)": {
			Name:       "Zombie Army 4: Dead War",
			Confidence: 1.0,
			Game: &igdb.Game{
				ID:               42,
				Name:             "Zombie Army 4: Dead War",
				AlternativeNames: []string{"ZA4"},
				Genres:           []string{"Shooter"},
				Series:           "Zombie Army",
				ReleaseYear:      2020,
			},
		},
	}}
	ing := New(st, resolver, nil, nil, nil)

	sum, err := ing.Run(context.Background(), []Record{{
		Title:           "Pest Control - Zombie Army 4 (day7)",
		PlaylistTitle:   "Zombie Army 4",
		PlaylistURL:     "https://youtube.com/playlist?list=abc",
		Episodes:        7,
		PlaytimeMinutes: 840,
	}})
	require.NoError(t, err)
	assert.Equal(t, Summary{Processed: 1, Created: 1}, sum)

	g := mustGame(t, st, "Zombie Army 4: Dead War")
	assert.False(t, g.NeedsReview)
	assert.Equal(t, 1.0, g.Confidence)
	assert.Equal(t, store.CompletionInProgress, g.CompletionStatus)
	assert.Equal(t, 7, g.TotalEpisodes)
	assert.Equal(t, 840, g.TotalPlaytimeMinutes)
	assert.Equal(t, "Shooter", g.Genre)
	assert.Equal(t, "Zombie Army", g.SeriesName)
	require.NotNil(t, g.ExternalID)
	assert.Equal(t, int64(42), *g.ExternalID)
	require.NotNil(t, g.ReleaseYear)
	assert.Equal(t, 2020, *g.ReleaseYear)
}

func TestRun_FlagsLowConfidenceEntry(t *testing.T) {
	st := newTestStore()
	resolver := &fakeResolver{results: map[string]titleextract.Result{
		"mystery stream": {Name: "Mystery Game", Confidence: 0.6},
	}}
	ing := New(st, resolver, nil, nil, nil)

	sum, err := ing.Run(context.Background(), []Record{{Title: "mystery stream", Episodes: 1}})
	require.NoError(t, err)
	assert.Equal(t, Summary{Processed: 1, Flagged: 1}, sum)

	g := mustGame(t, st, "Mystery Game")
	assert.True(t, g.NeedsReview)
	assert.Equal(t, 0.6, g.Confidence)
	assert.Empty(t, g.Genre, "metadata fields require an accepted identity")
}

func TestRun_EmptyAltNamesDemoted(t *testing.T) {
	// A confident metadata match with no alternative names is suspect and
	// drops to review confidence.
	st := newTestStore()
	resolver := &fakeResolver{results: map[string]titleextract.Result{
		"weird title": {
			Name:       "Some Obscure Game",
			Confidence: 0.9,
			Game:       &igdb.Game{ID: 9, Name: "Some Obscure Game"},
		},
	}}
	ing := New(st, resolver, nil, nil, nil)

	sum, err := ing.Run(context.Background(), []Record{{Title: "weird title", Episodes: 1}})
	require.NoError(t, err)
	assert.Equal(t, Summary{Processed: 1, Flagged: 1}, sum)

	g := mustGame(t, st, "Some Obscure Game")
	assert.True(t, g.NeedsReview)
	assert.Equal(t, 0.5, g.Confidence)
}

func TestRun_PlatformIdentityWithoutEnrichmentFlagged(t *testing.T) {
	// The platform name is trusted verbatim, but without a metadata
	// identifier the entry cannot claim validated confidence.
	st := newTestStore()
	ing := New(st, &fakeResolver{}, &fakeNamer{names: map[string]string{"777": "Hades"}}, nil, nil)

	sum, err := ing.Run(context.Background(), []Record{{
		Title:          "late night roguelike",
		StreamURL:      "https://twitch.tv/videos/1",
		Episodes:       1,
		PlatformGameID: "777",
	}})
	require.NoError(t, err)
	assert.Equal(t, Summary{Processed: 1, Flagged: 1}, sum)

	g := mustGame(t, st, "Hades")
	assert.True(t, g.NeedsReview)
	assert.Equal(t, 0.75, g.Confidence)
	assert.Equal(t, []string{"https://twitch.tv/videos/1"}, g.StreamURLs)
}

func TestRun_PlatformIdentityEnriched(t *testing.T) {
	st := newTestStore()
	meta := &fakeMetadata{games: map[string]*igdb.Game{
		"Hades": {ID: 113112, Name: "Hades", AlternativeNames: []string{"Hades 1"}, Genres: []string{"Roguelike"}},
	}}
	ing := New(st, &fakeResolver{}, &fakeNamer{names: map[string]string{"777": "Hades"}}, meta, nil)

	sum, err := ing.Run(context.Background(), []Record{{
		Title:          "late night roguelike",
		StreamURL:      "https://twitch.tv/videos/1",
		Episodes:       1,
		PlatformGameID: "777",
	}})
	require.NoError(t, err)
	assert.Equal(t, Summary{Processed: 1, Created: 1}, sum)

	g := mustGame(t, st, "Hades")
	assert.False(t, g.NeedsReview)
	assert.Equal(t, 1.0, g.Confidence)
	assert.Equal(t, "Roguelike", g.Genre)
	require.NotNil(t, g.ExternalID)
	assert.Equal(t, int64(113112), *g.ExternalID)
}

func TestRun_MergeIsMonotone(t *testing.T) {
	st := newTestStore()
	resolver := &fakeResolver{results: map[string]titleextract.Result{
		"souls again": {Name: "Dark Souls", Confidence: 0.6},
	}}
	ing := New(st, resolver, nil, nil, nil)

	_, err := st.CreatePlayedGame(context.Background(), &store.PlayedGame{
		CanonicalName:        "Dark Souls",
		CompletionStatus:     store.CompletionInProgress,
		TotalEpisodes:        10,
		TotalPlaytimeMinutes: 900,
		Confidence:           0.95,
		ExternalID:           ptr(int64(2155)),
	})
	require.NoError(t, err)

	// A partial fetch with fewer episodes must not shrink the counters.
	sum, err := ing.Run(context.Background(), []Record{{
		Title:           "souls again",
		Episodes:        6,
		PlaytimeMinutes: 400,
	}})
	require.NoError(t, err)
	assert.Equal(t, Summary{Processed: 1, Updated: 1}, sum)

	g := mustGame(t, st, "Dark Souls")
	assert.Equal(t, 10, g.TotalEpisodes)
	assert.Equal(t, 900, g.TotalPlaytimeMinutes)
	assert.Equal(t, 0.95, g.Confidence, "lower incoming confidence never lowers the stored one")

	// A fuller fetch moves them forward.
	_, err = ing.Run(context.Background(), []Record{{
		Title:           "souls again",
		Episodes:        12,
		PlaytimeMinutes: 1100,
	}})
	require.NoError(t, err)

	g = mustGame(t, st, "Dark Souls")
	assert.Equal(t, 12, g.TotalEpisodes)
	assert.Equal(t, 1100, g.TotalPlaytimeMinutes)
}

func TestRun_CompletedUpgradeOnly(t *testing.T) {
	st := newTestStore()
	resolver := &fakeResolver{results: map[string]titleextract.Result{
		"finale":    {Name: "Outer Wilds", Confidence: 0.6},
		"bonus vod": {Name: "Outer Wilds", Confidence: 0.6},
	}}
	ing := New(st, resolver, nil, nil, nil)

	_, err := st.CreatePlayedGame(context.Background(), &store.PlayedGame{
		CanonicalName:    "Outer Wilds",
		CompletionStatus: store.CompletionInProgress,
		Confidence:       0.75,
	})
	require.NoError(t, err)

	_, err = ing.Run(context.Background(), []Record{{
		Title:         "finale",
		PlaylistTitle: "Outer Wilds [COMPLETED]",
	}})
	require.NoError(t, err)
	assert.Equal(t, store.CompletionCompleted, mustGame(t, st, "Outer Wilds").CompletionStatus)

	// A later record without the tag never downgrades.
	_, err = ing.Run(context.Background(), []Record{{
		Title:         "bonus vod",
		PlaylistTitle: "Outer Wilds extras",
	}})
	require.NoError(t, err)
	assert.Equal(t, store.CompletionCompleted, mustGame(t, st, "Outer Wilds").CompletionStatus)
}

func TestRun_MatchByAlternativeName(t *testing.T) {
	st := newTestStore()
	resolver := &fakeResolver{results: map[string]titleextract.Result{
		"za4 night": {Name: "ZA4", Confidence: 0.6},
	}}
	ing := New(st, resolver, nil, nil, nil)

	_, err := st.CreatePlayedGame(context.Background(), &store.PlayedGame{
		CanonicalName:    "Zombie Army 4: Dead War",
		AlternativeNames: []string{"ZA4"},
		CompletionStatus: store.CompletionInProgress,
		Confidence:       0.9,
		ExternalID:       ptr(int64(42)),
	})
	require.NoError(t, err)

	sum, err := ing.Run(context.Background(), []Record{{Title: "za4 night", Episodes: 1}})
	require.NoError(t, err)
	assert.Equal(t, Summary{Processed: 1, Updated: 1}, sum, "alternative name resolves to the existing entry")

	games, err := st.ListPlayedGames(context.Background(), &store.FindPlayedGame{})
	require.NoError(t, err)
	assert.Len(t, games, 1, "no duplicate entry created")
}

func TestRun_AbortsOnHighFailureRate(t *testing.T) {
	st := newTestStore()
	ing := New(st, &fakeResolver{}, nil, nil, nil)

	records := make([]Record, 6)
	for i := range records {
		records[i] = Record{Title: "!!"}
	}
	sum, err := ing.Run(context.Background(), records)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ingestion aborted")
	assert.Equal(t, 5, sum.Processed, "run stops once the rate check trips")
	assert.Equal(t, 5, sum.Failed)
}

func TestRun_ToleratesIsolatedFailures(t *testing.T) {
	st := newTestStore()
	resolver := &fakeResolver{results: map[string]titleextract.Result{
		"a": {Name: "Game Alpha", Confidence: 0.6},
		"b": {Name: "Game Beta", Confidence: 0.6},
		"c": {Name: "Game Gamma", Confidence: 0.6},
		"d": {Name: "Game Delta", Confidence: 0.6},
	}}
	ing := New(st, resolver, nil, nil, nil)

	sum, err := ing.Run(context.Background(), []Record{
		{Title: "a"}, {Title: "b"}, {Title: "c"}, {Title: "d"}, {Title: "unresolvable"},
	})
	require.NoError(t, err, "one failure in five is under the abort threshold")
	assert.Equal(t, Summary{Processed: 5, Flagged: 4, Failed: 1}, sum)
}

func TestDedupSweep_MergesNearDuplicates(t *testing.T) {
	st := newTestStore()
	ing := New(st, &fakeResolver{}, nil, nil, nil)
	ctx := context.Background()

	_, err := st.CreatePlayedGame(ctx, &store.PlayedGame{
		CanonicalName:        "Dark Souls Remastered",
		CompletionStatus:     store.CompletionInProgress,
		TotalEpisodes:        4,
		TotalPlaytimeMinutes: 300,
		Confidence:           0.6,
		StreamURLs:           []string{"https://twitch.tv/videos/2"},
	})
	require.NoError(t, err)
	_, err = st.CreatePlayedGame(ctx, &store.PlayedGame{
		CanonicalName:        "Dark Souls: Remastered",
		AlternativeNames:     []string{"DS Remastered"},
		CompletionStatus:     store.CompletionCompleted,
		TotalEpisodes:        10,
		TotalPlaytimeMinutes: 800,
		Confidence:           0.9,
		ExternalID:           ptr(int64(11133)),
	})
	require.NoError(t, err)

	merged, err := ing.DedupSweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, merged)

	games, err := st.ListPlayedGames(ctx, &store.FindPlayedGame{})
	require.NoError(t, err)
	require.Len(t, games, 1)

	g := games[0]
	assert.Equal(t, "Dark Souls: Remastered", g.CanonicalName, "higher confidence side is kept")
	assert.Equal(t, 14, g.TotalEpisodes, "episodes are summed")
	assert.Equal(t, 1100, g.TotalPlaytimeMinutes, "playtime is summed")
	assert.Contains(t, g.AlternativeNames, "Dark Souls Remastered", "dropped canonical becomes an alternative name")
	assert.Contains(t, g.AlternativeNames, "DS Remastered")
	assert.Contains(t, g.StreamURLs, "https://twitch.tv/videos/2")
	require.NotNil(t, g.ExternalID)
	assert.Equal(t, int64(11133), *g.ExternalID)
}

func TestDedupSweep_LeavesDistinctGamesAlone(t *testing.T) {
	st := newTestStore()
	ing := New(st, &fakeResolver{}, nil, nil, nil)
	ctx := context.Background()

	for _, name := range []string{"Dark Souls", "Stardew Valley", "Outer Wilds"} {
		_, err := st.CreatePlayedGame(ctx, &store.PlayedGame{
			CanonicalName:    name,
			CompletionStatus: store.CompletionInProgress,
			Confidence:       0.7,
		})
		require.NoError(t, err)
	}

	merged, err := ing.DedupSweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, merged)

	games, err := st.ListPlayedGames(ctx, &store.FindPlayedGame{})
	require.NoError(t, err)
	assert.Len(t, games, 3)
}

func ptr[T any](v T) *T { return &v }
