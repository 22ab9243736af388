package titleextract

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesycrew/ashbot/catalog/igdb"
)

func firstCandidate(t *testing.T, title string) Candidate {
	t.Helper()
	candidates := Candidates(title)
	require.NotEmpty(t, candidates, "expected at least one candidate for %q", title)
	return candidates[0]
}

func TestCandidates_AfterSeparator(t *testing.T) {
	testCases := []struct {
		name  string
		title string
		want  string
	}{
		{
			"day marker stripped",
			"Certified Zombie Pest Control Specialist - Zombie Army 4 (day7)",
			"Zombie Army 4",
		},
		{
			"part marker stripped",
			"Back again - Dark Souls (part 3)",
			"Dark Souls",
		},
		{
			"bracketed episode marker stripped",
			"Chaos continues - Baldur's Gate 3 [episode 12]",
			"Baldur's Gate 3",
		},
		{
			"suffix annotation stripped",
			"Sunday session - Elden Ring Gameplay",
			"Elden Ring",
		},
		{
			"pipe separator",
			"Cozy evening | Stardew Valley",
			"Stardew Valley",
		},
		{
			"hashtag tail stripped",
			"Scary night - Alien Isolation #horror #gaming",
			"Alien Isolation",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := firstCandidate(t, tc.title)
			assert.Equal(t, tc.want, c.Name)
			assert.Equal(t, "after_separator", c.Strategy)
		})
	}
}

func TestCandidates_BareMarkerAfterDashInvalid(t *testing.T) {
	// The after-dash segment is only an episode marker, so the before-dash
	// fallback should produce the first candidate instead.
	c := firstCandidate(t, "Resident Evil 4 - part 2")
	assert.Equal(t, "before_separator", c.Strategy)
	assert.Equal(t, "Resident Evil 4", c.Name)
}

func TestCandidates_BeforeSeparatorPrefixes(t *testing.T) {
	candidates := Candidates("NEW** Silksong - first look!")
	require.NotEmpty(t, candidates)
	found := false
	for _, c := range candidates {
		if c.Strategy == "before_separator" {
			assert.Equal(t, "Silksong", c.Name)
			found = true
		}
	}
	assert.True(t, found, "expected a before_separator candidate")
}

func TestCandidates_StandardCleanup(t *testing.T) {
	c := firstCandidate(t, "First Time Playing: Outer Wilds")
	assert.Equal(t, "Outer Wilds", c.Name)
	assert.Equal(t, "standard_cleanup", c.Strategy)

	c = firstCandidate(t, "Let's Play: Subnautica (episode 4)")
	assert.Equal(t, "Subnautica", c.Name)
}

func TestCandidates_EqualsSeparator(t *testing.T) {
	candidates := Candidates("Today's chaos = Kerbal Space Program")
	require.NotEmpty(t, candidates)
	last := candidates[len(candidates)-1]
	if last.Strategy == "equals_separator" {
		assert.Equal(t, "Kerbal Space Program", last.Name)
	} else {
		// Standard cleanup may have produced the same name first; the
		// equals candidate then dedups away.
		found := false
		for _, c := range candidates {
			if strings.EqualFold(c.Name, "Kerbal Space Program") {
				found = true
			}
		}
		assert.True(t, found)
	}
}

func TestCandidates_GenericTermsRejected(t *testing.T) {
	for _, title := range []string{
		"chat hangout - live",
		"weekend - Gameplay",
		"morning - stream",
	} {
		for _, c := range Candidates(title) {
			assert.False(t, genericTerms[strings.ToLower(c.Name)],
				"generic term leaked from %q: %q", title, c.Name)
		}
	}
}

func TestValid(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  bool
	}{
		{"normal name", "Dark Souls", true},
		{"too short", "DS", false},
		{"generic term", "gameplay", false},
		{"mostly symbols", "?!?!*<>!?", false},
		{"short exclamation", "WE DID IT!", false},
		{"short question", "really?", false},
		{"conversational words", "i love you", false},
		{"game with number", "Zombie Army 4", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Valid(tc.input))
		})
	}
}

type fakeMetadata struct {
	games map[string]*igdb.Game
}

func (f *fakeMetadata) SearchGame(_ context.Context, title string) (*igdb.Game, error) {
	if g, ok := f.games[strings.ToLower(strings.TrimSpace(title))]; ok {
		return g, nil
	}
	return nil, igdb.ErrNotFound
}

func TestExtractor_AcceptsCanonicalName(t *testing.T) {
	meta := &fakeMetadata{games: map[string]*igdb.Game{
		"zombie army 4": {ID: 42, Name: "Zombie Army 4: Dead War", AlternativeNames: []string{"ZA4"}},
	}}
	e := New(meta)

	r, ok := e.Extract(context.Background(), "Pest Control - Zombie Army 4 (day7)")
	require.True(t, ok)
	assert.GreaterOrEqual(t, r.Confidence, AcceptConfidence)
	assert.Equal(t, "Zombie Army 4: Dead War", r.Name, "canonical name wins on accept")
	require.NotNil(t, r.Game)
	assert.Equal(t, int64(42), r.Game.ID)
}

func TestExtractor_ExactMatchConfidence(t *testing.T) {
	meta := &fakeMetadata{games: map[string]*igdb.Game{
		"outer wilds": {ID: 7, Name: "Outer Wilds"},
	}}
	e := New(meta)

	r, ok := e.Extract(context.Background(), "First Time Playing: Outer Wilds")
	require.True(t, ok)
	assert.Equal(t, 1.0, r.Confidence)
}

func TestExtractor_LowConfidenceStillReturned(t *testing.T) {
	meta := &fakeMetadata{games: map[string]*igdb.Game{}}
	e := New(meta)

	r, ok := e.Extract(context.Background(), "Relaxing evening - Stardew Valley")
	require.True(t, ok)
	assert.Equal(t, "Stardew Valley", r.Name)
	assert.Nil(t, r.Game)
	assert.Less(t, r.Confidence, AcceptConfidence)
}

func TestExtractor_NoCandidates(t *testing.T) {
	e := New(&fakeMetadata{})
	_, ok := e.Extract(context.Background(), "!!")
	assert.False(t, ok)
}

func TestConfidence(t *testing.T) {
	g := &igdb.Game{Name: "Grand Theft Auto V"}
	assert.Equal(t, 1.0, Confidence("grand theft auto v", g))
	assert.GreaterOrEqual(t, Confidence("Grand Theft Auto", g), 0.8)
	assert.Less(t, Confidence("Tetris", g), 0.5)
	assert.Equal(t, 0.0, Confidence("anything", nil))
}
