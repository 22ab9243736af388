package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	testCases := []struct {
		name     string
		text     string
		wantKind Kind
		wantArg  string
	}{
		{"played question", "has jonesy played dark souls?", KindGameStatus, "dark souls"},
		{"played with title", "Has Captain Jonesy played Stardew Valley", KindGameStatus, "Stardew Valley"},
		{"did play", "did jonesy play portal 2?", KindGameStatus, "portal 2"},
		{"recommended", "is Hades recommended?", KindRecommendation, "Hades"},
		{"who recommended", "who recommended outer wilds", KindRecommendation, "outer wilds"},
		{"most playtime", "what game has the most playtime", KindStatistical, ""},
		{"most episodes", "which game has the most episodes", KindStatistical, ""},
		{"genre", "what horror games has jonesy played", KindGenre, "horror"},
		{"year", "what games from 2023 has jonesy played", KindYear, "2023"},
		{"episode count", "how many episodes of dark souls?", KindGameDetails, "dark souls"},
		{"chatter", "i had a great lunch today", KindUnknown, ""},
		{"trivia answer shape", "blue", KindUnknown, ""},
		{"statement not question", "jonesy played dark souls yesterday", KindUnknown, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			q := Classify(tc.text)
			assert.Equal(t, tc.wantKind, q.Kind)
			assert.Equal(t, tc.wantArg, q.Argument)
		})
	}
}

func TestClassify_StatisticalMetric(t *testing.T) {
	assert.Equal(t, "playtime", Classify("what game has the most playtime").Metric)
	assert.Equal(t, "episodes", Classify("which game has the most episodes").Metric)
	assert.Equal(t, "playtime", Classify("what game did jonesy put the most hours into").Metric)
}

func TestClassify_AnchorsRejectEmbeddedMatches(t *testing.T) {
	// The game_status patterns are anchored; surrounding narrative must not
	// produce a match.
	q := Classify("my friend asked has jonesy played dark souls and i said no idea")
	assert.Equal(t, KindUnknown, q.Kind)
}

func TestCasualSpeech(t *testing.T) {
	assert.True(t, CasualSpeech("and then someone recommends Portal"))
	assert.True(t, CasualSpeech("remember when jonesy played that"))
	assert.True(t, CasualSpeech("jam says it's great"))
	assert.False(t, CasualSpeech("has jonesy played portal"))
}
