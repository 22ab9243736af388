package trivia

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluate(t *testing.T) {
	testCases := []struct {
		name      string
		submitted string
		correct   string
		wantScore float64
		wantKind  string
	}{
		{"exact", "blue", "blue", 1.0, MatchExact},
		{"case insensitive", "Blue", "blue", 1.0, MatchCaseInsensitive},
		{"case insensitive upper", "BLUE", "blue", 1.0, MatchCaseInsensitive},
		{"trimmed", "  blue  ", "blue", 1.0, MatchCaseInsensitive},
		{"punctuation stripped", "blue!", "blue", 1.0, MatchAbbreviation},
		{"abbreviation gta", "GTA", "Grand Theft Auto", 1.0, MatchAbbreviation},
		{"abbreviation color", "b", "blue", 1.0, MatchAbbreviation},
		{"single char expansion", "p", "portal", 1.0, MatchExpansion},
		{"near match full", "grand theft autoo", "grand theft auto", 1.0, MatchFuzzy},
		{"partial credit", "grand auto", "grand theft auto", 0.5, MatchFuzzy},
		{"wrong answer", "green", "blue", 0.0, MatchNone},
		{"empty answer", "", "blue", 0.0, MatchNone},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			score, kind := Evaluate(tc.submitted, tc.correct)
			assert.Equal(t, tc.wantScore, score)
			assert.Equal(t, tc.wantKind, kind)
		})
	}
}

func TestEvaluate_SingleLetterInsideLongerAnswerNotExpanded(t *testing.T) {
	score, _ := Evaluate("plan b", "plan blue")
	assert.NotEqual(t, 1.0, score, "embedded single letters must not expand")
}

func TestFullScore(t *testing.T) {
	assert.True(t, FullScore(1.0))
	assert.False(t, FullScore(0.5))
	assert.False(t, FullScore(0.0))
}
