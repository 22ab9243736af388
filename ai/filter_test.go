package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitSentences(t *testing.T) {
	testCases := []struct {
		name string
		text string
		want []string
	}{
		{"empty", "", nil},
		{"single", "Affirmative.", []string{"Affirmative."}},
		{
			"multiple terminators",
			"Affirmative. The captain played it twice! Anything else?",
			[]string{"Affirmative.", "The captain played it twice!", "Anything else?"},
		},
		{
			"no trailing punctuation",
			"Affirmative. Records confirm it",
			[]string{"Affirmative.", "Records confirm it"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, splitSentences(tc.text))
		})
	}
}

func TestFilterResponse_DuplicateSentences(t *testing.T) {
	in := "The records confirm it. The records confirm it. Twelve episodes exist."
	assert.Equal(t, "The records confirm it. Twelve episodes exist.", FilterResponse(in))
}

func TestFilterResponse_DuplicateIgnoresCaseAndPunctuation(t *testing.T) {
	in := "Records confirm it. records confirm it! Noted."
	assert.Equal(t, "Records confirm it. Noted.", FilterResponse(in))
}

func TestFilterResponse_SentenceCap(t *testing.T) {
	in := "One. Two. Three. Four. Five. Six."
	assert.Equal(t, "One. Two. Three. Four.", FilterResponse(in))
}

func TestFilterResponse_RepetitivePhrase(t *testing.T) {
	in := "Fascinating. The captain completed it. Fascinating, is it not? Twelve episodes."
	assert.Equal(t, "Fascinating. The captain completed it. Twelve episodes.", FilterResponse(in))
}

func TestFilterResponse_Empty(t *testing.T) {
	assert.Equal(t, "", FilterResponse("   "))
}

func TestPersonaPrompt(t *testing.T) {
	assert.Contains(t, PersonaPrompt(TierStreamer), "deferential")
	assert.Contains(t, PersonaPrompt(TierCreator), "creator")
	assert.Contains(t, PersonaPrompt(TierModerator), "professional")
	assert.Contains(t, PersonaPrompt(TierStandard), "neutral")
	assert.Equal(t, PersonaPrompt(TierStandard), PersonaPrompt(Tier("bogus")))

	for _, tier := range []Tier{TierStreamer, TierCreator, TierModerator, TierStandard} {
		assert.Contains(t, PersonaPrompt(tier), "Ash")
	}
}
