package ai

import (
	"regexp"
	"strings"
)

const maxResponseSentences = 4

// Persona phrases the model tends to repeat. Each is allowed once per
// response; sentences carrying a repeat are dropped.
var repetitivePhrases = []string{
	"fascinating",
	"i collate, therefore i am",
	"efficiency is paramount",
	"analysis complete",
	"mission parameters",
}

var sentenceEndPattern = regexp.MustCompile(`([.!?]+)(\s+|$)`)

// splitSentences breaks text into sentences, keeping terminal punctuation.
func splitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var sentences []string
	last := 0
	for _, loc := range sentenceEndPattern.FindAllStringIndex(text, -1) {
		s := strings.TrimSpace(text[last:loc[1]])
		if s != "" {
			sentences = append(sentences, s)
		}
		last = loc[1]
	}
	if tail := strings.TrimSpace(text[last:]); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}

func sentenceKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimRight(s, ".!?")
	return strings.Join(strings.Fields(s), " ")
}

// FilterResponse post-processes a model response: duplicate sentences are
// collapsed to their first occurrence, repeated persona phrases beyond the
// first are dropped, and output is capped at four sentences.
func FilterResponse(text string) string {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return ""
	}

	seen := make(map[string]bool)
	phraseSeen := make(map[string]bool)
	var kept []string

	for _, s := range sentences {
		if len(kept) >= maxResponseSentences {
			break
		}

		key := sentenceKey(s)
		if key == "" || seen[key] {
			continue
		}

		lower := strings.ToLower(s)
		repeat := false
		var carried []string
		for _, phrase := range repetitivePhrases {
			if !strings.Contains(lower, phrase) {
				continue
			}
			if phraseSeen[phrase] {
				repeat = true
				break
			}
			carried = append(carried, phrase)
		}
		if repeat {
			continue
		}
		for _, phrase := range carried {
			phraseSeen[phrase] = true
		}

		seen[key] = true
		kept = append(kept, s)
	}

	return strings.Join(kept, " ")
}
