// Package trivia runs trivia sessions: answer evaluation, reply matching,
// and winner selection.
package trivia

import (
	"regexp"
	"strings"

	"github.com/jonesycrew/ashbot/internal/fuzzy"
)

// Match kinds persisted with each answer.
const (
	MatchExact           = "exact"
	MatchCaseInsensitive = "case_insensitive"
	MatchFuzzy           = "fuzzy"
	MatchAbbreviation    = "abbreviation"
	MatchExpansion       = "expansion"
	MatchNone            = "no_match"
)

const (
	fullMatchRatio    = 0.90
	partialMatchRatio = 0.70
	partialScore      = 0.5
)

// abbreviations maps shorthand submitters actually use to the long form.
var abbreviations = map[string]string{
	"gta":  "grand theft auto",
	"cod":  "call of duty",
	"botw": "breath of the wild",
	"totk": "tears of the kingdom",
	"za4":  "zombie army 4",
	"b":    "blue",
	"r":    "red",
	"g":    "green",
	"y":    "yellow",
}

var punctuationPattern = regexp.MustCompile(`[^\w\s]`)
var whitespacePattern = regexp.MustCompile(`\s+`)

// Evaluate scores a submitted answer against the canonical correct answer.
// The levels run in order and the first match wins: exact, case-insensitive,
// normalized with abbreviation expansion, single-character expansion,
// fuzzy full match, fuzzy partial credit.
func Evaluate(submitted, correct string) (float64, string) {
	if submitted == correct {
		return 1.0, MatchExact
	}

	subTrim := strings.TrimSpace(submitted)
	corTrim := strings.TrimSpace(correct)
	if strings.EqualFold(subTrim, corTrim) {
		return 1.0, MatchCaseInsensitive
	}

	subNorm := normalize(subTrim)
	corNorm := normalize(corTrim)
	if subNorm != "" && subNorm == corNorm {
		return 1.0, MatchAbbreviation
	}

	// A lone letter matching the first letter of the answer counts as an
	// expansion ("b" for "blue" when no abbreviation entry covers it).
	if len([]rune(subNorm)) == 1 && corNorm != "" && strings.HasPrefix(corNorm, subNorm) {
		return 1.0, MatchExpansion
	}

	ratio := fuzzy.Ratio(subNorm, corNorm)
	if ratio >= fullMatchRatio {
		return 1.0, MatchFuzzy
	}
	if ratio >= partialMatchRatio {
		return partialScore, MatchFuzzy
	}
	return 0.0, MatchNone
}

// FullScore reports whether a score claims the winner slot. Partial credit
// counts toward totals but never wins.
func FullScore(score float64) bool {
	return score == 1.0
}

// normalize lowercases, strips punctuation, collapses whitespace, and
// expands known abbreviations token by token.
func normalize(s string) string {
	s = strings.ToLower(s)
	s = punctuationPattern.ReplaceAllString(s, "")
	s = whitespacePattern.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)

	if expanded, ok := abbreviations[s]; ok {
		return expanded
	}
	words := strings.Fields(s)
	for i, w := range words {
		// Single letters stay as-is inside longer answers so "plan b"
		// does not become "plan blue".
		if len(words) > 1 && len(w) == 1 {
			continue
		}
		if expanded, ok := abbreviations[w]; ok {
			words[i] = expanded
		}
	}
	return strings.Join(words, " ")
}
