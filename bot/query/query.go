// Package query classifies natural-language catalog questions.
package query

import (
	"regexp"
	"strings"
)

// Kind is the classification of a catalog question.
type Kind string

const (
	KindStatistical    Kind = "statistical"
	KindGenre          Kind = "genre"
	KindYear           Kind = "year"
	KindGameStatus     Kind = "game_status"
	KindGameDetails    Kind = "game_details"
	KindRecommendation Kind = "recommendation"
	KindYouTubeViews   Kind = "youtube_views"
	KindUnknown        Kind = "unknown"
)

// Query is a classified question. Argument carries the capture the matched
// pattern extracted: a game name, a genre, a year. Metric is set for
// statistical questions only.
type Query struct {
	Kind     Kind
	Argument string
	Metric   string
}

// pattern binds a compiled regex to its classification. group selects which
// capture becomes the argument; 0 means the pattern has no argument.
type pattern struct {
	kind   Kind
	re     *regexp.Regexp
	group  int
	metric string
}

// The table is ordered: first matching entry wins. Anchored patterns come
// first so "has jonesy played X" is not swallowed by a looser match, and the
// question-structure requirement keeps trivia answers and chatter out.
var patterns = []pattern{
	// game_status
	{kind: KindGameStatus, re: regexp.MustCompile(`(?i)^has (?:captain )?jonesy played (.+?)\??$`), group: 1},
	{kind: KindGameStatus, re: regexp.MustCompile(`(?i)^did (?:captain )?jonesy play (.+?)\??$`), group: 1},
	{kind: KindGameStatus, re: regexp.MustCompile(`(?i)^has (?:she|he) played (.+?)\??$`), group: 1},

	// recommendation
	{kind: KindRecommendation, re: regexp.MustCompile(`(?i)^is (.+?) recommended\??$`), group: 1},
	{kind: KindRecommendation, re: regexp.MustCompile(`(?i)^who recommended (.+?)\??$`), group: 1},

	// statistical
	{kind: KindStatistical, re: regexp.MustCompile(`(?i)what game(?: series)? .*most playtime`), metric: "playtime"},
	{kind: KindStatistical, re: regexp.MustCompile(`(?i)which game .*most episodes`), metric: "episodes"},
	{kind: KindStatistical, re: regexp.MustCompile(`(?i)what .*longest .*complete`), metric: "longest_completion"},
	{kind: KindStatistical, re: regexp.MustCompile(`(?i)what .*most hours`), metric: "playtime"},

	// genre and year
	{kind: KindGenre, re: regexp.MustCompile(`(?i)what (\w+) games has jonesy played`), group: 1},
	{kind: KindYear, re: regexp.MustCompile(`(?i)what games from (\d{4}) has jonesy played`), group: 1},

	// youtube_views
	{kind: KindYouTubeViews, re: regexp.MustCompile(`(?i)^how many views does (.+?) have\??$`), group: 1},
	{kind: KindYouTubeViews, re: regexp.MustCompile(`(?i)which game .*most view(?:s|ed)`)},

	// game_details
	{kind: KindGameDetails, re: regexp.MustCompile(`(?i)^how many episodes of (.+?)(?: are there)?\??$`), group: 1},
	{kind: KindGameDetails, re: regexp.MustCompile(`(?i)^how long did jonesy play (.+?)\??$`), group: 1},
	{kind: KindGameDetails, re: regexp.MustCompile(`(?i)^when did jonesy (?:first )?play (.+?)\??$`), group: 1},
}

// Classify maps text to a tagged query. Unmatched text returns KindUnknown.
func Classify(text string) Query {
	text = strings.TrimSpace(text)
	for _, p := range patterns {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		q := Query{Kind: p.kind, Metric: p.metric}
		if p.group > 0 && p.group < len(m) {
			q.Argument = strings.TrimSpace(m[p.group])
		}
		return q
	}
	return Query{Kind: KindUnknown}
}

var casualMarkers = []string{
	"and then",
	"someone said",
	"remember when",
	"jam says",
}

// CasualSpeech reports whether text reads as third-party narrative chatter.
// Such messages must not trigger implicit catalog queries even when a
// pattern would otherwise match.
func CasualSpeech(text string) bool {
	lower := strings.ToLower(text)
	for _, marker := range casualMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
