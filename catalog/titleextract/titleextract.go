// Package titleextract derives candidate game names from video and stream
// titles and scores them against the metadata service.
package titleextract

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/jonesycrew/ashbot/catalog/igdb"
	"github.com/jonesycrew/ashbot/internal/fuzzy"
)

// AcceptConfidence is the threshold at which an extraction is trusted
// without review.
const AcceptConfidence = 0.8

// Candidate is one possible game name with the strategy that produced it.
type Candidate struct {
	Name     string
	Strategy string
}

// Result is a scored extraction.
type Result struct {
	Name       string
	Strategy   string
	Confidence float64

	// Game is the metadata match backing the confidence, nil when the
	// metadata service had no result.
	Game *igdb.Game
}

// Metadata resolves a candidate name to a metadata record.
type Metadata interface {
	SearchGame(ctx context.Context, title string) (*igdb.Game, error)
}

// Extractor combines candidate generation with metadata validation.
type Extractor struct {
	metadata Metadata
}

// New creates an extractor.
func New(metadata Metadata) *Extractor {
	return &Extractor{metadata: metadata}
}

// Extract tries candidates in strategy order, returning immediately when one
// scores at or above AcceptConfidence, otherwise the best candidate seen.
// ok is false when the title yields no usable candidate at all.
func (e *Extractor) Extract(ctx context.Context, title string) (Result, bool) {
	candidates := Candidates(title)
	if len(candidates) == 0 {
		return Result{}, false
	}

	var best Result
	for _, c := range candidates {
		r := Result{Name: c.Name, Strategy: c.Strategy}

		game, err := e.metadata.SearchGame(ctx, c.Name)
		if err == nil && game != nil {
			r.Game = game
			r.Confidence = Confidence(c.Name, game)
			// The canonical name supersedes the raw extraction when the
			// metadata service is confident about the match.
			if r.Confidence >= AcceptConfidence {
				r.Name = game.Name
				return r, true
			}
		} else if err != nil && err != igdb.ErrNotFound {
			slog.Warn("title extraction: metadata lookup failed", "candidate", c.Name, "error", err)
		}

		if best.Name == "" || r.Confidence > best.Confidence {
			best = r
		}
	}
	return best, true
}

// Confidence scores an extracted name against a metadata record. Exact
// matches score 1.0; otherwise the character-sequence ratio, with word
// overlap taking the max for multi-word names.
func Confidence(extracted string, game *igdb.Game) float64 {
	if game == nil {
		return 0
	}
	a := strings.TrimSpace(extracted)
	score := 0.0
	for _, b := range canonicalForms(game.Name) {
		if strings.EqualFold(a, b) {
			return 1.0
		}
		s := fuzzy.RatioFold(a, b)
		if strings.Contains(a, " ") || strings.Contains(b, " ") {
			if overlap := fuzzy.WordOverlap(a, b); overlap > s {
				s = overlap
			}
		}
		if s > score {
			score = s
		}
	}
	return score
}

// canonicalForms returns the metadata name plus, when it carries a
// colon-separated subtitle, the bare series prefix. "Zombie Army 4: Dead War"
// should match an extraction of "Zombie Army 4" at full confidence.
func canonicalForms(name string) []string {
	name = strings.TrimSpace(name)
	forms := []string{name}
	if i := strings.Index(name, ":"); i > 0 {
		forms = append(forms, strings.TrimSpace(name[:i]))
	}
	return forms
}

var (
	// (day 7), [part 2], (episode 12), (ep. 3)
	parenMarkerPattern = regexp.MustCompile(`(?i)[(\[]\s*(?:day|part|episode|ep\.?)\s*#?\d+\s*[)\]]`)

	// bare "part 3" at head or tail
	headMarkerPattern = regexp.MustCompile(`(?i)^(?:day|part|episode|ep\.?)\s*#?\d+\b[\s:.-]*`)
	tailMarkerPattern = regexp.MustCompile(`(?i)[\s:.-]*\b(?:day|part|episode|ep\.?)\s*#?\d+$`)

	bareMarkerPattern = regexp.MustCompile(`(?i)^(?:day|part|episode|ep\.?)\s*#?\d*$`)

	suffixPattern = regexp.MustCompile(`(?i)[\s:-]*\b(?:gameplay|playthrough|stream|let'?s play|walkthrough)\s*$`)

	leadPrefixPattern = regexp.MustCompile(`(?i)^\**\s*(?:new|drops|sponsored|live)\s*\**[\s:!-]*`)

	standardPrefixPattern = regexp.MustCompile(`(?i)^(?:first time playing|let'?s play|stream)\s*:\s*`)

	hashtagTailPattern = regexp.MustCompile(`(?:\s*#\w+)+\s*$`)
)

var genericTerms = map[string]bool{
	"live": true, "stream": true, "streaming": true, "gaming": true,
	"playing": true, "game": true, "gameplay": true, "playthrough": true,
}

var conversationalWords = map[string]bool{
	"you": true, "i": true, "me": true, "we": true, "my": true, "your": true,
	"feel": true, "feels": true, "felt": true, "love": true, "hate": true,
	"happy": true, "sad": true, "best": true, "worst": true,
}

// Candidates generates candidate names in strategy order, filtered and
// deduplicated.
func Candidates(title string) []Candidate {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil
	}

	var out []Candidate
	seen := make(map[string]bool)
	add := func(name, strategy string) {
		name = strings.TrimSpace(name)
		if name == "" || !Valid(name) {
			return
		}
		key := strings.ToLower(name)
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, Candidate{Name: name, Strategy: strategy})
	}

	if before, after, ok := splitTitle(title); ok {
		if c := cleanSegment(after); c != "" && !bareMarkerPattern.MatchString(c) {
			add(c, "after_separator")
		}
		add(leadPrefixPattern.ReplaceAllString(cleanSegment(before), ""), "before_separator")
	}

	add(standardCleanup(title), "standard_cleanup")

	if i := strings.Index(title, "="); i >= 0 {
		add(cleanSegment(title[i+1:]), "equals_separator")
	}

	return out
}

// Valid applies the generic-term, length, alphanumeric-fraction, and
// conversational filters.
func Valid(name string) bool {
	trimmed := strings.TrimSpace(name)
	if len(trimmed) < 3 {
		return false
	}
	if genericTerms[strings.ToLower(trimmed)] {
		return false
	}
	if alphanumericFraction(trimmed) < 0.5 {
		return false
	}
	return !conversational(trimmed)
}

func splitTitle(title string) (before, after string, ok bool) {
	for _, sep := range []string{" - ", " | "} {
		if i := strings.Index(title, sep); i >= 0 {
			return title[:i], title[i+len(sep):], true
		}
	}
	return "", "", false
}

// cleanSegment strips episode markers, suffix annotations, and hashtag tails.
func cleanSegment(s string) string {
	s = strings.TrimSpace(s)
	s = parenMarkerPattern.ReplaceAllString(s, "")
	s = hashtagTailPattern.ReplaceAllString(s, "")
	s = headMarkerPattern.ReplaceAllString(s, "")
	s = tailMarkerPattern.ReplaceAllString(s, "")
	for {
		stripped := suffixPattern.ReplaceAllString(s, "")
		if stripped == s {
			break
		}
		s = stripped
	}
	return strings.Trim(strings.TrimSpace(s), "-:|")
}

func standardCleanup(title string) string {
	s := strings.TrimSpace(title)
	for {
		stripped := standardPrefixPattern.ReplaceAllString(s, "")
		if stripped == s {
			break
		}
		s = stripped
	}
	return cleanSegment(s)
}

func alphanumericFraction(s string) float64 {
	if s == "" {
		return 0
	}
	count := 0
	total := 0
	for _, r := range s {
		if r == ' ' {
			continue
		}
		total++
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			count++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(count) / float64(total)
}

// conversational rejects exclamations, short questions, and chatter-heavy
// titles that are unlikely to name a game.
func conversational(s string) bool {
	if len(s) < 25 && strings.HasSuffix(s, "!") && strings.Count(s, " ") <= 5 {
		return true
	}
	if len(s) < 15 && strings.HasSuffix(s, "?") {
		return true
	}
	words := strings.Fields(strings.ToLower(strings.Trim(s, "!?.")))
	if len(words) > 0 && len(words) <= 6 {
		hits := 0
		for _, w := range words {
			if conversationalWords[w] {
				hits++
			}
		}
		if float64(hits)/float64(len(words)) >= 0.5 {
			return true
		}
	}
	return false
}
