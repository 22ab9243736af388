package store

import "strings"

// MaxAlternativeNames caps how many alternative names a catalog entry keeps.
const MaxAlternativeNames = 5

// latinScriptLimit is the first code point past Latin Extended-B additions.
// Names containing CJK, Cyrillic or Arabic characters are of no use when
// matching English stream titles, and they correlate with wrong-franchise
// metadata matches.
const latinScriptLimit = 0x250

// IsLatinScript reports whether every code point of s is below the Latin
// script limit.
func IsLatinScript(s string) bool {
	for _, r := range s {
		if r >= latinScriptLimit {
			return false
		}
	}
	return true
}

// SanitizeAltNames filters names to Latin script, trims whitespace, drops
// fragments shorter than 2 characters, dedups case-insensitively and caps
// the result at MaxAlternativeNames. Order of first appearance is kept.
func SanitizeAltNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, MaxAlternativeNames)
	for _, n := range names {
		n = strings.TrimSpace(n)
		if len(n) < 2 || !IsLatinScript(n) {
			continue
		}
		key := strings.ToLower(n)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, n)
		if len(out) == MaxAlternativeNames {
			break
		}
	}
	return out
}

// ParseLegacyAltNames defensively decodes alternative-name values written by
// earlier releases, which sometimes persisted escaped or nested array syntax
// instead of a clean array. The routine extracts quoted runs when present,
// otherwise strips the outer braces and splits on commas outside quotes.
// Fragments shorter than 2 characters or starting with a backslash are
// dropped as escape debris.
func ParseLegacyAltNames(raw string) []string {
	return SanitizeAltNames(ParseArrayLiteral(raw))
}

// ParseArrayLiteral decodes a brace-delimited array literal ({"a","b"} or
// {a,b}) into its elements. Fragments shorter than 2 characters or starting
// with a backslash are dropped as escape debris.
func ParseArrayLiteral(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "{}" {
		return nil
	}

	var fragments []string
	if strings.Contains(raw, `"`) {
		fragments = extractQuotedRuns(raw)
	}
	if len(fragments) == 0 {
		trimmed := strings.Trim(raw, "{}")
		fragments = splitOutsideQuotes(trimmed, ',')
	}

	out := make([]string, 0, len(fragments))
	for _, f := range fragments {
		f = strings.Trim(strings.TrimSpace(f), `"{}`)
		if len(f) < 2 || strings.HasPrefix(f, `\`) {
			continue
		}
		out = append(out, f)
	}
	return out
}

// FormatArrayLiteral encodes elements as a brace-delimited array literal
// with quoted elements, the inverse of ParseArrayLiteral for clean input.
func FormatArrayLiteral(list []string) string {
	if len(list) == 0 {
		return "{}"
	}
	quoted := make([]string, len(list))
	for i, s := range list {
		quoted[i] = `"` + strings.ReplaceAll(strings.ReplaceAll(s, `\`, `\\`), `"`, `\"`) + `"`
	}
	return "{" + strings.Join(quoted, ",") + "}"
}

func extractQuotedRuns(s string) []string {
	var runs []string
	var cur strings.Builder
	inQuote := false
	escaped := false
	for _, r := range s {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case r == '\\' && inQuote:
			escaped = true
		case r == '"':
			if inQuote {
				runs = append(runs, cur.String())
				cur.Reset()
			}
			inQuote = !inQuote
		case inQuote:
			cur.WriteRune(r)
		}
	}
	return runs
}

func splitOutsideQuotes(s string, sep rune) []string {
	var parts []string
	var cur strings.Builder
	inQuote := false
	for _, r := range s {
		switch {
		case r == '"':
			inQuote = !inQuote
		case r == sep && !inQuote:
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	if cur.Len() > 0 {
		parts = append(parts, cur.String())
	}
	return parts
}
