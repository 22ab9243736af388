// Package strutil provides string helpers shared across the bot.
package strutil

// ellipsis marks a truncated message.
const ellipsis = "..."

// Truncate caps a string at maxLen runes, ellipsis included, so the result
// always fits a platform length limit. Rune-level slicing keeps multi-byte
// characters intact. Returns empty when maxLen <= 0.
func Truncate(s string, maxLen int) string {
	if s == "" || maxLen <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= len(ellipsis) {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-len(ellipsis)]) + ellipsis
}
