package strutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	testCases := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{"empty string", "", 10, ""},
		{"short string", "hello", 10, "hello"},
		{"exact length", "hello", 5, "hello"},
		{"needs truncation", "hello world", 8, "hello..."},
		{"zero maxLen", "hello", 0, ""},
		{"negative maxLen", "hello", -1, ""},

		// The cap includes the ellipsis, so the result never exceeds maxLen.
		{"tiny maxLen keeps raw prefix", "hello", 2, "he"},
		{"maxLen equals ellipsis", "hello", 3, "hel"},

		// Rune-level slicing keeps multi-byte characters intact.
		{"unicode exact", "日本語テスト", 6, "日本語テスト"},
		{"unicode truncated", "日本語テストです", 6, "日本語..."},
		{"emoji", "hello 🎉 party people", 10, "hello 🎉..."},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Truncate(tc.input, tc.maxLen)
			assert.Equal(t, tc.want, got)
			assert.LessOrEqual(t, len([]rune(got)), max(tc.maxLen, 0))
		})
	}
}
