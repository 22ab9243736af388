package store

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeAltNames(t *testing.T) {
	testCases := []struct {
		name  string
		input []string
		want  []string
	}{
		{
			"drops non-latin scripts",
			[]string{"Dark Souls", "ダークソウル", "Тёмные души", "داركسولز"},
			[]string{"Dark Souls"},
		},
		{
			"dedups case-insensitively keeping first",
			[]string{"GTA", "gta", "Grand Theft Auto"},
			[]string{"GTA", "Grand Theft Auto"},
		},
		{
			"caps at five",
			[]string{"a1", "a2", "a3", "a4", "a5", "a6", "a7"},
			[]string{"a1", "a2", "a3", "a4", "a5"},
		},
		{
			"drops short fragments and trims",
			[]string{"  DS  ", "x", ""},
			[]string{"DS"},
		},
		{
			"latin extended is kept",
			[]string{"Pokémon", "Ōkami"},
			[]string{"Pokémon", "Ōkami"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, SanitizeAltNames(tc.input))
		})
	}
}

func TestParseLegacyAltNames(t *testing.T) {
	testCases := []struct {
		name string
		raw  string
		want []string
	}{
		{"clean array", `{"Dark Souls","DS1"}`, []string{"Dark Souls", "DS1"}},
		{"unquoted array", `{Dark Souls,DS1}`, []string{"Dark Souls", "DS1"}},
		{"empty", `{}`, nil},
		{"blank", ``, nil},
		{"escaped debris dropped", `{"\\debris","Souls Remastered"}`, []string{"Souls Remastered"}},
		{"nested braces stripped", `{{"Dark Souls"}}`, []string{"Dark Souls"}},
		{"comma inside quotes preserved", `{"Dark, Souls","DS"}`, []string{"Dark, Souls", "DS"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseLegacyAltNames(tc.raw)
			if tc.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestFormatArrayLiteralRoundTrip(t *testing.T) {
	in := []string{"Dark Souls", "DS1", "Prepare to Die"}
	assert.Equal(t, in, ParseArrayLiteral(FormatArrayLiteral(in)))
	assert.Equal(t, "{}", FormatArrayLiteral(nil))
}

func TestValidateReminderText(t *testing.T) {
	testCases := []struct {
		name    string
		text    string
		wantErr bool
	}{
		{"exactly three characters accepted", "abc", false},
		{"two characters rejected", "ab", true},
		{"whitespace only rejected", "    ", true},
		{"punctuation only rejected", "?!...", true},
		{"pure numeric rejected", "12345", true},
		{"normal text accepted", "stand up and stretch", false},
		{"too long rejected", strings.Repeat("a", 2001), true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateReminderText(tc.text)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
