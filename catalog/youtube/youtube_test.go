package youtube

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseISODuration(t *testing.T) {
	testCases := []struct {
		input string
		want  time.Duration
	}{
		{"PT1H23M45S", time.Hour + 23*time.Minute + 45*time.Second},
		{"PT4M13S", 4*time.Minute + 13*time.Second},
		{"PT58S", 58 * time.Second},
		{"PT2H", 2 * time.Hour},
		{"P1DT2H", 26 * time.Hour},
		{"", 0},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			got, err := ParseISODuration(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := ParseISODuration("1h30m")
	assert.Error(t, err)
}

func TestPlaylistCompleted(t *testing.T) {
	assert.True(t, Playlist{Title: "Dark Souls [COMPLETED]"}.Completed())
	assert.True(t, Playlist{Title: "dark souls [completed]"}.Completed())
	assert.False(t, Playlist{Title: "Dark Souls"}.Completed())
}

func TestPlaylistURL(t *testing.T) {
	assert.Equal(t,
		"https://www.youtube.com/playlist?list=PL123",
		Playlist{ID: "PL123"}.URL(),
	)
}

func TestPlaylistIDFromURL(t *testing.T) {
	assert.Equal(t, "PL123", PlaylistIDFromURL("https://www.youtube.com/playlist?list=PL123"))
	assert.Equal(t, "PL123", PlaylistIDFromURL(Playlist{ID: "PL123"}.URL()))
	assert.Empty(t, PlaylistIDFromURL("https://www.youtube.com/watch?v=abc"))
	assert.Empty(t, PlaylistIDFromURL(""))
}
