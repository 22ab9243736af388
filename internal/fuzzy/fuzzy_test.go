package fuzzy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRatio(t *testing.T) {
	testCases := []struct {
		name string
		a, b string
		min  float64
		max  float64
	}{
		{"identical", "dark souls", "dark souls", 1.0, 1.0},
		{"both empty", "", "", 1.0, 1.0},
		{"one empty", "dark souls", "", 0.0, 0.0},
		{"disjoint", "abc", "xyz", 0.0, 0.0},
		{"close variants", "Zombie Army 4", "Zombie Army 4: Dead War", 0.7, 0.99},
		{"typo", "portal 2", "protal 2", 0.80, 0.99},
		{"case matters", "BLUE", "blue", 0.0, 0.1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := Ratio(tc.a, tc.b)
			assert.GreaterOrEqual(t, r, tc.min)
			assert.LessOrEqual(t, r, tc.max)
		})
	}
}

func TestRatioSymmetryBounds(t *testing.T) {
	pairs := [][2]string{
		{"elden ring", "elden rings"},
		{"half-life", "half life 2"},
		{"a", "ab"},
	}
	for _, p := range pairs {
		r1 := Ratio(p[0], p[1])
		r2 := Ratio(p[1], p[0])
		assert.InDelta(t, r1, r2, 0.0001, "ratio should be symmetric for %q/%q", p[0], p[1])
		assert.GreaterOrEqual(t, r1, 0.0)
		assert.LessOrEqual(t, r1, 1.0)
	}
}

func TestRatioFold(t *testing.T) {
	assert.Equal(t, 1.0, RatioFold("BLUE", "blue"))
	assert.Equal(t, 1.0, RatioFold("Grand Theft Auto", "grand theft auto"))
}

func TestWordOverlap(t *testing.T) {
	testCases := []struct {
		name string
		a, b string
		want float64
	}{
		{"full overlap of shorter", "dark souls", "dark souls remastered", 1.0},
		{"partial", "dark souls", "demon souls", 0.5},
		{"no words", "", "dark souls", 0.0},
		{"disjoint", "portal", "doom", 0.0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, WordOverlap(tc.a, tc.b), 0.0001)
		})
	}
}
