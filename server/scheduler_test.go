package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextWeekly(t *testing.T) {
	loc := time.UTC
	// 2026-08-19 is a Wednesday.
	wednesday := time.Date(2026, 8, 19, 15, 30, 0, 0, loc)

	tests := []struct {
		name string
		now  time.Time
		day  time.Weekday
		hour int
		want time.Time
	}{
		{
			name: "later this week",
			now:  wednesday,
			day:  time.Sunday,
			hour: 12,
			want: time.Date(2026, 8, 23, 12, 0, 0, 0, loc),
		},
		{
			name: "earlier weekday rolls to next week",
			now:  wednesday,
			day:  time.Monday,
			hour: 9,
			want: time.Date(2026, 8, 24, 9, 0, 0, 0, loc),
		},
		{
			name: "same day before the hour fires today",
			now:  time.Date(2026, 8, 23, 9, 0, 0, 0, loc), // Sunday morning
			day:  time.Sunday,
			hour: 12,
			want: time.Date(2026, 8, 23, 12, 0, 0, 0, loc),
		},
		{
			name: "same day after the hour rolls a full week",
			now:  time.Date(2026, 8, 23, 13, 0, 0, 0, loc),
			day:  time.Sunday,
			hour: 12,
			want: time.Date(2026, 8, 30, 12, 0, 0, 0, loc),
		},
		{
			name: "exactly at the hour rolls forward",
			now:  time.Date(2026, 8, 23, 12, 0, 0, 0, loc),
			day:  time.Sunday,
			hour: 12,
			want: time.Date(2026, 8, 30, 12, 0, 0, 0, loc),
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, nextWeekly(tc.now, tc.day, tc.hour))
		})
	}
}
