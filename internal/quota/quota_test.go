package quota

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeekStart(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{
			name: "monday maps to itself",
			in:   time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC),
			want: time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "monday afternoon floors to midnight",
			in:   time.Date(2026, 8, 31, 15, 4, 5, 0, time.UTC),
			want: time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "wednesday floors to monday",
			in:   time.Date(2026, 9, 2, 9, 30, 0, 0, time.UTC),
			want: time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "sunday belongs to the preceding monday",
			in:   time.Date(2026, 9, 6, 23, 59, 59, 0, time.UTC),
			want: time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "week boundary crosses months",
			in:   time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
			want: time.Date(2026, 9, 28, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "year boundary",
			in:   time.Date(2027, 1, 1, 0, 0, 1, 0, time.UTC),
			want: time.Date(2026, 12, 28, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want.Unix(), WeekStart(tt.in))
		})
	}
}

func TestWeekStartIgnoresLocation(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	utc := time.Date(2026, 9, 2, 3, 0, 0, 0, time.UTC)
	assert.Equal(t, WeekStart(utc), WeekStart(utc.In(loc)))
}

func TestWeekStartAdvancesByWholeWeeks(t *testing.T) {
	base := time.Date(2026, 9, 3, 11, 0, 0, 0, time.UTC)
	assert.Equal(t, WeekStart(base)+7*24*3600, WeekStart(base.AddDate(0, 0, 7)))
}
