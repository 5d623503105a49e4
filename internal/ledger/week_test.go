package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWeekBounds(t *testing.T) {
	cases := []struct {
		name   string
		in     time.Time
		monday string
		sunday string
	}{
		{"midweek", time.Date(2026, 8, 26, 15, 30, 0, 0, time.UTC), "2026-08-24", "2026-08-30"},
		{"monday", time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC), "2026-08-24", "2026-08-30"},
		{"sunday", time.Date(2026, 8, 30, 23, 59, 59, 0, time.UTC), "2026-08-24", "2026-08-30"},
		{"year boundary", time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC), "2025-12-29", "2026-01-04"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			monday, sunday := WeekBounds(tc.in)
			assert.Equal(t, tc.monday, monday.Format("2006-01-02"))
			assert.Equal(t, tc.sunday, sunday.Format("2006-01-02"))
			assert.Equal(t, time.Monday, monday.Weekday())
			assert.Equal(t, time.Sunday, sunday.Weekday())
		})
	}
}
