package ledger

import "time"

// WeekBounds returns the Monday and Sunday of the week containing t, at
// midnight in t's location. Settlement lines are bucketed by these bounds so
// weekly payout batches line up with calendar weeks.
func WeekBounds(t time.Time) (time.Time, time.Time) {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	offset := int(day.Weekday()) - int(time.Monday)
	if offset < 0 {
		offset += 7
	}
	monday := day.AddDate(0, 0, -offset)
	return monday, monday.AddDate(0, 0, 6)
}
