package filter

import "time"

// DefaultUTCOffset is the business timezone offset used for relative dates.
const DefaultUTCOffset = 2 * time.Hour

// Window is a half-open [Start, End) time range.
type Window struct {
	Start time.Time
	End   time.Time
}

// RelativeWindow computes the today/thisWeek/thisMonth window containing now.
// The offset is added to now before taking the calendar date; the resulting
// bounds are midnights of that date expressed in UTC, with no daylight-saving
// adjustment. Weeks start on Sunday.
func RelativeWindow(op Operator, now time.Time, offset time.Duration) (Window, bool) {
	local := now.UTC().Add(offset)
	y, m, d := local.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	switch op {
	case OpToday:
		return Window{Start: day, End: day.AddDate(0, 0, 1)}, true
	case OpThisWeek:
		start := day.AddDate(0, 0, -int(day.Weekday()))
		return Window{Start: start, End: start.AddDate(0, 0, 7)}, true
	case OpThisMonth:
		start := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
		return Window{Start: start, End: start.AddDate(0, 1, 0)}, true
	}
	return Window{}, false
}
