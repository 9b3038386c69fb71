package translate

import "time"

// WeekStart returns Monday 00:00 of the week containing now, in loc.
func WeekStart(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	t := now.In(loc)
	days := (int(t.Weekday()) + 6) % 7
	y, m, d := t.Date()
	return time.Date(y, m, d-days, 0, 0, 0, 0, loc)
}

// OpenAt converts minutes since Monday 00:00 into a Unix timestamp
// within the week containing now.
func OpenAt(minutes uint32, now time.Time, loc *time.Location) int64 {
	return WeekStart(now, loc).Unix() + int64(minutes)*60
}
