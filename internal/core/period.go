package core

import "time"

// Period is a calendar-month interval. Both bounds are inclusive: End is the
// last representable instant of the final day.
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the period, bounds included.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && !t.After(p.End)
}

// Month returns the calendar month the period starts in.
func (p Period) Month() int {
	return int(p.Start.Month())
}

// Year returns the calendar year the period starts in.
func (p Period) Year() int {
	return p.Start.Year()
}

// MonthPeriod returns the period spanning the given calendar month in loc.
// month and year are expected to be validated by the caller.
func MonthPeriod(month, year int, loc *time.Location) Period {
	if loc == nil {
		loc = time.UTC
	}
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)
	return Period{
		Start: start,
		End:   start.AddDate(0, 1, 0).Add(-time.Nanosecond),
	}
}

// DefaultPeriod returns the calendar month containing ref.
func DefaultPeriod(ref time.Time, loc *time.Location) Period {
	if loc == nil {
		loc = time.UTC
	}
	ref = ref.In(loc)
	return MonthPeriod(int(ref.Month()), ref.Year(), loc)
}

// TrailingPeriods returns n consecutive month periods, oldest first, the last
// one being the month containing ref. n <= 0 yields an empty slice.
func TrailingPeriods(n int, ref time.Time, loc *time.Location) []Period {
	if n <= 0 {
		return []Period{}
	}
	if loc == nil {
		loc = time.UTC
	}
	ref = ref.In(loc)
	periods := make([]Period, n)
	for i := 0; i < n; i++ {
		// time.Date normalises month underflow into previous years.
		periods[i] = MonthPeriod(int(ref.Month())-(n-1-i), ref.Year(), loc)
	}
	return periods
}

// MonthsBetween counts calendar months from `from` to `to`, both months
// included. It is 1 for the same month and can be <= 0 when from is after to.
func MonthsBetween(from, to time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.UTC
	}
	from, to = from.In(loc), to.In(loc)
	return (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month()) + 1
}
