// Package times provides lazy generators of chime times: periodic,
// calendar-aware and month-anchored. All sequences are monotonically
// non-decreasing and safe to hand to chime.ChimeAt.
package times

import (
	"time"

	"github.com/mewa/chime/chime"
)

// At returns a one-shot (or finite) sequence over the given times.
func At(ts ...time.Time) chime.TimeSequence {
	return chime.Times(ts...)
}

// Every produces start, start+period, start+2*period, ...
func Every(period time.Duration, start time.Time) chime.TimeSequence {
	next := start
	return chime.SequenceFunc(func() (time.Time, bool) {
		t := next
		next = next.Add(period)
		return t, true
	})
}

// EveryN produces the first n elements of Every.
func EveryN(period time.Duration, start time.Time, n int) chime.TimeSequence {
	next := start
	i := 0
	return chime.SequenceFunc(func() (time.Time, bool) {
		if i >= n {
			return time.Time{}, false
		}
		i++
		t := next
		next = next.Add(period)
		return t, true
	})
}

// daily walks forward one calendar day at a time from the day of
// `from`, yielding hour:min candidates accepted by match.
func daily(from time.Time, hour, min int, match func(time.Time) bool) chime.TimeSequence {
	y, m, d := from.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, from.Location())
	return chime.SequenceFunc(func() (time.Time, bool) {
		for {
			t := time.Date(day.Year(), day.Month(), day.Day(), hour, min, 0, 0, day.Location())
			day = day.AddDate(0, 0, 1)
			if t.Before(from) || !match(t) {
				continue
			}
			return t, true
		}
	})
}

// DailyAt chimes every day at hour:min, starting with the first
// occurrence at or after from.
func DailyAt(from time.Time, hour, min int) chime.TimeSequence {
	return daily(from, hour, min, func(time.Time) bool { return true })
}

// WorkdaysAt chimes Monday through Friday at hour:min.
func WorkdaysAt(from time.Time, hour, min int) chime.TimeSequence {
	return daily(from, hour, min, func(t time.Time) bool {
		wd := t.Weekday()
		return wd != time.Saturday && wd != time.Sunday
	})
}

// WeekendsAt chimes Saturdays and Sundays at hour:min.
func WeekendsAt(from time.Time, hour, min int) chime.TimeSequence {
	return daily(from, hour, min, func(t time.Time) bool {
		wd := t.Weekday()
		return wd == time.Saturday || wd == time.Sunday
	})
}

// WeeklyAt chimes on the given weekday at hour:min.
func WeeklyAt(from time.Time, weekday time.Weekday, hour, min int) chime.TimeSequence {
	return daily(from, hour, min, func(t time.Time) bool {
		return t.Weekday() == weekday
	})
}

// MonthEndAt chimes on the last day of each month at hour:min.
func MonthEndAt(from time.Time, hour, min int) chime.TimeSequence {
	return daily(from, hour, min, func(t time.Time) bool {
		return t.AddDate(0, 0, 1).Day() == 1
	})
}

// FirstWeekdayOfMonthAt chimes on the first given weekday of each
// month at hour:min.
func FirstWeekdayOfMonthAt(from time.Time, weekday time.Weekday, hour, min int) chime.TimeSequence {
	return daily(from, hour, min, func(t time.Time) bool {
		return t.Weekday() == weekday && t.Day() <= 7
	})
}

// LastWeekdayOfMonthAt chimes on the last given weekday of each month
// at hour:min.
func LastWeekdayOfMonthAt(from time.Time, weekday time.Weekday, hour, min int) chime.TimeSequence {
	return daily(from, hour, min, func(t time.Time) bool {
		return t.Weekday() == weekday && t.AddDate(0, 0, 7).Month() != t.Month()
	})
}

// MonthlyAt chimes on the given day of each month at hour:min. Months
// without that day are skipped.
func MonthlyAt(from time.Time, day, hour, min int) chime.TimeSequence {
	y, m, _ := from.Date()
	cur := time.Date(y, m, 1, 0, 0, 0, 0, from.Location())
	return chime.SequenceFunc(func() (time.Time, bool) {
		for {
			t := time.Date(cur.Year(), cur.Month(), day, hour, min, 0, 0, cur.Location())
			valid := t.Day() == day && t.Month() == cur.Month()
			cur = cur.AddDate(0, 1, 0)
			if !valid || t.Before(from) {
				continue
			}
			return t, true
		}
	})
}
