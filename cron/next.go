package cron

import (
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mewa/chime/chime"
)

// Times lazily enumerates the times matching the schedule, in the
// given location, starting from the clock's current instant. The
// result plugs straight into chime.ChimeAt.
func (s *Schedule) Times(clock clockwork.Clock, loc *time.Location) chime.TimeSequence {
	if loc == nil {
		loc = time.Local
	}
	return s.TimesFrom(clock.Now().In(loc))
}

// TimesFrom enumerates matching times at or after from, in from's
// location.
func (s *Schedule) TimesFrom(from time.Time) chime.TimeSequence {
	loc := from.Location()

	years := expand(s.ranges[Year])
	if s.yearFromNow {
		years = yearsFrom(from.Year())
	}

	days := expand(s.ranges[Day])
	if s.lastDay || s.lastDOW > 0 {
		// last-day matches only ever fall on days 21-31
		days = expand([]Range{{21, 31, 1}})
	}

	dows := map[int]bool{}
	for _, v := range expand(s.ranges[DayOfWeek]) {
		dows[v] = true
	}
	if len(dows) == 7 {
		dows = nil
	}

	q := &cronSeq{
		loc:     loc,
		floor:   from,
		years:   years,
		months:  expand(s.ranges[Month]),
		days:    days,
		hours:   expand(s.ranges[Hour]),
		minutes: expand(s.ranges[Minute]),
		seconds: expand(s.ranges[Second]),
		dows:    dows,
		lastDay: s.lastDay,
		lastDOW: s.lastDOW,
	}
	if len(q.years) == 0 || len(q.months) == 0 || len(q.days) == 0 ||
		len(q.hours) == 0 || len(q.minutes) == 0 || len(q.seconds) == 0 {
		q.exhausted = true
	}
	return q
}

// cronSeq walks the year × month × day × hour × minute × second
// product in calendar order, filtering invalid dates and constraint
// mismatches.
type cronSeq struct {
	loc   *time.Location
	floor time.Time

	years, months, days, hours, minutes, seconds []int

	dows    map[int]bool
	lastDay bool
	lastDOW int

	yi, mi, di, hi, ni, si int
	exhausted              bool
}

func (q *cronSeq) Next() (time.Time, bool) {
	for !q.exhausted {
		if q.years[q.yi] < q.floor.Year() {
			// whole year behind the floor; indices below year are
			// still at their cycle start here
			q.yi++
			if q.yi >= len(q.years) {
				q.exhausted = true
			}
			continue
		}

		y, m, d := q.years[q.yi], q.months[q.mi], q.days[q.di]
		h, n, sec := q.hours[q.hi], q.minutes[q.ni], q.seconds[q.si]
		q.step()

		t := time.Date(y, time.Month(m), d, h, n, sec, 0, q.loc)
		if t.Year() != y || int(t.Month()) != m || t.Day() != d {
			// nonexistent date, e.g. Feb 31
			continue
		}
		if q.dows != nil && !q.dows[isoWeekday(t.Weekday())] {
			continue
		}
		if q.lastDay && d != lastDayOfMonth(y, m) {
			continue
		}
		if q.lastDOW > 0 {
			if isoWeekday(t.Weekday()) != q.lastDOW || d+7 <= lastDayOfMonth(y, m) {
				continue
			}
		}
		if t.Before(q.floor) {
			continue
		}
		return t, true
	}
	return time.Time{}, false
}

// step advances the odometer one position, seconds first.
func (q *cronSeq) step() {
	if q.si++; q.si < len(q.seconds) {
		return
	}
	q.si = 0
	if q.ni++; q.ni < len(q.minutes) {
		return
	}
	q.ni = 0
	if q.hi++; q.hi < len(q.hours) {
		return
	}
	q.hi = 0
	if q.di++; q.di < len(q.days) {
		return
	}
	q.di = 0
	if q.mi++; q.mi < len(q.months) {
		return
	}
	q.mi = 0
	if q.yi++; q.yi >= len(q.years) {
		q.exhausted = true
	}
}

// isoWeekday maps Go's Sunday-first weekday onto MON=1..SUN=7.
func isoWeekday(w time.Weekday) int {
	if w == time.Sunday {
		return 7
	}
	return int(w)
}

func lastDayOfMonth(y, m int) int {
	return time.Date(y, time.Month(m)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func yearsFrom(y int) []int {
	max := fieldBounds[Year].max
	years := make([]int, 0, max-y+1)
	for ; y <= max; y++ {
		years = append(years, y)
	}
	return years
}
