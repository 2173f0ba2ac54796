package cron

import (
	"errors"
	"testing"
	"time"

	"github.com/mewa/chime/chime"
)

func take(t *testing.T, seq chime.TimeSequence, n int) []time.Time {
	t.Helper()
	var out []time.Time
	for i := 0; i < n; i++ {
		at, ok := seq.Next()
		if !ok {
			t.Fatalf("sequence exhausted after %d elements, expected %d", i, n)
		}
		out = append(out, at)
	}
	return out
}

func Test_Parse_FieldCount(t *testing.T) {
	_, err := Parse("0 12 * *")
	if err == nil {
		t.Fatal("expected parse error")
	}
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("wrong error type: actual='%v'", err)
	}
}

func Test_Parse_OutOfBounds(t *testing.T) {
	_, err := Parse("60 12 * * ?")
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("wrong error type: actual='%v'", err)
	}
	if perr.Field != Minute {
		t.Fatalf("wrong field: expected='%s', actual='%s'", Minute, perr.Field)
	}
	if perr.Min != 0 || perr.Max != 59 {
		t.Fatalf("wrong bounds: actual='%d-%d'", perr.Min, perr.Max)
	}
}

func Test_Parse_InvertedRange(t *testing.T) {
	_, err := Parse("30-10 * * * ?")
	if err == nil {
		t.Fatal("expected parse error")
	}
}

func Test_Parse_Names(t *testing.T) {
	s, err := Parse("0 12 * JAN sun")
	if err != nil {
		t.Fatalf("parse failed: %s", err)
	}
	if rs := s.Ranges(Month); len(rs) != 1 || rs[0] != (Range{1, 1, 1}) {
		t.Fatalf("wrong month ranges: actual='%v'", rs)
	}
	if rs := s.Ranges(DayOfWeek); len(rs) != 1 || rs[0] != (Range{7, 7, 1}) {
		t.Fatalf("wrong day-of-week ranges: actual='%v'", rs)
	}
}

func Test_Parse_Steps(t *testing.T) {
	s, err := Parse("*/15 2/10 * * ?")
	if err != nil {
		t.Fatalf("parse failed: %s", err)
	}
	if rs := s.Ranges(Minute); rs[0] != (Range{0, 59, 15}) {
		t.Fatalf("wrong minute range: actual='%v'", rs[0])
	}
	// step with a bare lower bound runs to the field maximum
	if rs := s.Ranges(Hour); rs[0] != (Range{2, 23, 10}) {
		t.Fatalf("wrong hour range: actual='%v'", rs[0])
	}
}

func Test_Parse_Defaults(t *testing.T) {
	s, err := Parse("30 14 * * *")
	if err != nil {
		t.Fatalf("parse failed: %s", err)
	}
	if rs := s.Ranges(Second); len(rs) != 1 || rs[0] != (Range{0, 0, 1}) {
		t.Fatalf("wrong second default: actual='%v'", rs)
	}
	if !s.yearFromNow {
		t.Fatal("year should default to current year onward")
	}
}

func Test_Parse_CustomFields(t *testing.T) {
	s, err := ParseFields("0 30 14 1 1 ? 2027", []FieldKey{Second, Minute, Hour, Day, Month, DayOfWeek, Year})
	if err != nil {
		t.Fatalf("parse failed: %s", err)
	}

	from := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)
	seq := s.TimesFrom(from)

	want := time.Date(2027, time.January, 1, 14, 30, 0, 0, time.UTC)
	got := take(t, seq, 1)[0]
	if !got.Equal(want) {
		t.Fatalf("wrong match: expected='%s', actual='%s'", want, got)
	}
	if _, ok := seq.Next(); ok {
		t.Fatal("expected exhaustion after the only matching year")
	}
}

func Test_Parse_DuplicateKey(t *testing.T) {
	_, err := ParseFields("0 0", []FieldKey{Minute, Minute})
	if err == nil {
		t.Fatal("expected parse error")
	}
}

func Test_Enumerate_DailyNoon(t *testing.T) {
	s := MustParse("0 12 * * ?")
	from := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)

	for i, at := range take(t, s.TimesFrom(from), 50) {
		if at.Hour() != 12 || at.Minute() != 0 || at.Second() != 0 {
			t.Fatalf("wrong time of day at %d: actual='%s'", i, at)
		}
	}
}

func Test_Enumerate_MinuteRun(t *testing.T) {
	s := MustParse("0-5 13 * * ?")
	from := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)

	got := take(t, s.TimesFrom(from), 12)
	for i, at := range got {
		if at.Hour() != 13 {
			t.Fatalf("wrong hour at %d: actual='%s'", i, at)
		}
		if at.Minute() != i%6 {
			t.Fatalf("wrong minute at %d: expected='%d', actual='%d'", i, i%6, at.Minute())
		}
	}
	if got[6].Day() != got[0].Day()+1 {
		t.Fatalf("second run should fall on the next day: first='%s', seventh='%s'", got[0], got[6])
	}
}

func Test_Enumerate_StepMinutes(t *testing.T) {
	s := MustParse("*/5 * * * *")
	from := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)

	for i, at := range take(t, s.TimesFrom(from), 30) {
		if at.Minute()%5 != 0 {
			t.Fatalf("minute not a multiple of 5 at %d: actual='%s'", i, at)
		}
	}
}

func Test_Enumerate_AlternatingHours(t *testing.T) {
	s := MustParse("0-55/5 13,18 * * ?")
	from := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)

	got := take(t, s.TimesFrom(from), 36)
	for i, at := range got {
		if at.Minute()%5 != 0 || at.Minute() > 55 {
			t.Fatalf("wrong minute at %d: actual='%s'", i, at)
		}
		want := 13
		if (i/12)%2 == 1 {
			want = 18
		}
		if at.Hour() != want {
			t.Fatalf("wrong hour at %d: expected='%d', actual='%d'", i, want, at.Hour())
		}
	}
	// day is constant within one day's run
	if got[0].Day() != got[23].Day() {
		t.Fatalf("day changed mid-run: first='%s', last='%s'", got[0], got[23])
	}
}

func Test_Enumerate_JuneTuesdays(t *testing.T) {
	s := MustParse("15,45 13 ? 6 TUE")
	from := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)

	got := take(t, s.TimesFrom(from), 8)
	for i, at := range got {
		if at.Month() != time.June {
			t.Fatalf("wrong month at %d: actual='%s'", i, at)
		}
		if at.Weekday() != time.Tuesday {
			t.Fatalf("wrong weekday at %d: actual='%s'", i, at)
		}
		if at.Hour() != 13 || (at.Minute() != 15 && at.Minute() != 45) {
			t.Fatalf("wrong time at %d: actual='%s'", i, at)
		}
	}
	want := time.Date(2026, time.June, 2, 13, 15, 0, 0, time.UTC)
	if !got[0].Equal(want) {
		t.Fatalf("wrong first match: expected='%s', actual='%s'", want, got[0])
	}
}

func Test_Enumerate_LastThursday(t *testing.T) {
	s := MustParse("30 10 ? * thuL")
	from := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)

	got := take(t, s.TimesFrom(from), 12)
	for i, at := range got {
		if at.Weekday() != time.Thursday {
			t.Fatalf("wrong weekday at %d: actual='%s'", i, at)
		}
		if at.AddDate(0, 0, 7).Month() == at.Month() {
			t.Fatalf("not the last thursday at %d: actual='%s'", i, at)
		}
		if at.Hour() != 10 || at.Minute() != 30 {
			t.Fatalf("wrong time at %d: actual='%s'", i, at)
		}
	}
	want := time.Date(2026, time.March, 26, 10, 30, 0, 0, time.UTC)
	if !got[0].Equal(want) {
		t.Fatalf("wrong first match: expected='%s', actual='%s'", want, got[0])
	}
}

func Test_Enumerate_LastDayOfMonth(t *testing.T) {
	s := MustParse("0 12 L * ?")
	from := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)

	got := take(t, s.TimesFrom(from), 12)
	for i, at := range got {
		if at.AddDate(0, 0, 1).Day() != 1 {
			t.Fatalf("not the last day of month at %d: actual='%s'", i, at)
		}
	}
	want := time.Date(2026, time.March, 31, 12, 0, 0, 0, time.UTC)
	if !got[0].Equal(want) {
		t.Fatalf("wrong first match: expected='%s', actual='%s'", want, got[0])
	}
}

func Test_Enumerate_SkipsInvalidDates(t *testing.T) {
	s := MustParse("0 12 31 * ?")
	from := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)

	got := take(t, s.TimesFrom(from), 6)
	wantMonths := []time.Month{time.March, time.May, time.July, time.August, time.October, time.December}
	for i, at := range got {
		if at.Day() != 31 {
			t.Fatalf("wrong day at %d: actual='%s'", i, at)
		}
		if at.Month() != wantMonths[i] {
			t.Fatalf("wrong month at %d: expected='%s', actual='%s'", i, wantMonths[i], at.Month())
		}
	}
}

func Test_Enumerate_FloorSkipsPast(t *testing.T) {
	s := MustParse("0 12 * * ?")
	from := time.Date(2026, time.March, 10, 13, 0, 0, 0, time.UTC)

	got := take(t, s.TimesFrom(from), 1)[0]
	want := time.Date(2026, time.March, 11, 12, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("wrong first match: expected='%s', actual='%s'", want, got)
	}
}
