package cron

import (
	"strconv"
	"strings"
)

// Schedule is a compiled cron expression: per-field range lists plus
// the last-day flags.
type Schedule struct {
	ranges map[FieldKey][]Range

	// lastDay keeps only the last day of each month.
	lastDay bool
	// lastDOW keeps only the last occurrence of this ISO weekday in
	// each month; 0 when unset.
	lastDOW int

	// yearFromNow marks an omitted year field: enumeration starts at
	// the clock's current year.
	yearFromNow bool
}

// Parse compiles a classical 5-field expression
// (minute hour day month day-of-week).
func Parse(expr string) (*Schedule, error) {
	return ParseFields(expr, DefaultFields)
}

// MustParse is Parse, panicking on error.
func MustParse(expr string) *Schedule {
	s, err := Parse(expr)
	if err != nil {
		panic(err)
	}
	return s
}

// ParseFields compiles expr against a custom field-key list of the
// same length. Fields absent from keys take their defaults: second 0,
// minute 0, hour 0, day 1, month 1, day-of-week unconstrained, year
// from the current year onward.
func ParseFields(expr string, keys []FieldKey) (*Schedule, error) {
	tokens := strings.Fields(expr)
	if len(tokens) != len(keys) {
		return nil, &ParseError{
			Token:  expr,
			Reason: "expected " + strconv.Itoa(len(keys)) + " fields, got " + strconv.Itoa(len(tokens)),
		}
	}

	s := &Schedule{ranges: map[FieldKey][]Range{}}

	seen := map[FieldKey]bool{}
	for i, key := range keys {
		if _, ok := fieldBounds[key]; !ok {
			return nil, &ParseError{Field: key, Token: tokens[i], Reason: "unknown field key"}
		}
		if seen[key] {
			return nil, &ParseError{Field: key, Token: tokens[i], Reason: "duplicate field key"}
		}
		seen[key] = true

		if err := s.parseField(key, tokens[i]); err != nil {
			return nil, err
		}
	}

	for key, rs := range defaultRanges {
		if !seen[key] {
			s.ranges[key] = rs
		}
	}
	if !seen[DayOfWeek] {
		b := fieldBounds[DayOfWeek]
		s.ranges[DayOfWeek] = []Range{{b.min, b.max, 1}}
	}
	if !seen[Year] {
		s.yearFromNow = true
		b := fieldBounds[Year]
		s.ranges[Year] = []Range{{b.min, b.max, 1}}
	}
	return s, nil
}

func (s *Schedule) parseField(key FieldKey, token string) error {
	b := fieldBounds[key]
	lower := strings.ToLower(token)

	// last-day specials
	if key == Day && lower == "l" {
		s.lastDay = true
		s.ranges[Day] = []Range{{b.min, b.max, 1}}
		return nil
	}
	if key == DayOfWeek && strings.HasSuffix(lower, "l") && lower != "l" {
		dow, err := parseValue(key, b, strings.TrimSuffix(lower, "l"))
		if err != nil {
			return err
		}
		s.lastDOW = dow
		s.ranges[DayOfWeek] = []Range{{b.min, b.max, 1}}
		return nil
	}

	var ranges []Range
	for _, item := range strings.Split(lower, ",") {
		r, err := parseItem(key, b, item)
		if err != nil {
			return err
		}
		ranges = append(ranges, r)
	}
	s.ranges[key] = ranges
	return nil
}

func parseItem(key FieldKey, b bounds, item string) (Range, error) {
	rangePart := item
	step := 1
	hasStep := false

	if idx := strings.Index(item, "/"); idx >= 0 {
		rangePart = item[:idx]
		n, err := strconv.Atoi(item[idx+1:])
		if err != nil || n <= 0 {
			return Range{}, &ParseError{Field: key, Token: item, Reason: "invalid step"}
		}
		step = n
		hasStep = true
	}

	switch {
	case rangePart == "*" || rangePart == "?":
		return Range{b.min, b.max, step}, nil
	case strings.Contains(rangePart, "-"):
		parts := strings.SplitN(rangePart, "-", 2)
		from, err := parseValue(key, b, parts[0])
		if err != nil {
			return Range{}, err
		}
		to, err := parseValue(key, b, parts[1])
		if err != nil {
			return Range{}, err
		}
		if from > to {
			return Range{}, &ParseError{Field: key, Token: item, Min: b.min, Max: b.max, Reason: "inverted range"}
		}
		return Range{from, to, step}, nil
	default:
		v, err := parseValue(key, b, rangePart)
		if err != nil {
			return Range{}, err
		}
		if hasStep {
			// step with a bare lower bound runs to the field maximum
			return Range{v, b.max, step}, nil
		}
		return Range{v, v, 1}, nil
	}
}

func parseValue(key FieldKey, b bounds, tok string) (int, error) {
	if v, ok := b.names[tok]; ok {
		return v, nil
	}
	v, err := strconv.Atoi(tok)
	if err != nil {
		return 0, &ParseError{Field: key, Token: tok, Min: b.min, Max: b.max, Reason: "unrecognized value"}
	}
	if v < b.min || v > b.max {
		return 0, &ParseError{Field: key, Token: tok, Min: b.min, Max: b.max, Reason: "value out of bounds"}
	}
	return v, nil
}

// Ranges returns the compiled ranges for a field key.
func (s *Schedule) Ranges(key FieldKey) []Range {
	return s.ranges[key]
}

// LastDay reports whether the day field carries the L flag.
func (s *Schedule) LastDay() bool {
	return s.lastDay
}

// LastDayOfWeek returns the <dow>L weekday, or 0 when unset.
func (s *Schedule) LastDayOfWeek() int {
	return s.lastDOW
}
