package recurrence

import (
	"time"
)

const (
	// DefaultMaxDates is used when GenerateRecurringDates is given a
	// non-positive limit.
	DefaultMaxDates = 50

	// maxOrdinalSearchMonths bounds the forward search for an ordinal
	// weekday that does not exist in a target month.
	maxOrdinalSearchMonths = 24
)

// nextFunc computes the occurrence that follows current. ok is false when no
// further occurrence exists.
type nextFunc func(current time.Time) (next time.Time, ok bool)

// GenerateRecurringDates enumerates the occurrence dates of cfg in ascending
// order, stopping after maxDates dates or at the first date past EndDate.
//
// It does not validate cfg. Unknown patterns, a missing start date or a
// non-positive interval produce an empty or truncated result instead of an
// error; callers are expected to run ValidateConfig first.
func GenerateRecurringDates(cfg Config, maxDates int) []time.Time {
	if maxDates <= 0 {
		maxDates = DefaultMaxDates
	}

	dates := make([]time.Time, 0)
	if cfg.StartDate.IsZero() {
		return dates
	}

	start := DateOf(cfg.StartDate)
	next, ok := stepper(cfg, start)
	if !ok {
		return dates
	}

	// A zero end date counts as absent, as in ValidateConfig.
	end, hasEnd := cfg.EndDate.Get()
	hasEnd = hasEnd && !end.IsZero()
	end = DateOf(end)
	withinEnd := func(t time.Time) bool {
		return !hasEnd || !t.After(end)
	}

	current := start
	include := shouldIncludeStartDate(cfg, start)

	// Day-of-week months are anchored to calendar positions, so the first
	// occurrence is the ordinal weekday on or after the start date.
	if ordinal, weekday, ok := monthlyDayOfWeek(cfg); ok {
		first, found := firstOrdinalOnOrAfter(start, ordinal, weekday)
		if !found {
			return dates
		}
		current = first
		include = true
	}

	if include {
		if !withinEnd(current) {
			return dates
		}
		dates = append(dates, current)
	}

	for len(dates) < maxDates {
		candidate, ok := next(current)
		if !ok || !withinEnd(candidate) {
			break
		}
		dates = append(dates, candidate)
		current = candidate
	}

	return dates
}

// shouldIncludeStartDate reports whether the start date is itself an
// occurrence. Only a weekly schedule restricted to a non-empty set of weekdays
// can exclude it.
func shouldIncludeStartDate(cfg Config, start time.Time) bool {
	if cfg.Pattern != PatternWeekly {
		return true
	}
	days, ok := cfg.WeeklyDays.Get()
	if !ok || len(days) == 0 {
		return true
	}
	return weekdaySet(days)[start.Weekday()]
}

// stepper picks the next-date rule for cfg. ok is false for unknown patterns
// and for intervals that would never advance.
func stepper(cfg Config, start time.Time) (nextFunc, bool) {
	interval := cfg.Interval
	if interval < 1 {
		return nil, false
	}

	switch cfg.Pattern {
	case PatternDaily:
		return func(current time.Time) (time.Time, bool) {
			return addDays(current, interval), true
		}, true

	case PatternWeekly:
		days, ok := cfg.WeeklyDays.Get()
		if !ok || len(days) == 0 {
			return func(current time.Time) (time.Time, bool) {
				return addDays(current, 7*interval), true
			}, true
		}
		set := weekdaySet(days)
		return func(current time.Time) (time.Time, bool) {
			return nextWeeklyOnDays(current, interval, set)
		}, true

	case PatternMonthly:
		if ordinal, weekday, ok := monthlyDayOfWeek(cfg); ok {
			return func(current time.Time) (time.Time, bool) {
				return nextMonthlyDayOfWeek(current, interval, ordinal, weekday)
			}, true
		}
		anchorDay := start.Day()
		return func(current time.Time) (time.Time, bool) {
			return nextMonthlySameDate(current, interval, anchorDay), true
		}, true

	case PatternYearly:
		anchorMonth, anchorDay := start.Month(), start.Day()
		return func(current time.Time) (time.Time, bool) {
			return nextYearly(current, interval, anchorMonth, anchorDay), true
		}, true

	default:
		return nil, false
	}
}

// nextWeeklyOnDays finds the next selected weekday later in the current
// Sunday-based week. When none is left it jumps interval weeks ahead of the
// current week and takes the first selected weekday there.
func nextWeeklyOnDays(current time.Time, interval int, days [7]bool) (time.Time, bool) {
	for d := addDays(current, 1); d.Weekday() != time.Sunday; d = addDays(d, 1) {
		if days[d.Weekday()] {
			return d, true
		}
	}

	weekStart := addDays(current, 7*interval-int(current.Weekday()))
	for i := 0; i < 7; i++ {
		d := addDays(weekStart, i)
		if days[d.Weekday()] {
			return d, true
		}
	}
	return time.Time{}, false
}

// nextMonthlySameDate moves interval months ahead and keeps anchorDay,
// clamped to the last day of shorter months.
func nextMonthlySameDate(current time.Time, interval, anchorDay int) time.Time {
	target := monthStart(current, interval)
	return Date(target.Year(), target.Month(), min(anchorDay, daysIn(target.Year(), target.Month())))
}

// nextYearly moves interval years ahead on the anchor month and day. Feb 29
// lands on Feb 28 in non-leap years.
func nextYearly(current time.Time, interval int, anchorMonth time.Month, anchorDay int) time.Time {
	year := current.Year() + interval
	return Date(year, anchorMonth, min(anchorDay, daysIn(year, anchorMonth)))
}

// nextMonthlyDayOfWeek resolves the ordinal weekday interval months after
// current, walking forward one month at a time if the target month lacks it.
func nextMonthlyDayOfWeek(current time.Time, interval int, ordinal Ordinal, weekday time.Weekday) (time.Time, bool) {
	for i := 0; i < maxOrdinalSearchMonths; i++ {
		target := monthStart(current, interval+i)
		if d, ok := ordinalWeekdayInMonth(target.Year(), target.Month(), ordinal, weekday); ok {
			return d, true
		}
	}
	return time.Time{}, false
}

func firstOrdinalOnOrAfter(start time.Time, ordinal Ordinal, weekday time.Weekday) (time.Time, bool) {
	for i := 0; i < maxOrdinalSearchMonths; i++ {
		target := monthStart(start, i)
		d, ok := ordinalWeekdayInMonth(target.Year(), target.Month(), ordinal, weekday)
		if ok && !d.Before(start) {
			return d, true
		}
	}
	return time.Time{}, false
}

// ordinalWeekdayInMonth returns e.g. the second Tuesday of a month. Last is
// the occurrence whose following week falls in the next month.
func ordinalWeekdayInMonth(year int, month time.Month, ordinal Ordinal, weekday time.Weekday) (time.Time, bool) {
	first := Date(year, month, 1)
	day := 1 + (int(weekday)-int(first.Weekday())+7)%7
	last := daysIn(year, month)

	pos := ordinal.Position()
	if pos < 0 {
		for day+7 <= last {
			day += 7
		}
		return Date(year, month, day), true
	}

	day += 7 * (pos - 1)
	if day > last {
		return time.Time{}, false
	}
	return Date(year, month, day), true
}

// monthlyDayOfWeek reports whether cfg is a complete monthly day-of-week
// schedule. Incomplete ones fall back to the same-date rule.
func monthlyDayOfWeek(cfg Config) (Ordinal, time.Weekday, bool) {
	if cfg.Pattern != PatternMonthly {
		return "", 0, false
	}
	if p, ok := cfg.MonthlyPattern.Get(); !ok || p != MonthlyDayOfWeek {
		return "", 0, false
	}
	ordinal, ok := cfg.MonthlyOrdinal.Get()
	if !ok || ordinal == "" {
		return "", 0, false
	}
	wd, ok := cfg.MonthlyWeekDay.Get()
	if !ok {
		return "", 0, false
	}
	weekday, ok := wd.Weekday()
	if !ok {
		return "", 0, false
	}
	return ordinal, weekday, true
}

func weekdaySet(days []WeekDay) [7]bool {
	var set [7]bool
	for _, d := range days {
		if wd, ok := d.Weekday(); ok {
			set[wd] = true
		}
	}
	return set
}
