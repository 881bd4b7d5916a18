// Package recurrence turns a repeating-schedule description into concrete
// calendar dates and reports problems with such descriptions.
//
// Everything here is a pure function of its inputs: no logging, no I/O and no
// shared mutable state, so callers may use it from any goroutine.
package recurrence

import (
	"time"

	"github.com/samber/mo"
)

// RecurrencePattern is the unit a schedule repeats in.
type RecurrencePattern string

const (
	PatternDaily   RecurrencePattern = "daily"
	PatternWeekly  RecurrencePattern = "weekly"
	PatternMonthly RecurrencePattern = "monthly"
	PatternYearly  RecurrencePattern = "yearly"
)

// WeekDay names a day of the week. Sunday is index 0, Saturday index 6.
type WeekDay string

const (
	Sunday    WeekDay = "sunday"
	Monday    WeekDay = "monday"
	Tuesday   WeekDay = "tuesday"
	Wednesday WeekDay = "wednesday"
	Thursday  WeekDay = "thursday"
	Friday    WeekDay = "friday"
	Saturday  WeekDay = "saturday"
)

var weekDays = [7]WeekDay{Sunday, Monday, Tuesday, Wednesday, Thursday, Friday, Saturday}

// Weekday converts d into a time.Weekday. ok is false for unknown names.
func (d WeekDay) Weekday() (wd time.Weekday, ok bool) {
	for i, name := range weekDays {
		if name == d {
			return time.Weekday(i), true
		}
	}
	return 0, false
}

// WeekDayOf returns the WeekDay a calendar date falls on.
func WeekDayOf(t time.Time) WeekDay {
	return weekDays[t.Weekday()]
}

// Ordinal selects which occurrence of a weekday within a month is meant.
type Ordinal string

const (
	First  Ordinal = "first"
	Second Ordinal = "second"
	Third  Ordinal = "third"
	Fourth Ordinal = "fourth"
	Last   Ordinal = "last"
)

// Position returns 1..4 for first..fourth and -1 for last. Unknown values
// are treated as first.
func (o Ordinal) Position() int {
	switch o {
	case Second:
		return 2
	case Third:
		return 3
	case Fourth:
		return 4
	case Last:
		return -1
	default:
		return 1
	}
}

// MonthlyPattern refines how a monthly schedule picks its day.
type MonthlyPattern string

const (
	MonthlySameDate  MonthlyPattern = "same-date"
	MonthlyDayOfWeek MonthlyPattern = "day-of-week"
)

// Config describes a repeating schedule.
//
// A zero StartDate means the start date is missing and a zero Interval means
// the interval is missing. WeeklyDays distinguishes absent (no restriction)
// from present-but-empty (reported by the validator).
type Config struct {
	Pattern   RecurrencePattern
	Interval  int
	StartDate time.Time

	// EndDate is an inclusive upper bound.
	EndDate mo.Option[time.Time]

	WeeklyDays mo.Option[[]WeekDay]

	MonthlyPattern mo.Option[MonthlyPattern]
	MonthlyOrdinal mo.Option[Ordinal]
	MonthlyWeekDay mo.Option[WeekDay]
}

// Severity classifies a validation finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// ValidationError is a single finding about one field of a Config. Only
// findings with SeverityError make a configuration invalid.
type ValidationError struct {
	Field    string   `json:"field" yaml:"field"`
	Message  string   `json:"message" yaml:"message"`
	Severity Severity `json:"severity" yaml:"severity"`
}

// Date returns the calendar day as a UTC midnight.
//
// Every date in this package uses that form. Local midnights do not exist
// on days where DST starts at 00:00 (time.Date then yields 23:00 of the day
// before), so day arithmetic stays in UTC and time zones only matter when a
// caller's time.Time is reduced to its calendar day by DateOf.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DateOf returns the calendar day t falls on in its own location, as a UTC
// midnight. The zero time stays zero.
func DateOf(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return Date(y, m, d)
}

func addDays(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	return Date(y, m, d+n)
}

func daysIn(year int, month time.Month) int {
	return Date(year, month+1, 0).Day()
}

// monthStart returns the first day of the month offset months after t's month.
func monthStart(t time.Time, offset int) time.Time {
	return Date(t.Year(), t.Month()+time.Month(offset), 1)
}
